package realtime

import "sync"

// Broadcaster is the fan-out capability the relay exposes. Delivery is
// fire-and-forget with no acknowledgment; tests substitute a recording stub.
type Broadcaster interface {
	BroadcastToRoom(conversationID string, ev Event, excludeConn string)
	SendToUser(userID string, ev Event) bool
}

// Hub owns all relay state: the presence registry, the set of connected
// clients and the per-conversation rooms. It is created at process start and
// injected where needed rather than living as package globals.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client            // connID -> client
	rooms    map[string]map[string]*Client // conversationID -> connID -> client
	registry *Registry
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[string]*Client),
		registry: NewRegistry(),
	}
}

// Registry exposes the presence map for read-side consumers.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// AddClient tracks a freshly upgraded connection. Presence is not announced
// until the client sends its join event.
func (h *Hub) AddClient(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
}

// RemoveClient drops the connection from all rooms and, if it was the user's
// current connection, clears presence and broadcasts user-offline.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	for roomID, members := range h.rooms {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	close(c.send)

	if userID, removed := h.registry.Unregister(c.ID); removed {
		ev, err := NewEvent(EventUserOffline, userID)
		if err == nil {
			h.broadcastAll(ev, c.ID)
		}
	}
}

// RegisterUser marks the connection's user online: registry insert
// (last-write-wins), user-online to everyone else, and an online-users
// snapshot back to the joiner.
func (h *Hub) RegisterUser(c *Client) {
	h.registry.Register(c.UserID, c.ID)

	if ev, err := NewEvent(EventUserOnline, c.UserID); err == nil {
		h.broadcastAll(ev, c.ID)
	}
	if ev, err := NewEvent(EventOnlineUsers, h.registry.Online()); err == nil {
		c.enqueue(ev)
	}
}

// JoinRoom adds the connection to a conversation room. Joining twice is a
// no-op. No membership authorization happens here; the socket was
// authenticated at upgrade but room ids are not checked against participant
// lists.
func (h *Hub) JoinRoom(c *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[string]*Client)
		h.rooms[conversationID] = room
	}
	room[c.ID] = c
}

// LeaveRoom removes the connection from a room. Leaving a room the
// connection never joined is a no-op.
func (h *Hub) LeaveRoom(c *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[conversationID]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// BroadcastToRoom delivers ev to every connection in the room except
// excludeConn. Slow receivers drop the event rather than blocking.
func (h *Hub) BroadcastToRoom(conversationID string, ev Event, excludeConn string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID, c := range h.rooms[conversationID] {
		if connID == excludeConn {
			continue
		}
		c.enqueue(ev)
	}
}

// SendToUser delivers ev to the user's current connection, if any. Offline
// users are silently skipped. The enqueue happens under the read lock so a
// concurrent RemoveClient cannot close the send channel first.
func (h *Hub) SendToUser(userID string, ev Event) bool {
	connID, ok := h.registry.Lookup(userID)
	if !ok {
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	c := h.clients[connID]
	if c == nil {
		return false
	}
	c.enqueue(ev)
	return true
}

func (h *Hub) broadcastAll(ev Event, excludeConn string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID, c := range h.clients {
		if connID == excludeConn {
			continue
		}
		c.enqueue(ev)
	}
}
