package realtime

import "sync"

// Registry is the in-memory user-to-connection map used for presence and
// targeted delivery. It is the source of presence truth and nothing in it
// survives a restart. Operations cannot fail; an absent lookup returns ok
// false and callers skip delivery.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]string // userID -> connID
	byConn map[string]string // connID -> userID
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// Register maps userID to connID, overwriting any prior mapping for that
// user (last connection wins on multi-tab use). It reports the replaced
// connection id, if any.
func (r *Registry) Register(userID, connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, replaced := r.byUser[userID]
	if replaced {
		delete(r.byConn, previous)
	}
	r.byUser[userID] = connID
	r.byConn[connID] = userID
	return previous, replaced
}

// Unregister removes the entry for connID, but only if it is still that
// user's current connection. A stale connection (already replaced by a newer
// tab) unregisters silently without clearing the user's presence.
func (r *Registry) Unregister(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)
	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
		return userID, true
	}
	return "", false
}

// Lookup returns the current connection id for userID.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byUser[userID]
	return connID, ok
}

// Online returns a snapshot of all user ids with a live connection.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	return users
}
