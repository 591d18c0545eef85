package realtime

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 32
)

// Client is one relay connection. Identity comes from the authenticated
// upgrade, never from event payloads.
type Client struct {
	ID       string
	UserID   string
	UserName string

	hub  *Hub
	conn *websocket.Conn
	send chan Event
}

func NewClient(id, userID, userName string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		UserName: userName,
		hub:      hub,
		conn:     conn,
		send:     make(chan Event, sendBufferSize),
	}
}

// enqueue hands an event to the write pump without ever blocking the caller.
// A full buffer drops the event: delivery is at most once.
func (c *Client) enqueue(ev Event) {
	select {
	case c.send <- ev:
	default:
	}
}

// ReadPump reads frames off the socket and hands them to the hub until the
// connection drops, then tears the client down.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("relay: read error on %s: %v", c.ID, err)
			}
			break
		}
		c.hub.Dispatch(c, message)
	}
}

// WritePump drains the send channel onto the socket and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
