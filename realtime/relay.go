package realtime

import (
	"encoding/json"
	"log"
)

// Dispatch routes one inbound frame. Malformed or unknown events are logged
// and dropped; the relay never answers with a structured error. Nothing in
// here touches the persistence layer - messages arrive already stored and
// are forwarded verbatim.
func (h *Hub) Dispatch(c *Client, raw []byte) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		log.Printf("relay: dropping malformed frame from %s: %v", c.ID, err)
		return
	}

	switch ev.Name {
	case EventJoin:
		// The payload carries a user id for protocol compatibility, but
		// identity always comes from the authenticated connection.
		var claimed string
		if err := json.Unmarshal(ev.Data, &claimed); err == nil && claimed != "" && claimed != c.UserID {
			log.Printf("relay: join id mismatch on %s: claimed %s, authenticated %s", c.ID, claimed, c.UserID)
		}
		h.RegisterUser(c)

	case EventJoinConversation:
		var conversationID string
		if err := json.Unmarshal(ev.Data, &conversationID); err != nil || conversationID == "" {
			return
		}
		h.JoinRoom(c, conversationID)

	case EventLeaveConversation:
		var conversationID string
		if err := json.Unmarshal(ev.Data, &conversationID); err != nil || conversationID == "" {
			return
		}
		h.LeaveRoom(c, conversationID)

	case EventNewMessage:
		var p MessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == "" {
			return
		}
		h.BroadcastToRoom(p.ConversationID, Event{Name: EventMessage, Data: p.Message}, c.ID)

	case EventTyping:
		h.relayTyping(c, ev.Data, EventUserTyping)

	case EventStopTyping:
		h.relayTyping(c, ev.Data, EventUserStoppedTyping)

	case EventMessageRead:
		var p ReadPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == "" || p.MessageID == "" {
			return
		}
		out, err := NewEvent(EventMessageReadUpdate, ReadReceipt{
			MessageID: p.MessageID,
			UserID:    c.UserID,
		})
		if err != nil {
			return
		}
		h.BroadcastToRoom(p.ConversationID, out, c.ID)

	case EventNewConversation:
		var p ConversationPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		out := Event{Name: EventConversationCreated, Data: p.Conversation}
		for _, participantID := range p.ParticipantIDs {
			if participantID == c.UserID {
				continue
			}
			// Offline participants get nothing; they learn of the
			// conversation on their next poll.
			h.SendToUser(participantID, out)
		}

	default:
		log.Printf("relay: unknown event %q from %s", ev.Name, c.ID)
	}
}

// relayTyping forwards typing state to the room. The caller-supplied user id
// and name are discarded in favor of the connection's authenticated identity.
func (h *Hub) relayTyping(c *Client, data json.RawMessage, outName string) {
	var p TypingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" {
		return
	}
	p.UserID = c.UserID
	p.UserName = c.UserName

	out, err := NewEvent(outName, p)
	if err != nil {
		return
	}
	h.BroadcastToRoom(p.ConversationID, out, c.ID)
}
