package realtime

import "encoding/json"

// Client -> server event names.
const (
	EventJoin              = "join"
	EventJoinConversation  = "join-conversation"
	EventLeaveConversation = "leave-conversation"
	EventNewMessage        = "new-message"
	EventTyping            = "typing"
	EventStopTyping        = "stop-typing"
	EventMessageRead       = "message-read"
	EventNewConversation   = "new-conversation"
)

// Server -> client event names.
const (
	EventOnlineUsers         = "online-users"
	EventUserOnline          = "user-online"
	EventUserOffline         = "user-offline"
	EventMessage             = "message"
	EventUserTyping          = "user-typing"
	EventUserStoppedTyping   = "user-stopped-typing"
	EventMessageReadUpdate   = "message-read-update"
	EventConversationCreated = "conversation-created"
)

// Event is the tagged envelope every relay frame uses: an event name plus a
// payload decoded per kind. Keeping Data raw lets the relay forward message
// bodies verbatim without inspecting them.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals payload into an envelope.
func NewEvent(name string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Data: data}, nil
}

// MessagePayload carries a stored message into a conversation room. The
// message body is opaque to the relay; it was already persisted by the API.
type MessagePayload struct {
	ConversationID string          `json:"conversationId"`
	Message        json.RawMessage `json:"message"`
}

// TypingPayload is used for both typing and stop-typing. The relay overwrites
// UserID and UserName with the sending connection's identity before fan-out.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
}

type ReadPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	UserID         string `json:"userId"`
}

// ReadReceipt is the outbound shape of a message-read-update.
type ReadReceipt struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

// ConversationPayload announces a freshly created conversation to its
// participants. Only currently online participants are notified.
type ConversationPayload struct {
	Conversation   json.RawMessage `json:"conversation"`
	ParticipantIDs []string        `json:"participantIds"`
}
