package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyMessage   = errors.New("Message cannot be empty")
	ErrMessageTooLong = errors.New("Message is too long")
)

// MaxMessageLength bounds message content, matching the client-side limit.
const MaxMessageLength = 5000

// Message belongs to a conversation. Messages are soft-deleted: DeletedAt is
// set instead of removing the row, and listings filter on it explicitly so a
// direct id lookup still returns the record.
type Message struct {
	Model
	Content        string     `gorm:"type:text;not null" json:"content"`
	ConversationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"conversationId"`
	SenderID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"senderId"`
	Sender         User       `gorm:"foreignKey:SenderID" json:"-"`
	DeletedAt      *time.Time `json:"deletedAt"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type MessageResponse struct {
	ID             string        `json:"id"`
	Content        string        `json:"content"`
	ConversationID string        `json:"conversationId"`
	SenderID       string        `json:"senderId"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	DeletedAt      *time.Time    `json:"deletedAt"`
	Sender         *UserResponse `json:"sender"`
}

// Response formats a message with its sender block populated.
func (m *Message) Response() MessageResponse {
	resp := MessageResponse{
		ID:             m.ID.String(),
		Content:        m.Content,
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID.String(),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		DeletedAt:      m.DeletedAt,
	}
	if m.Sender.ID != uuid.Nil {
		sender := m.Sender.Public()
		resp.Sender = &sender
	}
	return resp
}

// ValidateContent enforces the non-empty and length bounds on message text.
// It returns the trimmed content on success.
func ValidateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ErrEmptyMessage
	}
	if len(content) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return trimmed, nil
}
