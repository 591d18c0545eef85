package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation groups messages between two or more participants. Direct
// (non-group) conversations carry a PairKey so at most one document exists
// per unordered participant pair; groups leave it null.
type Conversation struct {
	Model
	Name         *string `json:"name"`
	IsGroup      bool    `gorm:"default:false" json:"isGroup"`
	PairKey      *string `gorm:"uniqueIndex" json:"-"`
	Participants []User  `gorm:"many2many:conversation_participants;" json:"-"`
}

// DirectPairKey builds the canonical key for a two-participant conversation.
// The ids are ordered so both directions map to the same key.
func DirectPairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}

type CreateConversationRequest struct {
	ParticipantIDs []string `json:"participantIds" binding:"required,min=1"`
	IsGroup        bool     `json:"isGroup"`
	Name           string   `json:"name"`
}

type ParticipantResponse struct {
	UserID string       `json:"userId"`
	User   UserResponse `json:"user"`
}

type ConversationResponse struct {
	ID           string                `json:"id"`
	Name         *string               `json:"name"`
	IsGroup      bool                  `json:"isGroup"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
	Participants []ParticipantResponse `json:"participants"`
	Messages     []MessageResponse     `json:"messages"`
	Count        *MessageCount         `json:"_count,omitempty"`
}

type MessageCount struct {
	Messages int64 `json:"messages"`
}
