package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/parleyhq/parley/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ChatRepository interface {
	ListConversationsForUser(userID uuid.UUID) ([]models.Conversation, error)
	FindConversationForUser(conversationID, userID uuid.UUID) (*models.Conversation, error)
	FindDirectConversation(pairKey string) (*models.Conversation, error)
	CreateConversation(conv *models.Conversation) error
	DeleteConversationWithMessages(conversationID uuid.UUID) error
	IsParticipant(conversationID, userID uuid.UUID) (bool, error)
	LastMessage(conversationID uuid.UUID) (*models.Message, error)
	CountMessages(conversationID uuid.UUID) (int64, error)
	ListMessages(conversationID uuid.UUID) ([]models.Message, error)
	CreateMessage(msg *models.Message) error
	TouchConversation(conversationID uuid.UUID, at time.Time) error
	FindMessageByID(id uuid.UUID) (*models.Message, error)
	UpdateMessageContent(id uuid.UUID, content string) error
	SoftDeleteMessage(id uuid.UUID, at time.Time) error
}

type chatRepo struct {
	DB *gorm.DB
}

func NewChatRepo(db *GormDB) ChatRepository {
	return &chatRepo{db.DB}
}

func (r *chatRepo) ListConversationsForUser(userID uuid.UUID) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.DB.
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID).
		Preload("Participants").
		Order("conversations.updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not list conversations")
	}
	return convs, nil
}

// FindConversationForUser fetches a conversation only if the given user is a
// participant. An absent conversation and a membership miss both surface as
// gorm.ErrRecordNotFound; callers fold the two into forbidden.
func (r *chatRepo) FindConversationForUser(conversationID, userID uuid.UUID) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := r.DB.
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("conversations.id = ? AND cp.user_id = ?", conversationID, userID).
		Preload("Participants").
		First(conv).Error
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *chatRepo) FindDirectConversation(pairKey string) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := r.DB.Where("pair_key = ?", pairKey).Preload("Participants").First(conv).Error
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// CreateConversation inserts the conversation and its participant join rows.
// Participant users must already exist; their rows are left untouched.
func (r *chatRepo) CreateConversation(conv *models.Conversation) error {
	err := r.DB.Omit("Participants.*").Create(conv).Error
	return errors.Wrap(err, "could not create conversation")
}

func (r *chatRepo) DeleteConversationWithMessages(conversationID uuid.UUID) error {
	if err := r.DB.Where("conversation_id = ?", conversationID).Delete(&models.Message{}).Error; err != nil {
		return errors.Wrap(err, "could not delete messages")
	}
	if err := r.DB.Exec("DELETE FROM conversation_participants WHERE conversation_id = ?", conversationID).Error; err != nil {
		return errors.Wrap(err, "could not delete participants")
	}
	err := r.DB.Where("id = ?", conversationID).Delete(&models.Conversation{}).Error
	return errors.Wrap(err, "could not delete conversation")
}

func (r *chatRepo) IsParticipant(conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB.Table("conversation_participants").
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "could not check membership")
	}
	return count > 0, nil
}

// LastMessage returns the most recent non-deleted message, or nil when the
// conversation has none.
func (r *chatRepo) LastMessage(conversationID uuid.UUID) (*models.Message, error) {
	msg := &models.Message{}
	err := r.DB.
		Where("conversation_id = ? AND deleted_at IS NULL", conversationID).
		Order("created_at DESC").
		Preload("Sender").
		First(msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch last message")
	}
	return msg, nil
}

func (r *chatRepo) CountMessages(conversationID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND deleted_at IS NULL", conversationID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "could not count messages")
	}
	return count, nil
}

func (r *chatRepo) ListMessages(conversationID uuid.UUID) ([]models.Message, error) {
	var msgs []models.Message
	err := r.DB.
		Where("conversation_id = ? AND deleted_at IS NULL", conversationID).
		Order("created_at ASC").
		Preload("Sender").
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not list messages")
	}
	return msgs, nil
}

func (r *chatRepo) CreateMessage(msg *models.Message) error {
	err := r.DB.Omit("Sender").Create(msg).Error
	return errors.Wrap(err, "could not create message")
}

// TouchConversation bumps the conversation's updated_at. This is a separate
// write from the message insert; a crash in between leaves a stale timestamp.
func (r *chatRepo) TouchConversation(conversationID uuid.UUID, at time.Time) error {
	err := r.DB.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", at).Error
	return errors.Wrap(err, "could not touch conversation")
}

// FindMessageByID returns the message regardless of soft-delete state.
func (r *chatRepo) FindMessageByID(id uuid.UUID) (*models.Message, error) {
	msg := &models.Message{}
	err := r.DB.Where("id = ?", id).Preload("Sender").First(msg).Error
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *chatRepo) UpdateMessageContent(id uuid.UUID, content string) error {
	err := r.DB.Model(&models.Message{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":    content,
			"updated_at": time.Now(),
		}).Error
	return errors.Wrap(err, "could not update message")
}

func (r *chatRepo) SoftDeleteMessage(id uuid.UUID, at time.Time) error {
	err := r.DB.Model(&models.Message{}).Where("id = ?", id).
		Update("deleted_at", at).Error
	return errors.Wrap(err, "could not delete message")
}
