package services

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/parleyhq/parley/config"
	"github.com/parleyhq/parley/db"
	apiError "github.com/parleyhq/parley/errors"
	"github.com/parleyhq/parley/models"
	"gorm.io/gorm"
)

// ChatService implements the conversation and message use cases. Every
// operation that touches a conversation re-checks membership; non-participants
// get forbidden whether or not the conversation exists.
type ChatService interface {
	ListConversations(userID uuid.UUID) ([]models.ConversationResponse, *apiError.Error)
	CreateConversation(creatorID uuid.UUID, request *models.CreateConversationRequest) (*models.ConversationResponse, bool, *apiError.Error)
	GetConversation(conversationID, userID uuid.UUID) (*models.ConversationResponse, *apiError.Error)
	DeleteConversation(conversationID, userID uuid.UUID) *apiError.Error
	ListMessages(conversationID, userID uuid.UUID) ([]models.MessageResponse, *apiError.Error)
	SendMessage(conversationID, senderID uuid.UUID, content string) (*models.MessageResponse, *apiError.Error)
	EditMessage(conversationID, messageID, userID uuid.UUID, content string) (*models.MessageResponse, *apiError.Error)
	DeleteMessage(conversationID, messageID, userID uuid.UUID) (*models.MessageResponse, *apiError.Error)
}

// chatService struct
type chatService struct {
	Config   *config.Config
	chatRepo db.ChatRepository
	authRepo db.AuthRepository
}

// NewChatService instantiate a chatService
func NewChatService(chatRepo db.ChatRepository, authRepo db.AuthRepository, conf *config.Config) ChatService {
	return &chatService{
		Config:   conf,
		chatRepo: chatRepo,
		authRepo: authRepo,
	}
}

// ListConversations returns the caller's conversations newest-activity first,
// each carrying its latest message and a message count for the sidebar.
func (s *chatService) ListConversations(userID uuid.UUID) ([]models.ConversationResponse, *apiError.Error) {
	convs, err := s.chatRepo.ListConversationsForUser(userID)
	if err != nil {
		log.Printf("ListConversations error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	results := make([]models.ConversationResponse, 0, len(convs))
	for i := range convs {
		resp, apiErr := s.conversationPreview(&convs[i])
		if apiErr != nil {
			return nil, apiErr
		}
		results = append(results, *resp)
	}
	return results, nil
}

// CreateConversation creates a group or direct conversation. For a direct
// conversation between two users at most one row ever exists: the pair key's
// unique index catches concurrent creates and the loser returns the winner's
// row. The second return value reports whether an existing conversation was
// reused.
func (s *chatService) CreateConversation(creatorID uuid.UUID, request *models.CreateConversationRequest) (*models.ConversationResponse, bool, *apiError.Error) {
	participants, apiErr := s.resolveParticipants(creatorID, request.ParticipantIDs)
	if apiErr != nil {
		return nil, false, apiErr
	}

	isGroup := request.IsGroup || len(participants) > 2
	var pairKey *string
	if !isGroup {
		if len(participants) != 2 {
			return nil, false, apiError.New("A direct conversation needs exactly one other participant", http.StatusBadRequest)
		}
		key := models.DirectPairKey(participants[0].ID, participants[1].ID)
		pairKey = &key

		if existing, err := s.chatRepo.FindDirectConversation(key); err == nil {
			resp, apiErr := s.conversationPreview(existing)
			if apiErr != nil {
				return nil, false, apiErr
			}
			return resp, true, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("CreateConversation lookup error: %v", err)
			return nil, false, apiError.ErrInternalServerError
		}
	}

	var name *string
	if request.Name != "" {
		name = &request.Name
	}
	conv := &models.Conversation{
		Name:         name,
		IsGroup:      isGroup,
		PairKey:      pairKey,
		Participants: participants,
	}
	if err := s.chatRepo.CreateConversation(conv); err != nil {
		if pairKey != nil {
			// Lost a concurrent create on the same pair; return the winner.
			if existing, ferr := s.chatRepo.FindDirectConversation(*pairKey); ferr == nil {
				resp, apiErr := s.conversationPreview(existing)
				if apiErr != nil {
					return nil, false, apiErr
				}
				return resp, true, nil
			}
		}
		log.Printf("CreateConversation error: %v", err)
		return nil, false, apiError.ErrInternalServerError
	}

	resp, apiErr := s.conversationPreview(conv)
	if apiErr != nil {
		return nil, false, apiErr
	}
	return resp, false, nil
}

// GetConversation returns a conversation with its full message history.
func (s *chatService) GetConversation(conversationID, userID uuid.UUID) (*models.ConversationResponse, *apiError.Error) {
	conv, apiErr := s.requireParticipant(conversationID, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	msgs, err := s.chatRepo.ListMessages(conversationID)
	if err != nil {
		log.Printf("GetConversation messages error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	resp := baseConversationResponse(conv)
	for i := range msgs {
		resp.Messages = append(resp.Messages, msgs[i].Response())
	}
	return resp, nil
}

// DeleteConversation removes the conversation, its messages and its
// participant links. Any participant may delete, not just the creator.
func (s *chatService) DeleteConversation(conversationID, userID uuid.UUID) *apiError.Error {
	if _, apiErr := s.requireParticipant(conversationID, userID); apiErr != nil {
		return apiErr
	}
	if err := s.chatRepo.DeleteConversationWithMessages(conversationID); err != nil {
		log.Printf("DeleteConversation error: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}

func (s *chatService) ListMessages(conversationID, userID uuid.UUID) ([]models.MessageResponse, *apiError.Error) {
	if _, apiErr := s.requireParticipant(conversationID, userID); apiErr != nil {
		return nil, apiErr
	}

	msgs, err := s.chatRepo.ListMessages(conversationID)
	if err != nil {
		log.Printf("ListMessages error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	results := make([]models.MessageResponse, 0, len(msgs))
	for i := range msgs {
		results = append(results, msgs[i].Response())
	}
	return results, nil
}

// SendMessage persists a message and bumps the conversation's activity
// timestamp. The insert and the bump are separate writes; fan-out to connected
// clients happens over the relay, not here.
func (s *chatService) SendMessage(conversationID, senderID uuid.UUID, content string) (*models.MessageResponse, *apiError.Error) {
	trimmed, err := models.ValidateContent(content)
	if err != nil {
		return nil, apiError.New(err.Error(), http.StatusBadRequest)
	}

	if _, apiErr := s.requireParticipant(conversationID, senderID); apiErr != nil {
		return nil, apiErr
	}

	msg := &models.Message{
		Content:        trimmed,
		ConversationID: conversationID,
		SenderID:       senderID,
	}
	if err := s.chatRepo.CreateMessage(msg); err != nil {
		log.Printf("SendMessage error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if err := s.chatRepo.TouchConversation(conversationID, time.Now()); err != nil {
		log.Printf("SendMessage touch error: %v", err)
	}

	stored, err := s.chatRepo.FindMessageByID(msg.ID)
	if err != nil {
		log.Printf("SendMessage reload error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	resp := stored.Response()
	return &resp, nil
}

// EditMessage replaces the content of the caller's own message. Deleted
// messages cannot be edited.
func (s *chatService) EditMessage(conversationID, messageID, userID uuid.UUID, content string) (*models.MessageResponse, *apiError.Error) {
	msg, apiErr := s.requireOwnMessage(conversationID, messageID, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	if msg.DeletedAt != nil {
		return nil, apiError.New("Message not found", http.StatusNotFound)
	}

	trimmed, err := models.ValidateContent(content)
	if err != nil {
		return nil, apiError.New(err.Error(), http.StatusBadRequest)
	}

	if err := s.chatRepo.UpdateMessageContent(messageID, trimmed); err != nil {
		log.Printf("EditMessage error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	updated, err := s.chatRepo.FindMessageByID(messageID)
	if err != nil {
		log.Printf("EditMessage reload error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	resp := updated.Response()
	return &resp, nil
}

// DeleteMessage soft-deletes the caller's own message. The row stays so
// clients can render a tombstone; listings exclude it.
func (s *chatService) DeleteMessage(conversationID, messageID, userID uuid.UUID) (*models.MessageResponse, *apiError.Error) {
	_, apiErr := s.requireOwnMessage(conversationID, messageID, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	if err := s.chatRepo.SoftDeleteMessage(messageID, time.Now()); err != nil {
		log.Printf("DeleteMessage error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	deleted, err := s.chatRepo.FindMessageByID(messageID)
	if err != nil {
		log.Printf("DeleteMessage reload error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	resp := deleted.Response()
	return &resp, nil
}

// requireParticipant loads the conversation if the user belongs to it. A
// missing conversation and a membership miss both come back forbidden, so the
// response does not reveal whether the conversation exists.
func (s *chatService) requireParticipant(conversationID, userID uuid.UUID) (*models.Conversation, *apiError.Error) {
	conv, err := s.chatRepo.FindConversationForUser(conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.New("You are not a participant in this conversation", http.StatusForbidden)
		}
		log.Printf("requireParticipant error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return conv, nil
}

// requireOwnMessage loads a message, checks it belongs to the addressed
// conversation and that the caller sent it.
func (s *chatService) requireOwnMessage(conversationID, messageID, userID uuid.UUID) (*models.Message, *apiError.Error) {
	msg, err := s.chatRepo.FindMessageByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.New("Message not found", http.StatusNotFound)
		}
		log.Printf("requireOwnMessage error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if msg.ConversationID != conversationID {
		return nil, apiError.New("Message not found", http.StatusNotFound)
	}
	if msg.SenderID != userID {
		return nil, apiError.New("You can only modify your own messages", http.StatusForbidden)
	}
	return msg, nil
}

// resolveParticipants validates the requested participant ids, folds in the
// creator and returns the deduplicated user rows.
func (s *chatService) resolveParticipants(creatorID uuid.UUID, ids []string) ([]models.User, *apiError.Error) {
	seen := map[uuid.UUID]bool{creatorID: true}
	parsed := []uuid.UUID{creatorID}
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apiError.New("Invalid participant id", http.StatusBadRequest)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		parsed = append(parsed, id)
	}
	if len(parsed) < 2 {
		return nil, apiError.New("A conversation needs at least one other participant", http.StatusBadRequest)
	}

	users := make([]models.User, 0, len(parsed))
	for _, id := range parsed {
		user, err := s.authRepo.FindUserByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apiError.New("One or more participants do not exist", http.StatusBadRequest)
			}
			log.Printf("resolveParticipants error: %v", err)
			return nil, apiError.ErrInternalServerError
		}
		users = append(users, *user)
	}
	return users, nil
}

// conversationPreview builds the sidebar shape: participants, the latest
// message (or none) and the message count.
func (s *chatService) conversationPreview(conv *models.Conversation) (*models.ConversationResponse, *apiError.Error) {
	resp := baseConversationResponse(conv)

	last, err := s.chatRepo.LastMessage(conv.ID)
	if err != nil {
		log.Printf("conversationPreview last message error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if last != nil {
		resp.Messages = append(resp.Messages, last.Response())
	}

	count, err := s.chatRepo.CountMessages(conv.ID)
	if err != nil {
		log.Printf("conversationPreview count error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	resp.Count = &models.MessageCount{Messages: count}
	return resp, nil
}

func baseConversationResponse(conv *models.Conversation) *models.ConversationResponse {
	participants := make([]models.ParticipantResponse, 0, len(conv.Participants))
	for i := range conv.Participants {
		participants = append(participants, models.ParticipantResponse{
			UserID: conv.Participants[i].ID.String(),
			User:   conv.Participants[i].Public(),
		})
	}
	return &models.ConversationResponse{
		ID:           conv.ID.String(),
		Name:         conv.Name,
		IsGroup:      conv.IsGroup,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
		Participants: participants,
		Messages:     []models.MessageResponse{},
	}
}
