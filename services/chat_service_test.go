package services

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/parleyhq/parley/config"
	"github.com/parleyhq/parley/db"
	"github.com/parleyhq/parley/models"
)

type chatFixture struct {
	service  ChatService
	authRepo db.AuthRepository
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	gdb := &db.GormDB{DB: gormDB}
	authRepo := db.NewAuthRepo(gdb)
	chatRepo := db.NewChatRepo(gdb)
	conf := &config.Config{}
	return &chatFixture{
		service:  NewChatService(chatRepo, authRepo, conf),
		authRepo: authRepo,
	}
}

func (f *chatFixture) user(t *testing.T, name, email string) *models.User {
	t.Helper()
	user, err := f.authRepo.CreateUser(&models.User{Name: name, Email: email, HashedPassword: "x"})
	require.NoError(t, err)
	return user
}

func (f *chatFixture) directConversation(t *testing.T, a, b *models.User) *models.ConversationResponse {
	t.Helper()
	conv, existed, apiErr := f.service.CreateConversation(a.ID, &models.CreateConversationRequest{
		ParticipantIDs: []string{b.ID.String()},
	})
	require.Nil(t, apiErr)
	require.False(t, existed)
	return conv
}

func TestCreateConversationDedup(t *testing.T) {
	f := newChatFixture(t)
	a := f.user(t, "Alice", "alice@example.com")
	b := f.user(t, "Bob", "bob@example.com")

	first := f.directConversation(t, a, b)

	// The reverse direction resolves to the same conversation.
	again, existed, apiErr := f.service.CreateConversation(b.ID, &models.CreateConversationRequest{
		ParticipantIDs: []string{a.ID.String()},
	})
	require.Nil(t, apiErr)
	assert.True(t, existed)
	assert.Equal(t, first.ID, again.ID)
}

func TestCreateConversationGroup(t *testing.T) {
	f := newChatFixture(t)
	a := f.user(t, "Alice", "alice@example.com")
	b := f.user(t, "Bob", "bob@example.com")
	c := f.user(t, "Cara", "cara@example.com")

	conv, existed, apiErr := f.service.CreateConversation(a.ID, &models.CreateConversationRequest{
		ParticipantIDs: []string{b.ID.String(), c.ID.String()},
		Name:           "weekend plans",
	})
	require.Nil(t, apiErr)
	assert.False(t, existed)
	assert.True(t, conv.IsGroup)
	require.NotNil(t, conv.Name)
	assert.Equal(t, "weekend plans", *conv.Name)
	assert.Len(t, conv.Participants, 3)
}

func TestCreateConversationValidation(t *testing.T) {
	f := newChatFixture(t)
	a := f.user(t, "Alice", "alice@example.com")

	_, _, apiErr := f.service.CreateConversation(a.ID, &models.CreateConversationRequest{
		ParticipantIDs: []string{"not-a-uuid"},
	})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	_, _, apiErr = f.service.CreateConversation(a.ID, &models.CreateConversationRequest{
		ParticipantIDs: []string{uuid.NewString()},
	})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	// A conversation with only the creator is meaningless.
	_, _, apiErr = f.service.CreateConversation(a.ID, &models.CreateConversationRequest{
		ParticipantIDs: []string{a.ID.String()},
	})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestMembershipForbidden(t *testing.T) {
	f := newChatFixture(t)
	a := f.user(t, "Alice", "alice@example.com")
	b := f.user(t, "Bob", "bob@example.com")
	outsider := f.user(t, "Eve", "eve@example.com")
	conv := f.directConversation(t, a, b)
	convID := uuid.MustParse(conv.ID)

	_, apiErr := f.service.GetConversation(convID, outsider.ID)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	_, apiErr = f.service.ListMessages(convID, outsider.ID)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	_, apiErr = f.service.SendMessage(convID, outsider.ID, "hi")
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	// An absent conversation looks exactly like a membership miss.
	_, apiErr = f.service.GetConversation(uuid.New(), a.ID)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestSendMessageBounds(t *testing.T) {
	f := newChatFixture(t)
	a := f.user(t, "Alice", "alice@example.com")
	b := f.user(t, "Bob", "bob@example.com")
	conv := f.directConversation(t, a, b)
	convID := uuid.MustParse(conv.ID)

	_, apiErr := f.service.SendMessage(convID, a.ID, "   ")
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Message cannot be empty", apiErr.Message)

	_, apiErr = f.service.SendMessage(convID, a.ID, strings.Repeat("a", models.MaxMessageLength+1))
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Message is too long", apiErr.Message)

	msg, apiErr := f.service.SendMessage(convID, a.ID, "  hello there  ")
	require.Nil(t, apiErr)
	assert.Equal(t, "hello there", msg.Content)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "Alice", msg.Sender.Name)
}

func TestListConversationsPreview(t *testing.T) {
	f := newChatFixture(t)
	a := f.user(t, "Alice", "alice@example.com")
	b := f.user(t, "Bob", "bob@example.com")
	conv := f.directConversation(t, a, b)
	convID := uuid.MustParse(conv.ID)

	_, apiErr := f.service.SendMessage(convID, a.ID, "first")
	require.Nil(t, apiErr)
	_, apiErr = f.service.SendMessage(convID, b.ID, "second")
	require.Nil(t, apiErr)

	convs, apiErr := f.service.ListConversations(a.ID)
	require.Nil(t, apiErr)
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 1, "preview carries only the latest message")
	assert.Equal(t, "second", convs[0].Messages[0].Content)
	require.NotNil(t, convs[0].Count)
	assert.EqualValues(t, 2, convs[0].Count.Messages)
}

func TestEditMessageOwnership(t *testing.T) {
	f := newChatFixture(t)
	a := f.user(t, "Alice", "alice@example.com")
	b := f.user(t, "Bob", "bob@example.com")
	conv := f.directConversation(t, a, b)
	convID := uuid.MustParse(conv.ID)

	msg, apiErr := f.service.SendMessage(convID, a.ID, "original")
	require.Nil(t, apiErr)
	msgID := uuid.MustParse(msg.ID)

	_, apiErr = f.service.EditMessage(convID, msgID, b.ID, "hijacked")
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	updated, apiErr := f.service.EditMessage(convID, msgID, a.ID, "fixed")
	require.Nil(t, apiErr)
	assert.Equal(t, "fixed", updated.Content)

	_, apiErr = f.service.EditMessage(convID, uuid.New(), a.ID, "nope")
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	// Addressing the message through a different conversation misses.
	other := f.user(t, "Cara", "cara@example.com")
	otherConv := f.directConversation(t, a, other)
	_, apiErr = f.service.EditMessage(uuid.MustParse(otherConv.ID), msgID, a.ID, "wrong door")
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestDeleteMessageSoftDelete(t *testing.T) {
	f := newChatFixture(t)
	a := f.user(t, "Alice", "alice@example.com")
	b := f.user(t, "Bob", "bob@example.com")
	conv := f.directConversation(t, a, b)
	convID := uuid.MustParse(conv.ID)

	msg, apiErr := f.service.SendMessage(convID, a.ID, "to be removed")
	require.Nil(t, apiErr)
	msgID := uuid.MustParse(msg.ID)

	_, apiErr = f.service.DeleteMessage(convID, msgID, b.ID)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	deleted, apiErr := f.service.DeleteMessage(convID, msgID, a.ID)
	require.Nil(t, apiErr)
	assert.NotNil(t, deleted.DeletedAt)

	msgs, apiErr := f.service.ListMessages(convID, a.ID)
	require.Nil(t, apiErr)
	assert.Empty(t, msgs)

	// Deleted messages cannot be edited back to life.
	_, apiErr = f.service.EditMessage(convID, msgID, a.ID, "resurrect")
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestDeleteConversation(t *testing.T) {
	f := newChatFixture(t)
	a := f.user(t, "Alice", "alice@example.com")
	b := f.user(t, "Bob", "bob@example.com")
	outsider := f.user(t, "Eve", "eve@example.com")
	conv := f.directConversation(t, a, b)
	convID := uuid.MustParse(conv.ID)

	apiErr := f.service.DeleteConversation(convID, outsider.ID)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	require.Nil(t, f.service.DeleteConversation(convID, b.ID))

	convs, apiErr := f.service.ListConversations(a.ID)
	require.Nil(t, apiErr)
	assert.Empty(t, convs)

	// The pair can start over after deletion.
	fresh := f.directConversation(t, a, b)
	assert.NotEqual(t, conv.ID, fresh.ID)
}
