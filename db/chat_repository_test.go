package db

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/parleyhq/parley/models"
)

func setupTestDB(t *testing.T) *GormDB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))
	return &GormDB{DB: gdb}
}

func createTestUser(t *testing.T, repo AuthRepository, name, email string) *models.User {
	t.Helper()
	user, err := repo.CreateUser(&models.User{
		Name:           name,
		Email:          email,
		HashedPassword: "x",
	})
	require.NoError(t, err)
	return user
}

func createDirectConversation(t *testing.T, repo ChatRepository, a, b *models.User) *models.Conversation {
	t.Helper()
	key := models.DirectPairKey(a.ID, b.ID)
	conv := &models.Conversation{
		PairKey:      &key,
		Participants: []models.User{*a, *b},
	}
	require.NoError(t, repo.CreateConversation(conv))
	return conv
}

func TestPairKeyUniqueness(t *testing.T) {
	gdb := setupTestDB(t)
	authRepo := NewAuthRepo(gdb)
	chatRepo := NewChatRepo(gdb)

	a := createTestUser(t, authRepo, "Alice", "alice@example.com")
	b := createTestUser(t, authRepo, "Bob", "bob@example.com")

	first := createDirectConversation(t, chatRepo, a, b)

	key := models.DirectPairKey(b.ID, a.ID)
	dup := &models.Conversation{PairKey: &key, Participants: []models.User{*a, *b}}
	err := chatRepo.CreateConversation(dup)
	require.Error(t, err, "second conversation for the same pair must be rejected")

	found, err := chatRepo.FindDirectConversation(key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Len(t, found.Participants, 2)
}

func TestFindConversationForUserMembership(t *testing.T) {
	gdb := setupTestDB(t)
	authRepo := NewAuthRepo(gdb)
	chatRepo := NewChatRepo(gdb)

	a := createTestUser(t, authRepo, "Alice", "alice@example.com")
	b := createTestUser(t, authRepo, "Bob", "bob@example.com")
	c := createTestUser(t, authRepo, "Cara", "cara@example.com")
	conv := createDirectConversation(t, chatRepo, a, b)

	found, err := chatRepo.FindConversationForUser(conv.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, found.ID)

	_, err = chatRepo.FindConversationForUser(conv.ID, c.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	ok, err := chatRepo.IsParticipant(conv.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = chatRepo.IsParticipant(conv.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSoftDeleteFiltering(t *testing.T) {
	gdb := setupTestDB(t)
	authRepo := NewAuthRepo(gdb)
	chatRepo := NewChatRepo(gdb)

	a := createTestUser(t, authRepo, "Alice", "alice@example.com")
	b := createTestUser(t, authRepo, "Bob", "bob@example.com")
	conv := createDirectConversation(t, chatRepo, a, b)

	first := &models.Message{Content: "first", ConversationID: conv.ID, SenderID: a.ID}
	require.NoError(t, chatRepo.CreateMessage(first))
	second := &models.Message{Content: "second", ConversationID: conv.ID, SenderID: b.ID}
	require.NoError(t, chatRepo.CreateMessage(second))

	require.NoError(t, chatRepo.SoftDeleteMessage(second.ID, time.Now()))

	msgs, err := chatRepo.ListMessages(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "first", msgs[0].Content)

	count, err := chatRepo.CountMessages(conv.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	last, err := chatRepo.LastMessage(conv.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, first.ID, last.ID)

	// A direct lookup still returns the deleted row, with DeletedAt set.
	deleted, err := chatRepo.FindMessageByID(second.ID)
	require.NoError(t, err)
	assert.NotNil(t, deleted.DeletedAt)
}

func TestLastMessageEmptyConversation(t *testing.T) {
	gdb := setupTestDB(t)
	authRepo := NewAuthRepo(gdb)
	chatRepo := NewChatRepo(gdb)

	a := createTestUser(t, authRepo, "Alice", "alice@example.com")
	b := createTestUser(t, authRepo, "Bob", "bob@example.com")
	conv := createDirectConversation(t, chatRepo, a, b)

	last, err := chatRepo.LastMessage(conv.ID)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestDeleteConversationWithMessages(t *testing.T) {
	gdb := setupTestDB(t)
	authRepo := NewAuthRepo(gdb)
	chatRepo := NewChatRepo(gdb)

	a := createTestUser(t, authRepo, "Alice", "alice@example.com")
	b := createTestUser(t, authRepo, "Bob", "bob@example.com")
	conv := createDirectConversation(t, chatRepo, a, b)
	msg := &models.Message{Content: "bye", ConversationID: conv.ID, SenderID: a.ID}
	require.NoError(t, chatRepo.CreateMessage(msg))

	require.NoError(t, chatRepo.DeleteConversationWithMessages(conv.ID))

	_, err := chatRepo.FindConversationForUser(conv.ID, a.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = chatRepo.FindMessageByID(msg.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	ok, err := chatRepo.IsParticipant(conv.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTouchConversationOrdersListing(t *testing.T) {
	gdb := setupTestDB(t)
	authRepo := NewAuthRepo(gdb)
	chatRepo := NewChatRepo(gdb)

	a := createTestUser(t, authRepo, "Alice", "alice@example.com")
	b := createTestUser(t, authRepo, "Bob", "bob@example.com")
	c := createTestUser(t, authRepo, "Cara", "cara@example.com")

	older := createDirectConversation(t, chatRepo, a, b)
	newer := createDirectConversation(t, chatRepo, a, c)

	require.NoError(t, chatRepo.TouchConversation(older.ID, time.Now().Add(time.Hour)))

	convs, err := chatRepo.ListConversationsForUser(a.ID)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, older.ID, convs[0].ID)
	assert.Equal(t, newer.ID, convs[1].ID)
}

func TestSearchUsers(t *testing.T) {
	gdb := setupTestDB(t)
	authRepo := NewAuthRepo(gdb)

	caller := createTestUser(t, authRepo, "Alice", "alice@example.com")
	createTestUser(t, authRepo, "Bobby", "bob@example.com")
	createTestUser(t, authRepo, "Robert", "bobbins@other.com")
	createTestUser(t, authRepo, "Cara", "cara@example.com")

	users, err := authRepo.SearchUsers(caller.ID, "BOB", 20)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	// The caller never shows up in their own search results.
	users, err = authRepo.SearchUsers(caller.ID, "alice", 20)
	require.NoError(t, err)
	assert.Empty(t, users)
}
