package services

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/parleyhq/parley/config"
	"github.com/parleyhq/parley/db"
	"github.com/parleyhq/parley/models"
)

func newAuthFixture(t *testing.T) AuthService {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	authRepo := db.NewAuthRepo(&db.GormDB{DB: gormDB})
	return NewAuthService(authRepo, &config.Config{JWTSecret: "test-secret"})
}

// brokenEmailCheckRepo simulates a database failure during the email
// existence check. Nothing past that call is reached.
type brokenEmailCheckRepo struct {
	db.AuthRepository
}

func (brokenEmailCheckRepo) IsEmailExist(string) (bool, error) {
	return false, fmt.Errorf("connection refused")
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newAuthFixture(t)

	_, apiErr := svc.SignupUser(&models.SignupRequest{
		Name: "Alice", Email: "alice@example.com", Password: "password1",
	})
	require.Nil(t, apiErr)

	_, apiErr = svc.SignupUser(&models.SignupRequest{
		Name: "Alice Again", Email: "alice@example.com", Password: "password1",
	})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "User already exists", apiErr.Message)
}

func TestSignupEmailCheckFailure(t *testing.T) {
	svc := NewAuthService(brokenEmailCheckRepo{}, &config.Config{})

	// A broken database must not masquerade as a duplicate account.
	_, apiErr := svc.SignupUser(&models.SignupRequest{
		Name: "Alice", Email: "alice@example.com", Password: "password1",
	})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestLoginVerifiesCredentials(t *testing.T) {
	svc := newAuthFixture(t)

	_, apiErr := svc.SignupUser(&models.SignupRequest{
		Name: "Alice", Email: "alice@example.com", Password: "password1",
	})
	require.Nil(t, apiErr)

	login, apiErr := svc.LoginUser(&models.LoginRequest{Email: "alice@example.com", Password: "password1"})
	require.Nil(t, apiErr)
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, "Alice", login.Name)

	_, apiErr = svc.LoginUser(&models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, apiErr = svc.LoginUser(&models.LoginRequest{Email: "nobody@example.com", Password: "password1"})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}
