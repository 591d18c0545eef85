package db

import (
	"strings"

	"github.com/google/uuid"
	"github.com/parleyhq/parley/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type AuthRepository interface {
	CreateUser(user *models.User) (*models.User, error)
	IsEmailExist(email string) (bool, error)
	FindUserByEmail(email string) (*models.User, error)
	FindUserByID(id uuid.UUID) (*models.User, error)
	SearchUsers(excludeID uuid.UUID, query string, limit int) ([]models.User, error)
	UpdateUserImage(userID uuid.UUID, imageURL string) error
	AddToBlacklist(blacklist *models.Blacklist) error
	IsTokenInBlacklist(token string) bool
}

type authRepo struct {
	DB *gorm.DB
}

func NewAuthRepo(db *GormDB) AuthRepository {
	return &authRepo{db.DB}
}

func (a *authRepo) CreateUser(user *models.User) (*models.User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	if err := a.DB.Create(user).Error; err != nil {
		return nil, errors.Wrap(err, "could not create user")
	}
	return user, nil
}

func (a *authRepo) IsEmailExist(email string) (bool, error) {
	var count int64
	err := a.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "gorm count error")
	}
	return count > 0, nil
}

func (a *authRepo) FindUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	err := a.DB.Where("email = ?", email).First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *authRepo) FindUserByID(id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := a.DB.Where("id = ?", id).First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SearchUsers does a case-insensitive substring match on name or email,
// excluding the caller.
func (a *authRepo) SearchUsers(excludeID uuid.UUID, query string, limit int) ([]models.User, error) {
	var users []models.User
	pattern := "%" + strings.ToLower(query) + "%"
	err := a.DB.
		Where("id <> ?", excludeID).
		Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not search users")
	}
	return users, nil
}

func (a *authRepo) UpdateUserImage(userID uuid.UUID, imageURL string) error {
	err := a.DB.Model(&models.User{}).Where("id = ?", userID).Update("image", imageURL).Error
	return errors.Wrap(err, "could not update user image")
}

func (a *authRepo) AddToBlacklist(blacklist *models.Blacklist) error {
	err := a.DB.Create(blacklist).Error
	return errors.Wrap(err, "could not blacklist token")
}

func (a *authRepo) IsTokenInBlacklist(token string) bool {
	var count int64
	a.DB.Model(&models.Blacklist{}).Where("token = ?", token).Count(&count)
	return count > 0
}
