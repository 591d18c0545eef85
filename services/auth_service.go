package services

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/parleyhq/parley/config"
	"github.com/parleyhq/parley/db"
	apiError "github.com/parleyhq/parley/errors"
	"github.com/parleyhq/parley/models"
	"github.com/parleyhq/parley/services/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// maxUserSearchResults caps the user search page size.
const maxUserSearchResults = 20

// AuthService handles account lifecycle, sessions and user lookups.
type AuthService interface {
	SignupUser(request *models.SignupRequest) (*models.UserResponse, *apiError.Error)
	LoginUser(request *models.LoginRequest) (*models.LoginResponse, *apiError.Error)
	LogoutUser(accessToken string) *apiError.Error
	GetUserProfile(userID uuid.UUID) (*models.UserResponse, *apiError.Error)
	SearchUsers(callerID uuid.UUID, query string) ([]models.UserResponse, *apiError.Error)
	UpdateUserImage(userID uuid.UUID, imageURL string) *apiError.Error
}

// authService struct
type authService struct {
	Config   *config.Config
	authRepo db.AuthRepository
}

// NewAuthService instantiate an authService
func NewAuthService(authRepo db.AuthRepository, conf *config.Config) AuthService {
	return &authService{
		Config:   conf,
		authRepo: authRepo,
	}
}

func (s *authService) SignupUser(request *models.SignupRequest) (*models.UserResponse, *apiError.Error) {
	exists, err := s.authRepo.IsEmailExist(request.Email)
	if err != nil {
		log.Printf("SignupUser error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if exists {
		return nil, apiError.New("User already exists", http.StatusBadRequest)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("SignupUser error hashing password: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	user := &models.User{
		Name:           request.Name,
		Email:          strings.ToLower(request.Email),
		HashedPassword: string(hashedPassword),
	}
	created, err := s.authRepo.CreateUser(user)
	if err != nil {
		log.Printf("SignupUser error creating user: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	resp := created.Public()
	return &resp, nil
}

// LoginUser logs in a user and returns the login response
func (s *authService) LoginUser(request *models.LoginRequest) (*models.LoginResponse, *apiError.Error) {
	foundUser, err := s.authRepo.FindUserByEmail(strings.ToLower(request.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.New("Invalid credentials", http.StatusUnauthorized)
		}
		log.Printf("Error finding user by email: %v", err)
		return nil, apiError.New("unable to find user", http.StatusInternalServerError)
	}

	if err := foundUser.VerifyPassword(request.Password); err != nil {
		log.Printf("Invalid password for user %s", foundUser.Email)
		return nil, apiError.New("Invalid credentials", http.StatusUnauthorized)
	}

	accessToken, err := jwt.GenerateToken(foundUser.ID.String(), foundUser.Email, s.Config.JWTSecret)
	if err != nil {
		log.Printf("Error generating token for user %s: %v", foundUser.Email, err)
		return nil, apiError.ErrInternalServerError
	}

	return &models.LoginResponse{
		UserResponse: foundUser.Public(),
		AccessToken:  accessToken,
	}, nil
}

// LogoutUser invalidates the access token by blacklisting it until expiry.
func (s *authService) LogoutUser(accessToken string) *apiError.Error {
	if err := s.authRepo.AddToBlacklist(&models.Blacklist{Token: accessToken}); err != nil {
		log.Printf("LogoutUser error: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}

func (s *authService) GetUserProfile(userID uuid.UUID) (*models.UserResponse, *apiError.Error) {
	user, err := s.authRepo.FindUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.New("User not found", http.StatusNotFound)
		}
		log.Printf("GetUserProfile error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	resp := user.Public()
	return &resp, nil
}

// SearchUsers matches name or email case-insensitively, excluding the caller.
// A blank query returns an empty list rather than the whole user table.
func (s *authService) SearchUsers(callerID uuid.UUID, query string) ([]models.UserResponse, *apiError.Error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.UserResponse{}, nil
	}

	users, err := s.authRepo.SearchUsers(callerID, query, maxUserSearchResults)
	if err != nil {
		log.Printf("SearchUsers error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	results := make([]models.UserResponse, 0, len(users))
	for i := range users {
		results = append(results, users[i].Public())
	}
	return results, nil
}

func (s *authService) UpdateUserImage(userID uuid.UUID, imageURL string) *apiError.Error {
	if err := s.authRepo.UpdateUserImage(userID, imageURL); err != nil {
		log.Printf("UpdateUserImage error: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}
