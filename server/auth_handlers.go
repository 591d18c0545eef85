package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gin-gonic/gin"

	errs "github.com/parleyhq/parley/errors"
	"github.com/parleyhq/parley/models"
	"github.com/parleyhq/parley/server/response"
)

func (s *Server) handleSignup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.SignupRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		user, apiErr := s.AuthService.SignupUser(&request)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "Signup successful", http.StatusCreated, gin.H{"user": user}, nil)
	}
}

func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.LoginRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		login, apiErr := s.AuthService.LoginUser(&request)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{
			"user":         login.UserResponse,
			"access_token": login.AccessToken,
		}, nil)
	}
}

func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := getTokenFromHeader(c)
		if apiErr := s.AuthService.LogoutUser(accessToken); apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "Logout successful", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleShowProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := contextUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		user, apiErr := s.AuthService.GetUserProfile(userID)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"user": user}, nil)
	}
}

// handleSearchUsers powers the "start a conversation" picker.
func (s *Server) handleSearchUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := contextUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		users, apiErr := s.AuthService.SearchUsers(userID, c.Query("q"))
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"users": users}, nil)
	}
}

// Define allowed MIME types and max file size
const (
	MaxFileSize      = 5 * 1024 * 1024 // 5 MB
	AllowedMimeTypes = "image/jpeg,image/png,image/gif"
)

func (s *Server) createS3Client() (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(s.Config.AwsRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func (s *Server) uploadFileToS3(client *s3.Client, file multipart.File, key string) (string, error) {
	defer file.Close()

	fileContent, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file content: %v", err)
	}

	_, err = client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket: aws.String(s.Config.AwsBucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(fileContent),
		ACL:    types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %v", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.Config.AwsBucket, s.Config.AwsRegion, key), nil
}

// validateFile checks the file type and size
func validateFile(file *multipart.FileHeader) error {
	if file.Size > MaxFileSize {
		return fmt.Errorf("file size exceeds limit of %d bytes", MaxFileSize)
	}
	mimeType := file.Header.Get("Content-Type")
	if !isValidMimeType(mimeType) {
		return fmt.Errorf("invalid file type: %s", mimeType)
	}
	return nil
}

func isValidMimeType(mimeType string) bool {
	for _, allowed := range strings.Split(AllowedMimeTypes, ",") {
		if mimeType == allowed {
			return true
		}
	}
	return false
}

// handleUpdateUserImage uploads a new avatar to S3 and stores its public URL.
func (s *Server) handleUpdateUserImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := contextUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		file, fileHeader, err := c.Request.FormFile("avatar")
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.New("Missing or invalid file", http.StatusBadRequest))
			return
		}
		if err := validateFile(fileHeader); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.New(err.Error(), http.StatusBadRequest))
			return
		}

		s3Client, err := s.createS3Client()
		if err != nil {
			log.Printf("failed to create S3 client: %v", err)
			response.JSON(c, "", http.StatusInternalServerError, nil, errs.New("Failed to create S3 client", http.StatusInternalServerError))
			return
		}

		key := userID.String() + "_" + fileHeader.Filename
		fileURL, err := s.uploadFileToS3(s3Client, file, key)
		if err != nil {
			log.Printf("failed to upload avatar: %v", err)
			response.JSON(c, "", http.StatusInternalServerError, nil, errs.New("Failed to upload file", http.StatusInternalServerError))
			return
		}

		if apiErr := s.AuthService.UpdateUserImage(userID, fileURL); apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "Avatar updated", http.StatusOK, gin.H{"url": fileURL}, nil)
	}
}
