package errors

import (
	"fmt"
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// Error is the API error type carried between services and handlers. It pins
// the HTTP status a failure should surface with, so handlers never have to
// re-derive it.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *Error) Error() string {
	return e.Message
}

// New returns an *Error with the given message and HTTP status.
func New(message string, status int) *Error {
	return &Error{Message: message, Status: status}
}

var (
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
	ErrBadRequest          = New("bad request", http.StatusBadRequest)
	ErrUnauthorized        = New("Unauthorized", http.StatusUnauthorized)
	ErrForbidden           = New("Forbidden", http.StatusForbidden)
	ErrNotFound            = New("not found", http.StatusNotFound)
	ErrInvalidPassword     = New("invalid email or password", http.StatusUnprocessableEntity)
)

// ErrorHandler is the gin-rate-limit rejection handler.
func ErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error": fmt.Sprintf("Too many requests. Try again in %s", time.Until(info.ResetTime).Round(time.Second)),
	})
}
