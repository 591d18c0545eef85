package response

import (
	"github.com/gin-gonic/gin"
)

// JSON writes the standard API envelope: `{"error": "..."}` with the given
// status on failure, otherwise the payload itself (handlers pass a gin.H
// keyed by entity, e.g. {"conversation": ...}).
func JSON(c *gin.Context, message string, status int, data interface{}, err error) {
	if err != nil {
		msg := message
		if msg == "" {
			msg = err.Error()
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if h, ok := data.(gin.H); ok {
		if message != "" {
			h["message"] = message
		}
		c.JSON(status, h)
		return
	}

	body := gin.H{}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}
