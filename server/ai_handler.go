package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parleyhq/parley/models"
	"github.com/parleyhq/parley/server/response"
)

// handleGenerateAI runs one stateless generation request: reply suggestions,
// a conversation summary or an improved draft.
func (s *Server) handleGenerateAI() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.AIRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		if user, ok := contextUser(c); ok && request.CurrentUserName == "" {
			request.CurrentUserName = user.Name
		}

		result, apiErr := s.AIService.Generate(c.Request.Context(), &request)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		if request.Type == models.AIModeReply {
			response.JSON(c, "", http.StatusOK, gin.H{"suggestions": result.Suggestions}, nil)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"result": result.Result}, nil)
	}
}
