package api

import (
	"net/http" // HTTP status codes

	"finassist/internal/agent" // Conversational dispatcher

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// ChatRequest represents one conversational turn
type ChatRequest struct {
	SessionID string `json:"session_id"`                 // Existing session, empty starts a new one
	Message   string `json:"message" binding:"required"` // User utterance
}

// ChatHandler routes a user message through the agent
func ChatHandler(a *agent.Agent, sessions *agent.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req ChatRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Resolve or create the conversation session
		sess := sessions.GetOrCreate(req.SessionID, userID.(uint))
		reply, err := a.HandleMessage(c.Request.Context(), sess, req.Message)
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id":    userID,
				"session_id": sess.ID,
				"error":      err.Error(),
			}).Error("Chat turn failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Assistant is unavailable, please try again"})
			return
		}
		// Return the assistant reply and the operations it executed
		c.JSON(http.StatusOK, gin.H{
			"session_id": reply.SessionID,
			"response":   reply.Response,
			"actions":    reply.Actions,
		})
	}
}
