package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
)

const (
	ConversationIDHeader = "X-Conversation-ID"
	ConversationIDKey    = "conversation_id"

	maxConversationIDLen = 128
)

// ConversationID requires the X-Conversation-ID header and stores it on
// the context.
func ConversationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(ConversationIDHeader)
		if id == "" {
			apperrors.Respond(c, apperrors.InvalidInput("X-Conversation-ID header is required"))
			return
		}
		if len(id) > maxConversationIDLen {
			apperrors.Respond(c, apperrors.InvalidInput("X-Conversation-ID is too long"))
			return
		}
		c.Set(ConversationIDKey, id)
		c.Next()
	}
}

// GetConversationID returns the id set by ConversationID.
func GetConversationID(c *gin.Context) string {
	return c.GetString(ConversationIDKey)
}
