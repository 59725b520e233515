package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// telegramSecretHeader is the header Telegram sets on webhook deliveries
// when a secret_token was registered with setWebhook.
const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// RequireWebhookSecret rejects any webhook delivery whose secret header
// does not match the one registered with the chat platform, the same
// shared-secret check the teacher's services use for provider callbacks.
func RequireWebhookSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		got := c.GetHeader(telegramSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
		c.Next()
	}
}
