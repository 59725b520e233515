package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iRatG/rasprav-bot/internal/repository"
)

// maxAuthAge is how stale a login-widget payload may be before it is
// rejected, per spec.md §4.8.
const maxAuthAge = 24 * time.Hour

// RequireMasterAuth validates the chat platform's login-widget payload —
// ported from original_source/app/web/auth.py::verify_telegram_auth: sort
// every "key=value" pair except "hash", join with "\n", HMAC-SHA256 it
// with sha256(botToken) as the key, and compare against the received
// hash. Rejects a stale auth_date or a caller whose external chat user id
// does not match the master record.
func RequireMasterAuth(botToken string, masters *repository.MasterRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := make(map[string]string, len(c.Request.URL.Query()))
		for key, values := range c.Request.URL.Query() {
			if len(values) > 0 {
				payload[key] = values[0]
			}
		}

		receivedHash := payload["hash"]
		if receivedHash == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing hash"})
			return
		}

		authDateStr, ok := payload["auth_date"]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing auth_date"})
			return
		}
		authDate, err := strconv.ParseInt(authDateStr, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid auth_date"})
			return
		}
		if time.Since(time.Unix(authDate, 0)) > maxAuthAge {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth expired"})
			return
		}

		if !verifyHash(payload, receivedHash, botToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		externalID, err := strconv.ParseInt(payload["id"], 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid id"})
			return
		}

		master, err := masters.GetByExternalChatUserID(c.Request.Context(), externalID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve master"})
			return
		}
		if master == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authorized"})
			return
		}

		c.Set("masterID", master.ID)
		c.Next()
	}
}

func verifyHash(payload map[string]string, receivedHash, botToken string) bool {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+payload[k])
	}
	checkString := strings.Join(lines, "\n")

	secretKey := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secretKey[:])
	mac.Write([]byte(checkString))
	expected := mac.Sum(nil)

	received, err := hex.DecodeString(receivedHash)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, received)
}
