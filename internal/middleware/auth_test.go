package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// signPayload reproduces what the chat platform's login widget does when
// it signs a payload, so tests can build a valid "received" hash the same
// way the caller would.
func signPayload(t *testing.T, payload map[string]string, botToken string) string {
	t.Helper()
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
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyHash_AcceptsCorrectlySignedPayload(t *testing.T) {
	botToken := "test-bot-token"
	payload := map[string]string{
		"id":        "555",
		"first_name": "Ada",
		"auth_date": "1700000000",
	}
	hash := signPayload(t, payload, botToken)

	assert.True(t, verifyHash(payload, hash, botToken))
}

func TestVerifyHash_RejectsTamperedField(t *testing.T) {
	botToken := "test-bot-token"
	payload := map[string]string{
		"id":        "555",
		"auth_date": "1700000000",
	}
	hash := signPayload(t, payload, botToken)

	payload["id"] = "999"
	assert.False(t, verifyHash(payload, hash, botToken))
}

func TestVerifyHash_RejectsWrongBotToken(t *testing.T) {
	payload := map[string]string{
		"id":        "555",
		"auth_date": "1700000000",
	}
	hash := signPayload(t, payload, "correct-token")

	assert.False(t, verifyHash(payload, hash, "wrong-token"))
}

func TestVerifyHash_RejectsMalformedHash(t *testing.T) {
	payload := map[string]string{
		"id":        "555",
		"auth_date": "1700000000",
	}
	assert.False(t, verifyHash(payload, "not-hex", "test-bot-token"))
}
