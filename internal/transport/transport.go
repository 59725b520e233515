// Package transport sends outbound chat messages to clients and reports
// the Telegram-shaped error the scheduler needs to distinguish ("the
// client blocked the bot") from any other delivery failure.
package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/iRatG/rasprav-bot/internal/config"
)

// ErrBlocked is returned when the chat platform reports the recipient has
// blocked the bot (Telegram's 403 Forbidden on sendMessage) — the
// scheduler translates this into marking the client blocked rather than
// treating it like a transient delivery failure.
var ErrBlocked = errors.New("transport: recipient has blocked the bot")

// Client sends messages over the chat platform's HTTP Bot API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new transport client for the configured bot token.
func NewClient(cfg config.BotConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    fmt.Sprintf("https://api.telegram.org/bot%s", cfg.Token),
	}
}

// sendMessageRequest mirrors Telegram's sendMessage payload shape.
type sendMessageRequest struct {
	ChatID      int64               `json:"chat_id"`
	Text        string              `json:"text"`
	ParseMode   string              `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMeta `json:"reply_markup,omitempty"`
}

// InlineKeyboardMeta is a minimal inline-keyboard payload: rows of
// (label, callback data) buttons.
type InlineKeyboardMeta struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

// InlineButton is a single inline keyboard button.
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Update mirrors the subset of Telegram's Update object the webhook
// handler cares about: either a plain text message or a callback-query
// button press, never both.
type Update struct {
	Message       *IncomingMessage `json:"message,omitempty"`
	CallbackQuery *CallbackQuery   `json:"callback_query,omitempty"`
}

// IncomingMessage is a plain text message from a chat.
type IncomingMessage struct {
	Chat Chat   `json:"chat"`
	From User   `json:"from"`
	Text string `json:"text"`
}

// CallbackQuery is an inline-keyboard button press.
type CallbackQuery struct {
	From    User    `json:"from"`
	Message Message `json:"message"`
	Data    string  `json:"data"`
}

// Message identifies the chat a callback query's button was shown in.
type Message struct {
	Chat Chat `json:"chat"`
}

// Chat identifies the conversation to reply in.
type Chat struct {
	ID int64 `json:"id"`
}

// User identifies the chat-platform account that sent an update.
type User struct {
	ID int64 `json:"id"`
}

// SendMessage delivers text (optionally with an inline keyboard) to a
// chat, returning ErrBlocked if the platform reports the chat as
// unreachable because the user blocked the bot.
func (c *Client) SendMessage(chatID int64, text string, keyboard *InlineKeyboardMeta) error {
	req := sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: keyboard,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal send message request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/sendMessage", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create send message request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send message request failed: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode send message response: %w", err)
	}

	if !apiResp.OK {
		if resp.StatusCode == http.StatusForbidden {
			return ErrBlocked
		}
		return fmt.Errorf("send message failed (status %d): %s", resp.StatusCode, apiResp.Description)
	}

	return nil
}
