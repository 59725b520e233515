package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iRatG/rasprav-bot/internal/flow"
	"github.com/iRatG/rasprav-bot/internal/transport"
	"github.com/iRatG/rasprav-bot/pkg/logger"
)

// WebhookHandler turns an inbound chat-platform update into a
// flow.InboundUpdate and hands it to the controller. Telegram expects a
// bare 200 regardless of what the controller does with the update, so
// errors are logged, never surfaced to the caller.
type WebhookHandler struct {
	controller *flow.Controller
	logger     *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(controller *flow.Controller, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{controller: controller, logger: log}
}

// HandleUpdate handles POST /webhook.
func (h *WebhookHandler) HandleUpdate(c *gin.Context) {
	var update transport.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Error("failed to decode webhook update", "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	inbound, ok := toInboundUpdate(update)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if err := h.controller.HandleUpdate(c.Request.Context(), inbound); err != nil {
		h.logger.Error("failed to handle update", "error", err, "user_id", inbound.ExternalUserID)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func toInboundUpdate(update transport.Update) (flow.InboundUpdate, bool) {
	switch {
	case update.Message != nil:
		return flow.InboundUpdate{
			ExternalUserID: update.Message.From.ID,
			ChatID:         update.Message.Chat.ID,
			Text:           update.Message.Text,
		}, true
	case update.CallbackQuery != nil:
		return flow.InboundUpdate{
			ExternalUserID: update.CallbackQuery.From.ID,
			ChatID:         update.CallbackQuery.Message.Chat.ID,
			CallbackData:   update.CallbackQuery.Data,
		}, true
	default:
		return flow.InboundUpdate{}, false
	}
}
