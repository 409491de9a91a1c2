package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/calftracker/internal/domain/models"
	"github.com/mamadbah2/calftracker/internal/service/whatsapp"
)

const whatsAppObject = "whatsapp_business_account"

// WebhookHandler receives operator text commands from the WhatsApp Cloud API.
type WebhookHandler struct {
	messaging whatsapp.MessagingService
	logger    *zap.Logger
}

// NewWebhookHandler constructs the webhook handler.
func NewWebhookHandler(messaging whatsapp.MessagingService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{messaging: messaging, logger: logger}
}

type verifyQuery struct {
	Mode      string `form:"hub.mode"`
	Token     string `form:"hub.verify_token"`
	Challenge string `form:"hub.challenge"`
}

// Verify echoes hub.challenge when the subscription token matches.
func (h *WebhookHandler) Verify(c *gin.Context) {
	var q verifyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.String(http.StatusBadRequest, "invalid query")
		return
	}

	challenge, err := h.messaging.VerifyWebhookToken(q.Mode, q.Token, q.Challenge)
	if err != nil {
		h.logger.Warn("webhook subscription rejected", zap.String("mode", q.Mode), zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}

	c.String(http.StatusOK, challenge)
}

// Receive runs the commands in a callback. Every decodable callback gets a 200,
// otherwise Meta redelivers it and the commands run twice.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("undecodable webhook callback", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if payload.Object != whatsAppObject {
		h.logger.Debug("ignoring webhook object", zap.String("object", payload.Object))
		c.Status(http.StatusOK)
		return
	}

	if err := h.messaging.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("webhook callback partially processed", zap.Error(err))
	}
	c.Status(http.StatusOK)
}
