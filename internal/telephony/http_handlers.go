package telephony

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"

	"crm-telephony/pkg/logger"

	"github.com/gin-gonic/gin"
)

const headerWebhookSecret = "X-Webhook-Secret"

// maxWebhookBody caps the request body read before acknowledging.
const maxWebhookBody = 5 << 20

// WebhookProcessor consumes a raw PBX webhook body.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, body []byte) error
}

// CDRWebhookHandler acknowledges the PBX immediately and hands the body to
// the processor in the background. Failures after the acknowledgment are
// only logged; the PBX never sees them.
//
// No business logic here.
type CDRWebhookHandler struct {
	Processor WebhookProcessor

	// Secret, when set, must match the X-Webhook-Secret header.
	Secret string

	// Spawn runs the background continuation. Defaults to a plain goroutine.
	Spawn func(func())
}

func (h CDRWebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Processor == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "webhook processor not configured"})
		return
	}
	if h.Secret != "" {
		got := c.GetHeader(headerWebhookSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Warn("pbx webhook read failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})

	ctx := logger.Detach(c.Request.Context(), "component", "pbx_webhook")
	spawn := h.Spawn
	if spawn == nil {
		spawn = func(f func()) { go f() }
	}
	spawn(func() {
		if err := h.Processor.HandleWebhook(ctx, body); err != nil {
			logger.From(ctx).Error("pbx webhook processing failed", "err", err, "bytes", len(body))
		}
	})
}
