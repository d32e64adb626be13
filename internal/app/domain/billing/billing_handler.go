package billing

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/common"
	"github.com/FACorreiaa/go-wanderplan/internal/app/domain/auth"
	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
)

const maxWebhookBytes = 65536

type BillingHandlers struct {
	service BillingService
	logger  *zap.Logger
}

func NewBillingHandlers(service BillingService, logger *zap.Logger) *BillingHandlers {
	return &BillingHandlers{service: service, logger: logger}
}

// CreateCheckout handles POST /api/billing/checkout.
func (h *BillingHandlers) CreateCheckout(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "CreateCheckout"))

	var req models.CheckoutRequest
	if !common.BindJSON(c, logger, &req) {
		return
	}
	sess, err := h.service.CreateCheckout(c.Request.Context(), auth.UserID(c), req.Quantity)
	if err != nil {
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// Webhook handles POST /webhook/stripe.
func (h *BillingHandlers) Webhook(c *gin.Context) {
	logger := h.logger.With(zap.String("method", "Webhook"))

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing signature"})
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
			return
		}
		common.RespondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
