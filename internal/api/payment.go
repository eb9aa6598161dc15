package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createCheckoutRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// CreateCheckout handles POST /api/v1/payment/create-checkout
func (h *Handler) CreateCheckout(c *gin.Context) {
	claims := currentClaims(c)

	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.payments.CreateCheckout(c.Request.Context(), req.OrderID, claims.UserID())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

// PaymentWebhook handles POST /api/v1/payment/webhook. A non-2xx response
// tells the provider to redeliver, so only genuinely retryable failures may
// return one; bad signatures get a 400 and are never retried.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable payload"})
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
