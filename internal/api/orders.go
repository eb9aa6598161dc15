package api

import (
	"net/http"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/service"

	"github.com/gin-gonic/gin"
)

type createOrderRequest struct {
	Items []service.OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreateOrder handles POST /api/v1/orders
func (h *Handler) CreateOrder(c *gin.Context) {
	claims := currentClaims(c)

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, items, err := h.orders.CreateOrder(c.Request.Context(), claims.UserID(), req.Items)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order": order,
		"items": items,
	})
}

// ListOrders handles GET /api/v1/orders. Admins see every order, everyone
// else only their own.
func (h *Handler) ListOrders(c *gin.Context) {
	claims := currentClaims(c)

	orders, err := h.orders.List(c.Request.Context(), claims.UserID(), claims.IsAdmin())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrder handles GET /api/v1/orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	claims := currentClaims(c)

	order, items, err := h.orders.Get(c.Request.Context(), c.Param("id"), claims.UserID(), claims.IsAdmin())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

// CancelOrder handles PATCH /api/v1/orders/:id/cancel
func (h *Handler) CancelOrder(c *gin.Context) {
	claims := currentClaims(c)

	order, err := h.orders.Cancel(c.Request.Context(), c.Param("id"), claims.UserID(), claims.IsAdmin())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}
