package api

import (
	"net/http"
	"strconv"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/models"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/service"

	"github.com/gin-gonic/gin"
)

// GetStock handles GET /api/v1/inventory/:productId
func (h *Handler) GetStock(c *gin.Context) {
	view, err := h.inventory.GetStock(c.Request.Context(), c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

type updateStockRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Operation string `json:"operation" binding:"required,oneof=ADD REMOVE"`
}

// UpdateStock handles POST /api/v1/inventory/update
func (h *Handler) UpdateStock(c *gin.Context) {
	var req updateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.inventory.UpdateStock(c.Request.Context(),
		req.ProductID, req.Quantity, models.StockOperation(req.Operation))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

type stockMoveRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// ReserveStock handles POST /api/v1/inventory/reserve. Order creation
// reserves through the service layer directly; this route exists for
// internal tooling and manual correction.
func (h *Handler) ReserveStock(c *gin.Context) {
	var req stockMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.inventory.Reserve(c.Request.Context(), req.ProductID, req.Quantity); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Stock reserved"})
}

// ReleaseStock handles POST /api/v1/inventory/release
func (h *Handler) ReleaseStock(c *gin.Context) {
	var req stockMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.inventory.Release(c.Request.Context(), req.ProductID, req.Quantity); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Stock released"})
}

// LowStock handles GET /api/v1/inventory/low-stock
func (h *Handler) LowStock(c *gin.Context) {
	threshold, _ := strconv.Atoi(c.DefaultQuery("threshold",
		strconv.Itoa(service.DefaultLowStockThreshold)))

	items, err := h.inventory.LowStock(c.Request.Context(), threshold)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"threshold": threshold,
		"items":     items,
	})
}
