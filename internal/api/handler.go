package api

import (
	"errors"
	"net/http"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/auth"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/notifier"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/payment"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/service"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler holds the HTTP-facing services
type Handler struct {
	catalog    *service.CatalogService
	orders     *service.OrderService
	inventory  *service.InventoryService
	payments   *payment.Service
	dispatcher *notifier.Dispatcher
	verifier   *auth.Verifier
	logger     *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(
	catalog *service.CatalogService,
	orders *service.OrderService,
	inventory *service.InventoryService,
	payments *payment.Service,
	dispatcher *notifier.Dispatcher,
	verifier *auth.Verifier,
) *Handler {
	return &Handler{
		catalog:    catalog,
		orders:     orders,
		inventory:  inventory,
		payments:   payments,
		dispatcher: dispatcher,
		verifier:   verifier,
		logger:     util.GetLogger(),
	}
}

// SetupRoutes configures all routes
func (h *Handler) SetupRoutes(r *gin.Engine) {
	r.Use(prometheusMiddleware())

	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	// The webhook is authenticated by its signature, not by a bearer token.
	v1.POST("/payment/webhook", h.PaymentWebhook)

	v1.GET("/products", h.ListProducts)
	v1.GET("/products/:id", h.GetProduct)

	authed := v1.Group("", AuthRequired(h.verifier))
	{
		authed.POST("/orders", h.CreateOrder)
		authed.GET("/orders", h.ListOrders)
		authed.GET("/orders/:id", h.GetOrder)
		authed.PATCH("/orders/:id/cancel", h.CancelOrder)

		authed.POST("/payment/create-checkout", h.CreateCheckout)

		authed.GET("/notifications/stream", h.NotificationStream)
	}

	admin := authed.Group("", AdminRequired())
	{
		admin.POST("/products", h.CreateProduct)
		admin.PATCH("/products/:id", h.UpdateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)

		admin.GET("/inventory/:productId", h.GetStock)
		admin.POST("/inventory/update", h.UpdateStock)
		admin.POST("/inventory/reserve", h.ReserveStock)
		admin.POST("/inventory/release", h.ReleaseStock)
		admin.GET("/inventory/low-stock", h.LowStock)
	}
}

// Health returns service health status
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Ready returns service readiness status
func (h *Handler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// respondError translates a service error into an HTTP status. Unrecognized
// errors are logged and surfaced as an opaque 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidRelease),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrProductInactive),
		errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Unhandled request error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
