package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/models"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/util"

	"go.uber.org/zap"
)

// DefaultLowStockThreshold is used when a caller doesn't pass one.
const DefaultLowStockThreshold = 5

// InventoryService fronts the inventory ledger: it validates input, checks
// product existence on admin adjustments, and raises low-stock alerts. All
// counter arithmetic stays inside the ledger's atomic operations.
type InventoryService struct {
	ledger   Ledger
	products ProductRepo
	notifier Notifier
	logger   *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(ledger Ledger, products ProductRepo, notifier Notifier) *InventoryService {
	return &InventoryService{
		ledger:   ledger,
		products: products,
		notifier: notifier,
		logger:   util.GetLogger(),
	}
}

// StockView is the inventory snapshot returned to callers, with the derived
// total included.
type StockView struct {
	models.Inventory
	TotalStock int             `json:"total_stock"`
	Product    *models.Product `json:"product,omitempty"`
}

// GetStock returns a product's current counters.
func (s *InventoryService) GetStock(ctx context.Context, productID string) (*StockView, error) {
	inv, err := s.ledger.Snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return &StockView{Inventory: *inv, TotalStock: inv.TotalStock(), Product: product}, nil
}

// Reserve moves stock from available to reserved for a pending order.
func (s *InventoryService) Reserve(ctx context.Context, productID string, qty int) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.Reserve")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReservationLatency.Observe(time.Since(start).Seconds())
	}()

	if err := s.ledger.Reserve(ctx, productID, qty); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			util.ReservationsFailedTotal.WithLabelValues("insufficient_stock").Inc()
		} else {
			util.ReservationsFailedTotal.WithLabelValues("error").Inc()
		}
		return err
	}
	return nil
}

// Release returns reserved stock to available.
func (s *InventoryService) Release(ctx context.Context, productID string, qty int) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.Release")
	defer span.End()

	return s.ledger.Release(ctx, productID, qty)
}

// UpdateStock applies an admin stock correction and alerts when the result
// runs low.
func (s *InventoryService) UpdateStock(ctx context.Context, productID string, qty int, op models.StockOperation) (*models.Inventory, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.UpdateStock")
	defer span.End()

	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	inv, err := s.ledger.Adjust(ctx, productID, qty, op)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock adjusted",
		zap.String("product_id", productID),
		zap.String("operation", string(op)),
		zap.Int("quantity", qty),
		zap.Int("available", inv.Available))

	if op == models.StockRemove && inv.Available <= DefaultLowStockThreshold {
		s.notifier.Notify(models.Notification{
			Type:    models.NotificationLowStock,
			Title:   "Low stock",
			Message: fmt.Sprintf("Product %s is down to %d units", product.Name, inv.Available),
			Data: map[string]any{
				"product_id": productID,
				"available":  inv.Available,
			},
		})
	}

	return inv, nil
}

// LowStock lists products at or below the threshold.
func (s *InventoryService) LowStock(ctx context.Context, threshold int) ([]models.Inventory, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return s.products.ListLowStock(ctx, threshold)
}
