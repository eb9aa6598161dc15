package service

import (
	"context"
	"fmt"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/models"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService drives the order lifecycle: creation with multi-item
// reservation, cancellation with matching release, and the payment-driven
// PENDING -> PAID transition. It is the sole writer of Order.status.
type OrderService struct {
	orders   OrderRepo
	products ProductRepo
	ledger   Ledger
	notifier Notifier
	logger   *zap.Logger

	// Serializes terminal transitions per order id so a racing Cancel and
	// MarkPaid can never both apply their side effects.
	locks *keyedLock
}

// NewOrderService creates a new order service
func NewOrderService(orders OrderRepo, products ProductRepo, ledger Ledger, notifier Notifier) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		ledger:   ledger,
		notifier: notifier,
		logger:   util.GetLogger(),
		locks:    newKeyedLock(),
	}
}

// OrderItemRequest is one requested line of a new order.
type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// CreateOrder reserves stock for every line, then persists the order in
// PENDING with price snapshots taken at this moment. If any reservation is
// refused, every reservation already granted is released before the error
// is surfaced; a partially reserved order is never persisted.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, items []OrderItemRequest) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(items) == 0 {
		return nil, nil, fmt.Errorf("%w: order needs at least one item", ErrValidation)
	}

	var totalCents int64
	lines := make([]models.OrderItem, 0, len(items))

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}

		product, err := s.products.GetProductByID(ctx, item.ProductID)
		if err != nil {
			util.OrdersFailedTotal.WithLabelValues("product_not_found").Inc()
			return nil, nil, err
		}
		if !product.IsActive {
			util.OrdersFailedTotal.WithLabelValues("product_inactive").Inc()
			return nil, nil, fmt.Errorf("product %s: %w", product.Name, ErrProductInactive)
		}

		totalCents += product.PriceCents * int64(item.Quantity)
		lines = append(lines, models.OrderItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
		})
	}

	// Reserve line by line; on refusal, compensate everything granted so far.
	for k, line := range lines {
		if err := s.ledger.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
			s.releaseLines(ctx, lines[:k])
			util.OrdersFailedTotal.WithLabelValues("reservation_failed").Inc()
			return nil, nil, fmt.Errorf("failed to reserve product %s: %w", line.ProductID, err)
		}
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Status:          models.OrderStatusPending,
		TotalPriceCents: totalCents,
	}

	if err := s.orders.CreateOrder(ctx, order, lines); err != nil {
		// The order never became visible; hand the stock back.
		s.releaseLines(ctx, lines)
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, nil, fmt.Errorf("failed to persist order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int64("total_price_cents", totalCents))

	s.notifier.Notify(models.Notification{
		Type:    models.NotificationOrderCreated,
		UserID:  userID,
		Title:   "Order created",
		Message: fmt.Sprintf("Your order %s was created", shortID(order.ID)),
		Data:    map[string]any{"order_id": order.ID, "total_price_cents": totalCents},
	})

	return order, lines, nil
}

// MarkPaid moves a PENDING order to PAID. Already-PAID orders succeed as a
// no-op so redelivered payment confirmations stay harmless; CANCELLED
// orders can never become paid, their stock is already back on sale.
func (s *OrderService) MarkPaid(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.MarkPaid")
	defer span.End()

	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case models.OrderStatusPaid:
		return order, nil
	case models.OrderStatusCancelled:
		return nil, fmt.Errorf("order %s is cancelled: %w", orderID, ErrInvalidTransition)
	}

	ok, err := s.orders.TransitionStatus(ctx, orderID, models.OrderStatusPending, models.OrderStatusPaid)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with a writer outside this process; resolve against
		// whatever state the order landed in.
		order, err = s.orders.GetOrderByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order.Status == models.OrderStatusPaid {
			return order, nil
		}
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, ErrInvalidTransition)
	}

	order, err = s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	util.OrdersPaidTotal.Inc()
	s.logger.Info("Order paid", zap.String("order_id", orderID))

	s.notifier.Notify(models.Notification{
		Type:    models.NotificationOrderPaid,
		UserID:  order.UserID,
		Title:   "Payment received",
		Message: fmt.Sprintf("Your payment for order %s was accepted", shortID(orderID)),
		Data:    map[string]any{"order_id": orderID, "total_price_cents": order.TotalPriceCents},
	})

	return order, nil
}

// Cancel releases the reserved stock of every line and moves the order to
// CANCELLED. Only the owner or an admin may cancel, and only from PENDING.
func (s *OrderService) Cancel(ctx context.Context, orderID, requesterID string, isAdmin bool) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel")
	defer span.End()

	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && order.UserID != requesterID {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrForbidden)
	}

	if !models.CanTransition(order.Status, models.OrderStatusCancelled) {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, ErrInvalidTransition)
	}

	items, err := s.orders.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Release all lines, or none: a failure re-reserves what was already
	// released so a retry starts from a clean slate.
	for k, item := range items {
		if err := s.ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.reserveLines(ctx, items[:k])
			return nil, fmt.Errorf("failed to release product %s: %w", item.ProductID, err)
		}
	}

	ok, err := s.orders.TransitionStatus(ctx, orderID, models.OrderStatusPending, models.OrderStatusCancelled)
	if err != nil || !ok {
		// The order left PENDING under an external writer; put the stock
		// back where the terminal state expects it.
		s.reserveLines(ctx, items)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("order %s: %w", orderID, ErrInvalidTransition)
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID),
		zap.String("requester_id", requesterID))

	s.notifier.Notify(models.Notification{
		Type:    models.NotificationOrderCancelled,
		UserID:  order.UserID,
		Title:   "Order cancelled",
		Message: fmt.Sprintf("Order %s was cancelled", shortID(orderID)),
		Data:    map[string]any{"order_id": orderID},
	})

	return s.orders.GetOrderByID(ctx, orderID)
}

// Get returns an order and its lines if the requester owns it or is admin.
func (s *OrderService) Get(ctx context.Context, orderID, requesterID string, isAdmin bool) (*models.Order, []models.OrderItem, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	if !isAdmin && order.UserID != requesterID {
		return nil, nil, fmt.Errorf("order %s: %w", orderID, ErrForbidden)
	}

	items, err := s.orders.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

// List returns all orders for admins and only the requester's otherwise.
func (s *OrderService) List(ctx context.Context, requesterID string, isAdmin bool) ([]models.Order, error) {
	if isAdmin {
		return s.orders.ListAllOrders(ctx)
	}
	return s.orders.ListOrders(ctx, requesterID)
}

// releaseLines is the compensating rollback for granted reservations.
// Failures are logged, not returned: by the ledger's contract a release of
// a quantity we just reserved can only fail on storage trouble.
func (s *OrderService) releaseLines(ctx context.Context, lines []models.OrderItem) {
	for _, line := range lines {
		if err := s.ledger.Release(ctx, line.ProductID, line.Quantity); err != nil {
			s.logger.Error("Failed to compensate reservation",
				zap.String("product_id", line.ProductID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
		}
	}
}

// reserveLines re-applies reservations undone by a failed cancellation.
func (s *OrderService) reserveLines(ctx context.Context, lines []models.OrderItem) {
	for _, line := range lines {
		if err := s.ledger.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
			s.logger.Error("Failed to re-reserve released stock",
				zap.String("product_id", line.ProductID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
