package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/models"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/service"
)

// CreateOrder persists the order and all of its lines in one transaction;
// a half-written order is never visible.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, user_id, status, total_price_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	if err := tx.GetContext(ctx, order, query,
		order.ID, order.UserID, order.Status, order.TotalPriceCents); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err := tx.GetContext(ctx, &items[i].ID, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			items[i].OrderID, items[i].ProductID, items[i].Quantity, items[i].UnitPriceCents)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, service.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItems retrieves all lines of an order.
func (s *Store) GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// ListOrders retrieves a user's orders, newest first.
func (s *Store) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// ListAllOrders retrieves every order, newest first.
func (s *Store) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM orders ORDER BY created_at DESC")
	return orders, err
}

// TransitionStatus is a compare-and-swap on the status column: the update
// only applies while the order is still in `from`, so two racing terminal
// transitions resolve to exactly one winner.
func (s *Store) TransitionStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    paid_at = CASE WHEN $2 = 'PAID' THEN NOW() ELSE paid_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		orderID, to, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition order status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// SetCheckoutSession records the provider checkout session id on the order.
func (s *Store) SetCheckoutSession(ctx context.Context, orderID, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET checkout_session_id = $1, updated_at = NOW() WHERE id = $2",
		sessionID, orderID)
	return err
}

// IsEventProcessed checks the durable webhook dedup record.
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed records a webhook event id as consumed.
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
