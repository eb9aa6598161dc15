package models

import "time"

// Product represents a catalog entry. Price is stored in the smallest
// currency unit and is snapshotted into order items at order time.
type Product struct {
	ID          string    `db:"id" json:"id"`
	SKU         string    `db:"sku" json:"sku"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Category    string    `db:"category" json:"category,omitempty"`
	PriceCents  int64     `db:"price_cents" json:"price_cents"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Inventory holds per-product stock counters. available + reserved is the
// total physical stock; Reserve/Release only move units between the two
// buckets, stock adjustments are the only operations that change the sum.
type Inventory struct {
	ProductID string    `db:"product_id" json:"product_id"`
	Available int       `db:"available" json:"available"`
	Reserved  int       `db:"reserved" json:"reserved"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TotalStock is derived, never stored.
func (i Inventory) TotalStock() int { return i.Available + i.Reserved }

// Order represents a customer order.
type Order struct {
	ID                string      `db:"id" json:"id"`
	UserID            string      `db:"user_id" json:"user_id"`
	Status            OrderStatus `db:"status" json:"status"`
	TotalPriceCents   int64       `db:"total_price_cents" json:"total_price_cents"`
	CheckoutSessionID string      `db:"checkout_session_id" json:"checkout_session_id,omitempty"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
	PaidAt            *time.Time  `db:"paid_at" json:"paid_at,omitempty"`
}

// OrderItem belongs to exactly one order. UnitPriceCents is the product
// price at creation time; later catalog price changes never touch it.
type OrderItem struct {
	ID             int64  `db:"id" json:"id"`
	OrderID        string `db:"order_id" json:"order_id"`
	ProductID      string `db:"product_id" json:"product_id"`
	Quantity       int    `db:"quantity" json:"quantity"`
	UnitPriceCents int64  `db:"unit_price_cents" json:"unit_price_cents"`
}

// StockOperation is the direction of an admin stock adjustment.
type StockOperation string

const (
	StockAdd    StockOperation = "ADD"
	StockRemove StockOperation = "REMOVE"
)

// ProcessedEvent records a consumed webhook event id so provider
// redeliveries are replayed without side effects.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
