package service

import (
	"context"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/models"
)

// Ledger is the inventory reservation ledger. Every operation is an atomic
// read-modify-write keyed by product id; operations on different products
// must not block one another.
type Ledger interface {
	// Reserve moves qty units from available to reserved. Fails with
	// ErrInsufficientStock (carrying the current available count) without
	// any side effect if available < qty.
	Reserve(ctx context.Context, productID string, qty int) error
	// Release moves qty units from reserved back to available. Fails with
	// ErrInvalidRelease if reserved < qty.
	Release(ctx context.Context, productID string, qty int) error
	// Adjust changes available by qty in the given direction. REMOVE fails
	// with ErrInsufficientStock rather than driving available negative.
	Adjust(ctx context.Context, productID string, qty int, op models.StockOperation) (*models.Inventory, error)
	// Snapshot returns the current counters.
	Snapshot(ctx context.Context, productID string) (*models.Inventory, error)
}

// ProductRepo is the catalog storage boundary.
type ProductRepo interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	ListLowStock(ctx context.Context, threshold int) ([]models.Inventory, error)
}

// OrderRepo is the order storage boundary. CreateOrder persists the order
// and its lines atomically; TransitionStatus is a compare-and-swap on the
// status column so exactly one terminal transition can win a race.
type OrderRepo interface {
	CreateOrder(ctx context.Context, o *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	ListOrders(ctx context.Context, userID string) ([]models.Order, error)
	ListAllOrders(ctx context.Context) ([]models.Order, error)
	// TransitionStatus atomically moves the order from `from` to `to` and
	// returns false (no error) if the order was no longer in `from`.
	TransitionStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error)
	SetCheckoutSession(ctx context.Context, orderID, sessionID string) error
}

// EventRepo is the durable webhook dedup record.
type EventRepo interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Notifier receives fire-and-forget user notifications. Implementations
// must never block the caller or surface delivery errors.
type Notifier interface {
	Notify(n models.Notification)
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category      string
	MinPriceCents int64
	MaxPriceCents int64
	Page          int
	Limit         int
}
