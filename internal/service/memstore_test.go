package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/models"
)

// In-memory implementations of the storage ports. They mirror the SQL
// store's error semantics so service tests exercise real failure paths.

type memLedger struct {
	mu    sync.Mutex
	stock map[string]*models.Inventory

	// failReserve makes Reserve on the given product fail regardless of
	// stock, to simulate a mid-order reservation refusal.
	failReserve map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		stock:       make(map[string]*models.Inventory),
		failReserve: make(map[string]bool),
	}
}

func (l *memLedger) set(productID string, available, reserved int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[productID] = &models.Inventory{
		ProductID: productID,
		Available: available,
		Reserved:  reserved,
		UpdatedAt: time.Now(),
	}
}

func (l *memLedger) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve quantity must be positive: %w", ErrValidation)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.stock[productID]
	if !ok {
		return fmt.Errorf("inventory for product %s: %w", productID, ErrNotFound)
	}
	if l.failReserve[productID] {
		return &InsufficientStockError{ProductID: productID, Available: inv.Available, Requested: qty}
	}
	if inv.Available < qty {
		return &InsufficientStockError{ProductID: productID, Available: inv.Available, Requested: qty}
	}
	inv.Available -= qty
	inv.Reserved += qty
	return nil
}

func (l *memLedger) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release quantity must be positive: %w", ErrValidation)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.stock[productID]
	if !ok {
		return fmt.Errorf("inventory for product %s: %w", productID, ErrNotFound)
	}
	if inv.Reserved < qty {
		return fmt.Errorf("release of %d exceeds reserved %d for product %s: %w",
			qty, inv.Reserved, productID, ErrInvalidRelease)
	}
	inv.Reserved -= qty
	inv.Available += qty
	return nil
}

func (l *memLedger) Adjust(ctx context.Context, productID string, qty int, op models.StockOperation) (*models.Inventory, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("adjust quantity must be positive: %w", ErrValidation)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.stock[productID]
	if !ok {
		return nil, fmt.Errorf("inventory for product %s: %w", productID, ErrNotFound)
	}
	switch op {
	case models.StockAdd:
		inv.Available += qty
	case models.StockRemove:
		if inv.Available < qty {
			return nil, &InsufficientStockError{ProductID: productID, Available: inv.Available, Requested: qty}
		}
		inv.Available -= qty
	default:
		return nil, fmt.Errorf("unknown stock operation %q: %w", op, ErrValidation)
	}
	inv.UpdatedAt = time.Now()
	cp := *inv
	return &cp, nil
}

func (l *memLedger) Snapshot(ctx context.Context, productID string) (*models.Inventory, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.stock[productID]
	if !ok {
		return nil, fmt.Errorf("inventory for product %s: %w", productID, ErrNotFound)
	}
	cp := *inv
	return &cp, nil
}

type memProducts struct {
	mu       sync.Mutex
	products map[string]*models.Product
}

func newMemProducts() *memProducts {
	return &memProducts{products: make(map[string]*models.Product)}
}

func (p *memProducts) add(prod models.Product) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.products[prod.ID] = &prod
}

func (p *memProducts) CreateProduct(ctx context.Context, prod *models.Product) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.products[prod.ID] = prod
	return nil
}

func (p *memProducts) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prod, ok := p.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	cp := *prod
	return &cp, nil
}

func (p *memProducts) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, prod := range p.products {
		if prod.SKU == sku {
			cp := *prod
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("product sku %s: %w", sku, ErrNotFound)
}

func (p *memProducts) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Product
	for _, prod := range p.products {
		if f.Category != "" && prod.Category != f.Category {
			continue
		}
		out = append(out, *prod)
	}
	return out, len(out), nil
}

func (p *memProducts) UpdateProduct(ctx context.Context, prod *models.Product) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.products[prod.ID]; !ok {
		return fmt.Errorf("product %s: %w", prod.ID, ErrNotFound)
	}
	cp := *prod
	p.products[prod.ID] = &cp
	return nil
}

func (p *memProducts) ListLowStock(ctx context.Context, threshold int) ([]models.Inventory, error) {
	return nil, nil
}

type memOrders struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	items  map[string][]models.OrderItem

	failCreate bool
}

func newMemOrders() *memOrders {
	return &memOrders{
		orders: make(map[string]*models.Order),
		items:  make(map[string][]models.OrderItem),
	}
}

func (o *memOrders) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failCreate {
		return fmt.Errorf("simulated write failure")
	}
	cp := *order
	o.orders[order.ID] = &cp
	o.items[order.ID] = append([]models.OrderItem(nil), items...)
	return nil
}

func (o *memOrders) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	cp := *order
	return &cp, nil
}

func (o *memOrders) GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.OrderItem(nil), o.items[orderID]...), nil
}

func (o *memOrders) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []models.Order
	for _, order := range o.orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (o *memOrders) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []models.Order
	for _, order := range o.orders {
		out = append(out, *order)
	}
	return out, nil
}

func (o *memOrders) TransitionStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[orderID]
	if !ok {
		return false, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	if to == models.OrderStatusPaid {
		now := time.Now()
		order.PaidAt = &now
	}
	return true, nil
}

func (o *memOrders) SetCheckoutSession(ctx context.Context, orderID, sessionID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	order.CheckoutSessionID = sessionID
	return nil
}

type memEvents struct {
	mu        sync.Mutex
	processed map[string]string
}

func newMemEvents() *memEvents {
	return &memEvents{processed: make(map[string]string)}
}

func (e *memEvents) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.processed[eventID]
	return ok, nil
}

func (e *memEvents) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.processed[eventID] = eventType
	return nil
}

type memNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (n *memNotifier) Notify(notification models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

func (n *memNotifier) byType(t string) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.Notification
	for _, notification := range n.sent {
		if notification.Type == t {
			out = append(out, notification)
		}
	}
	return out
}
