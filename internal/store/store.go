package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/models"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/service"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateProduct inserts the product together with its zeroed inventory row.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (id, sku, name, description, category, price_cents, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	if err := tx.GetContext(ctx, p, query,
		p.ID, p.SKU, p.Name, p.Description, p.Category, p.PriceCents, p.IsActive); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO inventory (product_id, available, reserved) VALUES ($1, 0, 0)", p.ID); err != nil {
		return fmt.Errorf("failed to create inventory record: %w", err)
	}

	return tx.Commit()
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, service.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySKU retrieves a product by SKU
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE sku = $1", sku)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product sku %s: %w", sku, service.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves active products matching the filter, newest first,
// along with the total match count for pagination.
func (s *Store) ListProducts(ctx context.Context, f service.ProductFilter) ([]models.Product, int, error) {
	where := "WHERE is_active = TRUE"
	args := []interface{}{}

	if f.Category != "" {
		args = append(args, f.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if f.MinPriceCents > 0 {
		args = append(args, f.MinPriceCents)
		where += fmt.Sprintf(" AND price_cents >= $%d", len(args))
	}
	if f.MaxPriceCents > 0 {
		args = append(args, f.MaxPriceCents)
		where += fmt.Sprintf(" AND price_cents <= $%d", len(args))
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products "+where, args...); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	args = append(args, f.Limit, offset)
	query := fmt.Sprintf("SELECT * FROM products %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args))

	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// UpdateProduct updates the mutable product fields.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET sku = $2, name = $3, description = $4, category = $5,
		    price_cents = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.SKU, p.Name, p.Description, p.Category, p.PriceCents, p.IsActive)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("product %s: %w", p.ID, service.ErrNotFound)
	}
	return nil
}

// Reserve moves qty units from available to reserved inside a single
// transaction holding the inventory row lock, so concurrent reservations on
// the same product serialize and can never oversell.
func (s *Store) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", service.ErrValidation)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var available int
	err = tx.GetContext(ctx, &available,
		"SELECT available FROM inventory WHERE product_id = $1 FOR UPDATE", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("inventory for product %s: %w", productID, service.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock inventory: %w", err)
	}

	if available < qty {
		return &service.InsufficientStockError{ProductID: productID, Available: available, Requested: qty}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE inventory SET available = available - $1, reserved = reserved + $1, updated_at = NOW() WHERE product_id = $2",
		qty, productID)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	return tx.Commit()
}

// Release moves qty units from reserved back to available. A shortfall in
// reserved means the caller's bookkeeping is wrong, not the ledger's.
func (s *Store) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive", service.ErrValidation)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var reserved int
	err = tx.GetContext(ctx, &reserved,
		"SELECT reserved FROM inventory WHERE product_id = $1 FOR UPDATE", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("inventory for product %s: %w", productID, service.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock inventory: %w", err)
	}

	if reserved < qty {
		return fmt.Errorf("product %s: reserved=%d, requested=%d: %w",
			productID, reserved, qty, service.ErrInvalidRelease)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE inventory SET reserved = reserved - $1, available = available + $1, updated_at = NOW() WHERE product_id = $2",
		qty, productID)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	return tx.Commit()
}

// Adjust applies an admin stock correction to available only.
func (s *Store) Adjust(ctx context.Context, productID string, qty int, op models.StockOperation) (*models.Inventory, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", service.ErrValidation)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var inv models.Inventory
	err = tx.GetContext(ctx, &inv,
		"SELECT * FROM inventory WHERE product_id = $1 FOR UPDATE", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("inventory for product %s: %w", productID, service.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock inventory: %w", err)
	}

	switch op {
	case models.StockAdd:
		inv.Available += qty
	case models.StockRemove:
		if inv.Available < qty {
			return nil, &service.InsufficientStockError{ProductID: productID, Available: inv.Available, Requested: qty}
		}
		inv.Available -= qty
	default:
		return nil, fmt.Errorf("%w: unknown stock operation %q", service.ErrValidation, op)
	}

	err = tx.GetContext(ctx, &inv.UpdatedAt,
		"UPDATE inventory SET available = $1, updated_at = NOW() WHERE product_id = $2 RETURNING updated_at",
		inv.Available, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Snapshot returns the current counters for a product.
func (s *Store) Snapshot(ctx context.Context, productID string) (*models.Inventory, error) {
	var inv models.Inventory
	err := s.db.GetContext(ctx, &inv, "SELECT * FROM inventory WHERE product_id = $1", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("inventory for product %s: %w", productID, service.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListLowStock returns inventory records at or below the threshold.
func (s *Store) ListLowStock(ctx context.Context, threshold int) ([]models.Inventory, error) {
	var records []models.Inventory
	err := s.db.SelectContext(ctx, &records,
		"SELECT * FROM inventory WHERE available <= $1 ORDER BY available ASC", threshold)
	return records, err
}
