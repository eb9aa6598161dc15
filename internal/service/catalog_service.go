package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Abdelhakim-Baalla/El-Marketa/internal/models"
	"github.com/Abdelhakim-Baalla/El-Marketa/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// CatalogService owns product CRUD. Removing a product is a soft delete so
// existing orders keep resolving their lines.
type CatalogService struct {
	products ProductRepo
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(products ProductRepo) *CatalogService {
	return &CatalogService{
		products: products,
		logger:   util.GetLogger(),
	}
}

// ProductInput carries the writable product fields.
type ProductInput struct {
	SKU         string `json:"sku" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents" binding:"required,min=0"`
}

// CreateProduct adds a product with a zeroed inventory record. The SKU must
// be unique across the catalog.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		return nil, fmt.Errorf("%w: sku is required", ErrValidation)
	}
	if in.PriceCents < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	existing, err := s.products.GetProductBySKU(ctx, sku)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("sku %s: %w", sku, ErrConflict)
	}

	product := &models.Product{
		ID:          uuid.New().String(),
		SKU:         sku,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		PriceCents:  in.PriceCents,
		IsActive:    true,
	}

	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("sku", product.SKU))
	return product, nil
}

// ListProducts returns active products matching the filter plus the total
// match count.
func (s *CatalogService) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return s.products.ListProducts(ctx, f)
}

// GetProduct fetches a single product.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.products.GetProductByID(ctx, id)
}

// ProductPatch holds optional updates; nil fields stay untouched.
type ProductPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	PriceCents  *int64  `json:"price_cents"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateProduct applies a partial update. Price changes never touch
// existing orders; their lines keep the snapshot taken at order time.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		product.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		product.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		product.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.PriceCents != nil {
		if *patch.PriceCents < 0 {
			return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
		}
		product.PriceCents = *patch.PriceCents
	}
	if patch.IsActive != nil {
		product.IsActive = *patch.IsActive
	}

	if err := s.products.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeactivateProduct soft-deletes a product; its inventory record stays.
func (s *CatalogService) DeactivateProduct(ctx context.Context, id string) error {
	inactive := false
	_, err := s.UpdateProduct(ctx, id, ProductPatch{IsActive: &inactive})
	return err
}
