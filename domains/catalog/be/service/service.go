// Package service manages the product catalog and stock levels of a
// partition.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// Domain sentinel errors.
var (
	ErrNotFound          = errors.New("product not found")
	ErrConflict          = errors.New("product already exists")
	ErrStockInsufficient = errors.New("insufficient stock")
)

// FieldErrors maps field names to human-readable problems.
type FieldErrors map[string]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "invalid product input"
}

// Repository abstracts the partition-scoped catalog store.
type Repository interface {
	CreateProduct(ctx context.Context, space tenant.Space, params persistence.CreateProductParams) (persistence.Product, error)
	SearchProducts(ctx context.Context, space tenant.Space, shopID uuid.UUID, fragment string) ([]persistence.ProductWithStock, error)
	GetProduct(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID) (persistence.ProductWithStock, error)
	UpdateProduct(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, params persistence.UpdateProductParams) (persistence.ProductWithStock, error)
	AdjustStock(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, delta int) error
	ListLowStock(ctx context.Context, space tenant.Space, shopID uuid.UUID) ([]persistence.ProductWithStock, error)
}

// Service implements catalog management.
type Service struct {
	repo Repository
}

// New constructs a catalog Service backed by the provided repository.
func New(repo Repository) *Service {
	if repo == nil {
		panic("catalog repository is required")
	}
	return &Service{repo: repo}
}

// CreateParams describes a product to add to a shop's catalog.
type CreateParams struct {
	ShopID            uuid.UUID
	Name              string
	Price             decimal.Decimal
	Unit              string
	InitialQuantity   int
	MinStock          int
	LowStockThreshold int
	ReorderQuantity   int
}

func (p CreateParams) validate() FieldErrors {
	fields := FieldErrors{}
	if strings.TrimSpace(p.Name) == "" {
		fields["name"] = "name is required"
	}
	if !p.Price.IsPositive() {
		fields["price"] = "price must be greater than zero"
	}
	if p.InitialQuantity < 0 {
		fields["quantity"] = "initial quantity cannot be negative"
	}
	if p.LowStockThreshold < 0 {
		fields["low_stock_threshold"] = "threshold cannot be negative"
	}
	return fields
}

// Create adds a product and its initial stock level.
func (s *Service) Create(ctx context.Context, space tenant.Space, params CreateParams) (persistence.Product, error) {
	if fields := params.validate(); len(fields) > 0 {
		return persistence.Product{}, &ValidationError{Fields: fields}
	}

	shopID := params.ShopID
	product, err := s.repo.CreateProduct(ctx, space, persistence.CreateProductParams{
		ProductID:         uuid.New(),
		ShopID:            &shopID,
		Name:              strings.TrimSpace(params.Name),
		Price:             params.Price,
		Unit:              strings.TrimSpace(params.Unit),
		InitialQuantity:   params.InitialQuantity,
		MinStock:          params.MinStock,
		LowStockThreshold: params.LowStockThreshold,
		ReorderQuantity:   params.ReorderQuantity,
	})
	if err != nil {
		return persistence.Product{}, mapPersistenceError(err)
	}
	return product, nil
}

// Search returns products whose names contain the fragment, with stock for
// the given shop.
func (s *Service) Search(ctx context.Context, space tenant.Space, shopID uuid.UUID, fragment string) ([]persistence.ProductWithStock, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, &ValidationError{Fields: FieldErrors{"query": "search text is required"}}
	}
	return s.repo.SearchProducts(ctx, space, shopID, fragment)
}

// Get returns one product with its stock level in a shop.
func (s *Service) Get(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID) (persistence.ProductWithStock, error) {
	item, err := s.repo.GetProduct(ctx, space, productID, shopID)
	if err != nil {
		return persistence.ProductWithStock{}, mapPersistenceError(err)
	}
	return item, nil
}

// UpdateParams carries optional product and stock fields. Nil fields keep
// the stored values.
type UpdateParams struct {
	Name              *string
	Price             *decimal.Decimal
	Unit              *string
	Quantity          *int
	MinStock          *int
	LowStockThreshold *int
	ReorderQuantity   *int
}

// Update applies the provided fields to a product and its stock row.
func (s *Service) Update(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, params UpdateParams) (persistence.ProductWithStock, error) {
	fields := FieldErrors{}
	if params.Name != nil && strings.TrimSpace(*params.Name) == "" {
		fields["name"] = "name cannot be empty"
	}
	if params.Price != nil && !params.Price.IsPositive() {
		fields["price"] = "price must be greater than zero"
	}
	if params.Quantity != nil && *params.Quantity < 0 {
		fields["quantity"] = "quantity cannot be negative"
	}
	if len(fields) > 0 {
		return persistence.ProductWithStock{}, &ValidationError{Fields: fields}
	}

	item, err := s.repo.UpdateProduct(ctx, space, productID, shopID, persistence.UpdateProductParams{
		Name:              params.Name,
		Price:             params.Price,
		Unit:              params.Unit,
		Quantity:          params.Quantity,
		MinStock:          params.MinStock,
		LowStockThreshold: params.LowStockThreshold,
		ReorderQuantity:   params.ReorderQuantity,
	})
	if err != nil {
		return persistence.ProductWithStock{}, mapPersistenceError(err)
	}
	return item, nil
}

// Receive adds delivered stock to a shop's level for a product.
func (s *Service) Receive(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return &ValidationError{Fields: FieldErrors{"quantity": "received quantity must be positive"}}
	}
	return mapPersistenceError(s.repo.AdjustStock(ctx, space, productID, shopID, quantity))
}

// LowStock returns shop products at or below their low stock threshold.
func (s *Service) LowStock(ctx context.Context, space tenant.Space, shopID uuid.UUID) ([]persistence.ProductWithStock, error) {
	return s.repo.ListLowStock(ctx, space, shopID)
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrProductNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrProductConflict):
		return ErrConflict
	case errors.Is(err, persistence.ErrStockInsufficient):
		return ErrStockInsufficient
	default:
		return err
	}
}
