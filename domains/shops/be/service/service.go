// Package service manages the shops of a partition. The first shop ever
// created becomes the main shop and anchors day summaries and defaults.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// Domain sentinel errors.
var ErrNotFound = errors.New("shop not found")

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Message string
}

func (v *ValidationError) Error() string {
	return v.Message
}

// Repository abstracts the partition-scoped shop store.
type Repository interface {
	CreateShop(ctx context.Context, space tenant.Space, params persistence.CreateShopParams) (persistence.Shop, error)
	GetShop(ctx context.Context, space tenant.Space, shopID uuid.UUID) (persistence.Shop, error)
	ListShops(ctx context.Context, space tenant.Space) ([]persistence.Shop, error)
	UpdateShop(ctx context.Context, space tenant.Space, shopID uuid.UUID, params persistence.UpdateShopParams) (persistence.Shop, error)
}

// Service implements shop management.
type Service struct {
	repo Repository
}

// New constructs a shops Service backed by the provided repository.
func New(repo Repository) *Service {
	if repo == nil {
		panic("shops repository is required")
	}
	return &Service{repo: repo}
}

// CreateParams describes a shop to register.
type CreateParams struct {
	Name     string
	Location string
	Contact  string
}

// Create registers a shop. The partition's first shop is marked as the main
// shop automatically.
func (s *Service) Create(ctx context.Context, space tenant.Space, params CreateParams) (persistence.Shop, error) {
	if strings.TrimSpace(params.Name) == "" {
		return persistence.Shop{}, &ValidationError{Message: "shop name is required"}
	}

	existing, err := s.repo.ListShops(ctx, space)
	if err != nil {
		return persistence.Shop{}, err
	}

	return s.repo.CreateShop(ctx, space, persistence.CreateShopParams{
		ShopID:   uuid.New(),
		Name:     strings.TrimSpace(params.Name),
		Location: strings.TrimSpace(params.Location),
		Contact:  strings.TrimSpace(params.Contact),
		IsMain:   len(existing) == 0,
	})
}

// Get returns a single shop.
func (s *Service) Get(ctx context.Context, space tenant.Space, shopID uuid.UUID) (persistence.Shop, error) {
	shop, err := s.repo.GetShop(ctx, space, shopID)
	if err != nil {
		if errors.Is(err, persistence.ErrShopNotFound) {
			return persistence.Shop{}, ErrNotFound
		}
		return persistence.Shop{}, err
	}
	return shop, nil
}

// List returns all shops of the partition, main shop first.
func (s *Service) List(ctx context.Context, space tenant.Space) ([]persistence.Shop, error) {
	return s.repo.ListShops(ctx, space)
}

// Main returns the partition's main shop.
func (s *Service) Main(ctx context.Context, space tenant.Space) (persistence.Shop, error) {
	shops, err := s.repo.ListShops(ctx, space)
	if err != nil {
		return persistence.Shop{}, err
	}
	for _, shop := range shops {
		if shop.IsMain {
			return shop, nil
		}
	}
	return persistence.Shop{}, ErrNotFound
}

// UpdateParams carries optional shop fields. Nil fields keep the stored
// value.
type UpdateParams struct {
	Name     *string
	Location *string
	Contact  *string
}

// Update applies the provided fields to a shop.
func (s *Service) Update(ctx context.Context, space tenant.Space, shopID uuid.UUID, params UpdateParams) (persistence.Shop, error) {
	if params.Name != nil && strings.TrimSpace(*params.Name) == "" {
		return persistence.Shop{}, &ValidationError{Message: "shop name cannot be empty"}
	}

	shop, err := s.repo.UpdateShop(ctx, space, shopID, persistence.UpdateShopParams{
		Name:     params.Name,
		Location: params.Location,
		Contact:  params.Contact,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrShopNotFound) {
			return persistence.Shop{}, ErrNotFound
		}
		return persistence.Shop{}, err
	}
	return shop, nil
}
