package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

type mockRepo struct {
	createProductFn  func(ctx context.Context, space tenant.Space, params persistence.CreateProductParams) (persistence.Product, error)
	searchProductsFn func(ctx context.Context, space tenant.Space, shopID uuid.UUID, fragment string) ([]persistence.ProductWithStock, error)
	getProductFn     func(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID) (persistence.ProductWithStock, error)
	updateProductFn  func(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, params persistence.UpdateProductParams) (persistence.ProductWithStock, error)
	adjustStockFn    func(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, delta int) error
	listLowStockFn   func(ctx context.Context, space tenant.Space, shopID uuid.UUID) ([]persistence.ProductWithStock, error)
}

func (m *mockRepo) CreateProduct(ctx context.Context, space tenant.Space, params persistence.CreateProductParams) (persistence.Product, error) {
	if m.createProductFn == nil {
		panic("unexpected CreateProduct call")
	}
	return m.createProductFn(ctx, space, params)
}

func (m *mockRepo) SearchProducts(ctx context.Context, space tenant.Space, shopID uuid.UUID, fragment string) ([]persistence.ProductWithStock, error) {
	if m.searchProductsFn == nil {
		panic("unexpected SearchProducts call")
	}
	return m.searchProductsFn(ctx, space, shopID, fragment)
}

func (m *mockRepo) GetProduct(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID) (persistence.ProductWithStock, error) {
	if m.getProductFn == nil {
		panic("unexpected GetProduct call")
	}
	return m.getProductFn(ctx, space, productID, shopID)
}

func (m *mockRepo) UpdateProduct(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, params persistence.UpdateProductParams) (persistence.ProductWithStock, error) {
	if m.updateProductFn == nil {
		panic("unexpected UpdateProduct call")
	}
	return m.updateProductFn(ctx, space, productID, shopID, params)
}

func (m *mockRepo) AdjustStock(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, delta int) error {
	if m.adjustStockFn == nil {
		panic("unexpected AdjustStock call")
	}
	return m.adjustStockFn(ctx, space, productID, shopID, delta)
}

func (m *mockRepo) ListLowStock(ctx context.Context, space tenant.Space, shopID uuid.UUID) ([]persistence.ProductWithStock, error) {
	if m.listLowStockFn == nil {
		panic("unexpected ListLowStock call")
	}
	return m.listLowStockFn(ctx, space, shopID)
}

var testSpace = tenant.Space{OwnerIdentity: 42, SchemaName: "tenant_42"}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		params CreateParams
		field  string
	}{
		{
			name:   "missing name",
			params: CreateParams{ShopID: uuid.New(), Price: decimal.NewFromInt(2)},
			field:  "name",
		},
		{
			name:   "negative price",
			params: CreateParams{ShopID: uuid.New(), Name: "Bread", Price: decimal.NewFromInt(-1)},
			field:  "price",
		},
		{
			name:   "zero price",
			params: CreateParams{ShopID: uuid.New(), Name: "Bread", Price: decimal.Zero},
			field:  "price",
		},
		{
			name:   "negative quantity",
			params: CreateParams{ShopID: uuid.New(), Name: "Bread", Price: decimal.NewFromInt(2), InitialQuantity: -5},
			field:  "quantity",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(&mockRepo{}).Create(context.Background(), testSpace, tc.params)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Contains(t, vErr.Fields, tc.field)
		})
	}
}

func TestCreateTrimsAndPersists(t *testing.T) {
	t.Parallel()

	shopID := uuid.New()
	repo := &mockRepo{
		createProductFn: func(ctx context.Context, space tenant.Space, params persistence.CreateProductParams) (persistence.Product, error) {
			require.Equal(t, "Bread", params.Name)
			require.NotNil(t, params.ShopID)
			require.Equal(t, shopID, *params.ShopID)
			require.Equal(t, 12, params.InitialQuantity)
			return persistence.Product{ProductID: params.ProductID, Name: params.Name, Price: params.Price}, nil
		},
	}

	product, err := New(repo).Create(context.Background(), testSpace, CreateParams{
		ShopID:          shopID,
		Name:            "  Bread  ",
		Price:           decimal.RequireFromString("1.50"),
		InitialQuantity: 12,
	})
	require.NoError(t, err)
	require.True(t, product.Price.Equal(decimal.RequireFromString("1.50")))
}

func TestCreateMapsConflict(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		createProductFn: func(ctx context.Context, space tenant.Space, params persistence.CreateProductParams) (persistence.Product, error) {
			return persistence.Product{}, persistence.ErrProductConflict
		},
	}

	_, err := New(repo).Create(context.Background(), testSpace, CreateParams{
		ShopID: uuid.New(),
		Name:   "Bread",
		Price:  decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, ErrConflict)
}

func TestSearchRequiresFragment(t *testing.T) {
	t.Parallel()

	_, err := New(&mockRepo{}).Search(context.Background(), testSpace, uuid.New(), "   ")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestGetMapsNotFound(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		getProductFn: func(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID) (persistence.ProductWithStock, error) {
			return persistence.ProductWithStock{}, persistence.ErrProductNotFound
		},
	}

	_, err := New(repo).Get(context.Background(), testSpace, uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateKeepsNilFields(t *testing.T) {
	t.Parallel()

	price := decimal.RequireFromString("2.25")
	repo := &mockRepo{
		updateProductFn: func(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, params persistence.UpdateProductParams) (persistence.ProductWithStock, error) {
			require.Nil(t, params.Name)
			require.NotNil(t, params.Price)
			require.True(t, params.Price.Equal(price))
			require.Nil(t, params.Quantity)
			return persistence.ProductWithStock{}, nil
		},
	}

	_, err := New(repo).Update(context.Background(), testSpace, uuid.New(), uuid.New(), UpdateParams{Price: &price})
	require.NoError(t, err)
}

func TestUpdateRejectsNonPositivePrice(t *testing.T) {
	t.Parallel()

	for _, price := range []decimal.Decimal{decimal.NewFromInt(-3), decimal.Zero} {
		p := price
		_, err := New(&mockRepo{}).Update(context.Background(), testSpace, uuid.New(), uuid.New(), UpdateParams{Price: &p})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		require.Contains(t, vErr.Fields, "price")
	}
}

func TestReceiveRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	err := New(&mockRepo{}).Receive(context.Background(), testSpace, uuid.New(), uuid.New(), 0)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestReceiveAddsStock(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		adjustStockFn: func(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, delta int) error {
			require.Equal(t, 24, delta)
			return nil
		},
	}

	require.NoError(t, New(repo).Receive(context.Background(), testSpace, uuid.New(), uuid.New(), 24))
}
