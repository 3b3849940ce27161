package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

type mockRepo struct {
	createShopFn func(ctx context.Context, space tenant.Space, params persistence.CreateShopParams) (persistence.Shop, error)
	getShopFn    func(ctx context.Context, space tenant.Space, shopID uuid.UUID) (persistence.Shop, error)
	listShopsFn  func(ctx context.Context, space tenant.Space) ([]persistence.Shop, error)
	updateShopFn func(ctx context.Context, space tenant.Space, shopID uuid.UUID, params persistence.UpdateShopParams) (persistence.Shop, error)
}

func (m *mockRepo) CreateShop(ctx context.Context, space tenant.Space, params persistence.CreateShopParams) (persistence.Shop, error) {
	if m.createShopFn == nil {
		panic("unexpected CreateShop call")
	}
	return m.createShopFn(ctx, space, params)
}

func (m *mockRepo) GetShop(ctx context.Context, space tenant.Space, shopID uuid.UUID) (persistence.Shop, error) {
	if m.getShopFn == nil {
		panic("unexpected GetShop call")
	}
	return m.getShopFn(ctx, space, shopID)
}

func (m *mockRepo) ListShops(ctx context.Context, space tenant.Space) ([]persistence.Shop, error) {
	if m.listShopsFn == nil {
		panic("unexpected ListShops call")
	}
	return m.listShopsFn(ctx, space)
}

func (m *mockRepo) UpdateShop(ctx context.Context, space tenant.Space, shopID uuid.UUID, params persistence.UpdateShopParams) (persistence.Shop, error) {
	if m.updateShopFn == nil {
		panic("unexpected UpdateShop call")
	}
	return m.updateShopFn(ctx, space, shopID, params)
}

var testSpace = tenant.Space{OwnerIdentity: 42, SchemaName: "tenant_42"}

func TestCreateFirstShopBecomesMain(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		listShopsFn: func(ctx context.Context, space tenant.Space) ([]persistence.Shop, error) {
			return nil, nil
		},
		createShopFn: func(ctx context.Context, space tenant.Space, params persistence.CreateShopParams) (persistence.Shop, error) {
			require.True(t, params.IsMain)
			require.Equal(t, "Main Street", params.Name)
			return persistence.Shop{ShopID: params.ShopID, Name: params.Name, IsMain: params.IsMain}, nil
		},
	}

	shop, err := New(repo).Create(context.Background(), testSpace, CreateParams{Name: "  Main Street  "})
	require.NoError(t, err)
	require.True(t, shop.IsMain)
}

func TestCreateSecondShopIsNotMain(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		listShopsFn: func(ctx context.Context, space tenant.Space) ([]persistence.Shop, error) {
			return []persistence.Shop{{ShopID: uuid.New(), IsMain: true}}, nil
		},
		createShopFn: func(ctx context.Context, space tenant.Space, params persistence.CreateShopParams) (persistence.Shop, error) {
			require.False(t, params.IsMain)
			return persistence.Shop{ShopID: params.ShopID, IsMain: params.IsMain}, nil
		},
	}

	shop, err := New(repo).Create(context.Background(), testSpace, CreateParams{Name: "Branch"})
	require.NoError(t, err)
	require.False(t, shop.IsMain)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	t.Parallel()

	_, err := New(&mockRepo{}).Create(context.Background(), testSpace, CreateParams{Name: "   "})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestGetMapsNotFound(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		getShopFn: func(ctx context.Context, space tenant.Space, shopID uuid.UUID) (persistence.Shop, error) {
			return persistence.Shop{}, persistence.ErrShopNotFound
		},
	}

	_, err := New(repo).Get(context.Background(), testSpace, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMainPicksFlaggedShop(t *testing.T) {
	t.Parallel()

	mainID := uuid.New()
	repo := &mockRepo{
		listShopsFn: func(ctx context.Context, space tenant.Space) ([]persistence.Shop, error) {
			return []persistence.Shop{
				{ShopID: mainID, IsMain: true},
				{ShopID: uuid.New()},
			}, nil
		},
	}

	shop, err := New(repo).Main(context.Background(), testSpace)
	require.NoError(t, err)
	require.Equal(t, mainID, shop.ShopID)
}

func TestMainFailsWithoutShops(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		listShopsFn: func(ctx context.Context, space tenant.Space) ([]persistence.Shop, error) {
			return nil, nil
		},
	}

	_, err := New(repo).Main(context.Background(), testSpace)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRejectsBlankName(t *testing.T) {
	t.Parallel()

	blank := "  "
	_, err := New(&mockRepo{}).Update(context.Background(), testSpace, uuid.New(), UpdateParams{Name: &blank})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestUpdatePassesThroughFields(t *testing.T) {
	t.Parallel()

	location := "Harare CBD"
	repo := &mockRepo{
		updateShopFn: func(ctx context.Context, space tenant.Space, shopID uuid.UUID, params persistence.UpdateShopParams) (persistence.Shop, error) {
			require.Nil(t, params.Name)
			require.NotNil(t, params.Location)
			require.Equal(t, location, *params.Location)
			return persistence.Shop{ShopID: shopID, Location: location}, nil
		},
	}

	shop, err := New(repo).Update(context.Background(), testSpace, uuid.New(), UpdateParams{Location: &location})
	require.NoError(t, err)
	require.Equal(t, location, shop.Location)
}
