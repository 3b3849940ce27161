package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// Shop represents a row in a partition's shops table.
type Shop struct {
	ShopID    uuid.UUID `db:"shop_id"`
	Name      string    `db:"name"`
	Location  string    `db:"location"`
	Contact   string    `db:"contact"`
	IsMain    bool      `db:"is_main"`
	CreatedAt time.Time `db:"created_at"`
}

// ErrShopNotFound indicates a missing shop record.
var ErrShopNotFound = errors.New("shop not found")

// ShopStore exposes persistence helpers for per-partition shops.
type ShopStore struct {
	db *PartitionDB
}

// NewShopStore constructs a ShopStore over a PartitionDB.
func NewShopStore(db *PartitionDB) *ShopStore {
	if db == nil {
		panic("shop store requires partition db")
	}
	return &ShopStore{db: db}
}

const shopColumns = "shop_id, name, location, contact, is_main, created_at"

// CreateShopParams captures a new shop's fields. IsMain is decided by the
// caller; the first shop in a partition is the main one by convention.
type CreateShopParams struct {
	ShopID   uuid.UUID
	Name     string
	Location string
	Contact  string
	IsMain   bool
}

// CreateShop inserts a shop into the partition.
func (s *ShopStore) CreateShop(ctx context.Context, space tenant.Space, params CreateShopParams) (Shop, error) {
	if params.ShopID == uuid.Nil {
		return Shop{}, errors.New("shop id is required")
	}

	var shop Shop
	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            INSERT INTO shops (shop_id, name, location, contact, is_main)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING %s
        `, shopColumns),
			params.ShopID,
			strings.TrimSpace(params.Name),
			strings.TrimSpace(params.Location),
			strings.TrimSpace(params.Contact),
			params.IsMain,
		)

		var scanErr error
		shop, scanErr = scanShop(row)
		return scanErr
	})
	if err != nil {
		return Shop{}, err
	}

	return shop, nil
}

// GetShop returns a shop by id.
func (s *ShopStore) GetShop(ctx context.Context, space tenant.Space, shopID uuid.UUID) (Shop, error) {
	var shop Shop
	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            SELECT %s FROM shops WHERE shop_id = $1
        `, shopColumns), shopID)

		var scanErr error
		shop, scanErr = scanShop(row)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return ErrShopNotFound
		}
		return scanErr
	})
	if err != nil {
		return Shop{}, err
	}

	return shop, nil
}

// ListShops returns every shop in the partition, main shop first.
func (s *ShopStore) ListShops(ctx context.Context, space tenant.Space) ([]Shop, error) {
	var shops []Shop
	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, fmt.Sprintf(`
            SELECT %s FROM shops ORDER BY is_main DESC, created_at ASC
        `, shopColumns))
		if err != nil {
			return fmt.Errorf("list shops: %w", err)
		}
		defer rows.Close()

		shops = make([]Shop, 0)
		for rows.Next() {
			shop, scanErr := scanShop(rows)
			if scanErr != nil {
				return fmt.Errorf("scan shop: %w", scanErr)
			}
			shops = append(shops, shop)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return shops, nil
}

// UpdateShopParams carries optional replacement fields; nil keeps the
// existing value.
type UpdateShopParams struct {
	Name     *string
	Location *string
	Contact  *string
}

// UpdateShop applies the provided fields and returns the updated record.
func (s *ShopStore) UpdateShop(ctx context.Context, space tenant.Space, shopID uuid.UUID, params UpdateShopParams) (Shop, error) {
	setParts := []string{}
	var args []any

	if params.Name != nil {
		args = append(args, strings.TrimSpace(*params.Name))
		setParts = append(setParts, fmt.Sprintf("name = $%d", len(args)))
	}
	if params.Location != nil {
		args = append(args, strings.TrimSpace(*params.Location))
		setParts = append(setParts, fmt.Sprintf("location = $%d", len(args)))
	}
	if params.Contact != nil {
		args = append(args, strings.TrimSpace(*params.Contact))
		setParts = append(setParts, fmt.Sprintf("contact = $%d", len(args)))
	}

	if len(setParts) == 0 {
		return Shop{}, errors.New("no fields to update")
	}

	args = append(args, shopID)

	var shop Shop
	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            UPDATE shops SET %s WHERE shop_id = $%d
            RETURNING %s
        `, strings.Join(setParts, ", "), len(args), shopColumns), args...)

		var scanErr error
		shop, scanErr = scanShop(row)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return ErrShopNotFound
		}
		return scanErr
	})
	if err != nil {
		return Shop{}, err
	}

	return shop, nil
}

func scanShop(row pgx.Row) (Shop, error) {
	var shop Shop

	if err := row.Scan(&shop.ShopID, &shop.Name, &shop.Location, &shop.Contact, &shop.IsMain, &shop.CreatedAt); err != nil {
		return Shop{}, err
	}

	return shop, nil
}
