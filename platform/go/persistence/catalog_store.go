package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// Product represents a row in a partition's products table.
type Product struct {
	ProductID uuid.UUID       `db:"product_id"`
	ShopID    *uuid.UUID      `db:"shop_id"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	Unit      string          `db:"unit"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// StockLevel is the authoritative per-shop stock record for a product.
// Product rows carry no stock of their own.
type StockLevel struct {
	ProductID         uuid.UUID `db:"product_id"`
	ShopID            uuid.UUID `db:"shop_id"`
	Quantity          int       `db:"quantity"`
	MinStock          int       `db:"min_stock"`
	LowStockThreshold int       `db:"low_stock_threshold"`
	ReorderQuantity   int       `db:"reorder_quantity"`
}

// ProductWithStock joins a product with its stock level in one shop.
type ProductWithStock struct {
	Product
	Stock StockLevel
}

var (
	// ErrProductNotFound indicates a missing product record.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductConflict indicates a duplicate product name within its scope.
	ErrProductConflict = errors.New("product conflict")
	// ErrStockInsufficient indicates a decrement below zero was refused.
	ErrStockInsufficient = errors.New("insufficient stock")
)

// CatalogStore exposes persistence helpers for per-partition products and
// stock levels.
type CatalogStore struct {
	db *PartitionDB
}

// NewCatalogStore constructs a CatalogStore over a PartitionDB.
func NewCatalogStore(db *PartitionDB) *CatalogStore {
	if db == nil {
		panic("catalog store requires partition db")
	}
	return &CatalogStore{db: db}
}

const productColumns = "product_id, shop_id, name, price, unit, created_at, updated_at"

// CreateProductParams captures a new product plus its initial stock level.
type CreateProductParams struct {
	ProductID         uuid.UUID
	ShopID            *uuid.UUID
	Name              string
	Price             decimal.Decimal
	Unit              string
	InitialQuantity   int
	MinStock          int
	LowStockThreshold int
	ReorderQuantity   int
}

// CreateProduct inserts the product and, when shop-scoped, its initial stock
// row in a single transaction.
func (s *CatalogStore) CreateProduct(ctx context.Context, space tenant.Space, params CreateProductParams) (Product, error) {
	if params.ProductID == uuid.Nil {
		return Product{}, errors.New("product id is required")
	}

	var product Product
	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		var txErr error
		product, txErr = InsertProductTx(ctx, tx, params)
		return txErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, ErrProductConflict
		}
		return Product{}, err
	}

	return product, nil
}

// InsertProductTx inserts a product and, when shop-scoped, its initial stock
// row inside an existing partition transaction. Deferred changes (approvals)
// use it to apply inside the approval's own transaction.
func InsertProductTx(ctx context.Context, tx pgx.Tx, params CreateProductParams) (Product, error) {
	row := tx.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO products (product_id, shop_id, name, price, unit)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING %s
    `, productColumns),
		params.ProductID,
		params.ShopID,
		strings.TrimSpace(params.Name),
		params.Price,
		strings.TrimSpace(params.Unit),
	)

	product, err := scanProduct(row)
	if err != nil {
		return Product{}, err
	}

	if params.ShopID == nil {
		return product, nil
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO shop_stock (product_id, shop_id, quantity, min_stock, low_stock_threshold, reorder_quantity)
        VALUES ($1, $2, $3, $4, $5, $6)
    `,
		params.ProductID,
		*params.ShopID,
		params.InitialQuantity,
		params.MinStock,
		params.LowStockThreshold,
		params.ReorderQuantity,
	); err != nil {
		return Product{}, err
	}

	return product, nil
}

// AdjustStockTx applies a stock delta inside an existing partition
// transaction.
func AdjustStockTx(ctx context.Context, tx pgx.Tx, productID, shopID uuid.UUID, delta int) error {
	return adjustStockTx(ctx, tx, productID, shopID, delta)
}

// SearchProducts returns products whose name contains the fragment,
// case-insensitively, joined with their stock level in the given shop.
// Results are ordered by name for stable selection menus.
func (s *CatalogStore) SearchProducts(ctx context.Context, space tenant.Space, shopID uuid.UUID, fragment string) ([]ProductWithStock, error) {
	var matches []ProductWithStock
	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
            SELECT p.product_id, p.shop_id, p.name, p.price, p.unit, p.created_at, p.updated_at,
                   COALESCE(ss.quantity, 0), COALESCE(ss.min_stock, 0),
                   COALESCE(ss.low_stock_threshold, 0), COALESCE(ss.reorder_quantity, 0)
            FROM products p
            LEFT JOIN shop_stock ss ON ss.product_id = p.product_id AND ss.shop_id = $1
            WHERE LOWER(p.name) LIKE $2
            ORDER BY p.name ASC
        `, shopID, "%"+strings.ToLower(strings.TrimSpace(fragment))+"%")
		if err != nil {
			return fmt.Errorf("search products: %w", err)
		}
		defer rows.Close()

		matches = make([]ProductWithStock, 0)
		for rows.Next() {
			item, scanErr := scanProductWithStock(rows, shopID)
			if scanErr != nil {
				return fmt.Errorf("scan product: %w", scanErr)
			}
			matches = append(matches, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return matches, nil
}

// GetProduct returns one product with its stock level in the given shop.
func (s *CatalogStore) GetProduct(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID) (ProductWithStock, error) {
	var item ProductWithStock
	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
            SELECT p.product_id, p.shop_id, p.name, p.price, p.unit, p.created_at, p.updated_at,
                   COALESCE(ss.quantity, 0), COALESCE(ss.min_stock, 0),
                   COALESCE(ss.low_stock_threshold, 0), COALESCE(ss.reorder_quantity, 0)
            FROM products p
            LEFT JOIN shop_stock ss ON ss.product_id = p.product_id AND ss.shop_id = $1
            WHERE p.product_id = $2
        `, shopID, productID)

		var scanErr error
		item, scanErr = scanProductWithStock(row, shopID)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return scanErr
	})
	if err != nil {
		return ProductWithStock{}, err
	}

	return item, nil
}

// UpdateProductParams carries optional replacement fields; nil keeps the
// existing value. Stock fields apply to the product's level in ShopID.
type UpdateProductParams struct {
	Name              *string
	Price             *decimal.Decimal
	Unit              *string
	Quantity          *int
	MinStock          *int
	LowStockThreshold *int
	ReorderQuantity   *int
}

// UpdateProduct applies product and stock changes in a single transaction.
func (s *CatalogStore) UpdateProduct(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, params UpdateProductParams) (ProductWithStock, error) {
	productParts := []string{}
	var productArgs []any

	if params.Name != nil {
		productArgs = append(productArgs, strings.TrimSpace(*params.Name))
		productParts = append(productParts, fmt.Sprintf("name = $%d", len(productArgs)))
	}
	if params.Price != nil {
		productArgs = append(productArgs, *params.Price)
		productParts = append(productParts, fmt.Sprintf("price = $%d", len(productArgs)))
	}
	if params.Unit != nil {
		productArgs = append(productArgs, strings.TrimSpace(*params.Unit))
		productParts = append(productParts, fmt.Sprintf("unit = $%d", len(productArgs)))
	}

	stockParts := []string{}
	var stockArgs []any

	if params.Quantity != nil {
		stockArgs = append(stockArgs, *params.Quantity)
		stockParts = append(stockParts, fmt.Sprintf("quantity = $%d", len(stockArgs)))
	}
	if params.MinStock != nil {
		stockArgs = append(stockArgs, *params.MinStock)
		stockParts = append(stockParts, fmt.Sprintf("min_stock = $%d", len(stockArgs)))
	}
	if params.LowStockThreshold != nil {
		stockArgs = append(stockArgs, *params.LowStockThreshold)
		stockParts = append(stockParts, fmt.Sprintf("low_stock_threshold = $%d", len(stockArgs)))
	}

	if len(productParts) == 0 && len(stockParts) == 0 {
		return ProductWithStock{}, errors.New("no fields to update")
	}

	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		if len(productParts) > 0 {
			args := append([]any{}, productArgs...)
			args = append(args, productID)
			tag, err := tx.Exec(ctx, fmt.Sprintf(`
                UPDATE products SET %s, updated_at = NOW() WHERE product_id = $%d
            `, strings.Join(productParts, ", "), len(args)), args...)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrProductNotFound
			}
		}

		if len(stockParts) > 0 {
			if _, err := tx.Exec(ctx, `
                INSERT INTO shop_stock (product_id, shop_id) VALUES ($1, $2)
                ON CONFLICT (product_id, shop_id) DO NOTHING
            `, productID, shopID); err != nil {
				return err
			}

			args := append([]any{}, stockArgs...)
			args = append(args, productID, shopID)
			if _, err := tx.Exec(ctx, fmt.Sprintf(`
                UPDATE shop_stock SET %s, updated_at = NOW() WHERE product_id = $%d AND shop_id = $%d
            `, strings.Join(stockParts, ", "), len(args)-1, len(args)), args...); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ProductWithStock{}, ErrProductConflict
		}
		return ProductWithStock{}, err
	}

	return s.GetProduct(ctx, space, productID, shopID)
}

// AdjustStock applies a signed quantity delta, refusing to go below zero.
// Missing stock rows are created on positive deltas.
func (s *CatalogStore) AdjustStock(ctx context.Context, space tenant.Space, productID, shopID uuid.UUID, delta int) error {
	return s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		return adjustStockTx(ctx, tx, productID, shopID, delta)
	})
}

// adjustStockTx performs the guarded stock mutation inside an existing
// transaction. Shared with the sale commit path.
func adjustStockTx(ctx context.Context, tx pgx.Tx, productID, shopID uuid.UUID, delta int) error {
	if delta > 0 {
		if _, err := tx.Exec(ctx, `
            INSERT INTO shop_stock (product_id, shop_id) VALUES ($1, $2)
            ON CONFLICT (product_id, shop_id) DO NOTHING
        `, productID, shopID); err != nil {
			return err
		}
	}

	tag, err := tx.Exec(ctx, `
        UPDATE shop_stock SET quantity = quantity + $1, updated_at = NOW()
        WHERE product_id = $2 AND shop_id = $3 AND quantity + $1 >= 0
    `, delta, productID, shopID)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStockInsufficient
	}
	return nil
}

// ListLowStock returns products at or below their low-stock threshold in the
// given shop.
func (s *CatalogStore) ListLowStock(ctx context.Context, space tenant.Space, shopID uuid.UUID) ([]ProductWithStock, error) {
	var items []ProductWithStock
	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
            SELECT p.product_id, p.shop_id, p.name, p.price, p.unit, p.created_at, p.updated_at,
                   ss.quantity, ss.min_stock, ss.low_stock_threshold, ss.reorder_quantity
            FROM products p
            JOIN shop_stock ss ON ss.product_id = p.product_id
            WHERE ss.shop_id = $1 AND ss.quantity <= ss.low_stock_threshold
            ORDER BY ss.quantity ASC, p.name ASC
        `, shopID)
		if err != nil {
			return fmt.Errorf("list low stock: %w", err)
		}
		defer rows.Close()

		items = make([]ProductWithStock, 0)
		for rows.Next() {
			item, scanErr := scanProductWithStock(rows, shopID)
			if scanErr != nil {
				return fmt.Errorf("scan low stock: %w", scanErr)
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var product Product

	if err := row.Scan(
		&product.ProductID,
		&product.ShopID,
		&product.Name,
		&product.Price,
		&product.Unit,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return Product{}, err
	}

	return product, nil
}

func scanProductWithStock(row pgx.Row, shopID uuid.UUID) (ProductWithStock, error) {
	var item ProductWithStock

	if err := row.Scan(
		&item.Product.ProductID,
		&item.Product.ShopID,
		&item.Product.Name,
		&item.Product.Price,
		&item.Product.Unit,
		&item.Product.CreatedAt,
		&item.Product.UpdatedAt,
		&item.Stock.Quantity,
		&item.Stock.MinStock,
		&item.Stock.LowStockThreshold,
		&item.Stock.ReorderQuantity,
	); err != nil {
		return ProductWithStock{}, err
	}

	item.Stock.ProductID = item.Product.ProductID
	item.Stock.ShopID = shopID
	return item, nil
}
