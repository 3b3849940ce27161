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

// Sale represents a persisted sale row. A checkout with N cart lines produces
// N sale rows sharing one checkout_id and the same payment breakdown; the
// breakdown belongs to the checkout, so aggregations over payment fields must
// collapse by checkout_id first.
type Sale struct {
	SaleID          uuid.UUID       `db:"sale_id"`
	CheckoutID      uuid.UUID       `db:"checkout_id"`
	AccountID       uuid.UUID       `db:"account_id"`
	ProductID       uuid.UUID       `db:"product_id"`
	ShopID          uuid.UUID       `db:"shop_id"`
	CustomerID      *uuid.UUID      `db:"customer_id"`
	Quantity        int             `db:"quantity"`
	Unit            string          `db:"unit"`
	TotalAmount     decimal.Decimal `db:"total_amount"`
	SurchargeAmount decimal.Decimal `db:"surcharge_amount"`
	PaymentMethod   string          `db:"payment_method"`
	PaymentType     string          `db:"payment_type"`
	AmountPaid      decimal.Decimal `db:"amount_paid"`
	PendingAmount   decimal.Decimal `db:"pending_amount"`
	ChangeLeft      decimal.Decimal `db:"change_left"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Customer is a follow-up contact attached to credit or change-due sales.
type Customer struct {
	CustomerID uuid.UUID `db:"customer_id"`
	Name       string    `db:"name"`
	Contact    string    `db:"contact"`
	CreatedAt  time.Time `db:"created_at"`
}

// SalesStore exposes persistence helpers for per-partition sales and
// customers.
type SalesStore struct {
	db *PartitionDB
}

// NewSalesStore constructs a SalesStore over a PartitionDB.
func NewSalesStore(db *PartitionDB) *SalesStore {
	if db == nil {
		panic("sales store requires partition db")
	}
	return &SalesStore{db: db}
}

// SaleLineParams is one exploded cart line ready for persistence. TotalAmount
// already includes the line's allocated surcharge share.
type SaleLineParams struct {
	SaleID          uuid.UUID
	ProductID       uuid.UUID
	Quantity        int
	Unit            string
	TotalAmount     decimal.Decimal
	SurchargeAmount decimal.Decimal
}

// CustomerParams identifies the follow-up customer for a sale, matched
// case-insensitively by name or created if absent.
type CustomerParams struct {
	Name    string
	Contact string
}

// CommitSaleParams is the full checkout payload persisted atomically.
type CommitSaleParams struct {
	AccountID     uuid.UUID
	ShopID        uuid.UUID
	Lines         []SaleLineParams
	Customer      *CustomerParams
	PaymentMethod string
	PaymentType   string
	AmountPaid    decimal.Decimal
	PendingAmount decimal.Decimal
	ChangeLeft    decimal.Decimal
}

// CommitSale persists one checkout: customer upsert, per-line stock decrement,
// and per-line sale insert, all in one transaction. Any failure (including a
// stock level that dropped below a line's quantity since selection) rolls back
// every write.
func (s *SalesStore) CommitSale(ctx context.Context, space tenant.Space, params CommitSaleParams) error {
	if len(params.Lines) == 0 {
		return errors.New("sale requires at least one line")
	}

	checkoutID := uuid.New()

	return s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		var customerID *uuid.UUID
		if params.Customer != nil {
			id, err := upsertCustomerTx(ctx, tx, *params.Customer)
			if err != nil {
				return fmt.Errorf("upsert customer: %w", err)
			}
			customerID = &id
		}

		for _, line := range params.Lines {
			if err := adjustStockTx(ctx, tx, line.ProductID, params.ShopID, -line.Quantity); err != nil {
				if errors.Is(err, ErrStockInsufficient) {
					return fmt.Errorf("product %s: %w", line.ProductID, ErrStockInsufficient)
				}
				return err
			}

			if _, err := tx.Exec(ctx, `
                INSERT INTO sales (sale_id, checkout_id, account_id, product_id, shop_id, customer_id,
                                   quantity, unit, total_amount, surcharge_amount,
                                   payment_method, payment_type, amount_paid, pending_amount, change_left)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
            `,
				line.SaleID,
				checkoutID,
				params.AccountID,
				line.ProductID,
				params.ShopID,
				customerID,
				line.Quantity,
				line.Unit,
				line.TotalAmount,
				line.SurchargeAmount,
				params.PaymentMethod,
				params.PaymentType,
				params.AmountPaid,
				params.PendingAmount,
				params.ChangeLeft,
			); err != nil {
				return fmt.Errorf("insert sale line: %w", err)
			}
		}

		return nil
	})
}

func upsertCustomerTx(ctx context.Context, tx pgx.Tx, params CustomerParams) (uuid.UUID, error) {
	name := strings.TrimSpace(params.Name)

	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT customer_id FROM customers WHERE LOWER(name) = LOWER($1)`, name).Scan(&id)
	if err == nil {
		if strings.TrimSpace(params.Contact) != "" {
			if _, err := tx.Exec(ctx, `UPDATE customers SET contact = $1 WHERE customer_id = $2`, strings.TrimSpace(params.Contact), id); err != nil {
				return uuid.Nil, err
			}
		}
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, err
	}

	id = uuid.New()
	if _, err := tx.Exec(ctx, `
        INSERT INTO customers (customer_id, name, contact) VALUES ($1, $2, $3)
    `, id, name, strings.TrimSpace(params.Contact)); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// DaySummary aggregates one day's sales for a shop.
type DaySummary struct {
	SaleCount    int
	TotalAmount  decimal.Decimal
	TotalPending decimal.Decimal
	ByMethod     map[string]decimal.Decimal
}

// SummarizeDay returns totals for the calendar day containing at, shop-scoped.
// Line rows carry the checkout's payment breakdown verbatim, so counting and
// pending sums collapse by checkout_id before aggregating by method.
func (s *SalesStore) SummarizeDay(ctx context.Context, space tenant.Space, shopID uuid.UUID, at time.Time) (DaySummary, error) {
	summary := DaySummary{
		TotalAmount:  decimal.Zero,
		TotalPending: decimal.Zero,
		ByMethod:     map[string]decimal.Decimal{},
	}

	err := s.db.WithPartition(ctx, space, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
            SELECT payment_method, COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(SUM(pending_amount), 0)
            FROM (
                SELECT checkout_id, payment_method,
                       SUM(total_amount) AS total_amount,
                       MAX(pending_amount) AS pending_amount
                FROM sales
                WHERE shop_id = $1 AND created_at >= date_trunc('day', $2::timestamptz)
                  AND created_at < date_trunc('day', $2::timestamptz) + INTERVAL '1 day'
                GROUP BY checkout_id, payment_method
            ) per_checkout
            GROUP BY payment_method
        `, shopID, at)
		if err != nil {
			return fmt.Errorf("summarize day: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var method string
			var count int
			var total, pending decimal.Decimal
			if err := rows.Scan(&method, &count, &total, &pending); err != nil {
				return fmt.Errorf("scan summary: %w", err)
			}
			summary.SaleCount += count
			summary.TotalAmount = summary.TotalAmount.Add(total)
			summary.TotalPending = summary.TotalPending.Add(pending)
			summary.ByMethod[method] = total
		}
		return rows.Err()
	})
	if err != nil {
		return DaySummary{}, err
	}

	return summary, nil
}
