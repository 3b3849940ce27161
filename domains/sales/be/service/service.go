// Package service orchestrates checkout: it turns a finished cart plus a
// payment outcome into one atomic persisted sale, and answers day summary
// queries.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mukando-hq/storekeeper/domains/sales/be/cart"
	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// Payment methods.
const (
	MethodCash    = "cash"
	MethodEcocash = "ecocash"
	MethodSwipe   = "swipe"
)

// Payment types.
const (
	TypeFull   = "full"
	TypeCredit = "credit"
)

// EcocashSurchargeRate is the markup applied to mobile-money sales.
var EcocashSurchargeRate = decimal.RequireFromString("0.10")

// Domain sentinel errors.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrShopNotAuthorized = errors.New("account is not allowed to sell in this shop")
	ErrCustomerRequired  = errors.New("customer details are required")
	ErrPaymentInvalid    = errors.New("payment does not match the sale total")
	ErrStockInsufficient = errors.New("insufficient stock")
)

// Repository abstracts the partition-scoped sales store.
type Repository interface {
	CommitSale(ctx context.Context, space tenant.Space, params persistence.CommitSaleParams) error
	SummarizeDay(ctx context.Context, space tenant.Space, shopID uuid.UUID, at time.Time) (persistence.DaySummary, error)
}

// Service implements the sale flow's persistence side.
type Service struct {
	repo Repository
}

// New constructs a sales Service backed by the provided repository.
func New(repo Repository) *Service {
	if repo == nil {
		panic("sales repository is required")
	}
	return &Service{repo: repo}
}

// Payment is the payment outcome of a finished cart conversation.
type Payment struct {
	Method      string
	Type        string
	AmountPaid  decimal.Decimal
	LeaveChange bool
}

// CustomerDetails identifies the follow-up contact for credit and
// change-left sales.
type CustomerDetails struct {
	Name    string
	Contact string
}

// Receipt reports what was charged and what remains outstanding.
type Receipt struct {
	Total      decimal.Decimal
	Surcharge  decimal.Decimal
	AmountPaid decimal.Decimal
	Pending    decimal.Decimal
	Change     decimal.Decimal
	ChangeLeft decimal.Decimal
}

// AuthorizeShop checks that the account may record sales in the shop.
// Shopkeepers are locked to their assigned shop; owners and admins may sell
// anywhere in the partition.
func AuthorizeShop(account persistence.Account, shopID uuid.UUID) error {
	if account.Role != "shopkeeper" {
		return nil
	}
	if account.ShopID == nil || *account.ShopID != shopID {
		return ErrShopNotAuthorized
	}
	return nil
}

// Quote computes the grand total for a cart under a payment method. Ecocash
// carries the surcharge; cash and swipe charge the base total.
func Quote(c *cart.Cart, method string) (total, surcharge decimal.Decimal) {
	base := c.Total()
	if method == MethodEcocash {
		grand := cart.ApplySurcharge(base, EcocashSurchargeRate)
		return grand, grand.Sub(base)
	}
	return base, decimal.Zero
}

// Checkout validates the payment against the cart, then persists the sale
// atomically. Credit sales and sales where change stays with the shop both
// require customer details for follow-up.
func (s *Service) Checkout(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, c *cart.Cart, payment Payment, customer *CustomerDetails) (Receipt, error) {
	if c == nil || c.IsEmpty() {
		return Receipt{}, ErrEmptyCart
	}
	if err := AuthorizeShop(account, shopID); err != nil {
		return Receipt{}, err
	}

	grand, surcharge := Quote(c, payment.Method)

	receipt := Receipt{
		Total:      grand,
		Surcharge:  surcharge,
		AmountPaid: payment.AmountPaid,
		Pending:    decimal.Zero,
		Change:     decimal.Zero,
		ChangeLeft: decimal.Zero,
	}

	switch payment.Method {
	case MethodEcocash, MethodSwipe:
		// Electronic payments are always settled in full for the exact
		// amount.
		if payment.Type != TypeFull {
			return Receipt{}, ErrPaymentInvalid
		}
		receipt.AmountPaid = grand
	case MethodCash:
		switch payment.Type {
		case TypeFull:
			if payment.AmountPaid.LessThan(grand) {
				return Receipt{}, ErrPaymentInvalid
			}
			receipt.Change = payment.AmountPaid.Sub(grand)
			if payment.LeaveChange && receipt.Change.IsPositive() {
				receipt.ChangeLeft = receipt.Change
			}
		case TypeCredit:
			if payment.AmountPaid.IsNegative() || !payment.AmountPaid.LessThan(grand) {
				return Receipt{}, ErrPaymentInvalid
			}
			receipt.Pending = grand.Sub(payment.AmountPaid)
		default:
			return Receipt{}, ErrPaymentInvalid
		}
	default:
		return Receipt{}, ErrPaymentInvalid
	}

	needsCustomer := receipt.Pending.IsPositive() || receipt.ChangeLeft.IsPositive()
	if needsCustomer && (customer == nil || strings.TrimSpace(customer.Name) == "") {
		return Receipt{}, ErrCustomerRequired
	}

	params := persistence.CommitSaleParams{
		AccountID:     account.AccountID,
		ShopID:        shopID,
		Lines:         explodeLines(c, grand),
		PaymentMethod: payment.Method,
		PaymentType:   payment.Type,
		AmountPaid:    receipt.AmountPaid,
		PendingAmount: receipt.Pending,
		ChangeLeft:    receipt.ChangeLeft,
	}
	if needsCustomer {
		params.Customer = &persistence.CustomerParams{
			Name:    strings.TrimSpace(customer.Name),
			Contact: strings.TrimSpace(customer.Contact),
		}
	}

	if err := s.repo.CommitSale(ctx, space, params); err != nil {
		if errors.Is(err, persistence.ErrStockInsufficient) {
			return Receipt{}, ErrStockInsufficient
		}
		return Receipt{}, err
	}

	return receipt, nil
}

// explodeLines flattens the cart into per-line persistence records. The
// surcharge is allocated across lines so the stored totals reconcile with
// the grand total.
func explodeLines(c *cart.Cart, grand decimal.Decimal) []persistence.SaleLineParams {
	var allocated []decimal.Decimal
	if !grand.Equal(c.Total()) {
		allocated = c.AllocateSurcharge(grand)
	}

	lines := make([]persistence.SaleLineParams, 0, len(c.Lines))
	for i, line := range c.Lines {
		lineTotal := line.Subtotal()
		if allocated != nil {
			lineTotal = allocated[i]
		}
		lines = append(lines, persistence.SaleLineParams{
			SaleID:          uuid.New(),
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			Unit:            line.Unit,
			TotalAmount:     lineTotal,
			SurchargeAmount: lineTotal.Sub(line.Subtotal()),
		})
	}
	return lines
}

// SummarizeDay reports totals for the calendar day containing at.
func (s *Service) SummarizeDay(ctx context.Context, space tenant.Space, account persistence.Account, shopID uuid.UUID, at time.Time) (persistence.DaySummary, error) {
	if err := AuthorizeShop(account, shopID); err != nil {
		return persistence.DaySummary{}, err
	}
	return s.repo.SummarizeDay(ctx, space, shopID, at)
}
