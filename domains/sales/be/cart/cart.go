// Package cart implements the in-conversation shopping cart. A cart is a
// pure value: every operation that can fail leaves the cart unchanged, and
// nothing in this package touches persistence. Prices are snapshotted at add
// time so a concurrent catalog edit never changes a cart mid-sale.
package cart

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by cart operations.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrLineNotFound      = errors.New("cart line not found")
	ErrQuantityInvalid   = errors.New("quantity must be positive")
	ErrStockInsufficient = errors.New("requested quantity exceeds available stock")
)

// Line is one product in the cart with its price snapshot.
type Line struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Available int             `json:"available"`
}

// Subtotal is the line's quantity times its snapshotted unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the lines of an in-progress sale.
type Cart struct {
	Lines []Line `json:"lines"`
}

// AddLine appends a product to the cart, or merges quantities when the
// product is already present. The quantity is checked against the stock
// available at add time. On error the cart is unchanged.
func (c *Cart) AddLine(item Line) error {
	if item.Quantity <= 0 {
		return ErrQuantityInvalid
	}

	for i, line := range c.Lines {
		if line.ProductID == item.ProductID {
			merged := line.Quantity + item.Quantity
			if merged > item.Available {
				return fmt.Errorf("%w: %d requested, %d available", ErrStockInsufficient, merged, item.Available)
			}
			c.Lines[i].Quantity = merged
			c.Lines[i].Available = item.Available
			return nil
		}
	}

	if item.Quantity > item.Available {
		return fmt.Errorf("%w: %d requested, %d available", ErrStockInsufficient, item.Quantity, item.Available)
	}

	c.Lines = append(c.Lines, item)
	return nil
}

// RemoveLine deletes the line at the given position (1-based, matching the
// numbered list shown to the user).
func (c *Cart) RemoveLine(position int) error {
	if position < 1 || position > len(c.Lines) {
		return ErrLineNotFound
	}
	c.Lines = append(c.Lines[:position-1], c.Lines[position:]...)
	return nil
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Total sums all line subtotals.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// ApplySurcharge returns the total raised by the given rate, rounded to
// cents. A rate of 0.10 means a 10% markup.
func ApplySurcharge(total decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return total.Mul(decimal.NewFromInt(1).Add(rate)).Round(2)
}

// AllocateSurcharge distributes a surcharged grand total across the cart
// lines in proportion to each line's share of the base total. Rounding
// remainders land on the last line so the allocated amounts always sum to
// the grand total exactly. An empty or zero-total cart returns nil.
func (c *Cart) AllocateSurcharge(grandTotal decimal.Decimal) []decimal.Decimal {
	if len(c.Lines) == 0 {
		return nil
	}

	base := c.Total()
	if base.IsZero() {
		return nil
	}

	allocated := make([]decimal.Decimal, len(c.Lines))
	running := decimal.Zero
	for i, line := range c.Lines {
		if i == len(c.Lines)-1 {
			allocated[i] = grandTotal.Sub(running)
			break
		}
		share := line.Subtotal().Div(base).Mul(grandTotal).Round(2)
		allocated[i] = share
		running = running.Add(share)
	}
	return allocated
}
