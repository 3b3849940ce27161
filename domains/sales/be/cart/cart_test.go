package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(id uuid.UUID, name, price string, quantity, available int) Line {
	return Line{
		ProductID: id,
		Name:      name,
		UnitPrice: money(price),
		Quantity:  quantity,
		Available: available,
	}
}

func TestAddLineSnapshotsPrice(t *testing.T) {
	t.Parallel()

	var c Cart
	id := uuid.New()
	require.NoError(t, c.AddLine(item(id, "Bread", "1.50", 2, 10)))

	require.Len(t, c.Lines, 1)
	require.True(t, c.Lines[0].Subtotal().Equal(money("3.00")))
}

func TestAddLineMergesDuplicateProduct(t *testing.T) {
	t.Parallel()

	var c Cart
	id := uuid.New()
	require.NoError(t, c.AddLine(item(id, "Bread", "1.50", 2, 10)))
	require.NoError(t, c.AddLine(item(id, "Bread", "1.50", 3, 10)))

	require.Len(t, c.Lines, 1)
	require.Equal(t, 5, c.Lines[0].Quantity)
}

func TestAddLineRejectsOverStock(t *testing.T) {
	t.Parallel()

	var c Cart
	id := uuid.New()
	require.NoError(t, c.AddLine(item(id, "Bread", "1.50", 2, 3)))

	err := c.AddLine(item(id, "Bread", "1.50", 2, 3))
	require.ErrorIs(t, err, ErrStockInsufficient)

	// Failed add leaves the cart untouched.
	require.Len(t, c.Lines, 1)
	require.Equal(t, 2, c.Lines[0].Quantity)
}

func TestAddLineRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	var c Cart
	require.ErrorIs(t, c.AddLine(item(uuid.New(), "Bread", "1.50", 0, 10)), ErrQuantityInvalid)
	require.ErrorIs(t, c.AddLine(item(uuid.New(), "Bread", "1.50", -1, 10)), ErrQuantityInvalid)
	require.True(t, c.IsEmpty())
}

func TestRemoveLineUsesDisplayPosition(t *testing.T) {
	t.Parallel()

	var c Cart
	require.NoError(t, c.AddLine(item(uuid.New(), "Bread", "1.50", 1, 10)))
	require.NoError(t, c.AddLine(item(uuid.New(), "Milk", "0.80", 1, 10)))

	require.NoError(t, c.RemoveLine(1))
	require.Len(t, c.Lines, 1)
	require.Equal(t, "Milk", c.Lines[0].Name)

	require.ErrorIs(t, c.RemoveLine(0), ErrLineNotFound)
	require.ErrorIs(t, c.RemoveLine(2), ErrLineNotFound)
}

func TestTotalSumsSubtotals(t *testing.T) {
	t.Parallel()

	var c Cart
	require.NoError(t, c.AddLine(item(uuid.New(), "Bread", "1.50", 2, 10)))
	require.NoError(t, c.AddLine(item(uuid.New(), "Milk", "0.80", 3, 10)))

	require.True(t, c.Total().Equal(money("5.40")))
}

func TestApplySurcharge(t *testing.T) {
	t.Parallel()

	total := ApplySurcharge(money("10.00"), money("0.10"))
	require.True(t, total.Equal(money("11.00")))

	// Rounds to cents.
	total = ApplySurcharge(money("1.11"), money("0.10"))
	require.True(t, total.Equal(money("1.22")))
}

func TestAllocateSurchargeSumsExactly(t *testing.T) {
	t.Parallel()

	var c Cart
	require.NoError(t, c.AddLine(item(uuid.New(), "A", "1.11", 1, 10)))
	require.NoError(t, c.AddLine(item(uuid.New(), "B", "2.22", 1, 10)))
	require.NoError(t, c.AddLine(item(uuid.New(), "C", "3.33", 1, 10)))

	grand := ApplySurcharge(c.Total(), money("0.10"))
	parts := c.AllocateSurcharge(grand)

	require.Len(t, parts, 3)
	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(p)
	}
	require.True(t, sum.Equal(grand), "allocated %s, want %s", sum, grand)
}

func TestAllocateSurchargeProportional(t *testing.T) {
	t.Parallel()

	var c Cart
	require.NoError(t, c.AddLine(item(uuid.New(), "A", "7.50", 1, 10)))
	require.NoError(t, c.AddLine(item(uuid.New(), "B", "2.50", 1, 10)))

	parts := c.AllocateSurcharge(money("11.00"))
	require.True(t, parts[0].Equal(money("8.25")))
	require.True(t, parts[1].Equal(money("2.75")))
}

func TestAllocateSurchargeZeroTotal(t *testing.T) {
	t.Parallel()

	var c Cart
	require.Nil(t, c.AllocateSurcharge(money("1.00")))

	require.NoError(t, c.AddLine(item(uuid.New(), "Free", "0", 1, 10)))
	require.Nil(t, c.AllocateSurcharge(money("1.00")))
}
