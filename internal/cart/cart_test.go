package cart

import (
	"errors"
	"testing"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, price string, qty int) Item {
	return Item{ProductID: id, Name: "product " + id, Price: decimal.RequireFromString(price), Quantity: qty}
}

func TestEmptyCartPricesToZero(t *testing.T) {
	c := New(DefaultPolicy)
	assert.Equal(t, domain.Pricing{}, c.Totals())

	require.NoError(t, c.Add(item("a", "5", 1)))
	c.Clear()
	assert.Equal(t, domain.Pricing{}, c.Totals())
	assert.Empty(t, c.Items())
}

func TestTotalsBelowFreeShipping(t *testing.T) {
	c := New(DefaultPolicy)
	require.NoError(t, c.Add(item("a", "19.99", 2)))
	require.NoError(t, c.Add(item("b", "5.50", 1)))

	got := c.Totals()
	assert.Equal(t, 45.48, got.ItemsPrice)
	assert.Equal(t, 4.55, got.TaxPrice)
	assert.Equal(t, 10.0, got.ShippingPrice)
	assert.Equal(t, 60.03, got.TotalPrice)
}

func TestFreeShippingIsStrictlyAboveThreshold(t *testing.T) {
	c := New(DefaultPolicy)
	require.NoError(t, c.Add(item("a", "100", 1)))
	assert.Equal(t, 10.0, c.Totals().ShippingPrice)

	require.NoError(t, c.Add(item("b", "0.01", 1)))
	assert.Equal(t, 0.0, c.Totals().ShippingPrice)
	assert.Equal(t, 110.01, c.Totals().TotalPrice)
}

func TestAddReplacesLineInPlace(t *testing.T) {
	c := New(DefaultPolicy)
	require.NoError(t, c.Add(item("a", "1", 1)))
	require.NoError(t, c.Add(item("b", "2", 1)))
	require.NoError(t, c.Add(item("a", "1", 5)))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ProductID)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 7.0, c.Totals().ItemsPrice)
}

func TestRemove(t *testing.T) {
	c := New(DefaultPolicy)
	require.NoError(t, c.Add(item("a", "1", 1)))
	require.NoError(t, c.Add(item("b", "2", 1)))
	c.Remove("a")
	c.Remove("missing")

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "b", lines[0].ProductID)
	assert.Equal(t, 2.0, lines[0].Price)
}

func TestAddRejectsInvalidItems(t *testing.T) {
	c := New(DefaultPolicy)
	for name, it := range map[string]Item{
		"no product":     {Quantity: 1},
		"zero quantity":  item("a", "1", 0),
		"negative price": item("a", "-1", 1),
	} {
		t.Run(name, func(t *testing.T) {
			err := c.Add(it)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
	assert.Empty(t, c.Items())
}

func TestCustomPolicy(t *testing.T) {
	p := NewPolicy(0.18, 50, 5)
	got := Quote(p, []Item{item("a", "10", 3)})
	assert.Equal(t, 30.0, got.ItemsPrice)
	assert.Equal(t, 5.4, got.TaxPrice)
	assert.Equal(t, 5.0, got.ShippingPrice)
	assert.Equal(t, 40.4, got.TotalPrice)
}
