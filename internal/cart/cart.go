package cart

import (
	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/shopspring/decimal"
)

// Policy holds the pricing rules applied to every cart.
type Policy struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShipping          decimal.Decimal
}

var DefaultPolicy = Policy{
	TaxRate:               decimal.NewFromFloat(0.1),
	FreeShippingThreshold: decimal.NewFromInt(100),
	FlatShipping:          decimal.NewFromInt(10),
}

func NewPolicy(taxRate, freeShippingThreshold, flatShipping float64) Policy {
	return Policy{
		TaxRate:               decimal.NewFromFloat(taxRate),
		FreeShippingThreshold: decimal.NewFromFloat(freeShippingThreshold),
		FlatShipping:          decimal.NewFromFloat(flatShipping),
	}
}

type Item struct {
	ProductID string
	Name      string
	Image     string
	Price     decimal.Decimal
	Quantity  int
	Stock     int
}

// Cart is an ordered set of lines keyed by product id. It is not safe for concurrent use.
type Cart struct {
	policy Policy
	items  []Item
	totals domain.Pricing
}

func New(policy Policy) *Cart {
	return &Cart{policy: policy}
}

// Add inserts a line, or replaces the existing line for the same product in place.
func (c *Cart) Add(item Item) error {
	if item.ProductID == "" {
		return domain.Validationf("cart item: product is required")
	}
	if item.Quantity < 1 {
		return domain.Validationf("cart item %s: quantity must be at least 1", item.ProductID)
	}
	if item.Price.IsNegative() {
		return domain.Validationf("cart item %s: price cannot be negative", item.ProductID)
	}
	replaced := false
	for i := range c.items {
		if c.items[i].ProductID == item.ProductID {
			c.items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		c.items = append(c.items, item)
	}
	c.recompute()
	return nil
}

func (c *Cart) Remove(productID string) {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	c.recompute()
}

func (c *Cart) Clear() {
	c.items = nil
	c.recompute()
}

func (c *Cart) Items() []Item {
	return append([]Item(nil), c.items...)
}

func (c *Cart) Totals() domain.Pricing { return c.totals }

// Lines converts the cart into order lines for checkout.
func (c *Cart) Lines() []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(c.items))
	for _, it := range c.items {
		lines = append(lines, domain.OrderLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Price:     it.Price.InexactFloat64(),
			Quantity:  it.Quantity,
		})
	}
	return lines
}

func (c *Cart) recompute() {
	c.totals = Quote(c.policy, c.items)
}

// Quote prices a list of items under the policy.
func Quote(p Policy, items []Item) domain.Pricing {
	if len(items) == 0 {
		return domain.Pricing{}
	}
	itemsPrice := decimal.Zero
	for _, it := range items {
		itemsPrice = itemsPrice.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	itemsPrice = itemsPrice.Round(2)
	tax := itemsPrice.Mul(p.TaxRate).Round(2)
	shipping := p.FlatShipping
	if itemsPrice.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	total := itemsPrice.Add(tax).Add(shipping).Round(2)
	return domain.Pricing{
		ItemsPrice:    itemsPrice.InexactFloat64(),
		TaxPrice:      tax.InexactFloat64(),
		ShippingPrice: shipping.Round(2).InexactFloat64(),
		TotalPrice:    total.InexactFloat64(),
	}
}
