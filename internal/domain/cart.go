package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariantKey identifies a sellable variant: one size of one product.
type VariantKey struct {
	Slug string
	Size string
}

// CartLine is a single line item. Identity is (Slug, Size); a cart holds at
// most one line per identity. UnitPriceSnapshot is the price at the time the
// line was added and only changes through reconciliation.
type CartLine struct {
	Slug              string          `json:"slug"`
	Size              string          `json:"size"`
	Quantity          int             `json:"quantity"`
	UnitPriceSnapshot decimal.Decimal `json:"unit_price"`
	DisplayName       string          `json:"display_name"`

	// Unpurchasable is set by reconciliation when the variant no longer
	// exists in the catalog. Such a line blocks checkout until removed.
	Unpurchasable bool `json:"unpurchasable,omitempty"`
}

// Key returns the line's identity.
func (l CartLine) Key() VariantKey {
	return VariantKey{Slug: l.Slug, Size: l.Size}
}

// Subtotal is UnitPriceSnapshot * Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPriceSnapshot.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the ordered line set for one shopping session.
type Cart struct {
	ID        string     `json:"id"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FindLine returns a pointer into Lines for the given identity, or nil.
func (c *Cart) FindLine(key VariantKey) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].Key() == key {
			return &c.Lines[i]
		}
	}
	return nil
}

// CartTotals is derived on every read, never persisted.
type CartTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}
