// Package pricing computes effective prices and reconciles client-held
// price snapshots against the authoritative catalog.
package pricing

import (
	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/shopspring/decimal"
)

// Calculator holds the tunable commercial rules: the fallback member
// discount and the shipping rule. Both come from configuration.
type Calculator struct {
	fallbackDiscount      decimal.Decimal
	freeShippingThreshold decimal.Decimal
	flatShippingRate      decimal.Decimal
}

func NewCalculator(fallbackDiscount, freeShippingThreshold, flatShippingRate decimal.Decimal) *Calculator {
	return &Calculator{
		fallbackDiscount:      fallbackDiscount,
		freeShippingThreshold: freeShippingThreshold,
		flatShippingRate:      flatShippingRate,
	}
}

// EffectivePrice is the authoritative price for one variant given the
// caller's membership status. An explicit member price always wins; the
// fallback discount only applies when none exists. Cent rounding happens
// only on the fallback path.
func (c *Calculator) EffectivePrice(entry domain.PriceCatalogEntry, membership domain.MembershipStatus) decimal.Decimal {
	if !membership.Active {
		return entry.RegularPrice
	}
	if entry.MemberPrice != nil {
		return *entry.MemberPrice
	}
	complement := decimal.NewFromInt(1).Sub(c.fallbackDiscount)
	return entry.RegularPrice.Mul(complement).Round(2)
}

// Totals derives subtotal, shipping and total from the given lines.
// Recomputed on every read; callers must not cache the result.
func (c *Calculator) Totals(lines []domain.CartLine) domain.CartTotals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Subtotal())
	}

	shipping := decimal.Zero
	if len(lines) > 0 && subtotal.LessThan(c.freeShippingThreshold) {
		shipping = c.flatShippingRate
	}

	return domain.CartTotals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}
