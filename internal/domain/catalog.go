package domain

import "github.com/shopspring/decimal"

// PriceCatalogEntry is the catalog's authoritative view of one variant.
// Owned by the product catalog; read-only from the storefront core.
type PriceCatalogEntry struct {
	Slug         string
	Size         string
	RegularPrice decimal.Decimal

	// MemberPrice is nil when no explicit member price exists; the
	// fallback discount rate applies instead for active members.
	MemberPrice *decimal.Decimal

	VariantInStock bool
	ProductInStock bool
}

// Available reports whether the variant can be transacted against.
// Both the variant flag and the parent product flag must be set.
func (e PriceCatalogEntry) Available() bool {
	return e.VariantInStock && e.ProductInStock
}
