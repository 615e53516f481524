package catalog

import (
	"context"
	"errors"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
)

// Gate answers the single question "can this variant be transacted against
// right now". It fails closed: an unknown identity is unavailable.
type Gate struct {
	catalog Accessor
}

func NewGate(catalog Accessor) *Gate {
	return &Gate{catalog: catalog}
}

// IsAvailable requires both the variant flag and the parent product flag.
func (g *Gate) IsAvailable(ctx context.Context, slug, size string) (bool, error) {
	entry, err := g.catalog.Lookup(ctx, slug, size)
	if errors.Is(err, domain.ErrVariantNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return entry.Available(), nil
}
