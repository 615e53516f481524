package cart

import (
	"context"
	"errors"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineNotFound = errors.New("line not found in cart")
)

// Repository defines the interface for cart persistence.
// Consumers define this interface, not the MongoDB implementation.
type Repository interface {
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	AddLine(ctx context.Context, cartID string, line domain.CartLine) error
	SetLineQuantity(ctx context.Context, cartID string, key domain.VariantKey, quantity int) error
	RemoveLine(ctx context.Context, cartID string, key domain.VariantKey) error
	ReplaceLines(ctx context.Context, cartID string, lines []domain.CartLine) error
	DeleteCart(ctx context.Context, cartID string) error
}
