// Package payment is the boundary to the external payment provider. The
// storefront never trusts a client-supplied "it succeeded" flag; every
// capture is verified against the provider with server credentials.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrDeclined means the provider refused the payment. Nothing has
	// been charged; the buyer can retry.
	ErrDeclined = errors.New("payment declined by provider")

	// ErrOrderNotFound means the provider order id is unknown.
	ErrOrderNotFound = errors.New("provider order not found")

	// ErrProviderUnavailable wraps transport failures and open-breaker
	// rejections.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// Provider order statuses as reported by the provider.
const (
	OrderStatusCreated   = "CREATED"
	OrderStatusApproved  = "APPROVED"
	OrderStatusCompleted = "COMPLETED"
)

// LineItem is the provisional line detail submitted with order creation.
// The amount is informational; the server recomputes the authoritative
// total at capture time regardless.
type LineItem struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Capture is the provider's record of a completed money movement.
// TransactionID is the idempotency key for everything downstream.
type Capture struct {
	TransactionID string
	Amount        decimal.Decimal
	Status        string
}

func (c Capture) Completed() bool {
	return c.Status == OrderStatusCompleted
}

type Provider interface {
	// CreateOrder registers a provider order for the given amount and
	// returns the provider's order id.
	CreateOrder(ctx context.Context, amount decimal.Decimal, items []LineItem) (string, error)

	// GetOrderStatus reads the order's current status with server
	// credentials. Used to verify approval before capturing.
	GetOrderStatus(ctx context.Context, providerOrderID string) (string, error)

	// CaptureOrder captures an approved order, returning the captured
	// amount and transaction id.
	CaptureOrder(ctx context.Context, providerOrderID string) (*Capture, error)

	// CancelOrder voids an order the buyer abandoned. Best effort; a
	// never-captured order expires provider-side anyway.
	CancelOrder(ctx context.Context, providerOrderID string) error
}
