// Package checkout drives the order-capture flow: address validation,
// payment authorization against reconciled totals, and the single
// idempotent server-side capture that turns an approved payment into a
// durable order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/dylanleonard80/peptidefoundry/internal/membership"
	"github.com/dylanleonard80/peptidefoundry/internal/payment"
	"github.com/dylanleonard80/peptidefoundry/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	IllegalTransitionError = errors.New("illegal transition of checkout state")
)

// CartStore is the slice of the cart service checkout needs.
type CartStore interface {
	Get(ctx context.Context, cartID string) (*domain.Cart, error)
	ApplyReconciliation(ctx context.Context, cartID string, lines []domain.CartLine) error
	Clear(ctx context.Context, cartID string) error
}

type StockGate interface {
	IsAvailable(ctx context.Context, slug, size string) (bool, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, lines []domain.CartLine, status domain.MembershipStatus) (*pricing.Result, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByTransactionID(ctx context.Context, transactionID string) (*domain.Order, error)
}

// Activator records a captured membership payment. Must be idempotent
// on the transaction id.
type Activator interface {
	Activate(ctx context.Context, userID, transactionID string, renewsAt time.Time) error
}

type Service struct {
	carts           CartStore
	gate            StockGate
	reconciler      Reconciler
	calc            *pricing.Calculator
	members         membership.Reader
	provider        payment.Provider
	orders          OrderRepository
	activator       Activator
	membershipPrice decimal.Decimal
	logger          *zap.Logger
}

func NewService(
	carts CartStore,
	gate StockGate,
	reconciler Reconciler,
	calc *pricing.Calculator,
	members membership.Reader,
	provider payment.Provider,
	orders OrderRepository,
	activator Activator,
	membershipPrice decimal.Decimal,
	logger *zap.Logger,
) *Service {
	return &Service{
		carts:           carts,
		gate:            gate,
		reconciler:      reconciler,
		calc:            calc,
		members:         members,
		provider:        provider,
		orders:          orders,
		activator:       activator,
		membershipPrice: membershipPrice,
		logger:          logger,
	}
}

// attempt tracks one checkout attempt through the state machine.
type attempt struct {
	state domain.CheckoutState
}

func newAttempt(initial domain.CheckoutState) *attempt {
	return &attempt{state: initial}
}

func (a *attempt) to(next domain.CheckoutState) error {
	if !domain.CanTransitionTo(a.state, next) {
		return fmt.Errorf("%w: %s -> %s", IllegalTransitionError, a.state, next)
	}
	a.state = next
	return nil
}

type AuthorizeRequest struct {
	UserID  string
	CartID  string
	Address domain.ShippingAddress
}

// Authorization is what the client needs to drive the provider's approval
// UI. Totals here are provisional; the capture step recomputes and
// compares server-side regardless of what the provider was told.
type Authorization struct {
	ProviderOrderID string
	Totals          domain.CartTotals
	PriceChanged    bool
	Diffs           []pricing.PriceDiff
	State           domain.CheckoutState
}

// Authorize validates the address, reconciles the cart against the
// catalog and registers a provider order for the reconciled total.
// Reconciliation always completes before authorization begins, because
// authorization locks in the amount shown to the provider.
func (s *Service) Authorize(ctx context.Context, req *AuthorizeRequest) (*Authorization, error) {
	att := newAttempt(domain.CheckoutStateIdle)

	// No network call happens before the address passes.
	if err := req.Address.Validate(); err != nil {
		return nil, err
	}
	if err := att.to(domain.CheckoutStateAddressValidated); err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, req.CartID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if len(cart.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	status, err := s.members.Status(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read membership: %w", err)
	}

	rec, err := s.reconciler.Reconcile(ctx, cart.Lines, status)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile cart: %w", err)
	}

	// Corrected snapshots are written back even when checkout stops here,
	// so the client renders current prices and unpurchasable flags.
	if err := s.carts.ApplyReconciliation(ctx, req.CartID, rec.Lines); err != nil {
		return nil, fmt.Errorf("failed to store reconciled cart: %w", err)
	}
	if len(rec.Blocked) > 0 {
		return nil, domain.ErrUnpurchasable
	}

	totals := s.calc.Totals(rec.Lines)

	items := make([]payment.LineItem, len(rec.Lines))
	for i, line := range rec.Lines {
		items[i] = payment.LineItem{
			Name:      fmt.Sprintf("%s %s", line.DisplayName, line.Size),
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPriceSnapshot,
		}
	}

	providerOrderID, err := s.provider.CreateOrder(ctx, totals.Total, items)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider order: %w", err)
	}
	if err := att.to(domain.CheckoutStatePaymentAuthorized); err != nil {
		return nil, err
	}

	s.logger.Info("payment authorized",
		zap.String("cart_id", req.CartID),
		zap.String("provider_order_id", providerOrderID),
		zap.String("total", totals.Total.String()))

	return &Authorization{
		ProviderOrderID: providerOrderID,
		Totals:          totals,
		PriceChanged:    rec.Changed,
		Diffs:           rec.Diffs,
		State:           att.state,
	}, nil
}

// Cancel handles a buyer-side cancellation of an authorization. The cart
// and its prices stay untouched; nothing has been persisted.
func (s *Service) Cancel(ctx context.Context, providerOrderID string) error {
	att := newAttempt(domain.CheckoutStatePaymentAuthorized)
	if err := att.to(domain.CheckoutStateAddressValidated); err != nil {
		return err
	}
	if err := s.provider.CancelOrder(ctx, providerOrderID); err != nil {
		s.logger.Warn("provider cancel failed, order will expire provider-side",
			zap.String("provider_order_id", providerOrderID), zap.Error(err))
	}
	return nil
}
