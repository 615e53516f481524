package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/dylanleonard80/peptidefoundry/internal/orders"
	"github.com/dylanleonard80/peptidefoundry/internal/payment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CaptureRequest struct {
	UserID          string
	CartID          string
	ProviderOrderID string
	Address         domain.ShippingAddress
}

// captureApproved is the provider-side half of every capture flow:
// verify the order reached buyer approval with server credentials, then
// capture the funds. Callers hand the completed capture to a recorder
// that must be idempotent on the transaction id.
func (s *Service) captureApproved(ctx context.Context, providerOrderID string) (*payment.Capture, error) {
	status, err := s.provider.GetOrderStatus(ctx, providerOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify provider order: %w", err)
	}
	// COMPLETED means a previous capture attempt went through; capturing
	// again is safe, the provider returns the original capture.
	if status != payment.OrderStatusApproved && status != payment.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: provider order in state %s", domain.ErrPaymentNotAuthorized, status)
	}

	capture, err := s.provider.CaptureOrder(ctx, providerOrderID)
	if err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPaymentNotAuthorized, err)
		}
		return nil, fmt.Errorf("failed to capture provider order: %w", err)
	}
	if !capture.Completed() {
		return nil, fmt.Errorf("%w: capture ended in state %s", domain.ErrPaymentNotAuthorized, capture.Status)
	}
	return capture, nil
}

// Capture turns an approved payment into a durable order. The money has
// already moved when verification starts, so every failure past that
// point refuses to create the order and flags the transaction for manual
// refund rather than shipping goods the catalog no longer backs.
func (s *Service) Capture(ctx context.Context, req *CaptureRequest) (*domain.Order, error) {
	att := newAttempt(domain.CheckoutStatePaymentAuthorized)
	if err := att.to(domain.CheckoutStateCapturing); err != nil {
		return nil, err
	}

	if err := req.Address.Validate(); err != nil {
		return nil, err
	}

	capture, err := s.captureApproved(ctx, req.ProviderOrderID)
	if err != nil {
		return nil, err
	}

	// A redelivered capture request lands here with the cart already
	// cleared. The transaction id finds the original order before any
	// stock or price check can reject the retry.
	if existing, err := s.orders.GetOrderByTransactionID(ctx, capture.TransactionID); err == nil {
		s.logger.Info("duplicate capture, returning original order",
			zap.String("transaction_id", capture.TransactionID),
			zap.String("order_number", existing.Number))
		return existing, nil
	} else if !errors.Is(err, orders.ErrOrderNotFound) {
		return nil, fmt.Errorf("failed to check transaction: %w", err)
	}

	cart, err := s.carts.Get(ctx, req.CartID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if len(cart.Lines) == 0 {
		return nil, s.verificationFailure(capture, "cart empty at capture")
	}

	for _, line := range cart.Lines {
		available, err := s.gate.IsAvailable(ctx, line.Slug, line.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to re-check stock: %w", err)
		}
		if !available {
			return nil, s.verificationFailure(capture, "line out of stock at capture",
				zap.String("slug", line.Slug), zap.String("size", line.Size))
		}
	}

	status, err := s.members.Status(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read membership: %w", err)
	}
	rec, err := s.reconciler.Reconcile(ctx, cart.Lines, status)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile cart: %w", err)
	}
	if len(rec.Blocked) > 0 {
		return nil, s.verificationFailure(capture, "unpurchasable line at capture")
	}

	totals := s.calc.Totals(rec.Lines)
	if !totals.Total.Equal(capture.Amount) {
		return nil, s.verificationFailure(capture, "captured amount does not match authoritative total",
			zap.String("captured", capture.Amount.String()),
			zap.String("authoritative", totals.Total.String()))
	}

	id := uuid.New()
	order := &domain.Order{
		ID:                    id,
		Number:                orders.NewOrderNumber(id),
		UserID:                req.UserID,
		Items:                 orderItems(rec.Lines),
		ShippingAddress:       req.Address,
		TotalCharged:          capture.Amount,
		ProviderTransactionID: capture.TransactionID,
		Status:                domain.OrderStatusCaptured,
		CreatedAt:             time.Now().UTC(),
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, orders.ErrDuplicateTransaction) {
			existing, lookupErr := s.orders.GetOrderByTransactionID(ctx, capture.TransactionID)
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to load original order: %w", lookupErr)
			}
			return existing, nil
		}
		// Cart stays intact so the buyer or support can retry against the
		// same transaction id.
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	// Clearing the cart is strictly last. A failure here leaves a stale
	// cart behind, never a missing order.
	if err := s.carts.Clear(ctx, req.CartID); err != nil {
		s.logger.Warn("failed to clear cart after capture",
			zap.String("cart_id", req.CartID),
			zap.String("order_number", order.Number), zap.Error(err))
	}

	if err := att.to(domain.CheckoutStateCaptured); err != nil {
		return nil, err
	}
	s.logger.Info("order captured",
		zap.String("order_number", order.Number),
		zap.String("transaction_id", capture.TransactionID),
		zap.String("total", capture.Amount.String()))
	return order, nil
}

// verificationFailure logs enough for a support engineer to refund the
// transaction, then refuses the order.
func (s *Service) verificationFailure(capture *payment.Capture, reason string, fields ...zap.Field) error {
	fields = append(fields,
		zap.String("transaction_id", capture.TransactionID),
		zap.String("amount", capture.Amount.String()))
	s.logger.Error("capture verification failed, transaction flagged for manual refund",
		append([]zap.Field{zap.String("reason", reason)}, fields...)...)
	return fmt.Errorf("%w: %s", domain.ErrCaptureVerification, reason)
}

func orderItems(lines []domain.CartLine) []domain.OrderItem {
	items := make([]domain.OrderItem, len(lines))
	for i, line := range lines {
		items[i] = domain.OrderItem{
			Slug:        line.Slug,
			Size:        line.Size,
			DisplayName: line.DisplayName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPriceSnapshot,
		}
	}
	return items
}
