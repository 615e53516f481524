package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/dylanleonard80/peptidefoundry/internal/membership"
	"github.com/dylanleonard80/peptidefoundry/internal/payment"
	"github.com/dylanleonard80/peptidefoundry/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureRequest() *CaptureRequest {
	return &CaptureRequest{
		UserID:          "user-1",
		CartID:          "cart-1",
		ProviderOrderID: "PROVORD-1",
		Address:         validAddress(),
	}
}

func TestCapture(t *testing.T) {
	f := newFixture()

	order, err := f.svc.Capture(context.Background(), captureRequest())

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.Number, "PF-"))
	assert.Equal(t, "TX123", order.ProviderTransactionID)
	assert.Equal(t, domain.OrderStatusCaptured, order.Status)
	assert.True(t, order.TotalCharged.Equal(decimal.RequireFromString("129.95")))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "bpc-157", order.Items[0].Slug)
	assert.True(t, f.carts.cleared)
}

func TestCapture_DuplicateDeliveryReturnsOriginal(t *testing.T) {
	f := newFixture()

	first, err := f.svc.Capture(context.Background(), captureRequest())
	require.NoError(t, err)

	// The retry arrives after the cart was cleared; it must still succeed
	// with the original order, and no second order may exist.
	second, err := f.svc.Capture(context.Background(), captureRequest())
	require.NoError(t, err)

	assert.Equal(t, first.Number, second.Number)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.orders.byTxn, 1)
}

func TestCapture_InsertConflictReturnsOriginal(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Capture(context.Background(), captureRequest())
	require.NoError(t, err)
	f.carts.cart.Lines = []domain.CartLine{{
		Slug: "bpc-157", Size: "10mg", Quantity: 2,
		UnitPriceSnapshot: decimal.RequireFromString("60.00"),
		DisplayName:       "BPC-157",
	}}
	// Miss the pre-check so the flow reaches the insert and hits the
	// uniqueness conflict instead.
	f.orders.lookupMisses = 1

	order, err := f.svc.Capture(context.Background(), captureRequest())

	require.NoError(t, err)
	assert.Equal(t, "TX123", order.ProviderTransactionID)
	assert.Len(t, f.orders.byTxn, 1)
}

func TestCapture_OutOfStockLineRefusesOrder(t *testing.T) {
	f := newFixture()
	f.gate.unavailable = map[domain.VariantKey]bool{
		{Slug: "bpc-157", Size: "10mg"}: true,
	}

	_, err := f.svc.Capture(context.Background(), captureRequest())

	require.ErrorIs(t, err, domain.ErrCaptureVerification)
	assert.Empty(t, f.orders.byTxn)
	assert.False(t, f.carts.cleared)
}

func TestCapture_AmountMismatchFailsClosed(t *testing.T) {
	f := newFixture()
	// Catalog price rose after authorization; the captured 129.95 no
	// longer matches the authoritative total.
	f.rec.rewrite = func(lines []domain.CartLine) *pricing.Result {
		out := make([]domain.CartLine, len(lines))
		copy(out, lines)
		out[0].UnitPriceSnapshot = decimal.RequireFromString("95.00")
		return &pricing.Result{Lines: out, Changed: true}
	}

	_, err := f.svc.Capture(context.Background(), captureRequest())

	require.ErrorIs(t, err, domain.ErrCaptureVerification)
	assert.Empty(t, f.orders.byTxn)
	assert.False(t, f.carts.cleared)
}

func TestCapture_UnpurchasableLineRefusesOrder(t *testing.T) {
	f := newFixture()
	f.rec.rewrite = func(lines []domain.CartLine) *pricing.Result {
		out := make([]domain.CartLine, len(lines))
		copy(out, lines)
		out[0].Unpurchasable = true
		return &pricing.Result{Lines: out, Blocked: []domain.VariantKey{out[0].Key()}}
	}

	_, err := f.svc.Capture(context.Background(), captureRequest())

	require.ErrorIs(t, err, domain.ErrCaptureVerification)
	assert.Empty(t, f.orders.byTxn)
}

func TestCapture_OrderNotApproved(t *testing.T) {
	f := newFixture()
	f.provider.status = payment.OrderStatusCreated

	_, err := f.svc.Capture(context.Background(), captureRequest())

	require.ErrorIs(t, err, domain.ErrPaymentNotAuthorized)
	assert.Zero(t, f.provider.captured)
}

func TestCapture_Declined(t *testing.T) {
	f := newFixture()
	f.provider.captureErr = payment.ErrDeclined

	_, err := f.svc.Capture(context.Background(), captureRequest())

	require.ErrorIs(t, err, domain.ErrPaymentNotAuthorized)
	assert.Empty(t, f.orders.byTxn)
}

func TestCapture_PersistFailureKeepsCart(t *testing.T) {
	f := newFixture()
	f.orders.createErr = errors.New("connection reset")

	_, err := f.svc.Capture(context.Background(), captureRequest())

	require.Error(t, err)
	assert.False(t, f.carts.cleared)
	assert.Len(t, f.carts.cart.Lines, 1)
}

func TestCapture_ClearFailureStillReturnsOrder(t *testing.T) {
	f := newFixture()
	f.carts.clearErr = errors.New("redis timeout")

	order, err := f.svc.Capture(context.Background(), captureRequest())

	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Len(t, f.orders.byTxn, 1)
}

func TestActivateMembership(t *testing.T) {
	f := newFixture()
	f.provider.capture.Amount = decimal.RequireFromString("89.00")

	status, err := f.svc.ActivateMembership(context.Background(), "user-1", "PROVORD-1")

	require.NoError(t, err)
	assert.True(t, status.Active)
	require.NotNil(t, status.RenewsOrExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().AddDate(1, 0, 0), *status.RenewsOrExpiresAt, time.Minute)
	assert.Equal(t, "user-1", f.activator.userID)
	assert.Equal(t, "TX123", f.activator.txnID)
}

func TestActivateMembership_AmountMismatch(t *testing.T) {
	f := newFixture()
	f.provider.capture.Amount = decimal.RequireFromString("1.00")

	_, err := f.svc.ActivateMembership(context.Background(), "user-1", "PROVORD-1")

	require.ErrorIs(t, err, domain.ErrCaptureVerification)
	assert.Zero(t, f.activator.calls)
}

func TestActivateMembership_DuplicateActivation(t *testing.T) {
	f := newFixture()
	f.provider.capture.Amount = decimal.RequireFromString("89.00")
	f.activator.err = membership.ErrDuplicateActivation
	renews := time.Now().UTC().AddDate(1, 0, 0)
	f.members.status = domain.MembershipStatus{Active: true, RenewsOrExpiresAt: &renews}

	status, err := f.svc.ActivateMembership(context.Background(), "user-1", "PROVORD-1")

	require.NoError(t, err)
	assert.True(t, status.Active)
}
