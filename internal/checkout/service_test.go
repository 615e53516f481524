package checkout

import (
	"context"
	"testing"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/dylanleonard80/peptidefoundry/internal/payment"
	"github.com/dylanleonard80/peptidefoundry/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	carts     *cartStoreMock
	gate      *gateMock
	rec       *reconcilerMock
	members   *membersMock
	provider  *providerMock
	orders    *ordersMock
	activator *activatorMock
	svc       *Service
}

// newFixture wires a cart of 2x bpc-157 10mg at 60.00: subtotal 120.00,
// flat shipping 9.95, total 129.95, matching the provider capture.
func newFixture() *fixture {
	f := &fixture{
		carts: &cartStoreMock{cart: &domain.Cart{
			ID: "cart-1",
			Lines: []domain.CartLine{{
				Slug:              "bpc-157",
				Size:              "10mg",
				Quantity:          2,
				UnitPriceSnapshot: decimal.RequireFromString("60.00"),
				DisplayName:       "BPC-157",
			}},
		}},
		gate:    &gateMock{},
		rec:     &reconcilerMock{},
		members: &membersMock{status: domain.MembershipStatus{Active: true}},
		provider: &providerMock{
			status: payment.OrderStatusApproved,
			capture: payment.Capture{
				TransactionID: "TX123",
				Amount:        decimal.RequireFromString("129.95"),
				Status:        payment.OrderStatusCompleted,
			},
		},
		orders:    newOrdersMock(),
		activator: &activatorMock{},
	}
	calc := pricing.NewCalculator(
		decimal.RequireFromString("0.23"),
		decimal.RequireFromString("150"),
		decimal.RequireFromString("9.95"))
	f.svc = NewService(f.carts, f.gate, f.rec, calc, f.members, f.provider,
		f.orders, f.activator, decimal.RequireFromString("89.00"), zap.NewNop())
	return f
}

func validAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		Name:   "Dana Voss",
		Street: "12 Harbor Rd",
		City:   "Portland",
		State:  "OR",
		Zip:    "97201",
	}
}

func TestAuthorize(t *testing.T) {
	f := newFixture()

	auth, err := f.svc.Authorize(context.Background(), &AuthorizeRequest{
		UserID:  "user-1",
		CartID:  "cart-1",
		Address: validAddress(),
	})

	require.NoError(t, err)
	assert.Equal(t, "PROVORD-1", auth.ProviderOrderID)
	assert.Equal(t, domain.CheckoutStatePaymentAuthorized, auth.State)
	assert.False(t, auth.PriceChanged)
	assert.True(t, auth.Totals.Total.Equal(decimal.RequireFromString("129.95")))
	assert.True(t, f.provider.createdTotal.Equal(decimal.RequireFromString("129.95")))
}

func TestAuthorize_InvalidAddressStopsBeforeProvider(t *testing.T) {
	f := newFixture()
	addr := validAddress()
	addr.Zip = "9720"

	_, err := f.svc.Authorize(context.Background(), &AuthorizeRequest{
		UserID: "user-1", CartID: "cart-1", Address: addr,
	})

	require.ErrorIs(t, err, domain.ErrInvalidAddress)
	assert.False(t, f.provider.created)
}

func TestAuthorize_EmptyCart(t *testing.T) {
	f := newFixture()
	f.carts.cart.Lines = nil

	_, err := f.svc.Authorize(context.Background(), &AuthorizeRequest{
		UserID: "user-1", CartID: "cart-1", Address: validAddress(),
	})

	require.ErrorIs(t, err, ErrEmptyCart)
	assert.False(t, f.provider.created)
}

func TestAuthorize_PriceDriftCorrectedBeforeAuthorization(t *testing.T) {
	f := newFixture()
	f.carts.cart.Lines[0].UnitPriceSnapshot = decimal.RequireFromString("83.00")
	f.rec.rewrite = func(lines []domain.CartLine) *pricing.Result {
		out := make([]domain.CartLine, len(lines))
		copy(out, lines)
		out[0].UnitPriceSnapshot = decimal.RequireFromString("60.00")
		return &pricing.Result{
			Lines:   out,
			Changed: true,
			Diffs: []pricing.PriceDiff{{
				Slug: out[0].Slug,
				Size: out[0].Size,
				Old:  decimal.RequireFromString("83.00"),
				New:  decimal.RequireFromString("60.00"),
			}},
		}
	}

	auth, err := f.svc.Authorize(context.Background(), &AuthorizeRequest{
		UserID: "user-1", CartID: "cart-1", Address: validAddress(),
	})

	require.NoError(t, err)
	assert.True(t, auth.PriceChanged)
	require.Len(t, auth.Diffs, 1)
	// The provider sees the corrected total, never the stale snapshot.
	assert.True(t, f.provider.createdTotal.Equal(decimal.RequireFromString("129.95")))
	require.Len(t, f.carts.applied, 1)
	assert.True(t, f.carts.applied[0].UnitPriceSnapshot.Equal(decimal.RequireFromString("60.00")))
}

func TestAuthorize_UnpurchasableLineBlocks(t *testing.T) {
	f := newFixture()
	f.rec.rewrite = func(lines []domain.CartLine) *pricing.Result {
		out := make([]domain.CartLine, len(lines))
		copy(out, lines)
		out[0].Unpurchasable = true
		return &pricing.Result{
			Lines:   out,
			Blocked: []domain.VariantKey{out[0].Key()},
		}
	}

	_, err := f.svc.Authorize(context.Background(), &AuthorizeRequest{
		UserID: "user-1", CartID: "cart-1", Address: validAddress(),
	})

	require.ErrorIs(t, err, domain.ErrUnpurchasable)
	assert.False(t, f.provider.created)
	// The flagged line is still written back for the client to render.
	require.Len(t, f.carts.applied, 1)
	assert.True(t, f.carts.applied[0].Unpurchasable)
}

func TestCancel_LeavesCartUntouched(t *testing.T) {
	f := newFixture()

	err := f.svc.Cancel(context.Background(), "PROVORD-1")

	require.NoError(t, err)
	assert.True(t, f.provider.cancelled)
	assert.False(t, f.carts.cleared)
	assert.Len(t, f.carts.cart.Lines, 1)
}
