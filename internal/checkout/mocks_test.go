package checkout

import (
	"context"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/dylanleonard80/peptidefoundry/internal/orders"
	"github.com/dylanleonard80/peptidefoundry/internal/payment"
	"github.com/dylanleonard80/peptidefoundry/internal/pricing"
	"github.com/shopspring/decimal"
)

type cartStoreMock struct {
	cart     *domain.Cart
	getErr   error
	applied  []domain.CartLine
	applyErr error
	cleared  bool
	clearErr error
}

func (m *cartStoreMock) Get(_ context.Context, _ string) (*domain.Cart, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.cart, nil
}

func (m *cartStoreMock) ApplyReconciliation(_ context.Context, _ string, lines []domain.CartLine) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	m.applied = lines
	m.cart.Lines = lines
	return nil
}

func (m *cartStoreMock) Clear(_ context.Context, _ string) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = true
	m.cart.Lines = nil
	return nil
}

type gateMock struct {
	unavailable map[domain.VariantKey]bool
	err         error
}

func (m *gateMock) IsAvailable(_ context.Context, slug, size string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return !m.unavailable[domain.VariantKey{Slug: slug, Size: size}], nil
}

// reconcilerMock passes lines through untouched unless a rewrite is
// configured.
type reconcilerMock struct {
	rewrite func(lines []domain.CartLine) *pricing.Result
	err     error
}

func (m *reconcilerMock) Reconcile(_ context.Context, lines []domain.CartLine, _ domain.MembershipStatus) (*pricing.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.rewrite != nil {
		return m.rewrite(lines), nil
	}
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return &pricing.Result{Lines: out}, nil
}

type membersMock struct {
	status domain.MembershipStatus
	err    error
}

func (m *membersMock) Status(_ context.Context, _ string) (domain.MembershipStatus, error) {
	return m.status, m.err
}

// providerMock simulates the provider order lifecycle in memory, the
// same way the sandbox does, with injectable failures.
type providerMock struct {
	status       string
	capture      payment.Capture
	createErr    error
	statusErr    error
	captureErr   error
	cancelErr    error
	created      bool
	createdTotal decimal.Decimal
	captured     int
	cancelled    bool
}

func (m *providerMock) CreateOrder(_ context.Context, amount decimal.Decimal, _ []payment.LineItem) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created = true
	m.createdTotal = amount
	return "PROVORD-1", nil
}

func (m *providerMock) GetOrderStatus(_ context.Context, _ string) (string, error) {
	if m.statusErr != nil {
		return "", m.statusErr
	}
	return m.status, nil
}

func (m *providerMock) CaptureOrder(_ context.Context, _ string) (*payment.Capture, error) {
	if m.captureErr != nil {
		return nil, m.captureErr
	}
	m.captured++
	c := m.capture
	return &c, nil
}

func (m *providerMock) CancelOrder(_ context.Context, _ string) error {
	m.cancelled = true
	return m.cancelErr
}

// ordersMock enforces the transaction id uniqueness the real repository
// gets from its constraint.
type ordersMock struct {
	byTxn     map[string]*domain.Order
	createErr error

	// lookupMisses makes the next N transaction lookups miss, simulating
	// the race where a concurrent request inserts between the pre-check
	// and the insert.
	lookupMisses int
}

func newOrdersMock() *ordersMock {
	return &ordersMock{byTxn: make(map[string]*domain.Order)}
}

func (m *ordersMock) CreateOrder(_ context.Context, order *domain.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byTxn[order.ProviderTransactionID]; ok {
		return orders.ErrDuplicateTransaction
	}
	m.byTxn[order.ProviderTransactionID] = order
	return nil
}

func (m *ordersMock) GetOrderByTransactionID(_ context.Context, transactionID string) (*domain.Order, error) {
	if m.lookupMisses > 0 {
		m.lookupMisses--
		return nil, orders.ErrOrderNotFound
	}
	order, ok := m.byTxn[transactionID]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return order, nil
}

type activatorMock struct {
	err      error
	userID   string
	txnID    string
	renewsAt time.Time
	calls    int
}

func (m *activatorMock) Activate(_ context.Context, userID, transactionID string, renewsAt time.Time) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.userID = userID
	m.txnID = transactionID
	m.renewsAt = renewsAt
	return nil
}
