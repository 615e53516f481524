package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sandbox is an in-memory Provider used for local development. Orders are
// auto-approved on creation and capture exactly once; re-capturing returns
// the original transaction, mirroring real provider idempotency.
type Sandbox struct {
	mu     sync.Mutex
	orders map[string]*sandboxOrder
}

type sandboxOrder struct {
	amount  decimal.Decimal
	status  string
	capture *Capture
}

func NewSandbox() *Sandbox {
	return &Sandbox{orders: make(map[string]*sandboxOrder)}
}

func (s *Sandbox) CreateOrder(_ context.Context, amount decimal.Decimal, _ []LineItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := "SBX-" + uuid.NewString()
	s.orders[id] = &sandboxOrder{amount: amount, status: OrderStatusApproved}
	return id, nil
}

func (s *Sandbox) GetOrderStatus(_ context.Context, providerOrderID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[providerOrderID]
	if !ok {
		return "", ErrOrderNotFound
	}
	return order.status, nil
}

func (s *Sandbox) CaptureOrder(_ context.Context, providerOrderID string) (*Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[providerOrderID]
	if !ok {
		return nil, ErrOrderNotFound
	}

	if order.capture == nil {
		order.status = OrderStatusCompleted
		order.capture = &Capture{
			TransactionID: "SBXTXN-" + uuid.NewString(),
			Amount:        order.amount,
			Status:        OrderStatusCompleted,
		}
	}
	return order.capture, nil
}

func (s *Sandbox) CancelOrder(_ context.Context, providerOrderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.orders, providerOrderID)
	return nil
}
