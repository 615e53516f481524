package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/dylanleonard80/peptidefoundry/internal/membership"
	"github.com/dylanleonard80/peptidefoundry/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderReader interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderReader
	members membership.Reader
	timeout time.Duration
	logger  *zap.Logger
}

func NewOrdersHandler(reader OrderReader, members membership.Reader, timeout time.Duration, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{orders: reader, members: members, timeout: timeout, logger: logger}
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	uid := userID(r.Context())
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "order history requires a signed-in user")
		return
	}

	list, err := h.orders.ListOrdersByUserID(ctx, uid)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetOrder returns 404 rather than 403 for another user's order; the
// order id space stays unprobeable.
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	uid := userID(r.Context())
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "order history requires a signed-in user")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	order, err := h.orders.GetOrderByID(ctx, id)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if order.UserID != uid {
		respondDomainError(w, h.logger, orders.ErrOrderNotFound)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Membership reports the caller's current membership status; guests read
// inactive.
func (h *OrdersHandler) Membership(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, err := h.members.Status(ctx, userID(r.Context()))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}
