package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/checkout"
	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"go.uber.org/zap"
)

type CheckoutService interface {
	Authorize(ctx context.Context, req *checkout.AuthorizeRequest) (*checkout.Authorization, error)
	Capture(ctx context.Context, req *checkout.CaptureRequest) (*domain.Order, error)
	Cancel(ctx context.Context, providerOrderID string) error
	ActivateMembership(ctx context.Context, userID, providerOrderID string) (domain.MembershipStatus, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCheckoutHandler(svc CheckoutService, timeout time.Duration, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc, timeout: timeout, logger: logger}
}

type AuthorizeRequestDTO struct {
	Address domain.ShippingAddress `json:"address"`
}

type CaptureRequestDTO struct {
	ProviderOrderID string                 `json:"provider_order_id"`
	Address         domain.ShippingAddress `json:"address"`
}

type CancelRequestDTO struct {
	ProviderOrderID string `json:"provider_order_id"`
}

func (h *CheckoutHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AuthorizeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	auth, err := h.checkout.Authorize(ctx, &checkout.AuthorizeRequest{
		UserID:  userID(r.Context()),
		CartID:  sessionID(r.Context()),
		Address: req.Address,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, auth)
}

func (h *CheckoutHandler) Capture(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CaptureRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProviderOrderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "provider_order_id is required")
		return
	}

	order, err := h.checkout.Capture(ctx, &checkout.CaptureRequest{
		UserID:          userID(r.Context()),
		CartID:          sessionID(r.Context()),
		ProviderOrderID: req.ProviderOrderID,
		Address:         req.Address,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CancelRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProviderOrderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "provider_order_id is required")
		return
	}

	if err := h.checkout.Cancel(ctx, req.ProviderOrderID); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) ActivateMembership(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	uid := userID(r.Context())
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "membership requires a signed-in user")
		return
	}

	var req CancelRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProviderOrderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "provider_order_id is required")
		return
	}

	status, err := h.checkout.ActivateMembership(ctx, uid, req.ProviderOrderID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}
