// Package httpapi is the HTTP surface of the storefront: cart CRUD,
// checkout, membership and order reads. Handlers stay thin; every
// decision that matters lives in the services behind them.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/catalog"
	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/dylanleonard80/peptidefoundry/internal/membership"
	"github.com/dylanleonard80/peptidefoundry/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxDisplayNameLen = 120

// CartService is the slice of the cart store the handlers use.
type CartService interface {
	Get(ctx context.Context, cartID string) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, slug, size string, unitPrice decimal.Decimal, displayName string) error
	UpdateQuantity(ctx context.Context, cartID string, key domain.VariantKey, quantity int) error
	RemoveItem(ctx context.Context, cartID string, key domain.VariantKey) error
	Clear(ctx context.Context, cartID string) error
}

type CartHandler struct {
	carts   CartService
	catalog catalog.Accessor
	calc    *pricing.Calculator
	members membership.Reader
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(carts CartService, cat catalog.Accessor, calc *pricing.Calculator, members membership.Reader, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: cat,
		calc:    calc,
		members: members,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	Slug        string `json:"slug"`
	Size        string `json:"size"`
	DisplayName string `json:"display_name"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Cart   *domain.Cart      `json:"cart"`
	Totals domain.CartTotals `json:"totals"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.respondCart(ctx, w, http.StatusOK)
}

// AddItem snapshots the effective price server-side at add time. The
// client names the variant; it never names the price.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Slug = strings.TrimSpace(req.Slug)
	req.Size = strings.TrimSpace(req.Size)
	if req.Slug == "" || req.Size == "" {
		respondError(w, http.StatusBadRequest, "invalid_variant", "slug and size are required")
		return
	}
	if len(req.DisplayName) > maxDisplayNameLen {
		req.DisplayName = req.DisplayName[:maxDisplayNameLen]
	}

	entry, err := h.catalog.Lookup(ctx, req.Slug, req.Size)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	status, err := h.members.Status(ctx, userID(r.Context()))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	price := h.calc.EffectivePrice(*entry, status)

	if err := h.carts.AddItem(ctx, sessionID(r.Context()), req.Slug, req.Size, price, req.DisplayName); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	h.respondCart(ctx, w, http.StatusCreated)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key := variantKeyFromURL(r)
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	if err := h.carts.UpdateQuantity(ctx, sessionID(r.Context()), key, req.Quantity); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	h.respondCart(ctx, w, http.StatusOK)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.RemoveItem(ctx, sessionID(r.Context()), variantKeyFromURL(r)); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	h.respondCart(ctx, w, http.StatusOK)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.Clear(ctx, sessionID(r.Context())); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	h.respondCart(ctx, w, http.StatusOK)
}

func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, status int) {
	cart, err := h.carts.Get(ctx, sessionID(ctx))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, status, CartResponseDTO{Cart: cart, Totals: h.calc.Totals(cart.Lines)})
}

func variantKeyFromURL(r *http.Request) domain.VariantKey {
	return domain.VariantKey{
		Slug: chi.URLParam(r, "slug"),
		Size: chi.URLParam(r, "size"),
	}
}
