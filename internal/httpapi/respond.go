package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dylanleonard80/peptidefoundry/internal/checkout"
	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/dylanleonard80/peptidefoundry/internal/orders"
	"github.com/dylanleonard80/peptidefoundry/internal/payment"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondDomainError maps known domain failures to client-facing codes.
// Anything unmapped is logged and hidden behind a 500.
func respondDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var fieldErr *domain.FieldError
	switch {
	case errors.As(err, &fieldErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: fieldErr.Error(),
			Code:  "invalid_address",
			Field: fieldErr.Field,
		})
	case errors.Is(err, domain.ErrInvalidAddress):
		respondError(w, http.StatusBadRequest, "invalid_address", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, domain.ErrVariantNotFound):
		respondError(w, http.StatusNotFound, "variant_not_found", "variant not found")
	case errors.Is(err, orders.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, domain.ErrOutOfStock):
		respondError(w, http.StatusConflict, "out_of_stock", "variant is out of stock")
	case errors.Is(err, domain.ErrUnpurchasable):
		respondError(w, http.StatusConflict, "unpurchasable", "cart contains items that are no longer sold")
	case errors.Is(err, domain.ErrCaptureVerification):
		respondError(w, http.StatusConflict, "capture_verification_failed",
			"order could not be confirmed, the payment will be refunded")
	case errors.Is(err, domain.ErrPaymentNotAuthorized):
		respondError(w, http.StatusPaymentRequired, "payment_not_authorized", "payment was not authorized")
	case errors.Is(err, payment.ErrProviderUnavailable):
		respondError(w, http.StatusServiceUnavailable, "provider_unavailable", "payment provider unavailable")
	default:
		logger.Error("unhandled request error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
