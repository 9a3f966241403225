package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/Eymeric05/E-Perfume-sub000/internal/cart"
	"github.com/Eymeric05/E-Perfume-sub000/internal/catalog"
	"github.com/Eymeric05/E-Perfume-sub000/internal/checkout"
	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
	"github.com/Eymeric05/E-Perfume-sub000/internal/order"
	"github.com/Eymeric05/E-Perfume-sub000/internal/payment"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleDomainError maps service sentinels onto HTTP statuses.
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrSessionNotFound),
		errors.Is(err, checkout.ErrUnknownProviderRef):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, cart.ErrQuantityOutOfRange),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, domain.ErrInvalidPaymentMethod),
		errors.Is(err, checkout.ErrEmptyOrder),
		errors.Is(err, checkout.ErrMissingAddress):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, checkout.ErrPriceMismatch):
		respondError(w, http.StatusUnprocessableEntity, "price_mismatch", err.Error())
	case errors.Is(err, checkout.ErrNotOrderOwner):
		respondError(w, http.StatusForbidden, "permission_denied", err.Error())
	case errors.Is(err, checkout.ErrOrderAlreadyPaid),
		errors.Is(err, checkout.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, payment.ErrCaptureDeclined):
		respondError(w, http.StatusPaymentRequired, "payment_declined", err.Error())
	case errors.Is(err, payment.ErrProviderUnavailable):
		respondError(w, http.StatusServiceUnavailable, "provider_unavailable", err.Error())
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
