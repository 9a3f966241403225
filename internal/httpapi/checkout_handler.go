package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Eymeric05/E-Perfume-sub000/internal/checkout"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CheckoutHandler struct {
	service *checkout.Service
	timeout time.Duration
}

func NewCheckoutHandler(service *checkout.Service, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		timeout: timeout,
	}
}

type CardSessionResponseDTO struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type WalletOrderResponseDTO struct {
	ProviderOrderID string `json:"provider_order_id"`
}

type WalletCaptureRequestDTO struct {
	ProviderOrderID string `json:"provider_order_id"`
}

type VerifyRequestDTO struct {
	SessionID     string `json:"session_id,omitempty"`
	WalletOrderID string `json:"wallet_order_id,omitempty"`
}

func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var draft checkout.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.service.CreateOrder(ctx, userID, draft)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	order, err := h.service.GetOrder(ctx, userID, orderID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *CheckoutHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.service.ListOrders(ctx, userID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

func (h *CheckoutHandler) CreateCardSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	session, err := h.service.InitiateCardSession(ctx, userID, orderID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CardSessionResponseDTO{
		SessionID: session.SessionID,
		URL:       session.URL,
	})
}

func (h *CheckoutHandler) CreateWalletOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	providerOrderID, err := h.service.CreateWalletOrder(ctx, userID, orderID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, WalletOrderResponseDTO{ProviderOrderID: providerOrderID})
}

func (h *CheckoutHandler) CaptureWalletOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	var req WalletCaptureRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProviderOrderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "provider_order_id is required")
		return
	}

	order, err := h.service.CaptureWalletOrder(ctx, userID, orderID, req.ProviderOrderID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *CheckoutHandler) CancelWalletOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	var req WalletCaptureRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProviderOrderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "provider_order_id is required")
		return
	}

	if err := h.service.CancelWalletOrder(ctx, userID, orderID, req.ProviderOrderID); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Verify is the reconciliation endpoint hit on return from a provider.
// It is a POST on purpose: a page reload without the consumed query
// string cannot re-trigger it, and replaying it is idempotent anyway.
func (h *CheckoutHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	var req VerifyRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	providerRef := req.SessionID
	if providerRef == "" {
		providerRef = req.WalletOrderID
	}
	if providerRef == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "session_id or wallet_order_id is required")
		return
	}

	order, err := h.service.Verify(ctx, userID, orderID, providerRef)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// MarkDelivered is a back-office operation; the admin check is left to
// the gateway in front of this service.
func (h *CheckoutHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := parseOrderID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	if err := h.service.MarkDelivered(ctx, orderID); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "order_id"))
}
