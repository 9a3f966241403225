package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Eymeric05/E-Perfume-sub000/internal/recent"
	"github.com/go-chi/chi/v5"
)

type RecentHandler struct {
	service *recent.Service
	timeout time.Duration
}

func NewRecentHandler(service *recent.Service, timeout time.Duration) *RecentHandler {
	return &RecentHandler{
		service: service,
		timeout: timeout,
	}
}

func (h *RecentHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	if err := h.service.Record(ctx, userID, productID); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RecentHandler) ListViews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	ids, err := h.service.List(ctx, userID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string][]int64{"product_ids": ids})
}
