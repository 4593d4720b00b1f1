package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/avolkov/go_market/internal/order"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Orders interface {
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*order.Order, error)
	ListByStore(ctx context.Context, storeID int64) ([]*order.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next order.Status, change order.StatusChange) (*order.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type OrderHandler struct {
	orders Orders
	log    *zap.SugaredLogger
}

func NewOrderHandler(orders Orders, log *zap.SugaredLogger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

type UpdateStatusRequestDTO struct {
	Status         order.Status `json:"status"`
	TrackingNumber string       `json:"tracking_number,omitempty"`
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	if o.CustomerID != customerID {
		// Do not reveal that the order exists.
		respondError(w, h.log, http.StatusNotFound, "not_found", "order not found")
		return
	}
	respondJSON(w, h.log, http.StatusOK, o)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	orders, err := h.orders.ListByCustomer(r.Context(), customerID)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, map[string]interface{}{"orders": orders})
}

// ListByStore serves the seller's view. Store identity comes from the URL;
// real deployments would authenticate the seller against it.
func (h *OrderHandler) ListByStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "store_id"), 10, 64)
	if err != nil || storeID <= 0 {
		respondError(w, h.log, http.StatusBadRequest, "invalid_store_id", "store_id must be a positive integer")
		return
	}

	orders, err := h.orders.ListByStore(r.Context(), storeID)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Status == "" {
		respondError(w, h.log, http.StatusBadRequest, "invalid_status", "status is required")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, req.Status,
		order.StatusChange{TrackingNumber: req.TrackingNumber})
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, o)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	if o.CustomerID != customerID {
		respondError(w, h.log, http.StatusNotFound, "not_found", "order not found")
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
