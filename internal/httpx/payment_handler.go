package httpx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/avolkov/go_market/internal/payment"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// callbackSignatureHeader carries the provider's HMAC over the raw body.
const callbackSignatureHeader = "X-Signature"

type Payments interface {
	Initiate(ctx context.Context, orderID uuid.UUID, method string) (*payment.Payment, error)
	HandleCallback(ctx context.Context, signature string, payload []byte) error
	Refund(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, reason string) (*payment.Refund, error)
	Get(ctx context.Context, id uuid.UUID) (*payment.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*payment.Payment, error)
}

type PaymentHandler struct {
	payments Payments
	log      *zap.SugaredLogger
}

func NewPaymentHandler(payments Payments, log *zap.SugaredLogger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

type InitiatePaymentRequestDTO struct {
	Method string `json:"method"`
}

type RefundRequestDTO struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}

func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	var req InitiatePaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Method == "" {
		respondError(w, h.log, http.StatusBadRequest, "invalid_method", "payment method is required")
		return
	}

	p, err := h.payments.Initiate(r.Context(), orderID, req.Method)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusCreated, p)
}

// Callback is the provider-facing webhook. It is unauthenticated at the
// transport level; the HMAC signature over the body is the only credential.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_request", "could not read body")
		return
	}

	signature := r.Header.Get(callbackSignatureHeader)
	if err := h.payments.HandleCallback(r.Context(), signature, payload); err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "payment_id"))
	if err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_payment_id", "payment_id must be a UUID")
		return
	}

	p, err := h.payments.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	if p.CustomerID != customerID {
		respondError(w, h.log, http.StatusNotFound, "not_found", "payment not found")
		return
	}
	respondJSON(w, h.log, http.StatusOK, p)
}

func (h *PaymentHandler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	payments, err := h.payments.ListByOrder(r.Context(), orderID)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, map[string]interface{}{"payments": payments})
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "payment_id"))
	if err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_payment_id", "payment_id must be a UUID")
		return
	}

	var req RefundRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !req.Amount.IsPositive() {
		respondError(w, h.log, http.StatusBadRequest, "invalid_amount", "refund amount must be positive")
		return
	}

	refund, err := h.payments.Refund(r.Context(), id, req.Amount, req.Reason)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusCreated, refund)
}
