package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avolkov/go_market/internal/cart"
	"github.com/avolkov/go_market/internal/catalog"
	"github.com/avolkov/go_market/internal/directory"
	"github.com/avolkov/go_market/internal/inventory"
	"github.com/avolkov/go_market/internal/order"
	"github.com/avolkov/go_market/internal/payment"
	"github.com/avolkov/go_market/internal/settlement"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, log *zap.SugaredLogger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorw("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, log *zap.SugaredLogger, status int, code, message string) {
	respondJSON(w, log, status, ErrorResponse{Error: message, Code: code})
}

// respondDomainError maps well-known domain errors to HTTP statuses.
// Anything unrecognized becomes a 500 with a generic body; the detail goes
// to the log, not the client.
func respondDomainError(w http.ResponseWriter, log *zap.SugaredLogger, err error) {
	var stockErr *inventory.StockError
	if errors.As(err, &stockErr) {
		respondError(w, log, http.StatusConflict, "out_of_stock", stockErr.Error())
		return
	}

	var orderTransition *order.TransitionError
	if errors.As(err, &orderTransition) {
		respondError(w, log, http.StatusConflict, "invalid_transition", orderTransition.Error())
		return
	}

	var paymentTransition *payment.TransitionError
	if errors.As(err, &paymentTransition) {
		respondError(w, log, http.StatusConflict, "invalid_transition", paymentTransition.Error())
		return
	}

	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrCurrencyMismatch),
		errors.Is(err, cart.ErrEmptyCart):
		respondError(w, log, http.StatusBadRequest, "invalid_request", err.Error())

	case errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, payment.ErrPaymentNotFound),
		errors.Is(err, settlement.ErrSplitNotFound),
		errors.Is(err, directory.ErrCustomerNotFound),
		errors.Is(err, directory.ErrStoreNotFound):
		respondError(w, log, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, cart.ErrProductInactive),
		errors.Is(err, order.ErrCustomerInactive),
		errors.Is(err, order.ErrStoreInactive),
		errors.Is(err, payment.ErrFraudSuspected),
		errors.Is(err, settlement.ErrWrongStore):
		respondError(w, log, http.StatusForbidden, "forbidden", err.Error())

	case errors.Is(err, order.ErrNotDeletable),
		errors.Is(err, order.ErrTrackingRequired),
		errors.Is(err, payment.ErrOrderNotPayable),
		errors.Is(err, payment.ErrNotCompleted),
		errors.Is(err, payment.ErrRefundTooLarge),
		errors.Is(err, settlement.ErrAlreadyReleased),
		errors.Is(err, settlement.ErrPaymentNotCompleted):
		respondError(w, log, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, payment.ErrInvalidSignature):
		respondError(w, log, http.StatusUnauthorized, "invalid_signature", "callback signature verification failed")

	default:
		log.Errorw("unhandled error in http layer", "error", err)
		respondError(w, log, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
