package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/avolkov/go_market/internal/settlement"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Settlements interface {
	ListByStore(ctx context.Context, storeID int64) ([]*settlement.Split, error)
	Release(ctx context.Context, splitID uuid.UUID, storeID int64) (*settlement.Split, error)
}

type SettlementHandler struct {
	settlements Settlements
	log         *zap.SugaredLogger
}

func NewSettlementHandler(settlements Settlements, log *zap.SugaredLogger) *SettlementHandler {
	return &SettlementHandler{settlements: settlements, log: log}
}

func (h *SettlementHandler) ListByStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "store_id"), 10, 64)
	if err != nil || storeID <= 0 {
		respondError(w, h.log, http.StatusBadRequest, "invalid_store_id", "store_id must be a positive integer")
		return
	}

	splits, err := h.settlements.ListByStore(r.Context(), storeID)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, map[string]interface{}{"splits": splits})
}

func (h *SettlementHandler) Release(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(chi.URLParam(r, "store_id"), 10, 64)
	if err != nil || storeID <= 0 {
		respondError(w, h.log, http.StatusBadRequest, "invalid_store_id", "store_id must be a positive integer")
		return
	}

	splitID, err := uuid.Parse(chi.URLParam(r, "split_id"))
	if err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_split_id", "split_id must be a UUID")
		return
	}

	split, err := h.settlements.Release(r.Context(), splitID, storeID)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, split)
}
