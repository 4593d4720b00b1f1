package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/avolkov/go_market/internal/cart"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Carts is the cart surface the HTTP layer depends on.
type Carts interface {
	Get(ctx context.Context, customerID int64) (*cart.Cart, error)
	AddItem(ctx context.Context, customerID, productID, variantID int64, qty int32) (*cart.Cart, error)
	UpdateQuantity(ctx context.Context, customerID, productID, variantID int64, qty int32) (*cart.Cart, error)
	RemoveItem(ctx context.Context, customerID, productID, variantID int64) (*cart.Cart, error)
	Clear(ctx context.Context, customerID int64) error
	Validate(ctx context.Context, c *cart.Cart) []cart.Problem
}

type CartHandler struct {
	carts Carts
	log   *zap.SugaredLogger
}

func NewCartHandler(carts Carts, log *zap.SugaredLogger) *CartHandler {
	return &CartHandler{carts: carts, log: log}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"variant_id,omitempty"`
	Quantity  int32 `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int32 `json:"quantity"`
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	c, err := h.carts.Get(r.Context(), customerID)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, h.log, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, h.log, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	c, err := h.carts.AddItem(r.Context(), customerID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusCreated, c)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, h.log, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}
	variantID := variantIDFromQuery(r)

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, h.log, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	c, err := h.carts.UpdateQuantity(r.Context(), customerID, productID, variantID, req.Quantity)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, h.log, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), customerID, productID, variantIDFromQuery(r))
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	respondJSON(w, h.log, http.StatusOK, c)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	if err := h.carts.Clear(r.Context(), customerID); err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) Validate(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	c, err := h.carts.Get(r.Context(), customerID)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}

	problems := h.carts.Validate(r.Context(), c)
	respondJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"valid":    len(problems) == 0,
		"problems": problems,
	})
}

func variantIDFromQuery(r *http.Request) int64 {
	raw := r.URL.Query().Get("variant_id")
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
