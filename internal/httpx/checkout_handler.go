package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/avolkov/go_market/internal/cart"
	"github.com/avolkov/go_market/internal/order"
	"github.com/avolkov/go_market/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CheckoutCarts interface {
	PrepareCheckout(ctx context.Context, customerID int64) (*cart.Checkout, []cart.Problem, error)
	Clear(ctx context.Context, customerID int64) error
}

type OrderCreator interface {
	CreateFromCheckout(ctx context.Context, co *cart.Checkout,
		shipping, billing order.Address, charges map[int64]order.Charges) ([]*order.Order, error)
}

// OrderEvents receives fire-and-forget notifications about created orders.
type OrderEvents interface {
	OrderCreated(ctx context.Context, o *order.Order)
}

type PaymentInitiator interface {
	Initiate(ctx context.Context, orderID uuid.UUID, method string) (*payment.Payment, error)
}

type CheckoutHandler struct {
	carts    CheckoutCarts
	orders   OrderCreator
	events   OrderEvents
	payments PaymentInitiator
	log      *zap.SugaredLogger
}

func NewCheckoutHandler(carts CheckoutCarts, orders OrderCreator, events OrderEvents,
	payments PaymentInitiator, log *zap.SugaredLogger) *CheckoutHandler {
	return &CheckoutHandler{carts: carts, orders: orders, events: events, payments: payments, log: log}
}

type StoreChargesDTO struct {
	StoreID  int64           `json:"store_id"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
}

type CheckoutRequestDTO struct {
	ShippingAddress order.Address     `json:"shipping_address"`
	BillingAddress  order.Address     `json:"billing_address"`
	PaymentMethod   string            `json:"payment_method"`
	Charges         []StoreChargesDTO `json:"charges,omitempty"`
}

type CheckoutResponseDTO struct {
	Orders   []*order.Order     `json:"orders"`
	Payments []*payment.Payment `json:"payments"`
}

// Checkout converts the customer's cart into one order per store and starts
// a payment attempt for each. A cart that fails validation returns 422 with
// the findings. The cart is cleared only after every order was created AND
// every payment was initiated; if initiation fails the cart stays so the
// customer can retry without rebuilding it.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ShippingAddress.Line1 == "" || req.ShippingAddress.Country == "" {
		respondError(w, h.log, http.StatusBadRequest, "invalid_address", "shipping address is incomplete")
		return
	}
	if req.BillingAddress.Line1 == "" {
		req.BillingAddress = req.ShippingAddress
	}
	if req.PaymentMethod == "" {
		respondError(w, h.log, http.StatusBadRequest, "invalid_method", "payment method is required")
		return
	}

	co, problems, err := h.carts.PrepareCheckout(r.Context(), customerID)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}
	if len(problems) > 0 {
		respondJSON(w, h.log, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":    "cart validation failed",
			"code":     "cart_invalid",
			"problems": problems,
		})
		return
	}

	charges := make(map[int64]order.Charges, len(req.Charges))
	for _, c := range req.Charges {
		charges[c.StoreID] = order.Charges{Tax: c.Tax, Shipping: c.Shipping, Discount: c.Discount}
	}

	orders, err := h.orders.CreateFromCheckout(r.Context(), co, req.ShippingAddress, req.BillingAddress, charges)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}

	for _, o := range orders {
		h.events.OrderCreated(r.Context(), o)
	}

	payments := make([]*payment.Payment, 0, len(orders))
	for _, o := range orders {
		p, err := h.payments.Initiate(r.Context(), o.ID, req.PaymentMethod)
		if err != nil {
			// Orders exist but the payment flow never started; keep the
			// cart and let the customer retry per order.
			h.log.Errorw("payment initiation failed during checkout",
				"request_id", requestIDFromContext(r.Context()),
				"order", o.Number, "error", err)
			respondJSON(w, h.log, http.StatusPaymentRequired, map[string]interface{}{
				"error":  "payment could not be initiated",
				"code":   "payment_not_initiated",
				"orders": orders,
			})
			return
		}
		payments = append(payments, p)
	}

	if err := h.carts.Clear(r.Context(), customerID); err != nil {
		h.log.Errorw("failed to clear cart after checkout",
			"request_id", requestIDFromContext(r.Context()),
			"customer_id", customerID, "error", err)
	}

	respondJSON(w, h.log, http.StatusCreated, CheckoutResponseDTO{Orders: orders, Payments: payments})
}
