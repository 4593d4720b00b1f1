package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Cart       *CartHandler
	Checkout   *CheckoutHandler
	Order      *OrderHandler
	Payment    *PaymentHandler
	Settlement *SettlementHandler
}

// NewRouter assembles the public API surface. The payment callback sits
// outside the authenticated tree: providers sign their payloads instead of
// carrying customer credentials.
func NewRouter(h Handlers, log *zap.SugaredLogger, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MockAuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, log, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.Get)
			r.Delete("/", h.Cart.Clear)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", h.Cart.RemoveItem)
			r.Get("/validate", h.Cart.Validate)
		})

		r.Post("/checkout", h.Checkout.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Order.List)
			r.Get("/{order_id}", h.Order.Get)
			r.Delete("/{order_id}", h.Order.Delete)
			r.Patch("/{order_id}/status", h.Order.UpdateStatus)
			r.Post("/{order_id}/payments", h.Payment.Initiate)
			r.Get("/{order_id}/payments", h.Payment.ListByOrder)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/callback", h.Payment.Callback)
			r.Get("/{payment_id}", h.Payment.Get)
			r.Post("/{payment_id}/refunds", h.Payment.Refund)
		})

		r.Route("/stores/{store_id}", func(r chi.Router) {
			r.Get("/orders", h.Order.ListByStore)
			r.Get("/splits", h.Settlement.ListByStore)
			r.Post("/splits/{split_id}/release", h.Settlement.Release)
		})
	})

	return r
}
