package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

type contextKey string

const (
	customerIDKey contextKey = "customer_id"
	requestIDKey  contextKey = "request_id"
)

// MockAuthMiddleware stands in for real JWT validation: the customer id is
// read from the X-Customer-ID header. Requests without one are rejected by
// the handlers, not here, so unauthenticated endpoints keep working.
func MockAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get("X-Customer-ID"); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
				ctx := context.WithValue(r.Context(), customerIDKey, id)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware tags each request, reusing the caller's id when given.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func customerIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(customerIDKey).(int64); ok {
		return id
	}
	return 0
}

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
