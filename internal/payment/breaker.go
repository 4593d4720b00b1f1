package payment

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerGateway shields the orchestration layer from a flapping provider.
// Only network-facing calls go through the breaker; callback verification is
// pure computation and bypasses it.
type BreakerGateway struct {
	inner Gateway
	cb    *gobreaker.CircuitBreaker[any]
	log   *zap.SugaredLogger
}

func NewBreakerGateway(inner Gateway, log *zap.SugaredLogger) *BreakerGateway {
	settings := gobreaker.Settings{
		Name:        "payment-provider",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("payment provider circuit state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &BreakerGateway{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[any](settings),
		log:   log,
	}
}

func (g *BreakerGateway) Initiate(ctx context.Context, req Request) (*Result, error) {
	out, err := g.cb.Execute(func() (any, error) {
		return g.inner.Initiate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Result), nil
}

func (g *BreakerGateway) GetStatus(ctx context.Context, providerPaymentID string) (Status, error) {
	out, err := g.cb.Execute(func() (any, error) {
		return g.inner.GetStatus(ctx, providerPaymentID)
	})
	if err != nil {
		return "", err
	}
	return out.(Status), nil
}

func (g *BreakerGateway) VerifyCallback(signature string, payload []byte) bool {
	return g.inner.VerifyCallback(signature, payload)
}

func (g *BreakerGateway) ProcessRefund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	out, err := g.cb.Execute(func() (any, error) {
		return g.inner.ProcessRefund(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(*RefundResult), nil
}
