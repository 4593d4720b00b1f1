package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Decider lets tests and demos control what the sandbox answers; the
// default approves everything.
type Decider interface {
	Decide(req Request) *Result
}

type approveAll struct{}

func (approveAll) Decide(req Request) *Result {
	id := fmt.Sprintf("SPAY-%s", uuid.New())
	return &Result{
		Success:           true,
		ProviderPaymentID: id,
		RedirectURL:       fmt.Sprintf("https://sandbox.pay.example/checkout/%s", id),
		TransactionID:     fmt.Sprintf("TXN-%s", uuid.New()),
	}
}

// SandboxGateway is an in-process provider used for local development and
// tests. Callbacks are authenticated with an HMAC-SHA256 hex signature over
// the raw payload, the scheme real providers commonly use.
type SandboxGateway struct {
	secret  []byte
	decider Decider

	mu       sync.RWMutex
	statuses map[string]Status
}

func NewSandboxGateway(secret []byte, decider Decider) *SandboxGateway {
	if decider == nil {
		decider = approveAll{}
	}
	return &SandboxGateway{
		secret:   secret,
		decider:  decider,
		statuses: make(map[string]Status),
	}
}

func (g *SandboxGateway) Initiate(_ context.Context, req Request) (*Result, error) {
	result := g.decider.Decide(req)
	if result.Success {
		g.mu.Lock()
		g.statuses[result.ProviderPaymentID] = StatusInitiated
		g.mu.Unlock()
	}
	return result, nil
}

func (g *SandboxGateway) GetStatus(_ context.Context, providerPaymentID string) (Status, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	status, ok := g.statuses[providerPaymentID]
	if !ok {
		return "", ErrPaymentNotFound
	}
	return status, nil
}

// SetStatus simulates provider-side progress (used by tests and the demo
// callback endpoint).
func (g *SandboxGateway) SetStatus(providerPaymentID string, status Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[providerPaymentID] = status
}

func (g *SandboxGateway) VerifyCallback(signature string, payload []byte) bool {
	if signature == "" || len(payload) == 0 {
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	return hmac.Equal(provided, mac.Sum(nil))
}

// Sign produces the signature the provider would attach to a callback.
// Exposed so tests and the demo flow can build authentic callbacks.
func (g *SandboxGateway) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *SandboxGateway) ProcessRefund(_ context.Context, req RefundRequest) (*RefundResult, error) {
	g.mu.RLock()
	_, known := g.statuses[req.ProviderPaymentID]
	g.mu.RUnlock()

	if !known {
		return &RefundResult{Success: false, ErrorMessage: "unknown payment"}, nil
	}

	return &RefundResult{
		Success:          true,
		ProviderRefundID: fmt.Sprintf("SRF-%s", uuid.New()),
	}, nil
}
