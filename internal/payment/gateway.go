package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request asks the provider to start a payment.
type Request struct {
	PaymentID   uuid.UUID
	OrderNumber string
	CustomerID  int64
	Amount      decimal.Decimal
	Currency    string
	Method      string
}

// Result is the provider's answer to an initiation. When Success is false,
// ErrorMessage holds the provider's reason; nothing else is meaningful.
type Result struct {
	Success           bool
	ProviderPaymentID string
	RedirectURL       string
	TransactionID     string
	ErrorMessage      string
}

type RefundRequest struct {
	ProviderPaymentID string
	Amount            decimal.Decimal
	Currency          string
	Reason            string
}

type RefundResult struct {
	Success          bool
	ProviderRefundID string
	ErrorMessage     string
}

// Gateway is the provider-agnostic payment boundary. All protocol detail
// (request signing, callback signature schemes, wire formats) stays behind
// this interface; the orchestration layer never sees provider payloads.
type Gateway interface {
	Initiate(ctx context.Context, req Request) (*Result, error)
	GetStatus(ctx context.Context, providerPaymentID string) (Status, error)

	// VerifyCallback authenticates a provider callback. A missing or
	// malformed signature must return false; this is a security boundary,
	// not a soft validation.
	VerifyCallback(signature string, payload []byte) bool

	ProcessRefund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}
