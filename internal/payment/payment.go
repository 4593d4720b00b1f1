package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInitiated  Status = "INITIATED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusInitiated, StatusFailed, StatusCancelled},
	StatusInitiated:  {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {StatusRefunded},
	StatusFailed:     {},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

func CanTransition(from, to Status) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

var (
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrInvalidTransition = errors.New("invalid payment status transition")
	ErrInvalidSignature  = errors.New("callback signature verification failed")
	ErrNotCompleted      = errors.New("payment is not in completed status")
	ErrRefundTooLarge    = errors.New("refund amount exceeds payment amount")
	ErrFraudSuspected    = errors.New("payment rejected by fraud check")
)

// Payment is one attempt to charge an order. A failed attempt stays on
// record; retrying creates a new row.
type Payment struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	CustomerID        int64
	StoreID           int64
	Amount            decimal.Decimal
	Currency          string
	Method            string
	ProviderPaymentID string
	TransactionID     string
	Status            Status
	ErrorMessage      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type RefundStatus string

const (
	RefundPending   RefundStatus = "PENDING"
	RefundCompleted RefundStatus = "COMPLETED"
	RefundFailed    RefundStatus = "FAILED"
)

// Refund is a child of a completed payment.
type Refund struct {
	ID               uuid.UUID
	PaymentID        uuid.UUID
	Amount           decimal.Decimal
	Reason           string
	Status           RefundStatus
	ProviderRefundID string
	CreatedAt        time.Time
}

// TransitionError mirrors the order package's conflict reporting: the
// caller learns the payment's current status.
type TransitionError struct {
	PaymentID uuid.UUID
	From      Status
	To        Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("payment %s: illegal status transition %s -> %s", e.PaymentID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
