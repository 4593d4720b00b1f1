package settlement

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SplitStatus string

const (
	SplitPending   SplitStatus = "PENDING"
	SplitCompleted SplitStatus = "COMPLETED"
)

var (
	ErrSplitNotFound       = errors.New("settlement split not found")
	ErrSplitExists         = errors.New("settlement split already exists for payment")
	ErrPaymentNotCompleted = errors.New("cannot split a payment that is not completed")
	ErrWrongStore          = errors.New("split does not belong to this store")
	ErrAlreadyReleased     = errors.New("split commission already released")
)

// Split divides one completed payment between the marketplace and the store.
// CommissionAmount plus NetAmount always equals TotalAmount to the cent; the
// commission absorbs the rounding.
type Split struct {
	ID               uuid.UUID
	PaymentID        uuid.UUID
	StoreID          int64
	TotalAmount      decimal.Decimal
	CommissionRate   decimal.Decimal
	CommissionAmount decimal.Decimal
	NetAmount        decimal.Decimal
	Status           SplitStatus
	ProcessedAt      *time.Time
	CreatedAt        time.Time
}
