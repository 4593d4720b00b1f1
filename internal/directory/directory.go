package directory

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrStoreNotFound    = errors.New("store not found")
)

// DefaultCommissionRate applies to stores without a negotiated rate.
var DefaultCommissionRate = decimal.NewFromFloat(0.10)

type Customer struct {
	ID     int64
	Email  string
	Name   string
	Active bool
}

type Store struct {
	ID             int64
	Name           string
	Active         bool
	CommissionRate decimal.Decimal
}

// Directory provides customer/store existence and active-flag checks plus
// the per-store commission rate for settlement.
type Directory interface {
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
	GetStore(ctx context.Context, id int64) (*Store, error)
	CommissionRate(ctx context.Context, storeID int64) (decimal.Decimal, error)
}
