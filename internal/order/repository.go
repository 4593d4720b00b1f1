package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateNumber   = errors.New("order number already exists")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNotDeletable      = errors.New("only pending orders can be deleted")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Repository interface {
	// CreateOrder persists the order and its items in a single transaction.
	// A colliding order number returns ErrDuplicateNumber.
	CreateOrder(ctx context.Context, order *Order) error

	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*Order, error)
	ListByStore(ctx context.Context, storeID int64) ([]*Order, error)

	// UpdateStatus persists a status change and its transition timestamp.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, trackingNumber string, at time.Time) error

	// Delete removes an order and its items. Callers must enforce the
	// pending-only rule before calling.
	Delete(ctx context.Context, id uuid.UUID) error

	RunMigrations(*Credentials) error
	Close() error
}
