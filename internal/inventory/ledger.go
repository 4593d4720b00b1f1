package inventory

import (
	"context"
	"errors"
)

// Common errors returned by ledger implementations
var (
	ErrProductNotFound   = errors.New("product not found in inventory")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("too many concurrent updates for product")
)

// Ledger tracks stock and reservations per product.
//
// Reserve places a temporary hold during checkout; Commit converts the hold
// into a permanent deduction once payment succeeds; Release returns held
// stock to the available pool. Implementations must serialize concurrent
// reservations per product so that available stock is never oversold.
type Ledger interface {
	// Reserve atomically checks available >= qty and increments the
	// reservation. Returns a *StockError (matching ErrInsufficientStock)
	// without mutating anything when stock is short.
	Reserve(ctx context.Context, productID int64, qty int32) error

	// Release decrements the reservation by min(qty, reserved). Releasing
	// more than is reserved is clamped, not an error.
	Release(ctx context.Context, productID int64, qty int32) error

	// Commit permanently deducts a reserved quantity from stock.
	Commit(ctx context.Context, productID int64, qty int32) error

	// Stock returns the current record for a product.
	Stock(ctx context.Context, productID int64) (Stock, error)

	// SetStock initializes or replaces the stock level for a product.
	SetStock(ctx context.Context, productID int64, qty int32) error

	// Close shuts down the ledger and any background processes.
	Close() error
}
