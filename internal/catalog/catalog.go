package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the read-only view of a catalog entry used by the cart and
// order components. Price is the current list price in Currency.
type Product struct {
	ID        int64
	StoreID   int64
	SellerID  int64
	Name      string
	SKU       string
	Price     decimal.Decimal
	Currency  string
	Active    bool
	CreatedAt time.Time
}

// Products is the catalog lookup collaborator.
type Products interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
}
