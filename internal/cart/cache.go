package cart

import (
	"context"
	"errors"
)

type Cache interface {
	Get(ctx context.Context, customerID int64) (*Cart, error)
	Set(ctx context.Context, customerID int64, cart *Cart) error
	Delete(ctx context.Context, customerID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
