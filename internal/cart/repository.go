package cart

import (
	"context"
	"errors"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
)

type Repository interface {
	GetCart(ctx context.Context, customerID int64) (*Cart, error)
	UpsertCart(ctx context.Context, cart *Cart) error
	DeleteCart(ctx context.Context, customerID int64) error
	Close(ctx context.Context) error
}
