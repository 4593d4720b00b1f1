package payment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// GetByProviderID resolves the payment a provider callback refers to.
	GetByProviderID(ctx context.Context, providerPaymentID string) (*Payment, error)

	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Payment, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*Payment, error)

	// UpdatePayment persists status, provider ids and the error message.
	UpdatePayment(ctx context.Context, p *Payment) error

	CreateRefund(ctx context.Context, r *Refund) error
	ListRefunds(ctx context.Context, paymentID uuid.UUID) ([]*Refund, error)
}
