package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresRepository lives in the orders database: the payments tables ship
// in the same migration set and the pool is shared with the order store, so
// there is no dialing constructor or migration runner here.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepositoryFromDB(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreatePayment(ctx context.Context, p *Payment) error {
	query := `INSERT INTO payments
		(id, order_id, customer_id, store_id, amount, currency, method,
		 provider_payment_id, transaction_id, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.OrderID,
		p.CustomerID,
		p.StoreID,
		p.Amount,
		p.Currency,
		p.Method,
		p.ProviderPaymentID,
		p.TransactionID,
		p.Status,
		p.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

const paymentColumns = `id, order_id, customer_id, store_id, amount, currency, method,
	provider_payment_id, transaction_id, status, error_message, created_at, updated_at`

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)
	return r.scanPayment(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByProviderID(ctx context.Context, providerPaymentID string) (*Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE provider_payment_id = $1`, paymentColumns)
	return r.scanPayment(r.db.QueryRowContext(ctx, query, providerPaymentID))
}

func (r *PostgresRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Payment, error) {
	return r.list(ctx, `order_id = $1`, orderID)
}

func (r *PostgresRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*Payment, error) {
	return r.list(ctx, `customer_id = $1`, customerID)
}

func (r *PostgresRepository) list(ctx context.Context, where string, arg interface{}) ([]*Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE %s ORDER BY created_at DESC`, paymentColumns, where)

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return payments, nil
}

func (r *PostgresRepository) UpdatePayment(ctx context.Context, p *Payment) error {
	query := `UPDATE payments
		SET status = $2,
		    provider_payment_id = $3,
		    transaction_id = $4,
		    error_message = $5,
		    updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		p.ID, p.Status, p.ProviderPaymentID, p.TransactionID, p.ErrorMessage)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateRefund(ctx context.Context, refund *Refund) error {
	query := `INSERT INTO refunds
		(id, payment_id, amount, reason, status, provider_refund_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	_, err := r.db.ExecContext(ctx, query,
		refund.ID,
		refund.PaymentID,
		refund.Amount,
		refund.Reason,
		refund.Status,
		refund.ProviderRefundID)
	if err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListRefunds(ctx context.Context, paymentID uuid.UUID) ([]*Refund, error) {
	query := `SELECT id, payment_id, amount, reason, status, provider_refund_id, created_at
		FROM refunds WHERE payment_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("query refunds: %w", err)
	}
	defer rows.Close()

	var refunds []*Refund
	for rows.Next() {
		var ref Refund
		if err := rows.Scan(
			&ref.ID,
			&ref.PaymentID,
			&ref.Amount,
			&ref.Reason,
			&ref.Status,
			&ref.ProviderRefundID,
			&ref.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan refund: %w", err)
		}
		refunds = append(refunds, &ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return refunds, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRepository) scanPayment(row rowScanner) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.CustomerID,
		&p.StoreID,
		&p.Amount,
		&p.Currency,
		&p.Method,
		&p.ProviderPaymentID,
		&p.TransactionID,
		&p.Status,
		&p.ErrorMessage,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment row: %w", err)
	}
	return &p, nil
}
