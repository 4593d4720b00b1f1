package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresRepository stores splits in the payment_splits table, which ships
// with the payments migration set. The pool is shared with the order store.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepositoryFromDB(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateSplit(ctx context.Context, split *Split) error {
	query := `INSERT INTO payment_splits
		(id, payment_id, store_id, total_amount, commission_rate, commission_amount, net_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`

	_, err := r.db.ExecContext(ctx, query,
		split.ID,
		split.PaymentID,
		split.StoreID,
		split.TotalAmount,
		split.CommissionRate,
		split.CommissionAmount,
		split.NetAmount,
		split.Status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrSplitExists
		}
		return fmt.Errorf("insert payment split: %w", err)
	}
	return nil
}

const splitColumns = `id, payment_id, store_id, total_amount, commission_rate, commission_amount,
	net_amount, status, processed_at, created_at`

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Split, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_splits WHERE id = $1`, splitColumns)
	return r.scanSplit(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByPayment(ctx context.Context, paymentID uuid.UUID) (*Split, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_splits WHERE payment_id = $1`, splitColumns)
	return r.scanSplit(r.db.QueryRowContext(ctx, query, paymentID))
}

func (r *PostgresRepository) ListByStore(ctx context.Context, storeID int64) ([]*Split, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_splits WHERE store_id = $1 ORDER BY created_at DESC`, splitColumns)

	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("query payment splits: %w", err)
	}
	defer rows.Close()

	var splits []*Split
	for rows.Next() {
		split, err := r.scanSplit(rows)
		if err != nil {
			return nil, err
		}
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return splits, nil
}

func (r *PostgresRepository) MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE payment_splits
		SET status = $2, processed_at = $3
		WHERE id = $1 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, id, SplitCompleted, at, SplitPending)
	if err != nil {
		return fmt.Errorf("release payment split: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("release payment split: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing split from one already released.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrAlreadyReleased
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRepository) scanSplit(row rowScanner) (*Split, error) {
	var split Split
	var processedAt sql.NullTime

	err := row.Scan(
		&split.ID,
		&split.PaymentID,
		&split.StoreID,
		&split.TotalAmount,
		&split.CommissionRate,
		&split.CommissionAmount,
		&split.NetAmount,
		&split.Status,
		&processedAt,
		&split.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSplitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment split row: %w", err)
	}

	if processedAt.Valid {
		split.ProcessedAt = &processedAt.Time
	}
	return &split, nil
}
