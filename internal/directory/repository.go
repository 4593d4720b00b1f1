package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Repository is a sqlite-backed Directory. It shares the catalog database;
// migrations live under migrations/catalog.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	query := `SELECT id, email, name, active FROM customers WHERE id = ?`

	c := &Customer{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Email, &c.Name, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return c, nil
}

func (r *Repository) GetStore(ctx context.Context, id int64) (*Store, error) {
	query := `SELECT id, name, active, commission_rate FROM stores WHERE id = ?`

	s := &Store{}
	var rate sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.Active, &rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query store: %w", err)
	}

	s.CommissionRate = DefaultCommissionRate
	if rate.Valid && rate.String != "" {
		s.CommissionRate, err = decimal.NewFromString(rate.String)
		if err != nil {
			return nil, fmt.Errorf("invalid commission rate for store %d: %w", id, err)
		}
	}
	return s, nil
}

func (r *Repository) CommissionRate(ctx context.Context, storeID int64) (decimal.Decimal, error) {
	store, err := r.GetStore(ctx, storeID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return store.CommissionRate, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
