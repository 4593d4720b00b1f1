package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Repository is a sqlite-backed Products implementation.
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

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	query := `
		SELECT id, store_id, seller_id, name, sku, price, currency, active, created_at
		FROM products
		WHERE id = ?
	`

	p := &Product{}
	var price string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.StoreID,
		&p.SellerID,
		&p.Name,
		&p.SKU,
		&price,
		&p.Currency,
		&p.Active,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price for product %d: %w", id, err)
	}

	return p, nil
}

// UpsertProduct writes a catalog entry. Used for seeding and by tests.
func (r *Repository) UpsertProduct(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (id, store_id, seller_id, name, sku, price, currency, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			store_id = excluded.store_id,
			seller_id = excluded.seller_id,
			name = excluded.name,
			sku = excluded.sku,
			price = excluded.price,
			currency = excluded.currency,
			active = excluded.active
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.StoreID, p.SellerID, p.Name, p.SKU,
		p.Price.String(), p.Currency, p.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
