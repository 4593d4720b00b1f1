package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

// DB exposes the underlying pool. The payment and settlement stores live in
// the same database and reuse this connection set instead of dialing again.
func (r *PostgresRepository) DB() *sql.DB {
	return r.db
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// CreateOrder writes the order row and all item rows in one transaction so
// an order without items is never observable.
func (r *PostgresRepository) CreateOrder(ctx context.Context, order *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	statusTimes, err := marshalStatusTimes(order.StatusTimes)
	if err != nil {
		return err
	}
	shipping, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}
	billing, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return fmt.Errorf("marshal billing address: %w", err)
	}

	query := `INSERT INTO orders
		(id, number, customer_id, store_id, currency, subtotal, tax, shipping, discount, total,
		 status, tracking_number, shipping_address, billing_address, status_times, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.Number,
		order.CustomerID,
		order.StoreID,
		order.Currency,
		order.Subtotal,
		order.Tax,
		order.Shipping,
		order.Discount,
		order.Total,
		order.Status,
		order.TrackingNumber,
		shipping,
		billing,
		statusTimes)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateNumber
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	itemQuery := `INSERT INTO order_items
		(order_id, product_id, variant_id, product_name, sku, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			order.ID,
			item.ProductID,
			item.VariantID,
			item.ProductName,
			item.SKU,
			item.Quantity,
			item.UnitPrice,
			item.LineTotal,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order transaction: %w", err)
	}
	return nil
}

const orderColumns = `id, number, customer_id, store_id, currency, subtotal, tax, shipping, discount, total,
	status, tracking_number, shipping_address, billing_address, status_times, created_at, updated_at`

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PostgresRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*Order, error) {
	return r.list(ctx, `customer_id = $1`, customerID)
}

func (r *PostgresRepository) ListByStore(ctx context.Context, storeID int64) ([]*Order, error) {
	return r.list(ctx, `store_id = $1`, storeID)
}

func (r *PostgresRepository) list(ctx context.Context, where string, arg interface{}) ([]*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s ORDER BY created_at DESC`, orderColumns, where)

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, trackingNumber string, at time.Time) error {
	query := `UPDATE orders
		SET status = $2,
		    tracking_number = CASE WHEN $3 <> '' THEN $3 ELSE tracking_number END,
		    status_times = status_times || $4::jsonb,
		    updated_at = NOW()
		WHERE id = $1`

	stamp, err := json.Marshal(map[string]time.Time{string(status): at})
	if err != nil {
		return fmt.Errorf("marshal status timestamp: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, id, status, trackingNumber, stamp)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	return tx.Commit()
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRepository) scanOrder(row rowScanner) (*Order, error) {
	var order Order
	var shipping, billing, statusTimes []byte

	err := row.Scan(
		&order.ID,
		&order.Number,
		&order.CustomerID,
		&order.StoreID,
		&order.Currency,
		&order.Subtotal,
		&order.Tax,
		&order.Shipping,
		&order.Discount,
		&order.Total,
		&order.Status,
		&order.TrackingNumber,
		&shipping,
		&billing,
		&statusTimes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order row: %w", err)
	}

	if err := json.Unmarshal(shipping, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(billing, &order.BillingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal billing address: %w", err)
	}
	if len(statusTimes) > 0 {
		var raw map[string]time.Time
		if err := json.Unmarshal(statusTimes, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal status times: %w", err)
		}
		order.StatusTimes = make(map[Status]time.Time, len(raw))
		for k, v := range raw {
			order.StatusTimes[Status(k)] = v
		}
	}
	return &order, nil
}

func (r *PostgresRepository) loadItems(ctx context.Context, order *Order) error {
	query := `SELECT product_id, variant_id, product_name, sku, quantity, unit_price, line_total
		FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ProductID,
			&item.VariantID,
			&item.ProductName,
			&item.SKU,
			&item.Quantity,
			&item.UnitPrice,
			&item.LineTotal,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func marshalStatusTimes(times map[Status]time.Time) ([]byte, error) {
	if times == nil {
		return []byte(`{}`), nil
	}
	raw := make(map[string]time.Time, len(times))
	for k, v := range times {
		raw[string(k)] = v
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal status times: %w", err)
	}
	return data, nil
}
