package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fieldStock    = "stock"
	fieldReserved = "reserved"

	// maxRetries bounds the optimistic WATCH loop before giving up.
	maxRetries = 3
)

// RedisLedger implements Ledger on a Redis hash per product. Concurrent
// reservations for the same product are serialized with WATCH-based
// optimistic transactions, retried up to maxRetries.
type RedisLedger struct {
	client *redis.Client
	log    *zap.SugaredLogger
}

func NewRedisLedger(client *redis.Client, log *zap.SugaredLogger) *RedisLedger {
	return &RedisLedger{client: client, log: log}
}

func stockKey(productID int64) string {
	return fmt.Sprintf("inventory:%d", productID)
}

func (l *RedisLedger) Reserve(ctx context.Context, productID int64, qty int32) error {
	key := stockKey(productID)

	txf := func(tx *redis.Tx) error {
		stock, err := readStock(ctx, tx, productID)
		if err != nil {
			return err
		}
		if stock.Available() < qty {
			return &StockError{ProductID: productID, Requested: qty, Available: stock.Available()}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HIncrBy(ctx, key, fieldReserved, int64(qty))
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := l.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue // another reservation won the race, re-read and retry
		}
		return err
	}
	return ErrConflict
}

func (l *RedisLedger) Release(ctx context.Context, productID int64, qty int32) error {
	key := stockKey(productID)

	txf := func(tx *redis.Tx) error {
		stock, err := readStock(ctx, tx, productID)
		if err != nil {
			return err
		}
		release := qty
		if release > stock.Reserved {
			l.log.Warnw("release exceeds reservation, clamping",
				"product_id", productID, "requested", qty, "reserved", stock.Reserved)
			release = stock.Reserved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HIncrBy(ctx, key, fieldReserved, -int64(release))
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := l.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (l *RedisLedger) Commit(ctx context.Context, productID int64, qty int32) error {
	key := stockKey(productID)

	txf := func(tx *redis.Tx) error {
		stock, err := readStock(ctx, tx, productID)
		if err != nil {
			return err
		}
		commit := qty
		if commit > stock.Reserved {
			l.log.Warnw("commit exceeds reservation, clamping",
				"product_id", productID, "requested", qty, "reserved", stock.Reserved)
			commit = stock.Reserved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HIncrBy(ctx, key, fieldStock, -int64(commit))
			pipe.HIncrBy(ctx, key, fieldReserved, -int64(commit))
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := l.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (l *RedisLedger) Stock(ctx context.Context, productID int64) (Stock, error) {
	return readStock(ctx, l.client, productID)
}

func (l *RedisLedger) SetStock(ctx context.Context, productID int64, qty int32) error {
	key := stockKey(productID)
	if err := l.client.HSet(ctx, key, fieldStock, qty, fieldReserved, 0).Err(); err != nil {
		return fmt.Errorf("redis set stock failed: %w", err)
	}
	return nil
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}

// readStock works for both the plain client and a WATCH transaction.
func readStock(ctx context.Context, c redis.Cmdable, productID int64) (Stock, error) {
	vals, err := c.HMGet(ctx, stockKey(productID), fieldStock, fieldReserved).Result()
	if err != nil {
		return Stock{}, fmt.Errorf("redis read stock failed: %w", err)
	}
	if vals[0] == nil {
		return Stock{}, ErrProductNotFound
	}

	stock := Stock{ProductID: productID}
	if _, err := fmt.Sscan(vals[0].(string), &stock.StockQty); err != nil {
		return Stock{}, fmt.Errorf("parse stock qty: %w", err)
	}
	if vals[1] != nil {
		if _, err := fmt.Sscan(vals[1].(string), &stock.Reserved); err != nil {
			return Stock{}, fmt.Errorf("parse reserved qty: %w", err)
		}
	}
	return stock, nil
}
