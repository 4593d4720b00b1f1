package inventory

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryLedger implements Ledger with in-memory storage. A single mutex is
// the serialization point for all reservation decisions.
type MemoryLedger struct {
	mu     sync.RWMutex
	stocks map[int64]*Stock
	log    *zap.SugaredLogger
}

// NewMemoryLedger creates a new in-memory inventory ledger.
func NewMemoryLedger(log *zap.SugaredLogger) *MemoryLedger {
	return &MemoryLedger{
		stocks: make(map[int64]*Stock),
		log:    log,
	}
}

func (l *MemoryLedger) Reserve(_ context.Context, productID int64, qty int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stock, exists := l.stocks[productID]
	if !exists {
		return ErrProductNotFound
	}
	if stock.Available() < qty {
		return &StockError{ProductID: productID, Requested: qty, Available: stock.Available()}
	}

	stock.Reserved += qty
	return nil
}

func (l *MemoryLedger) Release(_ context.Context, productID int64, qty int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stock, exists := l.stocks[productID]
	if !exists {
		return ErrProductNotFound
	}

	if qty > stock.Reserved {
		// Double-release or a bug upstream; clamp at zero and keep going.
		l.log.Warnw("release exceeds reservation, clamping",
			"product_id", productID, "requested", qty, "reserved", stock.Reserved)
		qty = stock.Reserved
	}

	stock.Reserved -= qty
	return nil
}

func (l *MemoryLedger) Commit(_ context.Context, productID int64, qty int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stock, exists := l.stocks[productID]
	if !exists {
		return ErrProductNotFound
	}

	if qty > stock.Reserved {
		l.log.Warnw("commit exceeds reservation, clamping",
			"product_id", productID, "requested", qty, "reserved", stock.Reserved)
		qty = stock.Reserved
	}

	stock.StockQty -= qty
	stock.Reserved -= qty
	return nil
}

func (l *MemoryLedger) Stock(_ context.Context, productID int64) (Stock, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stock, exists := l.stocks[productID]
	if !exists {
		return Stock{}, ErrProductNotFound
	}
	return *stock, nil
}

func (l *MemoryLedger) SetStock(_ context.Context, productID int64, qty int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stocks[productID] = &Stock{
		ProductID: productID,
		StockQty:  qty,
		Reserved:  0,
	}
	return nil
}

func (l *MemoryLedger) Close() error {
	return nil
}
