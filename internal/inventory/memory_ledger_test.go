package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupLedger(t *testing.T) *MemoryLedger {
	ledger := NewMemoryLedger(zap.NewNop().Sugar())
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestMemoryLedger_SetStock_And_Stock(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.SetStock(ctx, 1, 100))

	stock, err := ledger.Stock(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(100), stock.StockQty)
	assert.Equal(t, int32(0), stock.Reserved)
	assert.Equal(t, int32(100), stock.Available())
}

func TestMemoryLedger_Stock_NotFound(t *testing.T) {
	ledger := setupLedger(t)

	_, err := ledger.Stock(context.Background(), 999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMemoryLedger_Reserve_Success(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.SetStock(ctx, 1, 5))

	err := ledger.Reserve(ctx, 1, 2)
	require.NoError(t, err)

	stock, _ := ledger.Stock(ctx, 1)
	assert.Equal(t, int32(5), stock.StockQty)
	assert.Equal(t, int32(2), stock.Reserved)
	assert.Equal(t, int32(3), stock.Available())
}

func TestMemoryLedger_Reserve_InsufficientStock(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.SetStock(ctx, 1, 10))

	err := ledger.Reserve(ctx, 1, 20)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int32(10), stockErr.Available)

	// No mutation on failure
	stock, _ := ledger.Stock(ctx, 1)
	assert.Equal(t, int32(10), stock.Available())
	assert.Equal(t, int32(0), stock.Reserved)
}

func TestMemoryLedger_Reserve_ProductNotFound(t *testing.T) {
	ledger := setupLedger(t)

	err := ledger.Reserve(context.Background(), 999, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMemoryLedger_Release_Clamped(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.SetStock(ctx, 1, 100))
	require.NoError(t, ledger.Reserve(ctx, 1, 10))

	// Double release must never drive the reservation negative
	require.NoError(t, ledger.Release(ctx, 1, 10))
	require.NoError(t, ledger.Release(ctx, 1, 10))

	stock, _ := ledger.Stock(ctx, 1)
	assert.Equal(t, int32(0), stock.Reserved)
	assert.Equal(t, int32(100), stock.Available())
}

func TestMemoryLedger_Commit_Success(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.SetStock(ctx, 1, 100))
	require.NoError(t, ledger.Reserve(ctx, 1, 10))

	require.NoError(t, ledger.Commit(ctx, 1, 10))

	stock, _ := ledger.Stock(ctx, 1)
	assert.Equal(t, int32(90), stock.StockQty)
	assert.Equal(t, int32(0), stock.Reserved)
	assert.Equal(t, int32(90), stock.Available())
}

func TestMemoryLedger_Commit_Clamped(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.SetStock(ctx, 1, 100))
	require.NoError(t, ledger.Reserve(ctx, 1, 5))

	// Committing more than reserved is clamped to the reservation
	require.NoError(t, ledger.Commit(ctx, 1, 10))

	stock, _ := ledger.Stock(ctx, 1)
	assert.Equal(t, int32(95), stock.StockQty)
	assert.Equal(t, int32(0), stock.Reserved)
}

func TestMemoryLedger_ConcurrentReservations(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.SetStock(ctx, 1, 100))

	var wg sync.WaitGroup
	successCount := 0
	var mu sync.Mutex

	// Try to reserve 20 units each, 10 times concurrently.
	// Only 5 should succeed (100 / 20 = 5).
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Reserve(ctx, 1, 20); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 5, successCount)

	stock, _ := ledger.Stock(ctx, 1)
	assert.Equal(t, int32(0), stock.Available())
	assert.Equal(t, int32(100), stock.Reserved)
	assert.LessOrEqual(t, stock.Reserved, stock.StockQty)
}

func TestMemoryLedger_LastUnit_ExactlyOneWinner(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.SetStock(ctx, 1, 1))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.Reserve(ctx, 1, 1)
		}()
	}
	wg.Wait()
	close(results)

	var ok, short int
	for err := range results {
		if err == nil {
			ok++
		} else if assert.ErrorIs(t, err, ErrInsufficientStock) {
			short++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
}
