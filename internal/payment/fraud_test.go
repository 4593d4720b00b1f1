package payment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedHistory(t *testing.T, repo *mockRepository, customerID int64, amounts []string, statuses []Status) {
	t.Helper()
	for i, amount := range amounts {
		require.NoError(t, repo.CreatePayment(context.Background(), &Payment{
			ID:         uuid.New(),
			OrderID:    uuid.New(),
			CustomerID: customerID,
			Amount:     decimal.RequireFromString(amount),
			Status:     statuses[i],
		}))
	}
}

func TestFraudScore_NoHistory(t *testing.T) {
	repo := newMockRepository()
	checker := NewFraudChecker(repo, zap.NewNop().Sugar())

	score, err := checker.Score(context.Background(), 1, decimal.RequireFromString("9999.00"))
	require.NoError(t, err)
	assert.Zero(t, score)
	assert.False(t, checker.Suspicious(score))
}

func TestFraudScore_CleanHistoryNormalAmount(t *testing.T) {
	repo := newMockRepository()
	checker := NewFraudChecker(repo, zap.NewNop().Sugar())

	seedHistory(t, repo, 1,
		[]string{"20.00", "25.00", "30.00"},
		[]Status{StatusCompleted, StatusCompleted, StatusCompleted})

	score, err := checker.Score(context.Background(), 1, decimal.RequireFromString("25.00"))
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestFraudScore_AllFailuresIsNotEnoughAlone(t *testing.T) {
	repo := newMockRepository()
	checker := NewFraudChecker(repo, zap.NewNop().Sugar())

	seedHistory(t, repo, 1,
		[]string{"40.00", "40.00"},
		[]Status{StatusFailed, StatusFailed})

	score, err := checker.Score(context.Background(), 1, decimal.RequireFromString("40.00"))
	require.NoError(t, err)
	assert.InDelta(t, 0.7, score, 0.001)
	assert.False(t, checker.Suspicious(score))
}

func TestFraudScore_FailuresPlusOutlierAmount(t *testing.T) {
	repo := newMockRepository()
	checker := NewFraudChecker(repo, zap.NewNop().Sugar())

	seedHistory(t, repo, 1,
		[]string{"40.00", "40.00"},
		[]Status{StatusFailed, StatusFailed})

	// 5x the average saturates the deviation signal: 0.7 + 0.3 = 1.0.
	score, err := checker.Score(context.Background(), 1, decimal.RequireFromString("200.00"))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 0.001)
	assert.True(t, checker.Suspicious(score))
}

func TestFraudScore_LargeAmountWithCleanHistory(t *testing.T) {
	repo := newMockRepository()
	checker := NewFraudChecker(repo, zap.NewNop().Sugar())

	seedHistory(t, repo, 1,
		[]string{"50.00", "50.00", "50.00", "50.00"},
		[]Status{StatusCompleted, StatusCompleted, StatusCompleted, StatusCompleted})

	// A big purchase alone caps at 0.3 and never blocks a good customer.
	score, err := checker.Score(context.Background(), 1, decimal.RequireFromString("5000.00"))
	require.NoError(t, err)
	assert.InDelta(t, 0.3, score, 0.001)
	assert.False(t, checker.Suspicious(score))
}
