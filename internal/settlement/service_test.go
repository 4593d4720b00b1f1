package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/avolkov/go_market/internal/directory"
	"github.com/avolkov/go_market/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepository struct {
	byID      map[uuid.UUID]*Split
	byPayment map[uuid.UUID]*Split
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		byID:      make(map[uuid.UUID]*Split),
		byPayment: make(map[uuid.UUID]*Split),
	}
}

func (m *mockRepository) CreateSplit(_ context.Context, split *Split) error {
	if _, ok := m.byPayment[split.PaymentID]; ok {
		return ErrSplitExists
	}
	cp := *split
	m.byID[split.ID] = &cp
	m.byPayment[split.PaymentID] = &cp
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id uuid.UUID) (*Split, error) {
	split, ok := m.byID[id]
	if !ok {
		return nil, ErrSplitNotFound
	}
	cp := *split
	return &cp, nil
}

func (m *mockRepository) GetByPayment(_ context.Context, paymentID uuid.UUID) (*Split, error) {
	split, ok := m.byPayment[paymentID]
	if !ok {
		return nil, ErrSplitNotFound
	}
	cp := *split
	return &cp, nil
}

func (m *mockRepository) ListByStore(_ context.Context, storeID int64) ([]*Split, error) {
	var out []*Split
	for _, split := range m.byID {
		if split.StoreID == storeID {
			out = append(out, split)
		}
	}
	return out, nil
}

func (m *mockRepository) MarkReleased(_ context.Context, id uuid.UUID, at time.Time) error {
	split, ok := m.byID[id]
	if !ok {
		return ErrSplitNotFound
	}
	if split.Status != SplitPending {
		return ErrAlreadyReleased
	}
	split.Status = SplitCompleted
	split.ProcessedAt = &at
	return nil
}

type mockPayments struct {
	payments map[uuid.UUID]*payment.Payment
}

func (m *mockPayments) GetByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return p, nil
}

type mockDirectory struct {
	rates map[int64]decimal.Decimal
}

func (m *mockDirectory) GetCustomer(_ context.Context, id int64) (*directory.Customer, error) {
	return &directory.Customer{ID: id, Active: true}, nil
}

func (m *mockDirectory) GetStore(_ context.Context, id int64) (*directory.Store, error) {
	return &directory.Store{ID: id, Active: true}, nil
}

func (m *mockDirectory) CommissionRate(_ context.Context, storeID int64) (decimal.Decimal, error) {
	if rate, ok := m.rates[storeID]; ok {
		return rate, nil
	}
	return directory.DefaultCommissionRate, nil
}

func completedPayment(amount string, storeID int64) *payment.Payment {
	return &payment.Payment{
		ID:         uuid.New(),
		OrderID:    uuid.New(),
		CustomerID: 42,
		StoreID:    storeID,
		Amount:     decimal.RequireFromString(amount),
		Currency:   "USD",
		Status:     payment.StatusCompleted,
	}
}

func newService(payments ...*payment.Payment) (*Service, *mockRepository) {
	repo := newMockRepository()
	pm := &mockPayments{payments: make(map[uuid.UUID]*payment.Payment)}
	for _, p := range payments {
		pm.payments[p.ID] = p
	}
	dir := &mockDirectory{rates: map[int64]decimal.Decimal{
		20: decimal.RequireFromString("0.15"),
	}}
	return NewService(repo, pm, dir, zap.NewNop().Sugar()), repo
}

func TestSplit_DefaultRate(t *testing.T) {
	p := completedPayment("1000.00", 10)
	svc, _ := newService(p)

	split, err := svc.Split(context.Background(), p.ID)
	require.NoError(t, err)

	assert.True(t, split.CommissionAmount.Equal(decimal.RequireFromString("100.00")),
		"commission was %s", split.CommissionAmount)
	assert.True(t, split.NetAmount.Equal(decimal.RequireFromString("900.00")),
		"net was %s", split.NetAmount)
	assert.Equal(t, SplitPending, split.Status)
	assert.Nil(t, split.ProcessedAt)
}

func TestSplit_StoreSpecificRate(t *testing.T) {
	p := completedPayment("200.00", 20)
	svc, _ := newService(p)

	split, err := svc.Split(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, split.CommissionAmount.Equal(decimal.RequireFromString("30.00")))
	assert.True(t, split.NetAmount.Equal(decimal.RequireFromString("170.00")))
}

func TestSplit_RoundingNeverLosesACent(t *testing.T) {
	// 10% of 43.17 is 4.317; the commission rounds to 4.32 and the net
	// takes the exact remainder.
	p := completedPayment("43.17", 10)
	svc, _ := newService(p)

	split, err := svc.Split(context.Background(), p.ID)
	require.NoError(t, err)

	assert.True(t, split.CommissionAmount.Equal(decimal.RequireFromString("4.32")),
		"commission was %s", split.CommissionAmount)
	assert.True(t, split.NetAmount.Equal(decimal.RequireFromString("38.85")),
		"net was %s", split.NetAmount)
	assert.True(t, split.CommissionAmount.Add(split.NetAmount).Equal(p.Amount))
}

func TestSplit_OddAmount(t *testing.T) {
	// 10% of 100.01 is 10.001; commission rounds to 10.00 and net picks up
	// the extra cent.
	p := completedPayment("100.01", 10)
	svc, _ := newService(p)

	split, err := svc.Split(context.Background(), p.ID)
	require.NoError(t, err)

	assert.True(t, split.CommissionAmount.Equal(decimal.RequireFromString("10.00")),
		"commission was %s", split.CommissionAmount)
	assert.True(t, split.NetAmount.Equal(decimal.RequireFromString("90.01")),
		"net was %s", split.NetAmount)
	assert.True(t, split.CommissionAmount.Add(split.NetAmount).Equal(p.Amount))
}

func TestSplit_Idempotent(t *testing.T) {
	p := completedPayment("100.00", 10)
	svc, repo := newService(p)

	first, err := svc.Split(context.Background(), p.ID)
	require.NoError(t, err)

	second, err := svc.Split(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.byID, 1)
}

func TestSplit_PaymentNotCompleted(t *testing.T) {
	p := completedPayment("100.00", 10)
	p.Status = payment.StatusInitiated
	svc, _ := newService(p)

	_, err := svc.Split(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
}

func TestRelease_HappyPath(t *testing.T) {
	p := completedPayment("100.00", 10)
	svc, _ := newService(p)

	split, err := svc.Split(context.Background(), p.ID)
	require.NoError(t, err)

	released, err := svc.Release(context.Background(), split.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, SplitCompleted, released.Status)
	require.NotNil(t, released.ProcessedAt)
}

func TestRelease_WrongStore(t *testing.T) {
	p := completedPayment("100.00", 10)
	svc, _ := newService(p)

	split, err := svc.Split(context.Background(), p.ID)
	require.NoError(t, err)

	_, err = svc.Release(context.Background(), split.ID, 99)
	assert.ErrorIs(t, err, ErrWrongStore)

	// Still pending and releasable by the right store.
	got, err := svc.GetByPayment(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, SplitPending, got.Status)
}

func TestRelease_Twice(t *testing.T) {
	p := completedPayment("100.00", 10)
	svc, _ := newService(p)

	split, err := svc.Split(context.Background(), p.ID)
	require.NoError(t, err)

	_, err = svc.Release(context.Background(), split.ID, 10)
	require.NoError(t, err)

	_, err = svc.Release(context.Background(), split.ID, 10)
	assert.ErrorIs(t, err, ErrAlreadyReleased)
}
