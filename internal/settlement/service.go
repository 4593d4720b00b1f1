package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avolkov/go_market/internal/directory"
	"github.com/avolkov/go_market/internal/payment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Payments is the read slice of the payment store this package needs.
type Payments interface {
	GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error)
}

// Service records how each completed payment is divided between the
// marketplace and the store, and releases the store's share on payout.
type Service struct {
	repo     Repository
	payments Payments
	dir      directory.Directory
	log      *zap.SugaredLogger
}

func NewService(repo Repository, payments Payments, dir directory.Directory, log *zap.SugaredLogger) *Service {
	return &Service{
		repo:     repo,
		payments: payments,
		dir:      dir,
		log:      log,
	}
}

// ProcessSplit computes and records the commission split for a completed
// payment. Calling it twice for the same payment is harmless: the second
// call returns without error and the recorded split stands.
func (s *Service) ProcessSplit(ctx context.Context, paymentID uuid.UUID) error {
	_, err := s.Split(ctx, paymentID)
	return err
}

// Split is ProcessSplit returning the split row, for callers that need the
// amounts.
func (s *Service) Split(ctx context.Context, paymentID uuid.UUID) (*Split, error) {
	if existing, err := s.repo.GetByPayment(ctx, paymentID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrSplitNotFound) {
		return nil, err
	}

	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != payment.StatusCompleted {
		return nil, ErrPaymentNotCompleted
	}

	rate, err := s.dir.CommissionRate(ctx, p.StoreID)
	if err != nil {
		return nil, fmt.Errorf("resolve commission rate for store %d: %w", p.StoreID, err)
	}

	// Round the commission to cents; the net amount is the exact remainder
	// so the two always sum back to the payment total.
	commission := p.Amount.Mul(rate).Round(2)
	net := p.Amount.Sub(commission)

	split := &Split{
		ID:               uuid.New(),
		PaymentID:        p.ID,
		StoreID:          p.StoreID,
		TotalAmount:      p.Amount,
		CommissionRate:   rate,
		CommissionAmount: commission,
		NetAmount:        net,
		Status:           SplitPending,
		CreatedAt:        time.Now(),
	}

	if err := s.repo.CreateSplit(ctx, split); err != nil {
		// Lost a race with a concurrent callback; the winner's row stands.
		if errors.Is(err, ErrSplitExists) {
			return s.repo.GetByPayment(ctx, paymentID)
		}
		return nil, err
	}

	s.log.Infow("payment split recorded",
		"payment", p.ID, "store_id", p.StoreID,
		"total", split.TotalAmount, "commission", split.CommissionAmount, "net", split.NetAmount)
	return split, nil
}

// Release pays out a pending split to its store. The store id guards
// against one store releasing another's money.
func (s *Service) Release(ctx context.Context, splitID uuid.UUID, storeID int64) (*Split, error) {
	split, err := s.repo.GetByID(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if split.StoreID != storeID {
		return nil, ErrWrongStore
	}
	if split.Status != SplitPending {
		return nil, ErrAlreadyReleased
	}

	now := time.Now()
	if err := s.repo.MarkReleased(ctx, splitID, now); err != nil {
		return nil, err
	}

	split.Status = SplitCompleted
	split.ProcessedAt = &now
	return split, nil
}

func (s *Service) GetByPayment(ctx context.Context, paymentID uuid.UUID) (*Split, error) {
	return s.repo.GetByPayment(ctx, paymentID)
}

func (s *Service) ListByStore(ctx context.Context, storeID int64) ([]*Split, error) {
	return s.repo.ListByStore(ctx, storeID)
}
