package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avolkov/go_market/internal/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Orders is the slice of the order orchestrator this package needs.
type Orders interface {
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next order.Status, change order.StatusChange) (*order.Order, error)
}

// Settler computes and records the commission split once a payment lands.
type Settler interface {
	ProcessSplit(ctx context.Context, paymentID uuid.UUID) error
}

// Notifier publishes payment lifecycle events; implementations must never
// block or fail the payment flow.
type Notifier interface {
	PaymentCompleted(ctx context.Context, p *Payment)
	PaymentRefunded(ctx context.Context, p *Payment, r *Refund)
}

// Callback is the provider's webhook body after signature verification.
type Callback struct {
	ProviderPaymentID string `json:"provider_payment_id"`
	Status            Status `json:"status"`
	TransactionID     string `json:"transaction_id"`
	ErrorMessage      string `json:"error_message"`
}

var ErrOrderNotPayable = errors.New("order is not awaiting payment")

type Service struct {
	repo     Repository
	gateway  Gateway
	orders   Orders
	settler  Settler
	notifier Notifier
	fraud    *FraudChecker
	log      *zap.SugaredLogger
}

func NewService(repo Repository, gateway Gateway, orders Orders, settler Settler,
	notifier Notifier, fraud *FraudChecker, log *zap.SugaredLogger) *Service {
	return &Service{
		repo:     repo,
		gateway:  gateway,
		orders:   orders,
		settler:  settler,
		notifier: notifier,
		fraud:    fraud,
		log:      log,
	}
}

// Initiate starts a payment attempt for a pending order. Every attempt is a
// new row; a failed attempt stays on record and a retry starts fresh.
func (s *Service) Initiate(ctx context.Context, orderID uuid.UUID, method string) (*Payment, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusPending {
		return nil, ErrOrderNotPayable
	}

	if s.fraud != nil {
		score, err := s.fraud.Score(ctx, o.CustomerID, o.Total)
		if err != nil {
			return nil, fmt.Errorf("fraud check: %w", err)
		}
		if s.fraud.Suspicious(score) {
			s.log.Warnw("payment blocked by fraud check",
				"order", o.Number, "customer_id", o.CustomerID, "score", score)
			return nil, ErrFraudSuspected
		}
	}

	now := time.Now()
	p := &Payment{
		ID:         uuid.New(),
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		StoreID:    o.StoreID,
		Amount:     o.Total,
		Currency:   o.Currency,
		Method:     method,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	result, err := s.gateway.Initiate(ctx, Request{
		PaymentID:   p.ID,
		OrderNumber: o.Number,
		CustomerID:  o.CustomerID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Method:      method,
	})
	if err != nil {
		p.Status = StatusFailed
		p.ErrorMessage = err.Error()
		if updErr := s.repo.UpdatePayment(ctx, p); updErr != nil {
			s.log.Errorw("failed to record gateway failure", "payment", p.ID, "error", updErr)
		}
		return nil, fmt.Errorf("initiate payment with provider: %w", err)
	}

	if !result.Success {
		p.Status = StatusFailed
		p.ErrorMessage = result.ErrorMessage
		if err := s.repo.UpdatePayment(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}

	p.Status = StatusInitiated
	p.ProviderPaymentID = result.ProviderPaymentID
	p.TransactionID = result.TransactionID
	if err := s.repo.UpdatePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// HandleCallback processes an authenticated provider webhook. The signature
// gate comes first; an unverifiable payload is never parsed.
func (s *Service) HandleCallback(ctx context.Context, signature string, payload []byte) error {
	if !s.gateway.VerifyCallback(signature, payload) {
		return ErrInvalidSignature
	}

	var cb Callback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return fmt.Errorf("decode callback payload: %w", err)
	}

	p, err := s.repo.GetByProviderID(ctx, cb.ProviderPaymentID)
	if err != nil {
		return err
	}

	if !CanTransition(p.Status, cb.Status) {
		return &TransitionError{PaymentID: p.ID, From: p.Status, To: cb.Status}
	}

	p.Status = cb.Status
	if cb.TransactionID != "" {
		p.TransactionID = cb.TransactionID
	}
	if cb.Status == StatusFailed {
		p.ErrorMessage = cb.ErrorMessage
	}
	if err := s.repo.UpdatePayment(ctx, p); err != nil {
		return err
	}

	if cb.Status == StatusCompleted {
		s.onCompleted(ctx, p)
	}
	return nil
}

// onCompleted confirms the order and records the settlement split. The order
// state machine arbitrates races: if the order already left Pending (say a
// cancel landed first), the confirmation is refused and the split is skipped.
func (s *Service) onCompleted(ctx context.Context, p *Payment) {
	if _, err := s.orders.UpdateStatus(ctx, p.OrderID, order.StatusConfirmed, order.StatusChange{}); err != nil {
		s.log.Errorw("payment completed but order could not be confirmed",
			"payment", p.ID, "order_id", p.OrderID, "error", err)
		return
	}

	if s.settler != nil {
		if err := s.settler.ProcessSplit(ctx, p.ID); err != nil {
			s.log.Errorw("settlement split failed", "payment", p.ID, "error", err)
		}
	}
	if s.notifier != nil {
		s.notifier.PaymentCompleted(ctx, p)
	}
}

// Refund sends money back for a completed payment. The amount is validated
// against the remaining refundable balance before the provider is called,
// and the refund row is persisted only when the provider accepts.
func (s *Service) Refund(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, reason string) (*Refund, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusCompleted {
		return nil, ErrNotCompleted
	}

	refunded, err := s.refundedTotal(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if amount.Add(refunded).GreaterThan(p.Amount) {
		return nil, ErrRefundTooLarge
	}

	result, err := s.gateway.ProcessRefund(ctx, RefundRequest{
		ProviderPaymentID: p.ProviderPaymentID,
		Amount:            amount,
		Currency:          p.Currency,
		Reason:            reason,
	})
	if err != nil {
		return nil, fmt.Errorf("process refund with provider: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("provider rejected refund: %s", result.ErrorMessage)
	}

	refund := &Refund{
		ID:               uuid.New(),
		PaymentID:        p.ID,
		Amount:           amount,
		Reason:           reason,
		Status:           RefundCompleted,
		ProviderRefundID: result.ProviderRefundID,
		CreatedAt:        time.Now(),
	}
	if err := s.repo.CreateRefund(ctx, refund); err != nil {
		return nil, err
	}

	// A fully refunded payment moves to its terminal status, and the order
	// follows when its own machine allows it.
	if refunded.Add(amount).Equal(p.Amount) {
		p.Status = StatusRefunded
		if err := s.repo.UpdatePayment(ctx, p); err != nil {
			s.log.Errorw("failed to mark payment refunded", "payment", p.ID, "error", err)
		}
		if _, err := s.orders.UpdateStatus(ctx, p.OrderID, order.StatusRefunded, order.StatusChange{}); err != nil {
			s.log.Warnw("order not moved to refunded", "order_id", p.OrderID, "error", err)
		}
	}

	if s.notifier != nil {
		s.notifier.PaymentRefunded(ctx, p, refund)
	}
	return refund, nil
}

func (s *Service) refundedTotal(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error) {
	refunds, err := s.repo.ListRefunds(ctx, paymentID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range refunds {
		if r.Status == RefundCompleted {
			total = total.Add(r.Amount)
		}
	}
	return total, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Payment, error) {
	return s.repo.ListByOrder(ctx, orderID)
}
