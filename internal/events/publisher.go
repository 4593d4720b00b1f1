package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avolkov/go_market/internal/order"
	"github.com/avolkov/go_market/internal/payment"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const Topic = "market-events"

const (
	TypeOrderCreated     = "order.created"
	TypePaymentCompleted = "payment.completed"
	TypePaymentRefunded  = "payment.refunded"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits lifecycle events to Kafka. Publishing is fire and forget:
// a broker outage is logged and never fails the business operation that
// produced the event.
type Publisher struct {
	writer messageWriter
	log    *zap.SugaredLogger
}

func NewPublisher(log *zap.SugaredLogger, brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, log: log}
}

type OrderCreatedEvent struct {
	OrderID    string    `json:"order_id"`
	Number     string    `json:"number"`
	CustomerID int64     `json:"customer_id"`
	StoreID    int64     `json:"store_id"`
	Total      string    `json:"total"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

type PaymentCompletedEvent struct {
	PaymentID  string `json:"payment_id"`
	OrderID    string `json:"order_id"`
	CustomerID int64  `json:"customer_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

type PaymentRefundedEvent struct {
	PaymentID  string `json:"payment_id"`
	RefundID   string `json:"refund_id"`
	CustomerID int64  `json:"customer_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Reason     string `json:"reason"`
}

func (p *Publisher) OrderCreated(ctx context.Context, o *order.Order) {
	p.publish(ctx, TypeOrderCreated, o.ID.String(), OrderCreatedEvent{
		OrderID:    o.ID.String(),
		Number:     o.Number,
		CustomerID: o.CustomerID,
		StoreID:    o.StoreID,
		Total:      o.Total.StringFixed(2),
		Currency:   o.Currency,
		CreatedAt:  o.CreatedAt,
	})
}

func (p *Publisher) PaymentCompleted(ctx context.Context, pay *payment.Payment) {
	p.publish(ctx, TypePaymentCompleted, pay.OrderID.String(), PaymentCompletedEvent{
		PaymentID:  pay.ID.String(),
		OrderID:    pay.OrderID.String(),
		CustomerID: pay.CustomerID,
		Amount:     pay.Amount.StringFixed(2),
		Currency:   pay.Currency,
	})
}

func (p *Publisher) PaymentRefunded(ctx context.Context, pay *payment.Payment, r *payment.Refund) {
	p.publish(ctx, TypePaymentRefunded, pay.OrderID.String(), PaymentRefundedEvent{
		PaymentID:  pay.ID.String(),
		RefundID:   r.ID.String(),
		CustomerID: pay.CustomerID,
		Amount:     r.Amount.StringFixed(2),
		Currency:   pay.Currency,
		Reason:     r.Reason,
	})
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, payload interface{}) {
	value, err := json.Marshal(payload)
	if err != nil {
		p.log.Errorw("failed to marshal event", "type", eventType, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(key), // aggregate id for per-order ordering
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Errorw("failed to publish event", "type", eventType, "key", key, "error", err)
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
