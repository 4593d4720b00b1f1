package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avolkov/go_market/internal/directory"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Mailer delivers customer notifications. Implementations are expected to
// be best effort; the consumer logs failures and moves on.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NotificationConsumer turns marketplace events into customer emails. A
// malformed or undeliverable message is logged and skipped; the stream
// never stalls on one bad event.
type NotificationConsumer struct {
	reader messageReader
	dir    directory.Directory
	mailer Mailer
	log    *zap.SugaredLogger
}

func NewNotificationConsumer(dir directory.Directory, mailer Mailer, log *zap.SugaredLogger, brokers ...string) *NotificationConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  "notifications",
		MaxBytes: 10e6, // 10MB
	})
	return &NotificationConsumer{reader: reader, dir: dir, mailer: mailer, log: log}
}

func (c *NotificationConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *NotificationConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Errorw("error closing kafka reader", "error", err)
	}
}

func (c *NotificationConsumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.log.Errorw("error reading message", "error", err)
		return
	}

	eventType := headerValue(m, "event_type")
	switch eventType {
	case TypeOrderCreated:
		var event OrderCreatedEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			c.log.Errorw("error parsing event", "type", eventType, "error", err)
			return
		}
		c.notify(ctx, event.CustomerID,
			fmt.Sprintf("Order %s received", event.Number),
			fmt.Sprintf("We received your order %s for %s %s.", event.Number, event.Total, event.Currency))

	case TypePaymentCompleted:
		var event PaymentCompletedEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			c.log.Errorw("error parsing event", "type", eventType, "error", err)
			return
		}
		c.notify(ctx, event.CustomerID,
			"Payment received",
			fmt.Sprintf("Your payment of %s %s was received. Your order is confirmed.", event.Amount, event.Currency))

	case TypePaymentRefunded:
		var event PaymentRefundedEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			c.log.Errorw("error parsing event", "type", eventType, "error", err)
			return
		}
		c.notify(ctx, event.CustomerID,
			"Refund issued",
			fmt.Sprintf("A refund of %s %s is on its way back to you.", event.Amount, event.Currency))

	default:
		c.log.Debugw("ignoring event", "type", eventType)
	}
}

func (c *NotificationConsumer) notify(ctx context.Context, customerID int64, subject, body string) {
	customer, err := c.dir.GetCustomer(ctx, customerID)
	if err != nil {
		c.log.Errorw("cannot resolve customer for notification",
			"customer_id", customerID, "error", err)
		return
	}

	if err := c.mailer.SendEmail(ctx, customer.Email, subject, body); err != nil {
		c.log.Errorw("failed to send notification email",
			"customer_id", customerID, "subject", subject, "error", err)
	}
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
