package events

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer is the development stand-in for a real email provider: it logs
// the message instead of delivering it.
type LogMailer struct {
	log *zap.SugaredLogger
}

func NewLogMailer(log *zap.SugaredLogger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendEmail(_ context.Context, to, subject, body string) error {
	m.log.Infow("email notification", "to", to, "subject", subject, "body", body)
	return nil
}
