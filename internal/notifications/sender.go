package notifications

import (
	"context"
	"errors"
	"strings"

	"github.com/farmlink/farmlink-backend/pkg/logger"
)

// Email is a rendered message ready for delivery.
type Email struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers rendered emails to the mail provider.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// LogSender writes emails to the structured log instead of a provider.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, email Email) error {
	if strings.TrimSpace(email.To) == "" {
		return errors.New("recipient required")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"email_from":    email.From,
		"email_to":      email.To,
		"email_subject": email.Subject,
		"email_bytes":   len(email.Body),
	}), "email sent")
	return nil
}
