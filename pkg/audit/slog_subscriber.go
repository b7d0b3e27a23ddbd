package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// SlogSubscriber writes audit events to a structured logger
type SlogSubscriber struct {
	logger *slog.Logger
}

// NewSlogSubscriber creates a subscriber writing to the given logger; a
// nil logger falls back to slog.Default.
func NewSlogSubscriber(logger *slog.Logger) *SlogSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSubscriber{logger: logger}
}

func (s *SlogSubscriber) Notify(ctx context.Context, event Event) {
	attrs := []any{
		"event", string(event.Type),
		"occurred_at", event.OccurredAt,
	}
	if event.UserID != uuid.Nil {
		attrs = append(attrs, "user_id", event.UserID)
	}
	if event.Email != "" {
		attrs = append(attrs, "email", event.Email)
	}
	if event.RequestIP != "" {
		attrs = append(attrs, "request_ip", event.RequestIP)
	}
	if event.UserAgent != "" {
		attrs = append(attrs, "user_agent", event.UserAgent)
	}
	if event.Detail != "" {
		attrs = append(attrs, "detail", event.Detail)
	}

	s.logger.InfoContext(ctx, "Audit event", attrs...)
}
