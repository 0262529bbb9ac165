package notification

import (
	"context"
	"log/slog"
)

// Notifier defines the interface for alerting operators.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogNotifier writes alerts to the structured log. It is the default until a
// paging integration is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.WarnContext(ctx, "operator alert",
		slog.String("recipient", recipient),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}

// Compile-time check to ensure LogNotifier implements Notifier
var _ Notifier = (*LogNotifier)(nil)
