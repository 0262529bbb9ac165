package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// WorkerFunc defines the function signature for work performed by a worker loop.
// It returns the number of items processed and any critical error encountered.
type WorkerFunc func(ctx context.Context, batchSize int) (int, error)

// Loop is one periodic job.
type Loop struct {
	Name      string
	Interval  time.Duration
	BatchSize int
	Timeout   time.Duration
	Work      WorkerFunc
}

// runWorkerLoop runs a generic worker function periodically until ctx ends.
func runWorkerLoop(ctx context.Context, l Loop) {
	slog.InfoContext(ctx, "Worker starting",
		slog.String("worker", l.Name),
		slog.Duration("interval", l.Interval),
		slog.Int("batch_size", l.BatchSize),
	)
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Worker stopping", slog.String("worker", l.Name))
			return
		case <-ticker.C:
			runWork(ctx, l)
		}
	}
}

// runWork executes a single batch of work with a timeout.
func runWork(ctx context.Context, l Loop) int {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	processed, err := l.Work(runCtx, l.BatchSize)
	switch {
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		slog.ErrorContext(ctx, "Worker run failed", slog.String("worker", l.Name), slog.Any("error", err))
	case processed > 0:
		slog.InfoContext(ctx, "Worker run completed", slog.String("worker", l.Name), slog.Int("processed", processed))
	}
	// Zero items and no error just means no work was available.
	return processed
}
