package bss

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/logging"
	"github.com/thrillee/mnpgateway/internal/metrics"
	"github.com/thrillee/mnpgateway/internal/schedule"
	"github.com/thrillee/mnpgateway/pkg/codes"
)

// Deliverer sends one payload to url.
type Deliverer interface {
	Deliver(ctx context.Context, url string, payload []byte) error
}

// WorkerConfig tunes callback retries.
type WorkerConfig struct {
	Backoff  time.Duration  // delay before the next attempt after a failure
	LockTTL  time.Duration  // claims older than this are taken over
	Location *time.Location // zone of the wall-clock source tables
	Clock    schedule.Clock
}

// Worker drains the callback outbox.
type Worker struct {
	workerID  string
	store     database.Store
	deliverer Deliverer
	cfg       WorkerConfig
}

func NewWorker(store database.Store, deliverer Deliverer, cfg WorkerConfig) *Worker {
	hostname, _ := os.Hostname()
	if cfg.Backoff <= 0 {
		cfg.Backoff = 120 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = schedule.SystemClock{}
	}
	return &Worker{
		workerID:  fmt.Sprintf("%s-%s", hostname, uuid.NewString()),
		store:     store,
		deliverer: deliverer,
		cfg:       cfg,
	}
}

// ProcessBatch is the WorkerFunc compatible function. Only the oldest pending
// callback of each source is claimed, so a request's notifications reach the
// BSS in the order they were produced.
func (w *Worker) ProcessBatch(ctx context.Context, batchSize int) (int, error) {
	logCtx := logging.ContextWithWorkerID(ctx, w.workerID)
	now := w.cfg.Clock.Now().UTC()

	jobs, err := w.store.ClaimDueBSSCallbacks(logCtx, database.ClaimDueBSSCallbacksParams{
		LockedBy:          w.workerID,
		Now:               now,
		LockExpiredBefore: now.Add(-w.cfg.LockTTL),
		RowLimit:          int32(batchSize),
	})
	if err != nil {
		slog.ErrorContext(logCtx, "Failed to claim BSS callbacks", slog.Any("error", err))
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}
	slog.InfoContext(logCtx, "Claimed BSS callbacks", slog.Int("count", len(jobs)))

	delivered := 0
	for _, job := range jobs {
		jobCtx := logging.ContextWithCallbackID(logCtx, job.ID)
		jobCtx = logging.ContextWithJobID(jobCtx, job.SourceID)

		if err := w.deliverer.Deliver(jobCtx, job.Url, job.Payload); err != nil {
			metrics.CallbackDeliveries.WithLabelValues(job.SourceKind, "failed").Inc()
			w.recordFailure(jobCtx, job, err)
			continue
		}
		metrics.CallbackDeliveries.WithLabelValues(job.SourceKind, "delivered").Inc()

		if err := w.recordSuccess(jobCtx, job); err != nil {
			slog.ErrorContext(jobCtx, "Delivered callback could not be recorded", slog.Any("error", err))
			continue
		}
		delivered++
	}

	slog.InfoContext(logCtx, "BSS callback batch completed",
		slog.Int("total", len(jobs)),
		slog.Int("delivered", delivered),
	)
	return delivered, nil
}

func (w *Worker) recordSuccess(ctx context.Context, job database.BssCallback) error {
	now := w.cfg.Clock.Now()
	wall := schedule.ToWall(now, w.cfg.Location)
	return w.store.ExecTx(ctx, func(q database.Querier) error {
		if err := q.MarkBSSCallbackDelivered(ctx, database.MarkBSSCallbackDeliveredParams{
			DeliveredAt: now.UTC(),
			ID:          job.ID,
		}); err != nil {
			return fmt.Errorf("mark callback delivered: %w", err)
		}

		var (
			n   int64
			err error
		)
		switch job.SourceKind {
		case SourcePortability:
			n, err = q.UpdatePortabilityRequestStatusBSS(ctx, database.UpdatePortabilityRequestStatusBSSParams{
				StatusBss: job.DerivedStatusBss,
				Terminal:  job.Terminal,
				UpdatedAt: wall,
				ID:        job.SourceID,
			})
		case SourceReturn:
			n, err = q.UpdateReturnRequestStatusBSS(ctx, database.UpdateReturnRequestStatusBSSParams{
				StatusBss: job.DerivedStatusBss,
				Terminal:  job.Terminal,
				UpdatedAt: wall,
				ID:        job.SourceID,
			})
		case SourcePortOut:
			n, err = q.MarkPortOutItemSubmitted(ctx, database.MarkPortOutItemSubmittedParams{
				StatusBss: job.DerivedStatusBss,
				UpdatedAt: wall,
				ID:        job.SourceID,
			})
		default:
			return fmt.Errorf("unknown callback source kind %q", job.SourceKind)
		}
		if err != nil {
			return fmt.Errorf("update %s status_bss: %w", job.SourceKind, err)
		}
		if n == 0 {
			slog.DebugContext(ctx, "status_bss left unchanged, source already final", slog.String("derived", job.DerivedStatusBss))
		}
		return nil
	})
}

func (w *Worker) recordFailure(ctx context.Context, job database.BssCallback, cause error) {
	msg := cause.Error()
	updated, err := w.store.MarkBSSCallbackFailed(ctx, database.MarkBSSCallbackFailedParams{
		NextAttemptAt: w.cfg.Clock.Now().UTC().Add(w.cfg.Backoff),
		LastError:     &msg,
		ID:            job.ID,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to record callback failure", slog.Any("error", err))
		return
	}
	if updated.Status == codes.CallbackFailed {
		slog.ErrorContext(ctx, "BSS callback exhausted its attempts",
			slog.Int("attempts", int(updated.Attempts)),
			slog.String("source_kind", job.SourceKind),
			slog.Any("error", cause),
		)
		return
	}
	slog.WarnContext(ctx, "BSS callback attempt failed",
		slog.Int("attempts", int(updated.Attempts)),
		slog.Int("max_attempts", int(updated.MaxAttempts)),
		slog.Any("error", cause),
	)
}
