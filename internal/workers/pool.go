package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thrillee/mnpgateway/internal/metrics"
)

// Job is one unit of dispatched work. Done is always called, whether Run
// executed or the job was dropped at shutdown.
type Job struct {
	Family string
	Run    func(ctx context.Context) error
	Done   func()
}

type PoolConfig struct {
	Size       int
	QueueSize  int
	JobTimeout time.Duration
}

// Pool is a bounded set of goroutines consuming a job channel.
type Pool struct {
	jobs      chan Job
	g         *errgroup.Group
	timeout   time.Duration
	closeOnce sync.Once
}

// NewPool starts cfg.Size workers that live until ctx ends or Close is called.
func NewPool(ctx context.Context, cfg PoolConfig) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 4
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	g, gctx := errgroup.WithContext(ctx)
	p := &Pool{
		jobs:    make(chan Job, cfg.QueueSize),
		g:       g,
		timeout: cfg.JobTimeout,
	}
	for i := 0; i < cfg.Size; i++ {
		g.Go(func() error {
			p.work(gctx)
			return nil
		})
	}
	return p
}

// Submit queues job, blocking while the queue is full. The caller owns job
// when an error is returned.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for the queued ones. Submit must not
// be called afterwards.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() { close(p.jobs) })
	return p.g.Wait()
}

func (p *Pool) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for job := range p.jobs {
				p.drop(job)
			}
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.run(ctx, job)
		}
	}
}

func (p *Pool) run(ctx context.Context, job Job) {
	if job.Done != nil {
		defer job.Done()
	}
	// A started job finishes even if shutdown begins meanwhile.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := job.Run(runCtx); err != nil {
		metrics.DispatchedJobs.WithLabelValues(job.Family, "error").Inc()
		slog.ErrorContext(runCtx, "Dispatched job failed", slog.String("family", job.Family), slog.Any("error", err))
		return
	}
	metrics.DispatchedJobs.WithLabelValues(job.Family, "ok").Inc()
}

func (p *Pool) drop(job Job) {
	if job.Done != nil {
		job.Done()
	}
	metrics.DispatchedJobs.WithLabelValues(job.Family, "dropped").Inc()
}
