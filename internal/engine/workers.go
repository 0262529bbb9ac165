package engine

import (
	"context"

	"github.com/thrillee/mnpgateway/internal/bss"
	"github.com/thrillee/mnpgateway/internal/italy"
	"github.com/thrillee/mnpgateway/internal/lease"
	"github.com/thrillee/mnpgateway/internal/workers"
	"github.com/thrillee/mnpgateway/pkg/codes"
)

// Workers builds the background side: dispatch pool and dispatcher, the BSS
// callback worker and the Italian action executor. The pool lives until ctx
// ends or the manager drains it.
func (e *Engine) Workers(ctx context.Context, leases lease.Manager) *workers.Manager {
	wc := e.cfg.WorkerConfig
	pool := workers.NewPool(ctx, workers.PoolConfig{
		Size:       wc.PoolSize,
		QueueSize:  wc.QueueSize,
		JobTimeout: wc.RunTimeout,
	})
	dispatcher := workers.NewDispatcher(e.Store, e.Processor, e.Processor, e.Calculator, leases, pool, workers.DispatcherConfig{
		Country:  codes.CountrySpain,
		LeaseTTL: wc.LeaseTTL,
	})

	callbacks := bss.NewWorker(e.Store, bss.NewForwarder(bss.ForwarderConfig{
		Timeout:   e.cfg.BSS.Timeout,
		Token:     e.cfg.BSS.Token,
		SSLVerify: e.cfg.CN.SSLVerify,
	}), bss.WorkerConfig{
		Backoff:  e.cfg.BSS.Backoff,
		LockTTL:  wc.LeaseTTL,
		Location: e.Calculator.Location(codes.CountrySpain),
		Clock:    e.clock,
	})

	actions := italy.NewActionWorker(e.Store, e.Calculator,
		italy.NewSequencer(e.Store, e.Calculator.Location(codes.CountryItaly)),
		italyConfig(e.cfg))

	return workers.NewManager(dispatcher, pool, e.Processor, e.Calculator,
		callbacks.ProcessBatch, actions.ProcessDue, workers.Config{
			Country:           codes.CountrySpain,
			DispatchInterval:  wc.DispatchInterval,
			ReturnInterval:    wc.ReturnInterval,
			PortOutInterval:   wc.PortOutInterval,
			CallbackInterval:  e.cfg.BSS.Interval,
			ItalyInterval:     e.cfg.Italy.ActionInterval,
			DispatchBatchSize: wc.DispatchBatchSize,
			CallbackBatchSize: e.cfg.BSS.BatchSize,
			ItalyBatchSize:    e.cfg.Italy.ActionBatchSize,
			RunTimeout:        wc.RunTimeout,
		})
}
