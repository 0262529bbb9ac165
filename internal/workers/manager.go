package workers

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thrillee/mnpgateway/pkg/codes"
)

// PortOutPoller reads CN port-out notifications.
type PortOutPoller interface {
	PollPortOutNotifications(ctx context.Context) (int, error)
}

// Config holds configuration for worker intervals and batch sizes.
type Config struct {
	Country           string
	DispatchInterval  time.Duration
	ReturnInterval    time.Duration
	PortOutInterval   time.Duration
	CallbackInterval  time.Duration
	ItalyInterval     time.Duration
	DispatchBatchSize int
	CallbackBatchSize int
	ItalyBatchSize    int
	RunTimeout        time.Duration
}

// Manager orchestrates the background worker loops.
type Manager struct {
	dispatcher *Dispatcher
	pool       *Pool
	portOut    PortOutPoller
	gate       Gate
	callbacks  WorkerFunc // nil disables the loop
	italy      WorkerFunc // nil disables the loop
	cfg        Config
}

func NewManager(dispatcher *Dispatcher, pool *Pool, portOut PortOutPoller, gate Gate, callbacks, italy WorkerFunc, cfg Config) *Manager {
	if cfg.Country == "" {
		cfg.Country = codes.CountrySpain
	}
	return &Manager{
		dispatcher: dispatcher,
		pool:       pool,
		portOut:    portOut,
		gate:       gate,
		callbacks:  callbacks,
		italy:      italy,
		cfg:        cfg,
	}
}

// Loops lists the periodic jobs the manager runs.
func (m *Manager) Loops() []Loop {
	loops := []Loop{
		{Name: "Portability-Dispatch", Interval: m.cfg.DispatchInterval, BatchSize: m.cfg.DispatchBatchSize, Work: m.dispatcher.DispatchPortability},
		{Name: "Return-Dispatch", Interval: m.cfg.ReturnInterval, BatchSize: m.cfg.DispatchBatchSize, Work: m.dispatcher.DispatchReturns},
	}
	if m.portOut != nil {
		loops = append(loops, Loop{Name: "PortOut-Poll", Interval: m.cfg.PortOutInterval, Work: m.pollPortOut})
	}
	if m.callbacks != nil {
		loops = append(loops, Loop{Name: "BSS-Callbacks", Interval: m.cfg.CallbackInterval, BatchSize: m.cfg.CallbackBatchSize, Work: m.callbacks})
	}
	if m.italy != nil {
		loops = append(loops, Loop{Name: "Italy-Actions", Interval: m.cfg.ItalyInterval, BatchSize: m.cfg.ItalyBatchSize, Work: m.italy})
	}
	for i := range loops {
		loops[i].Timeout = m.cfg.RunTimeout
	}
	return loops
}

// Run starts every loop and blocks until ctx ends, then drains the pool.
func (m *Manager) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range m.Loops() {
		if l.Interval <= 0 {
			slog.WarnContext(ctx, "Worker disabled, no interval configured", slog.String("worker", l.Name))
			continue
		}
		g.Go(func() error {
			runWorkerLoop(gctx, l)
			return nil
		})
	}
	err := g.Wait()

	slog.InfoContext(ctx, "Worker loops stopped, draining dispatch pool")
	if perr := m.pool.Close(); err == nil {
		err = perr
	}
	return err
}

// pollPortOut is the WorkerFunc for the port-out notification poll. CN is
// only asked during working hours.
func (m *Manager) pollPortOut(ctx context.Context, _ int) (int, error) {
	if !m.gate.InWorkingHours(m.cfg.Country, m.gate.Now()) {
		return 0, nil
	}
	return m.portOut.PollPortOutNotifications(ctx)
}
