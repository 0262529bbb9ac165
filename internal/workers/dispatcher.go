package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/lease"
	"github.com/thrillee/mnpgateway/internal/logging"
	"github.com/thrillee/mnpgateway/internal/metrics"
	"github.com/thrillee/mnpgateway/internal/schedule"
	"github.com/thrillee/mnpgateway/internal/statemachine"
	"github.com/thrillee/mnpgateway/pkg/codes"
)

// Job families.
const (
	FamilyPortability = "portability"
	FamilyReturn      = "return"
)

// === Interfaces ===

type PortabilityHandler interface {
	HandlePortability(ctx context.Context, row database.PortabilityRequest) error
}

type ReturnHandler interface {
	HandleReturn(ctx context.Context, row database.ReturnRequest) error
}

// Gate tells whether CN may be contacted now.
type Gate interface {
	InWorkingHours(country string, t time.Time) bool
	Location(country string) *time.Location
	Now() time.Time
}

// === Dispatcher ===

type DispatcherConfig struct {
	Country  string
	LeaseTTL time.Duration
}

// Dispatcher hands due rows to the operation handlers. Each row is worked by
// at most one handler at a time, guarded by a lease on its id.
type Dispatcher struct {
	store       database.Store
	portability PortabilityHandler
	returns     ReturnHandler
	gate        Gate
	leases      lease.Manager
	pool        *Pool
	cfg         DispatcherConfig
}

func NewDispatcher(store database.Store, portability PortabilityHandler, returns ReturnHandler, gate Gate, leases lease.Manager, pool *Pool, cfg DispatcherConfig) *Dispatcher {
	if cfg.Country == "" {
		cfg.Country = codes.CountrySpain
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 5 * time.Minute
	}
	return &Dispatcher{
		store:       store,
		portability: portability,
		returns:     returns,
		gate:        gate,
		leases:      leases,
		pool:        pool,
		cfg:         cfg,
	}
}

// open applies the working-hours gate and returns the wall-clock now used to
// select due rows.
func (d *Dispatcher) open(ctx context.Context, family string) (time.Time, bool) {
	now := d.gate.Now()
	if !d.gate.InWorkingHours(d.cfg.Country, now) {
		slog.DebugContext(ctx, "Outside working hours, dispatch skipped", slog.String("family", family))
		return time.Time{}, false
	}
	return schedule.ToWall(now, d.gate.Location(d.cfg.Country)), true
}

// DispatchPortability is the WorkerFunc for port-ins and their cancellations.
func (d *Dispatcher) DispatchPortability(ctx context.Context, batchSize int) (int, error) {
	now, ok := d.open(ctx, FamilyPortability)
	if !ok {
		return 0, nil
	}
	rows, err := d.store.SelectDuePortabilityRequests(ctx, database.SelectDuePortabilityRequestsParams{
		CountryCode:  d.cfg.Country,
		RequestTypes: []string{codes.RequestPortIn, codes.RequestCancellation},
		ActiveStates: statemachine.ActiveStates(),
		Now:          now,
		RowLimit:     int32(batchSize),
	})
	if err != nil {
		return 0, fmt.Errorf("select due portability requests: %w", err)
	}

	dispatched := 0
	for _, row := range rows {
		rowCtx := logging.ContextWithRequestID(ctx, row.ID)
		if d.dispatch(rowCtx, FamilyPortability, row.ID, func(ctx context.Context) error {
			return d.portability.HandlePortability(ctx, row)
		}) {
			dispatched++
		}
	}
	return dispatched, nil
}

// DispatchReturns is the WorkerFunc for returns and their cancellations.
func (d *Dispatcher) DispatchReturns(ctx context.Context, batchSize int) (int, error) {
	now, ok := d.open(ctx, FamilyReturn)
	if !ok {
		return 0, nil
	}
	rows, err := d.store.SelectDueReturnRequests(ctx, database.SelectDueReturnRequestsParams{
		CountryCode:  d.cfg.Country,
		RequestTypes: []string{codes.RequestReturn, codes.RequestReturnCancellation},
		ActiveStates: statemachine.ActiveStates(),
		Now:          now,
		RowLimit:     int32(batchSize),
	})
	if err != nil {
		return 0, fmt.Errorf("select due return requests: %w", err)
	}

	dispatched := 0
	for _, row := range rows {
		rowCtx := logging.ContextWithRequestID(ctx, row.ID)
		if d.dispatch(rowCtx, FamilyReturn, row.ID, func(ctx context.Context) error {
			return d.returns.HandleReturn(ctx, row)
		}) {
			dispatched++
		}
	}
	return dispatched, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, family string, id int64, run func(context.Context) error) bool {
	key := fmt.Sprintf("%s:%d", family, id)
	token, ok, err := d.leases.Acquire(ctx, key, d.cfg.LeaseTTL)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to acquire lease", slog.String("key", key), slog.Any("error", err))
		return false
	}
	if !ok {
		metrics.LeaseContention.WithLabelValues(family).Inc()
		slog.DebugContext(ctx, "Lease held elsewhere, row skipped", slog.String("key", key))
		return false
	}

	release := func() {
		// The row context may be gone by the time the handler returns.
		if err := d.leases.Release(context.WithoutCancel(ctx), key, token); err != nil {
			slog.WarnContext(ctx, "Failed to release lease", slog.String("key", key), slog.Any("error", err))
		}
	}
	job := Job{Family: family, Run: run, Done: release}
	if err := d.pool.Submit(ctx, job); err != nil {
		release()
		return false
	}
	return true
}
