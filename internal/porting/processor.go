// Package porting drives Spanish portability requests through the Central
// Node: it submits, polls and cancels port-ins and returns, pulls donor-side
// port-out notifications and relays every material change to the BSS.
package porting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thrillee/mnpgateway/internal/bss"
	"github.com/thrillee/mnpgateway/internal/cn"
	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/notification"
	"github.com/thrillee/mnpgateway/internal/schedule"
	"github.com/thrillee/mnpgateway/pkg/xmlfields"
)

// ========================================================================================
// Interfaces the Processor relies on
// ========================================================================================

// CentralNode is the typed CN surface. *cn.Gateway implements it.
type CentralNode interface {
	CreatePortIn(ctx context.Context, req cn.PortInRequest) (*cn.Reply, error)
	CancelPortIn(ctx context.Context, referenceCode, reason string) (*cn.Reply, error)
	ProcessStatus(ctx context.Context, msisdn, referenceCode string) (*cn.Reply, error)
	Processes(ctx context.Context, msisdn string) (*cn.Reply, []xmlfields.Result, error)
	CreateReturn(ctx context.Context, req cn.ReturnRequest) (*cn.Reply, error)
	CancelReturn(ctx context.Context, referenceCode, reason string) (*cn.Reply, error)
	GetPortIn(ctx context.Context, referenceCode string) (*cn.Reply, error)
	QueryNumbering(ctx context.Context, msisdn string) (*cn.Reply, error)
	PortOutPage(ctx context.Context, firstRecord, pageSize int) (*cn.Page, error)
}

// Scheduler hands out legal execution times. *schedule.Calculator implements it.
type Scheduler interface {
	NextExecution(baseDelay time.Duration, messageType, country string, withJitter bool) (schedule.Result, error)
	Location(country string) *time.Location
	Now() time.Time
}

// Schedule message types used for Spanish operations.
const (
	MessageSubmit      = "submit"
	MessageStatusCheck = "status_check"
)

// DefaultCancelReason is sent as causaEstado when the BSS gave none.
const DefaultCancelReason = "CANC_ABONA"

var _ CentralNode = (*cn.Gateway)(nil)

// ========================================================================================
// Processor
// ========================================================================================

// Options tunes retry and scheduling behaviour.
type Options struct {
	Country          string
	MaxRetries       int32
	StatusCheckDelay time.Duration
	RetryDelay       time.Duration
	PortOutPageSize  int
	PortOutMaxPages  int
	AlertRecipient   string
	RecipientCode    string // this operator's CN code
}

// Dependencies holds everything needed to create a Processor.
type Dependencies struct {
	Store     database.Store
	CN        CentralNode
	Scheduler Scheduler
	Outbox    *bss.Outbox
	Notifier  notification.Notifier
	Options   Options
}

// Processor runs the operation handlers. Each handler reads the row, talks to
// CN once and commits the outcome together with any BSS callback.
type Processor struct {
	store    database.Store
	cn       CentralNode
	sched    Scheduler
	outbox   *bss.Outbox
	notifier notification.Notifier
	opts     Options
}

func NewProcessor(deps Dependencies) (*Processor, error) {
	var missing []string
	if deps.Store == nil {
		missing = append(missing, "Store")
	}
	if deps.CN == nil {
		missing = append(missing, "CN")
	}
	if deps.Scheduler == nil {
		missing = append(missing, "Scheduler")
	}
	if deps.Outbox == nil {
		missing = append(missing, "Outbox")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("porting processor missing dependencies: %s", strings.Join(missing, ", "))
	}
	if deps.Notifier == nil {
		deps.Notifier = notification.NewLogNotifier(nil)
	}

	opts := deps.Options
	if opts.Country == "" {
		opts.Country = "ES"
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.StatusCheckDelay <= 0 {
		opts.StatusCheckDelay = 5 * time.Minute
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Minute
	}
	if opts.PortOutPageSize <= 0 {
		opts.PortOutPageSize = 50
	}
	if opts.PortOutMaxPages <= 0 {
		opts.PortOutMaxPages = 20
	}

	return &Processor{
		store:    deps.Store,
		cn:       deps.CN,
		sched:    deps.Scheduler,
		outbox:   deps.Outbox,
		notifier: deps.Notifier,
		opts:     opts,
	}, nil
}

func (p *Processor) location() *time.Location {
	return p.sched.Location(p.opts.Country)
}

// wallNow is the current instant as stored in timestamp-without-time-zone columns.
func (p *Processor) wallNow() time.Time {
	return schedule.ToWall(p.sched.Now(), p.location())
}

// nextRun returns the wall-clock scheduled_at for a non-terminal row.
func (p *Processor) nextRun(ctx context.Context, delay time.Duration, messageType string) *time.Time {
	res, err := p.sched.NextExecution(delay, messageType, p.opts.Country, true)
	if err != nil {
		slog.WarnContext(ctx, "No schedule available, using plain delay",
			slog.String("message_type", messageType),
			slog.Any("error", err),
		)
		res = schedule.Result{At: p.sched.Now().Add(max(delay, schedule.MinHorizon))}
	}
	at := schedule.ToWall(res.At, p.location())
	return &at
}

// parseWindow converts a CN fechaVentanaCambio into a wall-clock value.
func (p *Processor) parseWindow(ctx context.Context, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, err := schedule.ParseCNTime(raw, p.location())
	if err != nil {
		slog.WarnContext(ctx, "Ignoring unparsable CN timestamp", slog.String("value", raw), slog.Any("error", err))
		return nil
	}
	wall := schedule.ToWall(t, p.location())
	return &wall
}

// isDue reports whether a row scheduled at the wall-clock scheduledAt may run now.
func (p *Processor) isDue(scheduledAt *time.Time) bool {
	return scheduledAt == nil || !scheduledAt.After(p.wallNow())
}

// isSessionFailure reports a refused IniciarSesion, which aborts a handler
// without any write. Transport failures are not session failures.
func isSessionFailure(err error) bool {
	return errors.Is(err, cn.ErrSessionFailure)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonNil[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
