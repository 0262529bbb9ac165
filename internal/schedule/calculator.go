package schedule

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Status tells how a Result was produced.
type Status string

const (
	StatusInWindow   Status = "IN_WINDOW"
	StatusNextWindow Status = "NEXT_WINDOW"
	StatusFallback   Status = "FALLBACK"
	StatusIgnored    Status = "IGNORED"
)

const (
	// MinHorizon is the shortest delay the calculator hands out.
	MinHorizon = 60 * time.Second
	// FallbackDelay is used when no window opens within ScanDays.
	FallbackDelay = time.Hour
	ScanDays      = 7
	// AnyMessageType registers a plan used for every message type of a country.
	AnyMessageType = "*"
)

var ErrNoPlan = errors.New("no schedule configured")

// Result is the next legal execution instant.
type Result struct {
	Delay  time.Duration
	Status Status
	At     time.Time
}

// Config holds calculator-wide settings.
type Config struct {
	Location      *time.Location
	IgnoreWindows bool
	Jitter        time.Duration
	Clock         Clock
	// Rand returns a value in [0, n). Defaults to math/rand/v2.
	Rand func(n int64) int64
}

// Calculator computes execution times under per-country, per-message-type windows.
type Calculator struct {
	loc           *time.Location
	ignoreWindows bool
	jitter        time.Duration
	clock         Clock
	randFn        func(n int64) int64

	mu    sync.RWMutex
	plans map[string]map[string]Plan // country -> message type -> plan
	locs  map[string]*time.Location  // per-country override
}

func NewCalculator(cfg Config) *Calculator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Int64N
	}
	return &Calculator{
		loc:           cfg.Location,
		ignoreWindows: cfg.IgnoreWindows,
		jitter:        cfg.Jitter,
		clock:         cfg.Clock,
		randFn:        cfg.Rand,
		plans:         make(map[string]map[string]Plan),
		locs:          make(map[string]*time.Location),
	}
}

// Register installs the plan for (country, messageType). Use AnyMessageType
// for the country default.
func (c *Calculator) Register(country, messageType string, plan Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.plans[country] == nil {
		c.plans[country] = make(map[string]Plan)
	}
	c.plans[country][messageType] = plan
}

// SetLocation evaluates a country's windows in loc instead of the default zone.
func (c *Calculator) SetLocation(country string, loc *time.Location) {
	c.mu.Lock()
	c.locs[country] = loc
	c.mu.Unlock()
}

// Location returns the zone a country's windows are evaluated in.
func (c *Calculator) Location(country string) *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if loc, ok := c.locs[country]; ok {
		return loc
	}
	return c.loc
}

// IgnoresWindows reports whether working windows are disabled globally.
func (c *Calculator) IgnoresWindows() bool { return c.ignoreWindows }

// Now is the calculator clock in the default zone.
func (c *Calculator) Now() time.Time { return c.clock.Now().In(c.loc) }

func (c *Calculator) plan(country, messageType string) (Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	byType, ok := c.plans[country]
	if !ok {
		return Plan{}, fmt.Errorf("%w for country %s", ErrNoPlan, country)
	}
	if p, ok := byType[messageType]; ok {
		return p, nil
	}
	if p, ok := byType[AnyMessageType]; ok {
		return p, nil
	}
	return Plan{}, fmt.Errorf("%w for %s message type %s", ErrNoPlan, country, messageType)
}

// NextExecution returns the first legal instant at or after now+baseDelay.
func (c *Calculator) NextExecution(baseDelay time.Duration, messageType, country string, withJitter bool) (Result, error) {
	now := c.clock.Now().In(c.Location(country))
	if baseDelay < 0 {
		baseDelay = 0
	}
	if c.ignoreWindows {
		return Result{Delay: baseDelay, Status: StatusIgnored, At: now.Add(baseDelay)}, nil
	}

	plan, err := c.plan(country, messageType)
	if err != nil {
		return Result{}, err
	}

	candidate := now.Add(max(baseDelay, MinHorizon))
	status := StatusInWindow
	if !plan.Contains(candidate) {
		start, ok := plan.NextStart(candidate, ScanDays)
		if !ok {
			at := now.Add(FallbackDelay)
			return Result{Delay: at.Sub(now), Status: StatusFallback, At: at}, nil
		}
		candidate, status = start, StatusNextWindow
	}

	if withJitter && c.jitter > 0 {
		jittered := candidate.Add(time.Duration(c.randFn(int64(c.jitter) + 1)))
		if plan.Contains(jittered) {
			candidate = jittered
		}
	}
	return Result{Delay: candidate.Sub(now), Status: status, At: candidate}, nil
}

// InWorkingHours reports whether t falls in the country's default windows.
func (c *Calculator) InWorkingHours(country string, t time.Time) bool {
	if c.ignoreWindows {
		return true
	}
	plan, err := c.plan(country, AnyMessageType)
	if err != nil {
		return false
	}
	return plan.Contains(t.In(c.Location(country)))
}
