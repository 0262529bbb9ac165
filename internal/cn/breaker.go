package cn

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thrillee/mnpgateway/internal/metrics"
)

// CircuitState is the state of an endpoint breaker. Its numeric value is what
// the breaker gauge reports.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreakerConfig tunes the breaker of one CN endpoint.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures that open the breaker
	SuccessThreshold int           // successful probes that close it again
	Timeout          time.Duration // how long an open breaker rejects calls
	Logger           *slog.Logger
	Endpoint         string
	Now              func() time.Time
}

// CircuitBreaker guards one CN endpoint. Transport errors and 5xx answers are
// failures. An open breaker fails calls fast until Timeout has passed and then
// lets probes through; the handlers count a rejected call as a transport
// failure.
type CircuitBreaker struct {
	mu  sync.Mutex
	cfg CircuitBreakerConfig

	state       CircuitState
	failures    int // consecutive, while closed
	probes      int // successful, while half-open
	calls       int
	openedAt    time.Time
	lastFailure time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	metrics.CNBreakerState.WithLabelValues(cfg.Endpoint).Set(float64(CircuitClosed))
	return &CircuitBreaker{cfg: cfg}
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// AllowRequest reports whether a call may go out. An open breaker whose
// timeout has passed moves to half-open and lets the call through as a probe.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != CircuitOpen {
		return true
	}
	if cb.cfg.Now().Sub(cb.openedAt) < cb.cfg.Timeout {
		return false
	}
	cb.enter(CircuitHalfOpen)
	return true
}

func (cb *CircuitBreaker) RecordSuccess() { cb.record(true) }

func (cb *CircuitBreaker) RecordFailure() { cb.record(false) }

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.cfg.Now()
	cb.calls++
	if !ok {
		cb.lastFailure = now
	}

	switch cb.state {
	case CircuitOpen:
		// A call that was already in flight when the breaker opened.
	case CircuitHalfOpen:
		if !ok {
			cb.openedAt = now
			cb.enter(CircuitOpen)
			return
		}
		cb.probes++
		if cb.probes >= cb.cfg.SuccessThreshold {
			cb.enter(CircuitClosed)
		}
	case CircuitClosed:
		if ok {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.openedAt = now
			cb.enter(CircuitOpen)
		}
	}
}

// enter switches state and clears the counters of the new state.
func (cb *CircuitBreaker) enter(to CircuitState) {
	from := cb.state
	cb.state = to
	cb.failures, cb.probes = 0, 0
	metrics.CNBreakerState.WithLabelValues(cb.cfg.Endpoint).Set(float64(to))

	level := slog.LevelInfo
	if to == CircuitOpen {
		level = slog.LevelWarn
	}
	cb.cfg.Logger.Log(context.Background(), level, "CN circuit breaker changed state",
		slog.String("endpoint", cb.cfg.Endpoint),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
}

// Stats is the breaker snapshot reported by /health.
func (cb *CircuitBreaker) Stats() map[string]any {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return map[string]any{
		"state":                cb.state.String(),
		"consecutive_failures": cb.failures,
		"calls":                cb.calls,
		"opened_at":            cb.openedAt,
		"last_failure":         cb.lastFailure,
	}
}
