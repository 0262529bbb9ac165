package cn

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/thrillee/mnpgateway/internal/config"
	"github.com/thrillee/mnpgateway/internal/logging"
	"github.com/thrillee/mnpgateway/internal/metrics"
)

const maxResponseBytes = 8 << 20

// Endpoint selects one of the CN base URLs.
type Endpoint int

const (
	EndpointAccess Endpoint = iota
	EndpointPortability
	EndpointPortOut
	EndpointBoletin
)

func (e Endpoint) String() string {
	switch e {
	case EndpointAccess:
		return "access"
	case EndpointPortability:
		return "portability"
	case EndpointPortOut:
		return "port_out"
	case EndpointBoletin:
		return "boletin"
	}
	return "unknown"
}

// Client posts SOAP envelopes to CN. Calls are rate limited across all
// endpoints and each endpoint has its own circuit breaker.
type Client struct {
	urls       map[Endpoint]string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breakers   map[Endpoint]*CircuitBreaker
	logger     *slog.Logger
}

// NewClient builds a client from the CN configuration.
func NewClient(cfg config.CNConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.SSLVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // SSL_VERIFICATION=false
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		urls: map[Endpoint]string{
			EndpointAccess:      cfg.AccessURL,
			EndpointPortability: cfg.PortabilityURL,
			EndpointPortOut:     cfg.PortOutURL,
			EndpointBoletin:     cfg.BoletinURL,
		},
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		limiter:    rate.NewLimiter(limit, burst),
		breakers:   make(map[Endpoint]*CircuitBreaker, 4),
		logger:     logger,
	}
	for _, e := range []Endpoint{EndpointAccess, EndpointPortability, EndpointPortOut, EndpointBoletin} {
		c.breakers[e] = NewCircuitBreaker(CircuitBreakerConfig{
			FailureThreshold: cfg.BreakerFailures,
			SuccessThreshold: cfg.BreakerSuccess,
			Timeout:          cfg.BreakerTimeout,
			Logger:           logger,
			Endpoint:         e.String(),
		})
	}
	return c
}

// Breaker exposes the breaker of an endpoint, mainly for health reporting.
func (c *Client) Breaker(e Endpoint) *CircuitBreaker {
	return c.breakers[e]
}

// BreakerStats reports every configured endpoint's breaker, keyed by endpoint name.
func (c *Client) BreakerStats() map[string]any {
	out := make(map[string]any, len(c.breakers))
	for e, b := range c.breakers {
		out[e.String()] = b.Stats()
	}
	return out
}

// Call posts envelope with the given SOAPAction. On a non-2xx answer the body
// is returned together with an *HTTPError so callers can still parse it.
func (c *Client) Call(ctx context.Context, endpoint Endpoint, action string, envelope []byte) ([]byte, error) {
	url := c.urls[endpoint]
	if url == "" {
		return nil, fmt.Errorf("cn %s: no URL configured for %s endpoint", action, endpoint)
	}
	breaker := c.breakers[endpoint]
	if !breaker.AllowRequest() {
		metrics.CNCallDuration.WithLabelValues(action, "circuit_open").Observe(0)
		return nil, fmt.Errorf("cn %s: %w", action, ErrCircuitOpen)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("cn %s: rate limiter: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("cn %s: failed to create HTTP request: %w", action, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)
	req.Header.Set("apikey", c.apiKey)

	ctx = logging.ContextWithCNOperation(ctx, action)
	c.logger.DebugContext(ctx, "Sending SOAP request", slog.String("url", url))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		breaker.RecordFailure()
		metrics.CNCallDuration.WithLabelValues(action, "transport").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("cn %s: HTTP request failed: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	elapsed := time.Since(start).Seconds()
	if err != nil {
		breaker.RecordFailure()
		metrics.CNCallDuration.WithLabelValues(action, "transport").Observe(elapsed)
		return nil, fmt.Errorf("cn %s: failed to read response: %w", action, err)
	}

	switch {
	case resp.StatusCode >= 500:
		breaker.RecordFailure()
		metrics.CNCallDuration.WithLabelValues(action, "http_5xx").Observe(elapsed)
	case resp.StatusCode >= 300:
		breaker.RecordSuccess()
		metrics.CNCallDuration.WithLabelValues(action, "http_4xx").Observe(elapsed)
	default:
		breaker.RecordSuccess()
		metrics.CNCallDuration.WithLabelValues(action, "ok").Observe(elapsed)
		return body, nil
	}

	c.logger.WarnContext(ctx, "CN returned non-2xx status",
		slog.Int("status_code", resp.StatusCode),
		slog.Int("body_bytes", len(body)),
	)
	return body, &HTTPError{Action: action, StatusCode: resp.StatusCode, Body: body}
}

// IsTransport reports whether err means no usable answer was received.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var he *HTTPError
	return !errors.As(err, &he) && !errors.Is(err, ErrSessionFailure)
}
