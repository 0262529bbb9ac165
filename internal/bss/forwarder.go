package bss

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
)

// DeliveryError is a non-2xx answer from the BSS webhook.
type DeliveryError struct {
	URL        string
	StatusCode int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("received non-2xx status code (%d) from BSS webhook %s", e.StatusCode, e.URL)
}

// ForwarderConfig holds configuration for the HTTP client.
type ForwarderConfig struct {
	Timeout   time.Duration
	Token     string // sent as a Bearer token when set
	SSLVerify bool
}

// Forwarder POSTs callback payloads to the BSS.
type Forwarder struct {
	config ForwarderConfig
	client *http.Client
}

func NewForwarder(cfg ForwarderConfig) *Forwarder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.SSLVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // SSL_VERIFICATION=false
	}
	return &Forwarder{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}
}

// Deliver sends one JSON payload. Only a 2xx answer counts as delivered.
func (f *Forwarder) Deliver(ctx context.Context, url string, payload []byte) error {
	if url == "" {
		return errors.New("cannot deliver callback: missing webhook URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create BSS webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MNP-Gateway-Callback/1.0")
	if f.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.config.Token)
	}

	slog.DebugContext(ctx, "Sending BSS webhook", slog.String("url", url), slog.String("payload", string(payload)))
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send BSS webhook to %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := &DeliveryError{URL: url, StatusCode: resp.StatusCode}
		slog.WarnContext(ctx, "BSS webhook returned error status",
			slog.Int("http_status", resp.StatusCode),
			slog.Any("error", err),
		)
		return err
	}
	slog.InfoContext(ctx, "Callback delivered to BSS", slog.Int("http_status", resp.StatusCode))
	return nil
}
