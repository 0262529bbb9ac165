package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	RequestIDKey     contextKey = "request_id"
	RequestTypeKey   contextKey = "request_type"
	ReferenceCodeKey contextKey = "reference_code"
	MSISDNKey        contextKey = "msisdn"
	CountryKey       contextKey = "country"
	WorkerIDKey      contextKey = "worker_id"
	JobIDKey         contextKey = "job_id"
	CallbackIDKey    contextKey = "callback_id"
	CNOperationKey   contextKey = "cn_operation"
	FileNameKey      contextKey = "file_name"
	ActionIDKey      contextKey = "action_id"
	HTTPRequestIDKey contextKey = "http_request_id"
)

// ContextHandler wraps another slog.Handler and adds attributes from context.
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler creates a handler that extracts values from context.
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

// Handle adds context attributes before calling the wrapped handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range []contextKey{RequestIDKey, JobIDKey, CallbackIDKey, ActionIDKey} {
		if v, ok := ctx.Value(key).(int64); ok {
			r.AddAttrs(slog.Int64(string(key), v))
		}
	}
	for _, key := range []contextKey{
		RequestTypeKey, ReferenceCodeKey, MSISDNKey, CountryKey,
		WorkerIDKey, CNOperationKey, FileNameKey, HTTPRequestIDKey,
	} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			r.AddAttrs(slog.String(string(key), v))
		}
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs and WithGroup keep the context extraction on derived loggers.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// Helper functions to add values to context
func ContextWithRequestID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func ContextWithRequestType(ctx context.Context, requestType string) context.Context {
	return context.WithValue(ctx, RequestTypeKey, requestType)
}

func ContextWithReferenceCode(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, ReferenceCodeKey, ref)
}

func ContextWithMSISDN(ctx context.Context, msisdn string) context.Context {
	return context.WithValue(ctx, MSISDNKey, msisdn)
}

func ContextWithCountry(ctx context.Context, country string) context.Context {
	return context.WithValue(ctx, CountryKey, country)
}

func ContextWithWorkerID(ctx context.Context, workerID string) context.Context {
	return context.WithValue(ctx, WorkerIDKey, workerID)
}

func ContextWithJobID(ctx context.Context, jobID int64) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

func ContextWithCallbackID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, CallbackIDKey, id)
}

func ContextWithCNOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, CNOperationKey, op)
}

func ContextWithFileName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, FileNameKey, name)
}

func ContextWithActionID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ActionIDKey, id)
}

func ContextWithHTTPRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, HTTPRequestIDKey, id)
}
