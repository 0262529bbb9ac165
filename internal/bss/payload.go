// Package bss delivers state changes to the operator's BSS through a durable
// callback outbox.
package bss

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/pkg/xmlfields"
)

// Source kinds stored in bss_callbacks.source_kind.
const (
	SourcePortability = "portability_request"
	SourceReturn      = "return_request"
	SourcePortOut     = "port_out_item"
)

// Payload is the JSON body POSTed to the BSS webhook.
type Payload struct {
	RequestID         int64                  `json:"request_id"`
	SessionCode       *string                `json:"session_code"`
	ReferenceCode     *string                `json:"reference_code"`
	MSISDN            string                 `json:"msisdn"`
	ResponseCode      *string                `json:"response_code"`
	ResponseStatus    *string                `json:"response_status"`
	Description       *string                `json:"description"`
	ErrorFields       []xmlfields.FieldError `json:"error_fields"`
	PortingWindowDate *string                `json:"porting_window_date"`
}

// Notice is one state change to relay.
type Notice struct {
	Kind             string
	SourceID         int64
	Payload          Payload
	DerivedStatusBSS string // status_bss written once the BSS acknowledged
	Terminal         bool   // the source reached a terminal status_nc
}

// URLs maps source kinds to webhook endpoints.
type URLs struct {
	Default string
	PortOut string
	Return  string
}

func (u URLs) For(kind string) string {
	switch kind {
	case SourcePortOut:
		if u.PortOut != "" {
			return u.PortOut
		}
	case SourceReturn:
		if u.Return != "" {
			return u.Return
		}
	}
	return u.Default
}

// Outbox enqueues callbacks. Callers pass the Querier of the transaction
// that persisted the state change so both commit together.
type Outbox struct {
	urls        URLs
	maxAttempts int32
}

func NewOutbox(urls URLs, maxAttempts int32) *Outbox {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Outbox{urls: urls, maxAttempts: maxAttempts}
}

func (o *Outbox) Enqueue(ctx context.Context, q database.Querier, n Notice, now time.Time) (database.BssCallback, error) {
	if n.Payload.ErrorFields == nil {
		n.Payload.ErrorFields = []xmlfields.FieldError{}
	}
	body, err := json.Marshal(n.Payload)
	if err != nil {
		return database.BssCallback{}, fmt.Errorf("marshal callback payload: %w", err)
	}
	cb, err := q.EnqueueBSSCallback(ctx, database.EnqueueBSSCallbackParams{
		SourceKind:       n.Kind,
		SourceID:         n.SourceID,
		Url:              o.urls.For(n.Kind),
		Payload:          body,
		DerivedStatusBss: n.DerivedStatusBSS,
		Terminal:         n.Terminal,
		MaxAttempts:      o.maxAttempts,
		NextAttemptAt:    now.UTC(),
	})
	if err != nil {
		return database.BssCallback{}, fmt.Errorf("enqueue %s callback for %d: %w", n.Kind, n.SourceID, err)
	}
	return cb, nil
}

// ErrorFieldsJSON renders field errors for the error_fields column; nil when
// there are none.
func ErrorFieldsJSON(fields []xmlfields.FieldError) json.RawMessage {
	if len(fields) == 0 {
		return nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return b
}

// DecodeErrorFields is the inverse of ErrorFieldsJSON.
func DecodeErrorFields(raw json.RawMessage) []xmlfields.FieldError {
	if len(raw) == 0 {
		return nil
	}
	var fields []xmlfields.FieldError
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}
