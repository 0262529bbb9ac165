package porting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/thrillee/mnpgateway/internal/bss"
	"github.com/thrillee/mnpgateway/internal/cn"
	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/metrics"
	"github.com/thrillee/mnpgateway/internal/schedule"
	"github.com/thrillee/mnpgateway/internal/statemachine"
	"github.com/thrillee/mnpgateway/pkg/codes"
	"github.com/thrillee/mnpgateway/pkg/xmlfields"
)

// errStale means the row became terminal or was rescheduled by another run
// while the handler was talking to CN; the outcome is dropped.
var errStale = errors.New("request changed by another run")

// outcome is what one CN exchange decided for a row. Nil pointers keep the
// stored value.
type outcome struct {
	State          statemachine.State
	ResponseCode   *string
	ResponseStatus *string
	Description    *string
	RejectCode     *string
	ReferenceCode  *string
	SessionCode    *string
	ErrorFields    []xmlfields.FieldError
	PortingWindow  *time.Time
	CNCreatedAt    *time.Time
	CNUpdatedAt    *time.Time
	LastError      string

	Failure   bool // counts against retry_count
	Succeeded bool // a complete CN exchange, resets retry_count
	NextType  string
	Delay     time.Duration
}

// failure reifies a CN error or an unusable reply into a retryable state.
// A 4xx keeps the code and field errors CN sent so the BSS can see them.
func (p *Processor) failure(reply *cn.Reply, err error, nextType string) outcome {
	o := outcome{Failure: true, NextType: nextType, Delay: p.opts.RetryDelay}
	if err == nil {
		o.State = statemachine.PendingNoResponseCode
		o.LastError = "CN answered without codigoRespuesta"
		if reply != nil && reply.Result.Malformed {
			o.LastError = "CN response is not well-formed XML"
		}
		return o
	}

	status := cn.StatusOf(err)
	o.State = statemachine.ClassifyHTTPFailure(status)
	o.LastError = err.Error()
	if status >= 400 && status < 500 {
		code := reply.Code()
		if code == "" {
			code = fmt.Sprintf("%s%d", codes.HTTPResponsePrefix, status)
		}
		o.ResponseCode = &code
		o.Description = reply.Ptr(cn.FieldDescription)
		o.ErrorFields = replyErrors(reply)
	}
	return o
}

func replyErrors(r *cn.Reply) []xmlfields.FieldError {
	if r == nil {
		return nil
	}
	return r.Result.ErrorFields
}

// step is the resolved transition of one row.
type step struct {
	from        statemachine.State
	to          statemachine.State
	retries     int32
	now         time.Time // wall clock
	scheduledAt *time.Time
	completedAt *time.Time
}

func (p *Processor) resolve(ctx context.Context, from statemachine.State, retryCount int32, o *outcome) (step, error) {
	s := step{from: from, retries: retryCount, now: p.wallNow()}
	switch {
	case o.Failure:
		s.retries++
		if s.retries > p.opts.MaxRetries {
			o.State = statemachine.MaxRetriesExceeded
			o.Description = strPtr("maximum retries exceeded: " + o.LastError)
		}
	case o.Succeeded:
		s.retries = 0
	}
	s.to = o.State
	if err := statemachine.CanTransition(from, s.to); err != nil {
		return s, err
	}
	if statemachine.IsTerminal(s.to) {
		now := s.now
		s.completedAt = &now
	} else {
		s.scheduledAt = p.nextRun(ctx, o.Delay, o.NextType)
	}
	return s, nil
}

func errorFieldsColumn(o outcome, stored json.RawMessage) json.RawMessage {
	if len(o.ErrorFields) > 0 {
		return bss.ErrorFieldsJSON(o.ErrorFields)
	}
	if o.Failure {
		return stored
	}
	return nil
}

// finish records metrics and raises the operator alert once a row gives up.
func (p *Processor) finish(ctx context.Context, requestType string, id int64, s step, lastError string) {
	if s.from != s.to {
		metrics.Transitions.WithLabelValues(requestType, string(s.to)).Inc()
		slog.InfoContext(ctx, "Request transitioned",
			slog.String("from", string(s.from)),
			slog.String("to", string(s.to)),
			slog.Int("retry_count", int(s.retries)),
		)
	}
	if s.to != statemachine.MaxRetriesExceeded || s.from == statemachine.MaxRetriesExceeded {
		return
	}
	subject := fmt.Sprintf("%s request %d exceeded %d retries", requestType, id, p.opts.MaxRetries)
	if err := p.notifier.Send(ctx, p.opts.AlertRecipient, subject, lastError); err != nil {
		slog.ErrorContext(ctx, "Failed to send operator alert", slog.Any("error", err))
	}
}

func snapshotOf(state string, code, estado *string) statemachine.Snapshot {
	return statemachine.Snapshot{
		State:          statemachine.State(state),
		ResponseCode:   deref(code),
		ResponseStatus: deref(estado),
	}
}

// derivedStatus is the status_bss a delivered callback writes back.
func derivedStatus(code *string, statusNc string) string {
	if c := deref(code); c != "" {
		return codes.BSSStatusFor(c)
	}
	return codes.BSSStatusFor(statusNc)
}

func formatWall(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := schedule.FormatWall(*t)
	return &s
}

// commitPortability persists o for a portability_requests row and enqueues
// the BSS callback in the same transaction when the change is material.
func (p *Processor) commitPortability(ctx context.Context, row database.PortabilityRequest, o outcome) (database.PortabilityRequest, error) {
	s, err := p.resolve(ctx, statemachine.State(row.StatusNc), row.RetryCount, &o)
	if err != nil {
		return row, err
	}

	params := database.UpdatePortabilityRequestStateParams{
		StatusNc:       string(s.to),
		ReferenceCode:  o.ReferenceCode,
		SessionCodeNc:  o.SessionCode,
		ResponseCode:   firstNonNil(o.ResponseCode, row.ResponseCode),
		ResponseStatus: firstNonNil(o.ResponseStatus, row.ResponseStatus),
		RejectCode:     o.RejectCode,
		Description:    firstNonNil(o.Description, row.Description),
		ErrorFields:    errorFieldsColumn(o, row.ErrorFields),
		LastError:      strPtr(o.LastError),
		RetryCount:     s.retries,
		ScheduledAt:    s.scheduledAt,
		PortingWindow:  o.PortingWindow,
		CompletedAt:    s.completedAt,
		UpdatedAt:      s.now,
		ID:             row.ID,
		TerminalStates: statemachine.TerminalStates(),
		DueAt:          &s.now,
	}

	prev := snapshotOf(row.StatusNc, row.ResponseCode, row.ResponseStatus)
	var updated database.PortabilityRequest
	err = p.store.ExecTx(ctx, func(q database.Querier) error {
		var err error
		updated, err = q.UpdatePortabilityRequestState(ctx, params)
		if err != nil {
			if database.IsNotFound(err) {
				return errStale
			}
			return fmt.Errorf("update portability request %d: %w", row.ID, err)
		}
		if !statemachine.ShouldNotify(prev, snapshotOf(updated.StatusNc, updated.ResponseCode, updated.ResponseStatus)) {
			return nil
		}
		_, err = p.outbox.Enqueue(ctx, q, portabilityNotice(updated), p.sched.Now())
		return err
	})
	if errors.Is(err, errStale) {
		slog.InfoContext(ctx, "Dropping outcome for request changed by another run")
		return row, nil
	}
	if err != nil {
		return row, err
	}
	p.finish(ctx, row.RequestType, row.ID, s, o.LastError)
	return updated, nil
}

func portabilityNotice(r database.PortabilityRequest) bss.Notice {
	return bss.Notice{
		Kind:     bss.SourcePortability,
		SourceID: r.ID,
		Payload: bss.Payload{
			RequestID:         r.ID,
			SessionCode:       r.SessionCode,
			ReferenceCode:     r.ReferenceCode,
			MSISDN:            r.Msisdn,
			ResponseCode:      r.ResponseCode,
			ResponseStatus:    r.ResponseStatus,
			Description:       r.Description,
			ErrorFields:       bss.DecodeErrorFields(r.ErrorFields),
			PortingWindowDate: formatWall(r.PortingWindow),
		},
		DerivedStatusBSS: derivedStatus(r.ResponseCode, r.StatusNc),
		Terminal:         statemachine.IsTerminal(statemachine.State(r.StatusNc)),
	}
}

// commitReturn is commitPortability for return_requests.
func (p *Processor) commitReturn(ctx context.Context, row database.ReturnRequest, o outcome) (database.ReturnRequest, error) {
	s, err := p.resolve(ctx, statemachine.State(row.StatusNc), row.RetryCount, &o)
	if err != nil {
		return row, err
	}

	params := database.UpdateReturnRequestStateParams{
		StatusNc:       string(s.to),
		ReferenceCode:  o.ReferenceCode,
		SessionCodeNc:  o.SessionCode,
		ResponseCode:   firstNonNil(o.ResponseCode, row.ResponseCode),
		ResponseStatus: firstNonNil(o.ResponseStatus, row.ResponseStatus),
		RejectCode:     o.RejectCode,
		Description:    firstNonNil(o.Description, row.Description),
		ErrorFields:    errorFieldsColumn(o, row.ErrorFields),
		LastError:      strPtr(o.LastError),
		RetryCount:     s.retries,
		ScheduledAt:    s.scheduledAt,
		CnCreatedAt:    o.CNCreatedAt,
		CnUpdatedAt:    o.CNUpdatedAt,
		CompletedAt:    s.completedAt,
		UpdatedAt:      s.now,
		ID:             row.ID,
		TerminalStates: statemachine.TerminalStates(),
		DueAt:          &s.now,
	}

	prev := snapshotOf(row.StatusNc, row.ResponseCode, row.ResponseStatus)
	var updated database.ReturnRequest
	err = p.store.ExecTx(ctx, func(q database.Querier) error {
		var err error
		updated, err = q.UpdateReturnRequestState(ctx, params)
		if err != nil {
			if database.IsNotFound(err) {
				return errStale
			}
			return fmt.Errorf("update return request %d: %w", row.ID, err)
		}
		if !statemachine.ShouldNotify(prev, snapshotOf(updated.StatusNc, updated.ResponseCode, updated.ResponseStatus)) {
			return nil
		}
		_, err = p.outbox.Enqueue(ctx, q, returnNotice(updated), p.sched.Now())
		return err
	})
	if errors.Is(err, errStale) {
		slog.InfoContext(ctx, "Dropping outcome for return changed by another run")
		return row, nil
	}
	if err != nil {
		return row, err
	}
	p.finish(ctx, row.RequestType, row.ID, s, o.LastError)
	return updated, nil
}

func returnNotice(r database.ReturnRequest) bss.Notice {
	return bss.Notice{
		Kind:     bss.SourceReturn,
		SourceID: r.ID,
		Payload: bss.Payload{
			RequestID:      r.ID,
			SessionCode:    r.SessionCode,
			ReferenceCode:  r.ReferenceCode,
			MSISDN:         r.Msisdn,
			ResponseCode:   r.ResponseCode,
			ResponseStatus: r.ResponseStatus,
			Description:    r.Description,
			ErrorFields:    bss.DecodeErrorFields(r.ErrorFields),
		},
		DerivedStatusBSS: derivedStatus(r.ResponseCode, r.StatusNc),
		Terminal:         statemachine.IsTerminal(statemachine.State(r.StatusNc)),
	}
}
