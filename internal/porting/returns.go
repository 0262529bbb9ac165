package porting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thrillee/mnpgateway/internal/cn"
	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/logging"
	"github.com/thrillee/mnpgateway/internal/schedule"
	"github.com/thrillee/mnpgateway/internal/statemachine"
	"github.com/thrillee/mnpgateway/pkg/codes"
)

// HandleReturn reloads a dispatched return row and runs the handler its
// current state needs.
func (p *Processor) HandleReturn(ctx context.Context, dispatched database.ReturnRequest) error {
	ctx, row, ok, err := p.loadReturn(ctx, dispatched.ID)
	if !ok || err != nil {
		return err
	}
	switch row.RequestType {
	case codes.RequestReturn:
		if row.ReferenceCode == nil {
			return p.submitReturn(ctx, row)
		}
		return p.pollReturnStatus(ctx, row)
	case codes.RequestReturnCancellation:
		return p.submitCancelReturn(ctx, row)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, row.RequestType)
}

func (p *Processor) loadReturn(ctx context.Context, id int64) (context.Context, database.ReturnRequest, bool, error) {
	row, err := p.store.GetReturnRequest(ctx, id)
	if err != nil {
		return ctx, row, false, fmt.Errorf("load return request %d: %w", id, err)
	}
	ctx = logging.ContextWithRequestID(ctx, row.ID)
	ctx = logging.ContextWithRequestType(ctx, row.RequestType)
	ctx = logging.ContextWithMSISDN(ctx, row.Msisdn)
	if row.ReferenceCode != nil {
		ctx = logging.ContextWithReferenceCode(ctx, *row.ReferenceCode)
	}
	if statemachine.IsTerminal(statemachine.State(row.StatusNc)) {
		slog.DebugContext(ctx, "Return already terminal, nothing to do", slog.String("status_nc", row.StatusNc))
		return ctx, row, false, nil
	}
	if !p.isDue(row.ScheduledAt) {
		slog.DebugContext(ctx, "Return not due yet", slog.Time("scheduled_at", *row.ScheduledAt))
		return ctx, row, false, nil
	}
	return ctx, row, true, nil
}

// submitReturn sends peticionCrearSolicitudBajaNumeracionMovil.
func (p *Processor) submitReturn(ctx context.Context, row database.ReturnRequest) error {
	if row.ReferenceCode != nil {
		slog.InfoContext(ctx, "Return already has a reference code, not resubmitting")
		return nil
	}

	requested := row.CreatedAt
	if row.RequestDate != nil {
		requested = *row.RequestDate
	}
	req := cn.ReturnRequest{
		RequestDate:   schedule.FromWall(requested, p.location()).Format(time.RFC3339),
		DonorOperator: deref(row.DonorOperator),
		MSISDN:        row.Msisdn,
	}
	if row.DocumentType != nil && row.DocumentNumber != nil {
		req.Document = &cn.Document{Type: *row.DocumentType, Number: *row.DocumentNumber}
	}

	ctx = logging.ContextWithCNOperation(ctx, cn.OpCreateReturn.Action)
	reply, err := p.cn.CreateReturn(ctx, req)
	if isSessionFailure(err) {
		slog.WarnContext(ctx, "CN session refused, return left for the next tick", slog.Any("error", err))
		return err
	}

	var o outcome
	if code := reply.Code(); err != nil || code == "" {
		o = p.failure(reply, err, MessageSubmit)
	} else {
		o = outcome{
			State:         statemachine.ClassifyReturnSubmit(code, row.RetryCount),
			ResponseCode:  &code,
			Description:   reply.Ptr(cn.FieldDescription),
			ReferenceCode: reply.Ptr(cn.FieldReferenceCode),
			SessionCode:   strPtr(reply.SessionCode),
			ErrorFields:   replyErrors(reply),
			Succeeded:     true,
			NextType:      MessageStatusCheck,
			Delay:         p.opts.StatusCheckDelay,
		}
	}
	_, err = p.commitReturn(ctx, row, o)
	return err
}

// pollReturnStatus applies the estado CN reports for the return's reference.
func (p *Processor) pollReturnStatus(ctx context.Context, row database.ReturnRequest) error {
	if row.ReferenceCode == nil {
		return fmt.Errorf("return %d has no reference code to poll", row.ID)
	}

	ctx = logging.ContextWithCNOperation(ctx, cn.OpQueryProcesses.Action)
	reply, err := p.cn.ProcessStatus(ctx, row.Msisdn, *row.ReferenceCode)
	if isSessionFailure(err) {
		slog.WarnContext(ctx, "CN session refused, return poll left for the next tick", slog.Any("error", err))
		return err
	}

	var o outcome
	estado := reply.Get(cn.FieldEstado)
	if err != nil || estado == "" || !reply.Result.Matched {
		o = p.failure(reply, err, MessageStatusCheck)
	} else {
		state, known := statemachine.ClassifyReturnEstado(estado)
		if !known {
			slog.WarnContext(ctx, "Unrecognised CN estado", slog.String("estado", estado))
			state = statemachine.PendingConfirmation
		}
		o = outcome{
			State:          state,
			ResponseCode:   reply.Ptr(cn.FieldResponseCode),
			ResponseStatus: &estado,
			Description:    reply.Ptr(cn.FieldDescription),
			RejectCode:     reply.Ptr(cn.FieldRejectCause),
			SessionCode:    strPtr(reply.SessionCode),
			CNCreatedAt:    p.parseWindow(ctx, reply.Get(cn.FieldCreatedAt)),
			CNUpdatedAt:    p.parseWindow(ctx, reply.Get(cn.FieldUpdatedAt)),
			Succeeded:      true,
			NextType:       MessageStatusCheck,
			Delay:          p.opts.StatusCheckDelay,
		}
	}
	_, err = p.commitReturn(ctx, row, o)
	return err
}

// submitCancelReturn sends peticionCancelarSolicitudBajaNumeracionMovil.
func (p *Processor) submitCancelReturn(ctx context.Context, row database.ReturnRequest) error {
	if deref(row.ResponseCode) == codes.CNCancelSuccess {
		slog.InfoContext(ctx, "Return cancellation already confirmed by CN")
		return nil
	}
	ref := deref(row.ReferenceCode)
	if ref == "" {
		return fmt.Errorf("return cancellation %d has no reference code", row.ID)
	}
	reason := deref(row.CancellationReason)
	if reason == "" {
		reason = DefaultCancelReason
	}

	ctx = logging.ContextWithCNOperation(ctx, cn.OpCancelReturn.Action)
	reply, err := p.cn.CancelReturn(ctx, ref, reason)
	if isSessionFailure(err) {
		slog.WarnContext(ctx, "CN session refused, return cancellation left for the next tick", slog.Any("error", err))
		return err
	}

	var o outcome
	if code := reply.Code(); err != nil || code == "" {
		o = p.failure(reply, err, MessageStatusCheck)
	} else {
		o = cancelOutcome(code, reply, p.opts.StatusCheckDelay)
	}
	_, err = p.commitReturn(ctx, row, o)
	return err
}
