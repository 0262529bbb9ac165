package porting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/thrillee/mnpgateway/internal/cn"
	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/logging"
	"github.com/thrillee/mnpgateway/internal/schedule"
	"github.com/thrillee/mnpgateway/internal/statemachine"
	"github.com/thrillee/mnpgateway/pkg/codes"
)

var ErrUnsupportedType = errors.New("unsupported request type")

// HandlePortability reloads a dispatched portability row and runs the handler
// its current state needs: rows that never reached CN are submitted, the
// others polled. Rows already terminal or not yet due are left alone, so a
// stale dispatch never reaches CN.
func (p *Processor) HandlePortability(ctx context.Context, dispatched database.PortabilityRequest) error {
	ctx, row, ok, err := p.loadPortability(ctx, dispatched.ID)
	if !ok || err != nil {
		return err
	}
	switch row.RequestType {
	case codes.RequestPortIn:
		if row.ReferenceCode == nil {
			return p.submitPortIn(ctx, row)
		}
		return p.pollPortInStatus(ctx, row)
	case codes.RequestCancellation:
		return p.submitCancel(ctx, row)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, row.RequestType)
}

func (p *Processor) loadPortability(ctx context.Context, id int64) (context.Context, database.PortabilityRequest, bool, error) {
	row, err := p.store.GetPortabilityRequest(ctx, id)
	if err != nil {
		return ctx, row, false, fmt.Errorf("load portability request %d: %w", id, err)
	}
	ctx = logging.ContextWithRequestID(ctx, row.ID)
	ctx = logging.ContextWithRequestType(ctx, row.RequestType)
	ctx = logging.ContextWithMSISDN(ctx, row.Msisdn)
	if row.ReferenceCode != nil {
		ctx = logging.ContextWithReferenceCode(ctx, *row.ReferenceCode)
	}
	if statemachine.IsTerminal(statemachine.State(row.StatusNc)) {
		slog.DebugContext(ctx, "Request already terminal, nothing to do", slog.String("status_nc", row.StatusNc))
		return ctx, row, false, nil
	}
	if !p.isDue(row.ScheduledAt) {
		slog.DebugContext(ctx, "Request not due yet", slog.Time("scheduled_at", *row.ScheduledAt))
		return ctx, row, false, nil
	}
	return ctx, row, true, nil
}

// submitPortIn sends CrearSolicitudIndividualAltaPortabilidadMovil for the row.
func (p *Processor) submitPortIn(ctx context.Context, row database.PortabilityRequest) error {
	if row.ReferenceCode != nil {
		slog.InfoContext(ctx, "Port-in already has a reference code, not resubmitting")
		return nil
	}
	if slices.Contains(codes.KnownEstados, deref(row.ResponseStatus)) || deref(row.ResponseCode) == codes.CNAlreadyExists {
		slog.InfoContext(ctx, "Port-in already known to CN, not resubmitting",
			slog.String("response_status", deref(row.ResponseStatus)),
			slog.String("response_code", deref(row.ResponseCode)),
		)
		return nil
	}

	ctx = logging.ContextWithCNOperation(ctx, cn.OpCreatePortIn.Action)
	reply, err := p.cn.CreatePortIn(ctx, p.portInEnvelope(row))
	if isSessionFailure(err) {
		slog.WarnContext(ctx, "CN session refused, port-in left for the next tick", slog.Any("error", err))
		return err
	}

	var o outcome
	if code := reply.Code(); err != nil || code == "" {
		o = p.failure(reply, err, MessageSubmit)
	} else {
		o = outcome{
			State:         statemachine.ClassifyPortInSubmit(code, row.RetryCount),
			ResponseCode:  &code,
			Description:   reply.Ptr(cn.FieldDescription),
			ReferenceCode: reply.Ptr(cn.FieldReferenceCode),
			SessionCode:   strPtr(reply.SessionCode),
			ErrorFields:   replyErrors(reply),
			PortingWindow: p.parseWindow(ctx, reply.Get(cn.FieldPortingWindow)),
			Succeeded:     true,
			NextType:      MessageStatusCheck,
			Delay:         p.opts.StatusCheckDelay,
		}
	}
	_, err = p.commitPortability(ctx, row, o)
	return err
}

func (p *Processor) portInEnvelope(row database.PortabilityRequest) cn.PortInRequest {
	requested := row.CreatedAt
	if row.RequestedAt != nil {
		requested = *row.RequestedAt
	}
	recipient := deref(row.RecipientOperator)
	if recipient == "" {
		recipient = p.opts.RecipientCode
	}

	sub := cn.Subscriber{Document: cn.Document{Type: deref(row.DocumentType), Number: deref(row.DocumentNumber)}}
	if row.IsLegalEntity {
		sub.CompanyName = deref(row.CompanyName)
	} else if row.FirstName != nil {
		sub.Person = &cn.Person{
			Name:          deref(row.FirstName),
			FirstSurname:  deref(row.FirstSurname),
			SecondSurname: deref(row.SecondSurname),
		}
	}

	return cn.PortInRequest{
		RequestDate:       schedule.FromWall(requested, p.location()).Format(time.RFC3339),
		DonorOperator:     deref(row.DonorOperator),
		RecipientOperator: recipient,
		Subscriber:        sub,
		ContractCode:      deref(row.ContractNumber),
		RoutingNumber:     deref(row.RoutingNumber),
		ICCID:             deref(row.Iccid),
		MSISDN:            row.Msisdn,
	}
}

// pollPortInStatus queries the processes of the row's MSISDN and applies the
// estado of the record carrying its reference code.
func (p *Processor) pollPortInStatus(ctx context.Context, row database.PortabilityRequest) error {
	if row.ReferenceCode == nil {
		return fmt.Errorf("port-in %d has no reference code to poll", row.ID)
	}

	ctx = logging.ContextWithCNOperation(ctx, cn.OpQueryProcesses.Action)
	reply, err := p.cn.ProcessStatus(ctx, row.Msisdn, *row.ReferenceCode)
	if isSessionFailure(err) {
		slog.WarnContext(ctx, "CN session refused, status poll left for the next tick", slog.Any("error", err))
		return err
	}

	var o outcome
	estado := reply.Get(cn.FieldEstado)
	if err != nil || estado == "" || !reply.Result.Matched {
		o = p.failure(reply, err, MessageStatusCheck)
	} else {
		state, known := statemachine.ClassifyPortInEstado(estado)
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
			PortingWindow:  p.parseWindow(ctx, reply.Get(cn.FieldPortingWindow)),
			Succeeded:      true,
			NextType:       MessageStatusCheck,
			Delay:          p.opts.StatusCheckDelay,
		}
	}
	_, err = p.commitPortability(ctx, row, o)
	return err
}

// submitCancel sends PeticionCancelarSolicitudAltaPortabilidadMovil. Pending
// answers are re-sent on the next status check until CN settles.
func (p *Processor) submitCancel(ctx context.Context, row database.PortabilityRequest) error {
	if deref(row.ResponseCode) == codes.CNCancelSuccess {
		slog.InfoContext(ctx, "Cancellation already confirmed by CN")
		return nil
	}
	ref := deref(row.ReferenceCode)
	if ref == "" {
		return fmt.Errorf("cancellation %d has no reference code", row.ID)
	}

	ctx = logging.ContextWithCNOperation(ctx, cn.OpCancelPortIn.Action)
	reply, err := p.cn.CancelPortIn(ctx, ref, DefaultCancelReason)
	if isSessionFailure(err) {
		slog.WarnContext(ctx, "CN session refused, cancellation left for the next tick", slog.Any("error", err))
		return err
	}

	var o outcome
	if code := reply.Code(); err != nil || code == "" {
		o = p.failure(reply, err, MessageStatusCheck)
	} else {
		o = cancelOutcome(code, reply, p.opts.StatusCheckDelay)
	}
	_, err = p.commitPortability(ctx, row, o)
	return err
}

func cancelOutcome(code string, reply *cn.Reply, delay time.Duration) outcome {
	state := statemachine.ClassifyCancelResponse(code)
	failed := statemachine.IsFailure(state)
	o := outcome{
		State:        state,
		ResponseCode: &code,
		Description:  reply.Ptr(cn.FieldDescription),
		SessionCode:  strPtr(reply.SessionCode),
		ErrorFields:  replyErrors(reply),
		Failure:      failed,
		Succeeded:    !failed,
		NextType:     MessageStatusCheck,
		Delay:        delay,
	}
	if failed {
		o.LastError = "CN rejected cancellation with " + code
	}
	return o
}
