package porting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/thrillee/mnpgateway/internal/cn"
	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/logging"
	"github.com/thrillee/mnpgateway/internal/schedule"
	"github.com/thrillee/mnpgateway/internal/statemachine"
	"github.com/thrillee/mnpgateway/pkg/codes"
	"github.com/thrillee/mnpgateway/pkg/xmlfields"
)

var (
	ErrNotFound      = errors.New("request not found")
	ErrNotSubmitted  = errors.New("request has no CN reference yet")
	ErrAlreadyClosed = errors.New("request is already terminal")
	ErrUpstream      = errors.New("central node unavailable")
)

// Search limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// PortInInput is a port-in accepted from the BSS.
type PortInInput struct {
	SessionCode       string
	MSISDN            string
	ICCID             string
	DonorOperator     string
	RecipientOperator string
	DocumentType      string
	DocumentNumber    string
	FirstName         string
	FirstSurname      string
	SecondSurname     string
	CompanyName       string
	ContractNumber    string
	RoutingNumber     string
	RequestedAt       *time.Time
}

// CancelInput names the port-in to cancel, by id or by reference code.
type CancelInput struct {
	SessionCode   string
	RequestID     int64
	ReferenceCode string
	MSISDN        string // used when the port-in is not stored here
}

// ReturnInput is a number return accepted from the BSS.
type ReturnInput struct {
	SessionCode    string
	MSISDN         string
	DonorOperator  string
	DocumentType   string
	DocumentNumber string
	RequestDate    *time.Time
}

// ReturnCancelInput names the return to cancel.
type ReturnCancelInput struct {
	SessionCode   string
	ReturnID      int64
	ReferenceCode string
	Reason        string
}

// SearchFilter narrows /orders-search.
type SearchFilter struct {
	MSISDN        *string
	ReferenceCode *string
	RequestType   *string
	StatusNc      *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int32
	Offset        int32
}

type SearchResult struct {
	Total int64
	Data  []database.PortabilityRequest
}

// Lookup is the answer of a synchronous CN query.
type Lookup struct {
	ResponseCode string
	Description  string
	Fields       map[string]string
	Records      []map[string]string
	ErrorFields  []xmlfields.FieldError
}

// Service accepts BSS requests for asynchronous processing and answers the
// synchronous lookups.
type Service struct {
	p *Processor
}

func NewService(p *Processor) *Service {
	return &Service{p: p}
}

// AcceptPortIn stores a PENDING_SUBMIT port-in scheduled for the next submit window.
func (s *Service) AcceptPortIn(ctx context.Context, in PortInInput) (database.PortabilityRequest, error) {
	ctx = logging.ContextWithMSISDN(ctx, in.MSISDN)
	req, err := s.p.store.CreatePortabilityRequest(ctx, database.CreatePortabilityRequestParams{
		CountryCode:       s.p.opts.Country,
		RequestType:       codes.RequestPortIn,
		SessionCode:       strPtr(in.SessionCode),
		Msisdn:            in.MSISDN,
		Iccid:             strPtr(in.ICCID),
		DocumentType:      strPtr(in.DocumentType),
		DocumentNumber:    strPtr(in.DocumentNumber),
		FirstName:         strPtr(in.FirstName),
		FirstSurname:      strPtr(in.FirstSurname),
		SecondSurname:     strPtr(in.SecondSurname),
		CompanyName:       strPtr(in.CompanyName),
		DonorOperator:     strPtr(in.DonorOperator),
		RecipientOperator: strPtr(in.RecipientOperator),
		ContractNumber:    strPtr(in.ContractNumber),
		RoutingNumber:     strPtr(in.RoutingNumber),
		IsLegalEntity:     in.CompanyName != "",
		StatusNc:          string(statemachine.PendingSubmit),
		StatusBss:         codes.BSSProcessing,
		RequestedAt:       s.wall(in.RequestedAt),
		ScheduledAt:       s.p.nextRun(ctx, 0, MessageSubmit),
		CreatedAt:         s.p.wallNow(),
	})
	if err != nil {
		return req, fmt.Errorf("store port-in: %w", err)
	}
	slog.InfoContext(logging.ContextWithRequestID(ctx, req.ID), "Port-in accepted",
		slog.Any("scheduled_at", req.ScheduledAt))
	return req, nil
}

// AcceptCancel stores a cancellation for a submitted port-in.
func (s *Service) AcceptCancel(ctx context.Context, in CancelInput) (database.PortabilityRequest, error) {
	var target *database.PortabilityRequest
	switch {
	case in.RequestID > 0:
		r, err := s.p.store.GetPortabilityRequest(ctx, in.RequestID)
		if err != nil {
			return database.PortabilityRequest{}, notFound(err, "port-in %d", in.RequestID)
		}
		target = &r
	case in.ReferenceCode != "":
		r, err := s.p.store.GetPortabilityRequestByReference(ctx, database.GetPortabilityRequestByReferenceParams{
			ReferenceCode: in.ReferenceCode,
			RequestType:   codes.RequestPortIn,
		})
		if err == nil {
			target = &r
		} else if !database.IsNotFound(err) {
			return database.PortabilityRequest{}, fmt.Errorf("find port-in %s: %w", in.ReferenceCode, err)
		}
	default:
		return database.PortabilityRequest{}, fmt.Errorf("%w: no request id or reference code", ErrNotFound)
	}

	ref := in.ReferenceCode
	params := database.CreatePortabilityRequestParams{
		CountryCode: s.p.opts.Country,
		RequestType: codes.RequestCancellation,
		SessionCode: strPtr(in.SessionCode),
		Msisdn:      in.MSISDN,
		StatusNc:    string(statemachine.PendingSubmit),
		StatusBss:   codes.BSSProcessing,
		ScheduledAt: s.p.nextRun(ctx, 0, MessageSubmit),
		CreatedAt:   s.p.wallNow(),
	}
	if target != nil {
		if target.RequestType != codes.RequestPortIn {
			return database.PortabilityRequest{}, fmt.Errorf("%w: request %d is a %s", ErrNotFound, target.ID, target.RequestType)
		}
		if target.ReferenceCode == nil {
			return database.PortabilityRequest{}, fmt.Errorf("%w: port-in %d", ErrNotSubmitted, target.ID)
		}
		if statemachine.IsTerminal(statemachine.State(target.StatusNc)) {
			return database.PortabilityRequest{}, fmt.Errorf("%w: port-in %d is %s", ErrAlreadyClosed, target.ID, target.StatusNc)
		}
		ref = *target.ReferenceCode
		params.Msisdn = target.Msisdn
		params.DonorOperator = target.DonorOperator
		params.RecipientOperator = target.RecipientOperator
		params.CancelRequestID = &target.ID
	}
	params.ReferenceCode = &ref

	req, err := s.p.store.CreatePortabilityRequest(ctx, params)
	if err != nil {
		return req, fmt.Errorf("store cancellation: %w", err)
	}
	slog.InfoContext(logging.ContextWithReferenceCode(ctx, ref), "Cancellation accepted", slog.Int64("request_id", req.ID))
	return req, nil
}

// AcceptReturn stores a PENDING_SUBMIT return (baja).
func (s *Service) AcceptReturn(ctx context.Context, in ReturnInput) (database.ReturnRequest, error) {
	req, err := s.p.store.CreateReturnRequest(ctx, database.CreateReturnRequestParams{
		CountryCode:    s.p.opts.Country,
		RequestType:    codes.RequestReturn,
		SessionCode:    strPtr(in.SessionCode),
		Msisdn:         in.MSISDN,
		DocumentType:   strPtr(in.DocumentType),
		DocumentNumber: strPtr(in.DocumentNumber),
		DonorOperator:  strPtr(in.DonorOperator),
		RequestDate:    s.wall(in.RequestDate),
		StatusNc:       string(statemachine.PendingSubmit),
		StatusBss:      codes.BSSProcessing,
		ScheduledAt:    s.p.nextRun(ctx, 0, MessageSubmit),
		CreatedAt:      s.p.wallNow(),
	})
	if err != nil {
		return req, fmt.Errorf("store return: %w", err)
	}
	slog.InfoContext(logging.ContextWithMSISDN(ctx, in.MSISDN), "Return accepted", slog.Int64("request_id", req.ID))
	return req, nil
}

// AcceptReturnCancel stores the cancellation of a submitted return.
func (s *Service) AcceptReturnCancel(ctx context.Context, in ReturnCancelInput) (database.ReturnRequest, error) {
	var (
		target database.ReturnRequest
		err    error
	)
	switch {
	case in.ReturnID > 0:
		target, err = s.p.store.GetReturnRequest(ctx, in.ReturnID)
	case in.ReferenceCode != "":
		target, err = s.p.store.GetReturnRequestByReference(ctx, database.GetReturnRequestByReferenceParams{
			ReferenceCode: in.ReferenceCode,
			RequestType:   codes.RequestReturn,
		})
	default:
		return target, fmt.Errorf("%w: no return id or reference code", ErrNotFound)
	}
	if err != nil {
		return target, notFound(err, "return %d/%s", in.ReturnID, in.ReferenceCode)
	}
	if target.RequestType != codes.RequestReturn {
		return target, fmt.Errorf("%w: request %d is a %s", ErrNotFound, target.ID, target.RequestType)
	}
	if target.ReferenceCode == nil {
		return target, fmt.Errorf("%w: return %d", ErrNotSubmitted, target.ID)
	}
	if statemachine.IsTerminal(statemachine.State(target.StatusNc)) {
		return target, fmt.Errorf("%w: return %d is %s", ErrAlreadyClosed, target.ID, target.StatusNc)
	}

	req, err := s.p.store.CreateReturnRequest(ctx, database.CreateReturnRequestParams{
		CountryCode:        s.p.opts.Country,
		RequestType:        codes.RequestReturnCancellation,
		ReferenceCode:      target.ReferenceCode,
		SessionCode:        strPtr(in.SessionCode),
		Msisdn:             target.Msisdn,
		DonorOperator:      target.DonorOperator,
		CancellationReason: strPtr(in.Reason),
		StatusNc:           string(statemachine.PendingSubmit),
		StatusBss:          codes.BSSProcessing,
		ScheduledAt:        s.p.nextRun(ctx, 0, MessageSubmit),
		CancelReturnID:     &target.ID,
		CreatedAt:          s.p.wallNow(),
	})
	if err != nil {
		return req, fmt.Errorf("store return cancellation: %w", err)
	}
	slog.InfoContext(logging.ContextWithReferenceCode(ctx, *target.ReferenceCode), "Return cancellation accepted",
		slog.Int64("request_id", req.ID))
	return req, nil
}

// Search lists stored portability requests, newest first.
func (s *Service) Search(ctx context.Context, f SearchFilter) (SearchResult, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	} else if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	total, err := s.p.store.CountPortabilityRequests(ctx, database.CountPortabilityRequestsParams{
		Msisdn:        f.MSISDN,
		ReferenceCode: f.ReferenceCode,
		RequestType:   f.RequestType,
		StatusNc:      f.StatusNc,
		CreatedFrom:   f.CreatedFrom,
		CreatedTo:     f.CreatedTo,
	})
	if err != nil {
		return SearchResult{}, fmt.Errorf("count requests: %w", err)
	}
	rows, err := s.p.store.SearchPortabilityRequests(ctx, database.SearchPortabilityRequestsParams{
		Msisdn:        f.MSISDN,
		ReferenceCode: f.ReferenceCode,
		RequestType:   f.RequestType,
		StatusNc:      f.StatusNc,
		CreatedFrom:   f.CreatedFrom,
		CreatedTo:     f.CreatedTo,
		RowLimit:      f.Limit,
		RowOffset:     f.Offset,
	})
	if err != nil {
		return SearchResult{}, fmt.Errorf("search requests: %w", err)
	}
	if rows == nil {
		rows = []database.PortabilityRequest{}
	}
	return SearchResult{Total: total, Data: rows}, nil
}

// QueryMSISDN asks CN which operator currently serves msisdn. Blocks for up
// to the CN timeout.
func (s *Service) QueryMSISDN(ctx context.Context, msisdn string) (Lookup, error) {
	reply, err := s.p.cn.QueryNumbering(ctx, msisdn)
	return lookupOf(reply, nil, err, cn.FieldOperator, cn.FieldRoutingNumber, cn.FieldMSISDN)
}

// QueryPortIn fetches a port-in from CN by reference code.
func (s *Service) QueryPortIn(ctx context.Context, referenceCode string) (Lookup, error) {
	reply, err := s.p.cn.GetPortIn(ctx, referenceCode)
	return lookupOf(reply, nil, err,
		cn.FieldReferenceCode, cn.FieldEstado, cn.FieldPortingWindow, cn.FieldRejectCause, cn.FieldCreatedAt, cn.FieldMSISDN)
}

// QueryReturn reports the CN processes of msisdn, or only the one carrying
// referenceCode when given.
func (s *Service) QueryReturn(ctx context.Context, msisdn, referenceCode string) (Lookup, error) {
	if referenceCode != "" {
		reply, err := s.p.cn.ProcessStatus(ctx, msisdn, referenceCode)
		if err == nil && !reply.Result.Matched {
			return Lookup{}, fmt.Errorf("%w: no CN process %s for %s", ErrNotFound, referenceCode, msisdn)
		}
		return lookupOf(reply, nil, err,
			cn.FieldReferenceCode, cn.FieldProcessType, cn.FieldEstado, cn.FieldCreatedAt, cn.FieldUpdatedAt, cn.FieldRejectCause)
	}
	reply, records, err := s.p.cn.Processes(ctx, msisdn)
	return lookupOf(reply, records, err,
		cn.FieldReferenceCode, cn.FieldProcessType, cn.FieldEstado, cn.FieldCreatedAt, cn.FieldUpdatedAt, cn.FieldRejectCause)
}

// lookupOf flattens a CN reply. A 4xx answer with a body is still a lookup
// result; session and transport failures surface as ErrUpstream.
func lookupOf(reply *cn.Reply, records []xmlfields.Result, err error, fields ...string) (Lookup, error) {
	var he *cn.HTTPError
	if err != nil && (reply == nil || !errors.As(err, &he)) {
		return Lookup{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	l := Lookup{
		ResponseCode: reply.Code(),
		Description:  reply.Get(cn.FieldDescription),
		Fields:       pick(reply.Result, fields),
		ErrorFields:  replyErrors(reply),
	}
	for _, rec := range records {
		l.Records = append(l.Records, pick(rec, fields))
	}
	return l, nil
}

func pick(r xmlfields.Result, fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v := r.Ptr(f); v != nil {
			out[f] = *v
		}
	}
	return out
}

func (s *Service) wall(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	w := schedule.ToWall(t.Truncate(time.Second), s.p.location())
	return &w
}

func notFound(err error, format string, args ...any) error {
	if database.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
	}
	return fmt.Errorf("load %s: %w", fmt.Sprintf(format, args...), err)
}
