package cn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thrillee/mnpgateway/pkg/xmlfields"
)

// Response field names (local names, prefixes vary across CN versions).
const (
	FieldResponseCode  = "codigoRespuesta"
	FieldDescription   = "descripcion"
	FieldSessionCode   = "codigoSesion"
	FieldReferenceCode = "codigoReferencia"
	FieldPortingWindow = "fechaVentanaCambio"
	FieldEstado        = "estado"
	FieldProcessType   = "tipoProceso"
	FieldCreatedAt     = "fechaCreacion"
	FieldUpdatedAt     = "fechaEstado"
	FieldRejectCause   = "causaRechazo"
	FieldRejectedAt    = "fechaRechazo"
	FieldMSISDN        = "MSISDN"
	FieldDonor         = "codigoOperadorDonante"
	FieldRecipient     = "codigoOperadorReceptor"
	FieldOperator      = "codigoOperador"
	FieldRoutingNumber = "NRN"
	FieldTotalRecords  = "totalRegistros"
)

var (
	submitFields = []string{FieldResponseCode, FieldDescription, FieldReferenceCode, FieldPortingWindow}
	cancelFields = []string{FieldResponseCode, FieldDescription}
	statusFields = []string{
		FieldProcessType, FieldResponseCode, FieldDescription, FieldEstado, FieldPortingWindow,
		FieldCreatedAt, FieldUpdatedAt, FieldRejectCause, FieldRejectedAt, FieldReferenceCode, FieldMSISDN,
	}
	notificationFields = []string{
		FieldResponseCode, FieldDescription, FieldReferenceCode, FieldMSISDN, FieldDonor, FieldRecipient,
		FieldEstado, FieldPortingWindow, FieldCreatedAt, FieldTotalRecords,
	}
	numberingFields = []string{FieldResponseCode, FieldDescription, FieldOperator, FieldRoutingNumber, FieldMSISDN}
)

// Reply is a parsed CN answer.
type Reply struct {
	Operation   Operation
	SessionCode string
	Result      xmlfields.Result
	Body        []byte
}

// Code is the codigoRespuesta as sent by CN, empty when absent.
func (r *Reply) Code() string {
	if r == nil {
		return ""
	}
	return r.Result.Get(FieldResponseCode)
}

func (r *Reply) Get(field string) string {
	if r == nil {
		return ""
	}
	return r.Result.Get(field)
}

func (r *Reply) Ptr(field string) *string {
	if r == nil {
		return nil
	}
	return r.Result.Ptr(field)
}

// Notification is one pending port-out record.
type Notification struct {
	ReferenceCode     string
	MSISDN            string
	DonorOperator     string
	RecipientOperator string
	Estado            string
	PortingWindow     string
	CreatedAt         string
}

// Page is one page of port-out notifications.
type Page struct {
	Reply
	Notifications []Notification
}

// Gateway exposes the typed CN operations on top of the session manager and
// client. Errors follow three shapes: a *SessionError when CN refused the
// session (nothing was sent), an *HTTPError together with a Reply parsed from
// the error body, or a transport error with a nil Reply. A session call that
// fails in transport is a transport error like any other.
type Gateway struct {
	client   *Client
	sessions *SessionManager
	logger   *slog.Logger
}

func NewGateway(client *Client, sessions *SessionManager, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{client: client, sessions: sessions, logger: logger}
}

func (g *Gateway) invoke(ctx context.Context, req sessionBound, fields []string, opts ...xmlfields.Option) (*Reply, error) {
	token, err := g.sessions.Session(ctx)
	if err != nil {
		return nil, err
	}
	req.setSession(token)

	op := req.Operation()
	body, err := Build(req)
	if err != nil {
		return nil, err
	}

	raw, callErr := g.client.Call(ctx, op.Endpoint, op.Action, body)
	var he *HTTPError
	if callErr != nil && !errors.As(callErr, &he) {
		return nil, callErr
	}

	reply := &Reply{
		Operation:   op,
		SessionCode: token,
		Result:      xmlfields.Parse(raw, fields, opts...),
		Body:        raw,
	}
	if reply.Result.Malformed {
		g.logger.WarnContext(ctx, "CN response is not well-formed XML",
			slog.String("operation", op.Action),
			slog.Int("body_bytes", len(raw)),
		)
	}
	return reply, callErr
}

// CreatePortIn submits a port-in.
func (g *Gateway) CreatePortIn(ctx context.Context, req PortInRequest) (*Reply, error) {
	return g.invoke(ctx, &req, submitFields)
}

// CancelPortIn cancels a submitted port-in.
func (g *Gateway) CancelPortIn(ctx context.Context, referenceCode, reason string) (*Reply, error) {
	return g.invoke(ctx, &CancelPortInRequest{ReferenceCode: referenceCode, Reason: reason}, cancelFields)
}

// ProcessStatus queries the processes of msisdn and selects the record of
// referenceCode. An unmatched record yields a Reply whose fields are all nil.
func (g *Gateway) ProcessStatus(ctx context.Context, msisdn, referenceCode string) (*Reply, error) {
	return g.invoke(ctx, &ProcessQuery{MSISDN: msisdn}, statusFields,
		xmlfields.WithSelector(FieldReferenceCode, referenceCode))
}

// Processes returns every process CN knows for msisdn.
func (g *Gateway) Processes(ctx context.Context, msisdn string) (*Reply, []xmlfields.Result, error) {
	token, err := g.sessions.Session(ctx)
	if err != nil {
		return nil, nil, err
	}
	req := &ProcessQuery{SessionCode: token, MSISDN: msisdn}
	body, err := Build(req)
	if err != nil {
		return nil, nil, err
	}
	raw, callErr := g.client.Call(ctx, OpQueryProcesses.Endpoint, OpQueryProcesses.Action, body)
	var he *HTTPError
	if callErr != nil && !errors.As(callErr, &he) {
		return nil, nil, callErr
	}
	top, records, err := xmlfields.ParseRecords(raw, statusFields)
	reply := &Reply{Operation: OpQueryProcesses, SessionCode: token, Result: top, Body: raw}
	if err != nil && callErr == nil {
		return reply, nil, nil
	}
	return reply, records, callErr
}

// CreateReturn submits a number return.
func (g *Gateway) CreateReturn(ctx context.Context, req ReturnRequest) (*Reply, error) {
	return g.invoke(ctx, &req, submitFields)
}

// CancelReturn cancels a submitted return.
func (g *Gateway) CancelReturn(ctx context.Context, referenceCode, reason string) (*Reply, error) {
	return g.invoke(ctx, &CancelReturnRequest{ReferenceCode: referenceCode, Reason: reason}, cancelFields)
}

// GetPortIn fetches a port-in by reference.
func (g *Gateway) GetPortIn(ctx context.Context, referenceCode string) (*Reply, error) {
	return g.invoke(ctx, &GetPortInRequest{ReferenceCode: referenceCode}, statusFields)
}

// QueryNumbering asks CN which operator serves msisdn.
func (g *Gateway) QueryNumbering(ctx context.Context, msisdn string) (*Reply, error) {
	return g.invoke(ctx, &NumberingQuery{MSISDN: msisdn}, numberingFields)
}

// PortOutPage reads one page of pending port-out notifications starting at
// firstRecord (1-based).
func (g *Gateway) PortOutPage(ctx context.Context, firstRecord, pageSize int) (*Page, error) {
	token, err := g.sessions.Session(ctx)
	if err != nil {
		return nil, err
	}
	req := &PortOutPageRequest{SessionCode: token, FirstRecord: firstRecord, PageSize: pageSize}
	body, err := Build(req)
	if err != nil {
		return nil, err
	}
	raw, callErr := g.client.Call(ctx, OpPortOutPending.Endpoint, OpPortOutPending.Action, body)
	var he *HTTPError
	if callErr != nil && !errors.As(callErr, &he) {
		return nil, callErr
	}

	top, records, err := xmlfields.ParseRecords(raw, notificationFields, "notificacion")
	page := &Page{Reply: Reply{Operation: OpPortOutPending, SessionCode: token, Result: top, Body: raw}}
	if err != nil {
		return page, errors.Join(callErr, fmt.Errorf("parse port-out page: %w", err))
	}
	for _, rec := range records {
		ref := strings.TrimSpace(rec.Get(FieldReferenceCode))
		if ref == "" {
			continue
		}
		page.Notifications = append(page.Notifications, Notification{
			ReferenceCode:     ref,
			MSISDN:            rec.Get(FieldMSISDN),
			DonorOperator:     rec.Get(FieldDonor),
			RecipientOperator: rec.Get(FieldRecipient),
			Estado:            rec.Get(FieldEstado),
			PortingWindow:     rec.Get(FieldPortingWindow),
			CreatedAt:         rec.Get(FieldCreatedAt),
		})
	}
	return page, callErr
}
