package porting

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrillee/mnpgateway/internal/bss"
	"github.com/thrillee/mnpgateway/internal/cn"
	"github.com/thrillee/mnpgateway/internal/config"
	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/database/memdb"
	"github.com/thrillee/mnpgateway/internal/schedule"
	"github.com/thrillee/mnpgateway/internal/statemachine"
	"github.com/thrillee/mnpgateway/pkg/codes"
)

func soap(op, inner string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<S:Envelope xmlns:S="http://schemas.xmlsoap.org/soap/envelope/"><S:Body>
<ns2:` + op + ` xmlns:ns2="http://nc.aopm.es/v1-10">` + inner + `</ns2:` + op + `>
</S:Body></S:Envelope>`
}

var (
	sessionOK = soap("respuestaIniciarSesion", `<ns2:codigoRespuesta>0000 00000</ns2:codigoRespuesta>
<ns2:descripcion>La operacion se ha realizado con exito</ns2:descripcion>
<ns2:codigoSesion>SESS-7</ns2:codigoSesion>`)

	sessionRefused = soap("respuestaIniciarSesion", `<ns2:codigoRespuesta>ACCS PERME</ns2:codigoRespuesta>
<ns2:descripcion>Credenciales no validas</ns2:descripcion>`)
)

func submitOK(ref string) string {
	return soap("respuestaCrearSolicitudIndividualAltaPortabilidadMovil", `<ns2:codigoRespuesta>0000 00000</ns2:codigoRespuesta>
<ns2:descripcion>La operacion se ha realizado con exito</ns2:descripcion>
<ns2:codigoReferencia>`+ref+`</ns2:codigoReferencia>`)
}

func processes(records ...string) string {
	return soap("respuestaConsultarProcesosPortabilidadMovil", `<ns2:codigoRespuesta>0000 00000</ns2:codigoRespuesta>
<ns2:descripcion>La operacion se ha realizado con exito</ns2:descripcion>`+strings.Join(records, ""))
}

func record(ref, estado, window string) string {
	return `<ns2:registro><ns2:codigoReferencia>` + ref + `</ns2:codigoReferencia>
<ns2:tipoProceso>ALTA</ns2:tipoProceso><ns2:estado>` + estado + `</ns2:estado>
<ns2:fechaVentanaCambio>` + window + `</ns2:fechaVentanaCambio></ns2:registro>`
}

func cancelReply(code string) string {
	return soap("respuestaCancelarSolicitudAltaPortabilidadMovil", `<ns2:codigoRespuesta>`+code+`</ns2:codigoRespuesta>
<ns2:descripcion>cancelacion</ns2:descripcion>`)
}

type canned struct {
	status int
	body   string
}

// fakeCN answers by SOAPAction. Each action has a queue of replies; the last
// one repeats.
type fakeCN struct {
	mu       sync.Mutex
	replies  map[string][]canned
	requests map[string][]string
	srv      *httptest.Server
}

func newFakeCN(t *testing.T) *fakeCN {
	t.Helper()
	f := &fakeCN{replies: map[string][]canned{}, requests: map[string][]string{}}
	f.on(cn.OpInitiateSession.Action, http.StatusOK, sessionOK)
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		action := r.Header.Get("SOAPAction")
		f.mu.Lock()
		f.requests[action] = append(f.requests[action], string(body))
		queue := f.replies[action]
		var reply canned
		ok := len(queue) > 0
		if ok {
			reply = queue[0]
			if len(queue) > 1 {
				f.replies[action] = queue[1:]
			}
		}
		f.mu.Unlock()
		if !ok {
			http.Error(w, "unknown action", http.StatusNotImplemented)
			return
		}
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(reply.status)
		_, _ = io.WriteString(w, reply.body)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCN) on(action string, status int, body string) {
	f.sequence(action, canned{status, body})
}

func (f *fakeCN) sequence(action string, replies ...canned) {
	f.mu.Lock()
	f.replies[action] = replies
	f.mu.Unlock()
}

func (f *fakeCN) sent(action string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests[action]...)
}

type alert struct{ recipient, subject, body string }

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []alert
}

func (n *recordingNotifier) Send(_ context.Context, recipient, subject, body string) error {
	n.mu.Lock()
	n.alerts = append(n.alerts, alert{recipient, subject, body})
	n.mu.Unlock()
	return nil
}

type env struct {
	store  *memdb.Store
	clock  *schedule.FixedClock
	cn     *fakeCN
	proc   *Processor
	svc    *Service
	alerts *recordingNotifier
	bss    *httptest.Server
	posts  *[]bss.Payload
}

var madrid = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		panic(err)
	}
	return loc
}()

// Monday, inside the morning window.
var monday10 = time.Date(2025, 10, 20, 10, 0, 0, 0, madrid)

func wall(t time.Time) time.Time { return schedule.ToWall(t, madrid) }

func newEnv(t *testing.T, tweak ...func(*config.CNConfig)) *env {
	t.Helper()
	fake := newFakeCN(t)
	cfg := config.CNConfig{
		AccessURL:       fake.srv.URL + "/access",
		PortabilityURL:  fake.srv.URL + "/portability",
		PortOutURL:      fake.srv.URL + "/portout",
		BoletinURL:      fake.srv.URL + "/boletin",
		Username:        "user",
		AccessCode:      "secret",
		OperatorCode:    "798",
		QueryTimeout:    5 * time.Second,
		SSLVerify:       true,
		BreakerFailures: 50,
		BreakerSuccess:  1,
		BreakerTimeout:  time.Minute,
	}
	for _, fn := range tweak {
		fn(&cfg)
	}
	client := cn.NewClient(cfg, nil)
	sessions := cn.NewSessionManager(client, cn.Credentials{
		Username:     cfg.Username,
		AccessCode:   cfg.AccessCode,
		OperatorCode: cfg.OperatorCode,
	}, nil)

	clock := schedule.NewFixedClock(monday10)
	calc := schedule.NewCalculator(schedule.Config{Location: madrid, Clock: clock})
	morning, err := schedule.NewWindow("MON-FRI", "08:00", "14:00")
	require.NoError(t, err)
	afternoon, err := schedule.NewWindow("MON-FRI", "15:00", "20:00")
	require.NoError(t, err)
	calc.Register(codes.CountrySpain, schedule.AnyMessageType, schedule.Plan{Windows: []schedule.Window{morning, afternoon}})

	var (
		mu    sync.Mutex
		posts []bss.Payload
	)
	bssSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p bss.Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		posts = append(posts, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(bssSrv.Close)

	store := memdb.New()
	alerts := &recordingNotifier{}
	proc, err := NewProcessor(Dependencies{
		Store:     store,
		CN:        cn.NewGateway(client, sessions, nil),
		Scheduler: calc,
		Outbox: bss.NewOutbox(bss.URLs{
			Default: bssSrv.URL + "/portin",
			PortOut: bssSrv.URL + "/portout",
			Return:  bssSrv.URL + "/return",
		}, 3),
		Notifier: alerts,
		Options: Options{
			Country:          codes.CountrySpain,
			MaxRetries:       3,
			StatusCheckDelay: 5 * time.Minute,
			RetryDelay:       2 * time.Minute,
			PortOutPageSize:  2,
			PortOutMaxPages:  5,
			AlertRecipient:   "noc@example.com",
			RecipientCode:    "798",
		},
	})
	require.NoError(t, err)

	return &env{
		store:  store,
		clock:  clock,
		cn:     fake,
		proc:   proc,
		svc:    NewService(proc),
		alerts: alerts,
		bss:    bssSrv,
		posts:  &posts,
	}
}

func (e *env) portIn(t *testing.T, msisdn string) database.PortabilityRequest {
	t.Helper()
	req, err := e.svc.AcceptPortIn(context.Background(), PortInInput{
		MSISDN:            msisdn,
		DonorOperator:     "299",
		RecipientOperator: "798",
		DocumentType:      "NIE",
		DocumentNumber:    "Y3037876D",
		FirstName:         "Ana",
		FirstSurname:      "Garcia",
		ContractNumber:    "798-TRAC_12",
	})
	require.NoError(t, err)
	return req
}

func (e *env) submitted(t *testing.T, msisdn, ref string) database.PortabilityRequest {
	t.Helper()
	e.cn.on(cn.OpCreatePortIn.Action, http.StatusOK, submitOK(ref))
	req := e.portIn(t, msisdn)
	require.NoError(t, e.proc.HandlePortability(context.Background(), e.due(t, req.ID)))
	got := e.get(t, req.ID)
	require.Equal(t, string(statemachine.Submitted), got.StatusNc)
	return got
}

// due moves the clock up to the row's scheduled_at and returns the row as the
// dispatcher would select it.
func (e *env) due(t *testing.T, id int64) database.PortabilityRequest {
	t.Helper()
	r := e.get(t, id)
	e.catchUp(r.ScheduledAt)
	return r
}

func (e *env) dueReturn(t *testing.T, id int64) database.ReturnRequest {
	t.Helper()
	r := e.getReturn(t, id)
	e.catchUp(r.ScheduledAt)
	return r
}

func (e *env) catchUp(scheduledAt *time.Time) {
	if scheduledAt == nil {
		return
	}
	if at := schedule.FromWall(*scheduledAt, madrid); at.After(e.clock.Now()) {
		e.clock.Set(at)
	}
}

func (e *env) get(t *testing.T, id int64) database.PortabilityRequest {
	t.Helper()
	r, err := e.store.GetPortabilityRequest(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (e *env) getReturn(t *testing.T, id int64) database.ReturnRequest {
	t.Helper()
	r, err := e.store.GetReturnRequest(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (e *env) callbacks(t *testing.T, kind string, id int64) []bss.Payload {
	t.Helper()
	rows, err := e.store.ListBSSCallbacksBySource(context.Background(), database.ListBSSCallbacksBySourceParams{
		SourceKind: kind,
		SourceID:   id,
	})
	require.NoError(t, err)
	out := make([]bss.Payload, 0, len(rows))
	for _, r := range rows {
		var p bss.Payload
		require.NoError(t, json.Unmarshal(r.Payload, &p))
		out = append(out, p)
	}
	return out
}

func (e *env) deliver(t *testing.T) int {
	t.Helper()
	w := bss.NewWorker(e.store, bss.NewForwarder(bss.ForwarderConfig{Timeout: 5 * time.Second, SSLVerify: true}),
		bss.WorkerConfig{Clock: e.clock, Location: madrid})
	n, err := w.ProcessBatch(context.Background(), 50)
	require.NoError(t, err)
	return n
}

func TestNewProcessor_MissingDependencies(t *testing.T) {
	_, err := NewProcessor(Dependencies{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Store")
}

func TestSubmitPortIn_Accepted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.cn.on(cn.OpCreatePortIn.Action, http.StatusOK, submitOK("29979811251030102500001"))

	req := e.portIn(t, "621800000")
	assert.Equal(t, string(statemachine.PendingSubmit), req.StatusNc)
	assert.Equal(t, codes.BSSProcessing, req.StatusBss)
	require.NotNil(t, req.ScheduledAt)
	assert.Equal(t, wall(monday10.Add(time.Minute)), *req.ScheduledAt)

	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)))

	got := e.get(t, req.ID)
	assert.Equal(t, string(statemachine.Submitted), got.StatusNc)
	require.NotNil(t, got.ReferenceCode)
	assert.Equal(t, "29979811251030102500001", *got.ReferenceCode)
	assert.Equal(t, codes.CNSuccess, *got.ResponseCode)
	assert.Equal(t, "SESS-7", *got.SessionCodeNc)
	assert.Zero(t, got.RetryCount)
	require.NotNil(t, got.ScheduledAt)
	assert.Equal(t, wall(monday10.Add(6*time.Minute)), *got.ScheduledAt)
	assert.Nil(t, got.CompletedAt)

	sent := e.cn.sent(cn.OpCreatePortIn.Action)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "621800000")
	assert.Contains(t, sent[0], "Y3037876D")
	assert.Contains(t, sent[0], "SESS-7")

	cbs := e.callbacks(t, bss.SourcePortability, req.ID)
	require.Len(t, cbs, 1)
	assert.Equal(t, "29979811251030102500001", *cbs[0].ReferenceCode)
	assert.Equal(t, codes.CNSuccess, *cbs[0].ResponseCode)
	assert.Empty(t, cbs[0].ErrorFields)

	assert.Equal(t, 1, e.deliver(t))
	require.Len(t, *e.posts, 1)
	assert.Equal(t, req.ID, (*e.posts)[0].RequestID)
	assert.Equal(t, codes.BSSUpdatedPrefix+codes.CNSuccess, e.get(t, req.ID).StatusBss)
}

func TestSubmitPortIn_RejectedWithFieldErrors(t *testing.T) {
	tests := []struct {
		code, field, detail string
	}{
		{"GENE INFOR", "codigoOperadorDonante", "longitud fija de 3 caracteres, se recibieron 10"},
		{"AREC NRNRE", "codigoOperadorDonante", "longitud fija de 3 caracteres"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			e.cn.on(cn.OpCreatePortIn.Action, http.StatusOK, soap("respuestaCrearSolicitudIndividualAltaPortabilidadMovil",
				`<ns2:codigoRespuesta>`+tt.code+`</ns2:codigoRespuesta>
<ns2:descripcion>Error en la informacion enviada</ns2:descripcion>
<ns2:campoErroneo><ns2:nombre>`+tt.field+`</ns2:nombre>
<ns2:descripcion>`+tt.detail+`</ns2:descripcion></ns2:campoErroneo>`))

			req := e.portIn(t, "621800000")
			require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)))

			got := e.get(t, req.ID)
			assert.Equal(t, string(statemachine.PortInRejected), got.StatusNc)
			assert.Equal(t, tt.code, *got.ResponseCode)
			assert.Equal(t, "Error en la informacion enviada", *got.Description)
			assert.Nil(t, got.ScheduledAt)
			require.NotNil(t, got.CompletedAt)
			assert.Equal(t, wall(monday10.Add(time.Minute)), *got.CompletedAt)

			cbs := e.callbacks(t, bss.SourcePortability, req.ID)
			require.Len(t, cbs, 1)
			require.Len(t, cbs[0].ErrorFields, 1)
			assert.Equal(t, tt.field, cbs[0].ErrorFields[0].Name)
			assert.Equal(t, tt.detail, cbs[0].ErrorFields[0].Description)

			due, err := e.store.SelectDuePortabilityRequests(ctx, database.SelectDuePortabilityRequestsParams{
				CountryCode:  codes.CountrySpain,
				RequestTypes: []string{codes.RequestPortIn},
				ActiveStates: statemachine.ActiveStates(),
				Now:          wall(monday10.Add(24 * time.Hour)),
				RowLimit:     10,
			})
			require.NoError(t, err)
			assert.Empty(t, due)

			// Terminal rows are left alone.
			require.NoError(t, e.proc.HandlePortability(ctx, got))
			assert.Len(t, e.cn.sent(cn.OpCreatePortIn.Action), 1)
		})
	}
}

func TestPollPortInStatus_SelectsRecordByReference(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	req := e.submitted(t, "621800001", "REF-1")

	e.cn.on(cn.OpQueryProcesses.Action, http.StatusOK, processes(
		record("OTHER", codes.EstadoRejected, "2025-10-21T02:00:00+02:00"),
		record("REF-1", codes.EstadoPorted, "2025-10-23T02:00:00+02:00"),
	))
	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)))

	got := e.get(t, req.ID)
	assert.Equal(t, string(statemachine.PortInCompleted), got.StatusNc)
	assert.Equal(t, codes.EstadoPorted, *got.ResponseStatus)
	require.NotNil(t, got.PortingWindow)
	assert.Equal(t, time.Date(2025, 10, 23, 2, 0, 0, 0, time.UTC), *got.PortingWindow)
	assert.Nil(t, got.ScheduledAt)
	assert.NotNil(t, got.CompletedAt)

	sent := e.cn.sent(cn.OpQueryProcesses.Action)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "621800001")

	cbs := e.callbacks(t, bss.SourcePortability, req.ID)
	require.Len(t, cbs, 2)
	assert.Equal(t, codes.EstadoPorted, *cbs[1].ResponseStatus)
	assert.Equal(t, "2025-10-23 02:00:00", *cbs[1].PortingWindowDate)
}

func TestPollPortInStatus_ConfirmedKeepsPolling(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	req := e.submitted(t, "621800001", "REF-1")

	e.cn.on(cn.OpQueryProcesses.Action, http.StatusOK, processes(record("REF-1", codes.EstadoConfirmed, "2025-10-23T02:00:00+02:00")))
	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)))
	got := e.get(t, req.ID)
	assert.Equal(t, string(statemachine.PortInConfirmed), got.StatusNc)
	assert.NotNil(t, got.ScheduledAt)

	// Same estado again is not news for the BSS.
	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)))
	assert.Len(t, e.cn.sent(cn.OpQueryProcesses.Action), 2)
	assert.Len(t, e.callbacks(t, bss.SourcePortability, req.ID), 2)
}

func TestPollPortInStatus_UnmatchedReferenceIsFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	req := e.submitted(t, "621800001", "REF-1")

	e.cn.on(cn.OpQueryProcesses.Action, http.StatusOK, processes(record("OTHER", codes.EstadoPorted, "")))
	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)))

	got := e.get(t, req.ID)
	assert.Equal(t, string(statemachine.PendingNoResponseCode), got.StatusNc)
	assert.Equal(t, int32(1), got.RetryCount)
	assert.Nil(t, got.ResponseStatus)
	require.NotNil(t, got.ScheduledAt)
	// Submitted at 10:01, polled at 10:06, retried two minutes later.
	assert.Equal(t, wall(monday10.Add(8*time.Minute)), *got.ScheduledAt)
}

func TestSubmitCancel_PendingThenConfirmed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.clock.Set(time.Date(2025, 10, 20, 13, 57, 0, 0, madrid))
	portIn := e.submitted(t, "621800002", "REF-2")

	cancel, err := e.svc.AcceptCancel(ctx, CancelInput{ReferenceCode: "REF-2"})
	require.NoError(t, err)
	assert.Equal(t, codes.RequestCancellation, cancel.RequestType)
	assert.Equal(t, "621800002", cancel.Msisdn)
	require.NotNil(t, cancel.CancelRequestID)
	assert.Equal(t, portIn.ID, *cancel.CancelRequestID)

	e.cn.sequence(cn.OpCancelPortIn.Action,
		canned{http.StatusOK, cancelReply(codes.EstadoSolicited)},
		canned{http.StatusOK, cancelReply(codes.CNCancelSuccess)},
	)

	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, cancel.ID)))
	got := e.get(t, cancel.ID)
	assert.Equal(t, string(statemachine.PendingResponse), got.StatusNc)
	require.NotNil(t, got.ScheduledAt)
	// 14:04 falls in the lunch gap; the check moves to the afternoon window.
	assert.Equal(t, time.Date(2025, 10, 20, 15, 0, 0, 0, time.UTC), *got.ScheduledAt)

	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, cancel.ID)))
	got = e.get(t, cancel.ID)
	assert.Equal(t, string(statemachine.CancelConfirmed), got.StatusNc)
	assert.NotNil(t, got.CompletedAt)

	sent := e.cn.sent(cn.OpCancelPortIn.Action)
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0], "REF-2")
	assert.Contains(t, sent[0], DefaultCancelReason)

	cbs := e.callbacks(t, bss.SourcePortability, cancel.ID)
	require.Len(t, cbs, 2)
	assert.Equal(t, codes.CNCancelSuccess, *cbs[1].ResponseCode)
}

func TestSubmitPortIn_MaxRetriesAfterTransportFailures(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	e := newEnv(t, func(c *config.CNConfig) { c.PortabilityURL = deadURL + "/portability" })
	ctx := context.Background()
	req := e.portIn(t, "621800003")

	for i := 1; i <= 3; i++ {
		require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)))
		got := e.get(t, req.ID)
		assert.Equal(t, string(statemachine.RequestFailed), got.StatusNc, "attempt %d", i)
		assert.Equal(t, int32(i), got.RetryCount)
		require.NotNil(t, got.LastError)
	}
	assert.Empty(t, e.callbacks(t, bss.SourcePortability, req.ID))

	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)))
	got := e.get(t, req.ID)
	assert.Equal(t, string(statemachine.MaxRetriesExceeded), got.StatusNc)
	assert.Equal(t, int32(4), got.RetryCount)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "HTTP request failed")
	assert.Nil(t, got.ScheduledAt)
	assert.NotNil(t, got.CompletedAt)

	cbs := e.callbacks(t, bss.SourcePortability, req.ID)
	require.Len(t, cbs, 1)
	assert.Contains(t, *cbs[0].Description, "maximum retries exceeded")

	require.Len(t, e.alerts.alerts, 1)
	assert.Equal(t, "noc@example.com", e.alerts.alerts[0].recipient)

	// Nothing more happens once terminal.
	require.NoError(t, e.proc.HandlePortability(ctx, got))
	assert.Len(t, e.callbacks(t, bss.SourcePortability, req.ID), 1)
	assert.Len(t, e.alerts.alerts, 1)
}

func TestSubmitPortIn_SessionFailureWritesNothing(t *testing.T) {
	e := newEnv(t)
	e.cn.on(cn.OpInitiateSession.Action, http.StatusOK, sessionRefused)
	req := e.portIn(t, "621800004")

	err := e.proc.HandlePortability(context.Background(), e.due(t, req.ID))
	require.Error(t, err)
	assert.True(t, errors.Is(err, cn.ErrSessionFailure))

	got := e.get(t, req.ID)
	assert.Equal(t, req, got)
	assert.Empty(t, e.cn.sent(cn.OpCreatePortIn.Action))
	assert.Empty(t, e.callbacks(t, bss.SourcePortability, req.ID))
}

func TestSubmitPortIn_SessionUnreachableCountsAsAttempt(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	e := newEnv(t, func(c *config.CNConfig) {
		c.AccessURL = deadURL + "/access"
		c.PortabilityURL = deadURL + "/portability"
	})
	ctx := context.Background()
	req := e.portIn(t, "621800008")

	for i := 1; i <= 4; i++ {
		require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)), "attempt %d", i)
	}

	got := e.get(t, req.ID)
	assert.Equal(t, string(statemachine.MaxRetriesExceeded), got.StatusNc)
	assert.Equal(t, int32(4), got.RetryCount)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "initiate session")
	assert.Nil(t, got.ScheduledAt)

	cbs := e.callbacks(t, bss.SourcePortability, req.ID)
	require.Len(t, cbs, 1)
	assert.Contains(t, *cbs[0].Description, "maximum retries exceeded")
	require.Len(t, e.alerts.alerts, 1)

	assert.Equal(t, 1, e.deliver(t))
	assert.Len(t, *e.posts, 1)
}

func TestHandlePortability_NotDueIsNoop(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.cn.on(cn.OpCreatePortIn.Action, http.StatusOK, submitOK("REF-N"))

	// Accepted at 10:00 and scheduled for 10:01.
	req := e.portIn(t, "621800050")
	require.NoError(t, e.proc.HandlePortability(ctx, req))

	assert.Equal(t, req, e.get(t, req.ID))
	assert.Empty(t, e.cn.sent(cn.OpInitiateSession.Action))
	assert.Empty(t, e.cn.sent(cn.OpCreatePortIn.Action))

	ret, err := e.svc.AcceptReturn(ctx, ReturnInput{MSISDN: "621800051", DonorOperator: "299"})
	require.NoError(t, err)
	require.NoError(t, e.proc.HandleReturn(ctx, ret))
	assert.Equal(t, ret, e.getReturn(t, ret.ID))
	assert.Empty(t, e.cn.sent(cn.OpCreateReturn.Action))
}

func TestHandlePortability_StaleDispatchDoesNotResubmit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.cn.on(cn.OpCreatePortIn.Action, http.StatusOK, submitOK("REF-S"))
	e.cn.on(cn.OpQueryProcesses.Action, http.StatusOK, processes(record("REF-S", codes.EstadoSolicited, "")))

	snapshot := e.due(t, e.portIn(t, "621800052").ID)
	require.NoError(t, e.proc.HandlePortability(ctx, snapshot))

	// The snapshot taken before submission is dispatched again.
	require.NoError(t, e.proc.HandlePortability(ctx, snapshot))
	assert.Len(t, e.cn.sent(cn.OpCreatePortIn.Action), 1)
	assert.Empty(t, e.cn.sent(cn.OpQueryProcesses.Action))

	got := e.get(t, snapshot.ID)
	assert.Equal(t, string(statemachine.Submitted), got.StatusNc)
	assert.Equal(t, "REF-S", *got.ReferenceCode)
	assert.Len(t, e.callbacks(t, bss.SourcePortability, snapshot.ID), 1)

	// Once the status check is due, the same snapshot polls instead of submitting.
	e.catchUp(got.ScheduledAt)
	require.NoError(t, e.proc.HandlePortability(ctx, snapshot))
	assert.Len(t, e.cn.sent(cn.OpCreatePortIn.Action), 1)
	assert.Len(t, e.cn.sent(cn.OpQueryProcesses.Action), 1)
}

func TestSubmitPortIn_ClientErrorKeepsCNCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.cn.on(cn.OpCreatePortIn.Action, http.StatusBadRequest, soap("respuestaCrearSolicitudIndividualAltaPortabilidadMovil",
		`<ns2:codigoRespuesta>400 BADRQ</ns2:codigoRespuesta><ns2:descripcion>Peticion mal formada</ns2:descripcion>`))
	req := e.portIn(t, "621800005")

	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)))
	got := e.get(t, req.ID)
	assert.Equal(t, string(statemachine.RequestFailed), got.StatusNc)
	assert.Equal(t, "400 BADRQ", *got.ResponseCode)
	assert.Equal(t, "Peticion mal formada", *got.Description)
	assert.Equal(t, int32(1), got.RetryCount)
	require.Len(t, e.callbacks(t, bss.SourcePortability, req.ID), 1)

	e.cn.on(cn.OpCreatePortIn.Action, http.StatusForbidden, "")
	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)))
	got = e.get(t, req.ID)
	assert.Equal(t, codes.HTTPResponsePrefix+"403", *got.ResponseCode)
	assert.Equal(t, int32(2), got.RetryCount)
}

func TestSubmitPortIn_ServerErrorThenResubmitted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.cn.sequence(cn.OpCreatePortIn.Action,
		canned{http.StatusServiceUnavailable, "busy"},
		canned{http.StatusOK, submitOK("REF-6")},
	)
	req := e.portIn(t, "621800006")

	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)))
	got := e.get(t, req.ID)
	assert.Equal(t, string(statemachine.ServerError), got.StatusNc)
	assert.Equal(t, int32(1), got.RetryCount)
	assert.Nil(t, got.ResponseCode)
	assert.Empty(t, e.callbacks(t, bss.SourcePortability, req.ID))

	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, req.ID)))
	got = e.get(t, req.ID)
	assert.Equal(t, string(statemachine.ReSubmitted), got.StatusNc)
	assert.Zero(t, got.RetryCount)
	assert.Equal(t, "REF-6", *got.ReferenceCode)
}

func TestSubmitPortIn_MissingResponseCode(t *testing.T) {
	e := newEnv(t)
	e.cn.on(cn.OpCreatePortIn.Action, http.StatusOK, soap("respuestaCrearSolicitudIndividualAltaPortabilidadMovil",
		`<ns2:descripcion>sin codigo</ns2:descripcion>`))
	req := e.portIn(t, "621800007")

	require.NoError(t, e.proc.HandlePortability(context.Background(), e.due(t, req.ID)))
	got := e.get(t, req.ID)
	assert.Equal(t, string(statemachine.PendingNoResponseCode), got.StatusNc)
	assert.Equal(t, int32(1), got.RetryCount)
	assert.Nil(t, got.ReferenceCode)
}

func TestReturn_SubmitPollAndCancel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.cn.on(cn.OpCreateReturn.Action, http.StatusOK, soap("respuestaCrearSolicitudBajaNumeracionMovil",
		`<ns2:codigoRespuesta>0000 00000</ns2:codigoRespuesta><ns2:codigoReferencia>RET-1</ns2:codigoReferencia>`))

	ret, err := e.svc.AcceptReturn(ctx, ReturnInput{MSISDN: "621800010", DonorOperator: "299"})
	require.NoError(t, err)
	require.NoError(t, e.proc.HandleReturn(ctx, e.dueReturn(t, ret.ID)))

	got := e.getReturn(t, ret.ID)
	assert.Equal(t, string(statemachine.Submitted), got.StatusNc)
	assert.Equal(t, "RET-1", *got.ReferenceCode)

	e.cn.on(cn.OpQueryProcesses.Action, http.StatusOK, processes(
		`<ns2:registro><ns2:codigoReferencia>RET-1</ns2:codigoReferencia><ns2:tipoProceso>BAJA</ns2:tipoProceso>
<ns2:estado>ASOL</ns2:estado><ns2:fechaCreacion>2025-10-20T10:00:00+02:00</ns2:fechaCreacion>
<ns2:fechaEstado>2025-10-20T10:03:00+02:00</ns2:fechaEstado></ns2:registro>`))
	require.NoError(t, e.proc.HandleReturn(ctx, e.dueReturn(t, ret.ID)))
	got = e.getReturn(t, ret.ID)
	assert.Equal(t, string(statemachine.PendingResponse), got.StatusNc)
	require.NotNil(t, got.CnUpdatedAt)
	assert.Equal(t, time.Date(2025, 10, 20, 10, 3, 0, 0, time.UTC), *got.CnUpdatedAt)

	cancel, err := e.svc.AcceptReturnCancel(ctx, ReturnCancelInput{ReferenceCode: "RET-1", Reason: "CANC_ERROR"})
	require.NoError(t, err)
	e.cn.on(cn.OpCancelReturn.Action, http.StatusOK, cancelReply(codes.CNCancelSuccess))
	require.NoError(t, e.proc.HandleReturn(ctx, e.dueReturn(t, cancel.ID)))

	c := e.getReturn(t, cancel.ID)
	assert.Equal(t, string(statemachine.CancelConfirmed), c.StatusNc)
	sent := e.cn.sent(cn.OpCancelReturn.Action)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "CANC_ERROR")

	require.Len(t, e.callbacks(t, bss.SourceReturn, ret.ID), 2)
	require.Len(t, e.callbacks(t, bss.SourceReturn, cancel.ID), 1)

	assert.Equal(t, 2, e.deliver(t))
	assert.Equal(t, codes.BSSUpdatedPrefix+codes.CNCancelSuccess, e.getReturn(t, cancel.ID).StatusBss)
}

func portOutPage(refs ...string) string {
	var b strings.Builder
	for _, ref := range refs {
		b.WriteString(`<ns2:notificacion><ns2:codigoReferencia>` + ref + `</ns2:codigoReferencia>
<ns2:MSISDN>6218` + ref[len(ref)-5:] + `</ns2:MSISDN><ns2:codigoOperadorDonante>798</ns2:codigoOperadorDonante>
<ns2:codigoOperadorReceptor>299</ns2:codigoOperadorReceptor><ns2:estado>ASOL</ns2:estado>
<ns2:fechaVentanaCambio>2025-10-23T02:00:00+02:00</ns2:fechaVentanaCambio></ns2:notificacion>`)
	}
	return soap("respuestaObtenerNotificacionesAltaPortabilidadMovilComoDonantePendientes",
		`<ns2:codigoRespuesta>0000 00000</ns2:codigoRespuesta><ns2:descripcion>ok</ns2:descripcion>`+b.String())
}

func TestPollPortOutNotifications_PagesAndDeduplicates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.cn.sequence(cn.OpPortOutPending.Action,
		canned{http.StatusOK, portOutPage("PO-00001", "PO-00002")},
		canned{http.StatusOK, portOutPage("PO-00003")},
	)

	n, err := e.proc.PollPortOutNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	sent := e.cn.sent(cn.OpPortOutPending.Action)
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1], ">3<")

	item, err := e.store.GetPortOutItemByReference(ctx, "PO-00002")
	require.NoError(t, err)
	assert.Equal(t, string(statemachine.Received), item.StatusNc)
	assert.Equal(t, "621800002", item.Msisdn)
	require.NotNil(t, item.PortingWindow)
	assert.Equal(t, time.Date(2025, 10, 23, 2, 0, 0, 0, time.UTC), *item.PortingWindow)

	// The same notifications again: nothing new, no duplicate callbacks.
	e.cn.on(cn.OpPortOutPending.Action, http.StatusOK, portOutPage("PO-00001", "PO-00002"))
	n, err = e.proc.PollPortOutNotifications(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, e.callbacks(t, bss.SourcePortOut, item.ID), 1)

	assert.Equal(t, 3, e.deliver(t))
	item, err = e.store.GetPortOutItemByReference(ctx, "PO-00002")
	require.NoError(t, err)
	assert.Equal(t, int16(1), item.SubmittedToBss)

	_, err = e.proc.PollPortOutNotifications(ctx)
	require.NoError(t, err)
	assert.Len(t, e.callbacks(t, bss.SourcePortOut, item.ID), 1)
	assert.Len(t, *e.posts, 3)
}

func TestAcceptCancel_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.AcceptCancel(ctx, CancelInput{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.AcceptCancel(ctx, CancelInput{RequestID: 999})
	assert.ErrorIs(t, err, ErrNotFound)

	pending := e.portIn(t, "621800020")
	_, err = e.svc.AcceptCancel(ctx, CancelInput{RequestID: pending.ID})
	assert.ErrorIs(t, err, ErrNotSubmitted)

	e.cn.on(cn.OpCreatePortIn.Action, http.StatusOK, soap("respuestaCrearSolicitudIndividualAltaPortabilidadMovil",
		`<ns2:codigoRespuesta>AREC NRNRE</ns2:codigoRespuesta><ns2:codigoReferencia>REF-R</ns2:codigoReferencia>`))
	require.NoError(t, e.proc.HandlePortability(ctx, e.due(t, pending.ID)))
	_, err = e.svc.AcceptCancel(ctx, CancelInput{RequestID: pending.ID})
	assert.ErrorIs(t, err, ErrAlreadyClosed)

	// Unknown references are forwarded as-is.
	c, err := e.svc.AcceptCancel(ctx, CancelInput{ReferenceCode: "EXTERNAL-1", MSISDN: "621800021"})
	require.NoError(t, err)
	assert.Equal(t, "EXTERNAL-1", *c.ReferenceCode)
	assert.Nil(t, c.CancelRequestID)
}

func TestSearch_Pagination(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, msisdn := range []string{"621800030", "621800031", "621800032"} {
		e.portIn(t, msisdn)
	}

	res, err := e.svc.Search(ctx, SearchFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "621800032", res.Data[0].Msisdn)

	res, err = e.svc.Search(ctx, SearchFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "621800030", res.Data[0].Msisdn)

	msisdn := "000"
	res, err = e.svc.Search(ctx, SearchFilter{MSISDN: &msisdn, Limit: 500})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.NotNil(t, res.Data)
}

func TestLookups(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.cn.on(cn.OpQueryNumbering.Action, http.StatusOK, soap("respuestaConsultarNumeracion",
		`<ns2:codigoRespuesta>0000 00000</ns2:codigoRespuesta><ns2:codigoOperador>299</ns2:codigoOperador><ns2:NRN>712299</ns2:NRN>`))
	l, err := e.svc.QueryMSISDN(ctx, "621800040")
	require.NoError(t, err)
	assert.Equal(t, codes.CNSuccess, l.ResponseCode)
	assert.Equal(t, "299", l.Fields[cn.FieldOperator])

	e.cn.on(cn.OpQueryProcesses.Action, http.StatusOK, processes(record("REF-A", codes.EstadoConfirmed, "")))
	_, err = e.svc.QueryReturn(ctx, "621800040", "REF-MISSING")
	assert.ErrorIs(t, err, ErrNotFound)

	l, err = e.svc.QueryReturn(ctx, "621800040", "")
	require.NoError(t, err)
	require.Len(t, l.Records, 1)
	assert.Equal(t, codes.EstadoConfirmed, l.Records[0][cn.FieldEstado])

	e.cn.on(cn.OpInitiateSession.Action, http.StatusOK, sessionRefused)
	_, err = e.svc.QueryPortIn(ctx, "REF-A")
	assert.ErrorIs(t, err, ErrUpstream)
}
