package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/thrillee/mnpgateway/internal/api/dto"
	"github.com/thrillee/mnpgateway/internal/auth"
	"github.com/thrillee/mnpgateway/internal/cn"
	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/database/memdb"
	"github.com/thrillee/mnpgateway/internal/italy"
	"github.com/thrillee/mnpgateway/internal/porting"
	"github.com/thrillee/mnpgateway/internal/schedule"
	"github.com/thrillee/mnpgateway/pkg/codes"
	"github.com/thrillee/mnpgateway/pkg/xmlfields"
)

const (
	testUser     = "bss"
	testPassword = "s3cret"
)

func ptr[T any](v T) *T { return &v }

// fakePorting records inputs and answers with canned values.
type fakePorting struct {
	mu       sync.Mutex
	portIns  []porting.PortInInput
	cancels  []porting.CancelInput
	returns  []porting.ReturnInput
	rcancels []porting.ReturnCancelInput
	filters  []porting.SearchFilter
	lookups  []string
	err      error
	lookup   porting.Lookup
	search   porting.SearchResult
}

func (f *fakePorting) AcceptPortIn(_ context.Context, in porting.PortInInput) (database.PortabilityRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.portIns = append(f.portIns, in)
	return database.PortabilityRequest{ID: 41, Msisdn: in.MSISDN}, f.err
}

func (f *fakePorting) AcceptCancel(_ context.Context, in porting.CancelInput) (database.PortabilityRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, in)
	return database.PortabilityRequest{ID: 42, ReferenceCode: ptr("REF-1")}, f.err
}

func (f *fakePorting) AcceptReturn(_ context.Context, in porting.ReturnInput) (database.ReturnRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.returns = append(f.returns, in)
	return database.ReturnRequest{ID: 43, RequestType: codes.RequestReturn, Msisdn: in.MSISDN, SessionCode: &in.SessionCode}, f.err
}

func (f *fakePorting) AcceptReturnCancel(_ context.Context, in porting.ReturnCancelInput) (database.ReturnRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rcancels = append(f.rcancels, in)
	return database.ReturnRequest{
		ID:            44,
		RequestType:   codes.RequestReturnCancellation,
		Msisdn:        "621800000",
		ReferenceCode: ptr("BAJA-1"),
		SessionCode:   &in.SessionCode,
	}, f.err
}

func (f *fakePorting) Search(_ context.Context, filter porting.SearchFilter) (porting.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.search, f.err
}

func (f *fakePorting) QueryMSISDN(_ context.Context, msisdn string) (porting.Lookup, error) {
	f.record("msisdn:" + msisdn)
	return f.lookup, f.err
}

func (f *fakePorting) QueryPortIn(_ context.Context, ref string) (porting.Lookup, error) {
	f.record("portin:" + ref)
	return f.lookup, f.err
}

func (f *fakePorting) QueryReturn(_ context.Context, msisdn, ref string) (porting.Lookup, error) {
	f.record("return:" + msisdn + "/" + ref)
	return f.lookup, f.err
}

func (f *fakePorting) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, s)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type env struct {
	svc    *fakePorting
	store  *memdb.Store
	router *gin.Engine
}

func newEnv(t *testing.T, db Pinger) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	clock := schedule.NewFixedClock(time.Date(2025, 10, 20, 12, 1, 0, 0, rome))
	calc := schedule.NewCalculator(schedule.Config{Location: rome, Clock: clock})
	window, err := schedule.NewWindow("MON-FRI", "10:00", "19:00")
	require.NoError(t, err)
	calc.Register(codes.CountryItaly, schedule.AnyMessageType, schedule.Plan{Windows: []schedule.Window{window}})

	e := &env{svc: &fakePorting{}, store: memdb.New()}
	ingestor := italy.NewIngestor(e.store, calc, italy.Config{OperatorCode: "LMIT"})
	e.router = NewRouter(NewHandler(e.svc, ingestor), RouterConfig{
		Users:          auth.Users{testUser: string(hash)},
		MaxUploadBytes: 1 << 20,
		DB:             db,
		Breakers:       func() map[string]any { return map[string]any{"portability": map[string]any{"state": "closed"}} },
	})
	return e
}

func (e *env) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(testUser, testPassword)
	return e.do(t, req)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func validPortIn() map[string]any {
	return map[string]any{
		"session_code":    "BSS-1",
		"msisdn":          "621800000",
		"iccid":           "8934012345678901234",
		"donor_operator":  "715",
		"document_type":   "nif",
		"document_number": "12345678Z",
		"first_name":      "Ana",
		"first_surname":   "Garcia",
	}
}

func TestHealth_ReportsDatabaseAndBreakers(t *testing.T) {
	e := newEnv(t, pinger{})
	w := e.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ok", body["db"])
	assert.Contains(t, body["cn"], "portability")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	e = newEnv(t, pinger{err: errors.New("down")})
	w = e.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsIsOpen(t *testing.T) {
	e := newEnv(t, nil)
	w := e.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRequestIDIsEchoed(t *testing.T) {
	e := newEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := e.do(t, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestProtectedRoutesRequireBasicAuth(t *testing.T) {
	e := newEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/port-in", bytes.NewReader([]byte(`{}`)))
	w := e.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")

	req = httptest.NewRequest(http.MethodPost, "/port-in", bytes.NewReader([]byte(`{}`)))
	req.SetBasicAuth(testUser, "wrong")
	w = e.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, e.svc.portIns)
}

func TestPortIn_Accepted(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post(t, "/port-in", validPortIn())
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	resp := decode[dto.PortInResponse](t, w)
	assert.Equal(t, int64(41), resp.ID)
	assert.Equal(t, "BSS-1", resp.SessionCode)
	assert.Equal(t, "PROCESSING", resp.Status)
	assert.NotEmpty(t, resp.Message)

	require.Len(t, e.svc.portIns, 1)
	in := e.svc.portIns[0]
	assert.Equal(t, "NIF", in.DocumentType)
	assert.Equal(t, "621800000", in.MSISDN)
	assert.Equal(t, "Ana", in.FirstName)
}

func TestPortIn_ValidationErrors(t *testing.T) {
	e := newEnv(t, nil)
	body := validPortIn()
	body["msisdn"] = "62-18"
	body["document_type"] = "DNI"
	delete(body, "first_name")

	w := e.post(t, "/port-in", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, "msisdn", resp.Fields["msisdn"])
	assert.Equal(t, "doc_type", resp.Fields["document_type"])
	assert.Equal(t, "required_without=CompanyName", resp.Fields["first_name"])
	assert.Empty(t, e.svc.portIns)
}

func TestPortIn_CompanyNeedsNoPersonName(t *testing.T) {
	e := newEnv(t, nil)
	body := validPortIn()
	delete(body, "first_name")
	delete(body, "first_surname")
	body["company_name"] = "ACME SL"
	body["document_type"] = "CIF"

	w := e.post(t, "/port-in", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "ACME SL", e.svc.portIns[0].CompanyName)
}

func TestCancel_Accepted(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post(t, "/cancel", map[string]any{"session_code": "BSS-2", "reference_code": "REF-1"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	resp := decode[dto.CancelResponse](t, w)
	assert.Equal(t, int64(42), resp.RequestID)
	assert.Equal(t, "REF-1", resp.ReferenceCode)
	assert.Equal(t, "BSS-2", resp.SessionCode)
	assert.Equal(t, "PROCESSING", resp.Status)
}

func TestCancel_NeedsTarget(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post(t, "/cancel", map[string]any{"session_code": "BSS-2"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[dto.ErrorResponse](t, w).Fields, "request_id")
	assert.Empty(t, e.svc.cancels)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: port-in 9", porting.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: port-in 9", porting.ErrNotSubmitted), http.StatusConflict},
		{fmt.Errorf("%w: port-in 9 is CANCELLED", porting.ErrAlreadyClosed), http.StatusConflict},
		{fmt.Errorf("%w: %w", porting.ErrUpstream, errors.New("dial tcp")), http.StatusBadGateway},
		{fmt.Errorf("%w: %w", porting.ErrUpstream, cn.ErrCircuitOpen), http.StatusServiceUnavailable},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			e := newEnv(t, nil)
			e.svc.err = tc.err
			w := e.post(t, "/cancel", map[string]any{"session_code": "S", "request_id": 9})
			assert.Equal(t, tc.want, w.Code)
			assert.NotEmpty(t, decode[dto.ErrorResponse](t, w).Error)
		})
	}
}

func TestReturnRequestAndCancel(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post(t, "/return-request", map[string]any{
		"session_code":    "BSS-3",
		"msisdn":          "621800000",
		"donor_operator":  "715",
		"document_type":   "NIE",
		"document_number": "X1234567L",
		"request_date":    "2025-10-20T10:00:00+02:00",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	resp := decode[dto.ReturnResponse](t, w)
	assert.Equal(t, int64(43), resp.ID)
	assert.Equal(t, codes.RequestReturn, resp.RequestType)
	assert.Equal(t, "BSS-3", resp.SessionCode)
	require.NotNil(t, e.svc.returns[0].RequestDate)

	w = e.post(t, "/return-cancel", map[string]any{"session_code": "BSS-4", "return_id": 43, "reason": "CANC_ERROR"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	resp = decode[dto.ReturnResponse](t, w)
	assert.Equal(t, codes.RequestReturnCancellation, resp.RequestType)
	require.NotNil(t, resp.ReferenceCode)
	assert.Equal(t, "BAJA-1", *resp.ReferenceCode)
	assert.Equal(t, "CANC_ERROR", e.svc.rcancels[0].Reason)
}

func TestSynchronousLookups(t *testing.T) {
	e := newEnv(t, nil)
	e.svc.lookup = porting.Lookup{
		ResponseCode: "0000 00000",
		Description:  "OK",
		Fields:       map[string]string{"codigoOperador": "715"},
		ErrorFields:  []xmlfields.FieldError{{Name: "MSISDN", Description: "bad"}},
	}

	w := e.post(t, "/msisdn-status", map[string]any{"msisdn": "621800000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[dto.LookupResponse](t, w)
	assert.Equal(t, "0000 00000", resp.ResponseCode)
	assert.Equal(t, "715", resp.Fields["codigoOperador"])
	require.Len(t, resp.ErrorFields, 1)

	w = e.post(t, "/portin-status", map[string]any{"reference_code": "REF-1"})
	require.Equal(t, http.StatusOK, w.Code)
	w = e.post(t, "/return-status", map[string]any{"msisdn": "621800000", "reference_code": "BAJA-1"})
	require.Equal(t, http.StatusOK, w.Code)
	w = e.post(t, "/portin-status", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, []string{"msisdn:621800000", "portin:REF-1", "return:621800000/BAJA-1"}, e.svc.lookups)
}

func TestOrdersSearch(t *testing.T) {
	e := newEnv(t, nil)
	created := time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)
	e.svc.search = porting.SearchResult{Total: 250, Data: []database.PortabilityRequest{
		{ID: 7, CountryCode: codes.CountrySpain, RequestType: codes.RequestPortIn, Msisdn: "621800000", StatusNc: "SUBMITTED", CreatedAt: created},
	}}

	w := e.post(t, "/orders-search", map[string]any{"msisdn": "621800000", "request_type": "PORT_IN", "limit": 500, "offset": 100})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[dto.OrdersSearchResponse](t, w)
	assert.Equal(t, int64(250), resp.TotalRecords)
	assert.Equal(t, int32(porting.MaxLimit), resp.Limit)
	assert.Equal(t, int32(100), resp.Offset)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(7), resp.Data[0].ID)
	assert.Equal(t, "SUBMITTED", resp.Data[0].StatusNc)

	require.Len(t, e.svc.filters, 1)
	require.NotNil(t, e.svc.filters[0].MSISDN)
	assert.Equal(t, "621800000", *e.svc.filters[0].MSISDN)

	w = e.post(t, "/orders-search", map[string]any{"request_type": "BOGUS"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBSSWebhookIsAcknowledged(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post(t, "/bss-webhook", map[string]any{"request_id": 1, "status": "PORT_IN_COMPLETED"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func upload(t *testing.T, fields map[string]string, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if content != nil {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/receive", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.SetBasicAuth(testUser, testPassword)
	return req
}

const activationXML = `<?xml version="1.0" encoding="UTF-8"?>
<MNP_MESSAGGIO>
  <TIPO_MESSAGGIO>1</TIPO_MESSAGGIO>
  <CODICE_RICHIESTA_RECIPIENT>PMOB-2025-0001</CODICE_RICHIESTA_RECIPIENT>
  <MSISDN>393508225575</MSISDN>
  <DATA_CUT_OVER>2025-10-22</DATA_CUT_OVER>
</MNP_MESSAGGIO>`

func TestReceive_ActivationFile(t *testing.T) {
	e := newEnv(t, nil)
	name := "PMOB20251020120055LMIT99137.xml"
	w := e.do(t, upload(t, map[string]string{"filename": name, "filets": "1"}, "upload.xml", []byte(activationXML)))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	ack := decode[italy.Ack](t, w)
	assert.Equal(t, "ACKNOWLEDGED", ack.Status)
	assert.NotEmpty(t, ack.MessageID)
	assert.False(t, ack.Timestamp.IsZero())

	r, err := e.store.GetItalyPortRequestByCodeForUpdate(context.Background(), "PMOB-2025-0001")
	require.NoError(t, err)
	assert.Equal(t, name, r.FileName)
	actions, err := e.store.ListItalyActionsByRequest(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "SEND_MSG1", actions[0].ActionType)
}

func TestReceive_UsesUploadNameWhenFieldMissing(t *testing.T) {
	e := newEnv(t, nil)
	w := e.do(t, upload(t, nil, "PMOB20251020120055LMIT00001.xml", []byte(activationXML)))
	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
}

func TestReceive_Rejections(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(t, upload(t, map[string]string{"filename": "bad.xml"}, "bad.xml", []byte(activationXML)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, upload(t, map[string]string{"filename": "PMOB20251020120055LMIT99137.xml"}, "", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file is required", decode[dto.ErrorResponse](t, w).Error)

	w = e.do(t, upload(t, map[string]string{"filename": "PMOB20251020120055LMIT99137.xml", "message_type": "99"}, "x.xml", []byte(activationXML)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
