// Package memdb is an in-memory database.Store that applies the same row
// guards as the SQL queries. It backs unit tests across the repository.
package memdb

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/pkg/codes"
)

type seqKey struct {
	sender, recipient string
	day               string
}

type tables struct {
	nextID        int64
	portability   map[int64]database.PortabilityRequest
	returns       map[int64]database.ReturnRequest
	portOutMeta   map[int64]database.PortOutMetadata
	portOutItems  map[int64]database.PortOutItem
	callbacks     map[int64]database.BssCallback
	italyRequests map[int64]database.ItalyPortRequest
	italyHistory  map[int64]database.ItalyStatusHistory
	italyActions  map[int64]database.ItalyScheduledAction
	sequences     map[seqKey]int32
}

func (t tables) clone() tables {
	return tables{
		nextID:        t.nextID,
		portability:   maps.Clone(t.portability),
		returns:       maps.Clone(t.returns),
		portOutMeta:   maps.Clone(t.portOutMeta),
		portOutItems:  maps.Clone(t.portOutItems),
		callbacks:     maps.Clone(t.callbacks),
		italyRequests: maps.Clone(t.italyRequests),
		italyHistory:  maps.Clone(t.italyHistory),
		italyActions:  maps.Clone(t.italyActions),
		sequences:     maps.Clone(t.sequences),
	}
}

// Store implements database.Store in memory.
type Store struct {
	txMu sync.Mutex // serialises ExecTx
	mu   sync.Mutex
	t    tables

	// FailNext, when set, is returned (once) by the next ExecTx.
	FailNext error
}

func New() *Store {
	return &Store{t: tables{
		portability:   make(map[int64]database.PortabilityRequest),
		returns:       make(map[int64]database.ReturnRequest),
		portOutMeta:   make(map[int64]database.PortOutMetadata),
		portOutItems:  make(map[int64]database.PortOutItem),
		callbacks:     make(map[int64]database.BssCallback),
		italyRequests: make(map[int64]database.ItalyPortRequest),
		italyHistory:  make(map[int64]database.ItalyStatusHistory),
		italyActions:  make(map[int64]database.ItalyScheduledAction),
		sequences:     make(map[seqKey]int32),
	}}
}

// ExecTx runs fn; any error restores the tables to their state before fn.
func (s *Store) ExecTx(ctx context.Context, fn func(database.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	if err := s.FailNext; err != nil {
		s.FailNext = nil
		s.mu.Unlock()
		return err
	}
	saved := s.t.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.t = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) id() int64 {
	s.t.nextID++
	return s.t.nextID
}

func sortedKeys[V any](m map[int64]V) []int64 {
	return slices.Sorted(maps.Keys(m))
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func coalesce[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func due(scheduledAt *time.Time, now time.Time) bool {
	return scheduledAt == nil || !scheduledAt.After(now)
}

var _ database.Store = (*Store)(nil)

// --- portability requests ---

func (s *Store) CreatePortabilityRequest(_ context.Context, arg database.CreatePortabilityRequestParams) (database.PortabilityRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := database.PortabilityRequest{
		ID:                s.id(),
		CountryCode:       arg.CountryCode,
		RequestType:       arg.RequestType,
		ReferenceCode:     arg.ReferenceCode,
		SessionCode:       arg.SessionCode,
		Msisdn:            arg.Msisdn,
		Iccid:             arg.Iccid,
		DocumentType:      arg.DocumentType,
		DocumentNumber:    arg.DocumentNumber,
		FirstName:         arg.FirstName,
		FirstSurname:      arg.FirstSurname,
		SecondSurname:     arg.SecondSurname,
		CompanyName:       arg.CompanyName,
		DonorOperator:     arg.DonorOperator,
		RecipientOperator: arg.RecipientOperator,
		ContractNumber:    arg.ContractNumber,
		RoutingNumber:     arg.RoutingNumber,
		IsLegalEntity:     arg.IsLegalEntity,
		StatusNc:          arg.StatusNc,
		StatusBss:         arg.StatusBss,
		RequestedAt:       arg.RequestedAt,
		ScheduledAt:       arg.ScheduledAt,
		CancelRequestID:   arg.CancelRequestID,
		CreatedAt:         arg.CreatedAt,
		UpdatedAt:         arg.CreatedAt,
	}
	s.t.portability[r.ID] = r
	return r, nil
}

func (s *Store) GetPortabilityRequest(_ context.Context, id int64) (database.PortabilityRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.portability[id]
	if !ok {
		return database.PortabilityRequest{}, pgx.ErrNoRows
	}
	return r, nil
}

func (s *Store) GetPortabilityRequestByReference(_ context.Context, arg database.GetPortabilityRequestByReferenceParams) (database.PortabilityRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := sortedKeys(s.t.portability)
	for i := len(keys) - 1; i >= 0; i-- {
		r := s.t.portability[keys[i]]
		if deref(r.ReferenceCode) == arg.ReferenceCode && r.RequestType == arg.RequestType {
			return r, nil
		}
	}
	return database.PortabilityRequest{}, pgx.ErrNoRows
}

func (s *Store) UpdatePortabilityRequestState(_ context.Context, arg database.UpdatePortabilityRequestStateParams) (database.PortabilityRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.portability[arg.ID]
	if !ok || slices.Contains(arg.TerminalStates, r.StatusNc) {
		return database.PortabilityRequest{}, pgx.ErrNoRows
	}
	if arg.DueAt != nil && !due(r.ScheduledAt, *arg.DueAt) {
		return database.PortabilityRequest{}, pgx.ErrNoRows
	}
	r.StatusNc = arg.StatusNc
	r.ReferenceCode = coalesce(r.ReferenceCode, arg.ReferenceCode)
	r.SessionCodeNc = coalesce(arg.SessionCodeNc, r.SessionCodeNc)
	r.ResponseCode = arg.ResponseCode
	r.ResponseStatus = arg.ResponseStatus
	r.RejectCode = coalesce(arg.RejectCode, r.RejectCode)
	r.Description = arg.Description
	r.ErrorFields = arg.ErrorFields
	r.LastError = arg.LastError
	r.RetryCount = arg.RetryCount
	r.ScheduledAt = arg.ScheduledAt
	r.PortingWindow = coalesce(arg.PortingWindow, r.PortingWindow)
	r.CompletedAt = arg.CompletedAt
	r.UpdatedAt = arg.UpdatedAt
	s.t.portability[r.ID] = r
	return r, nil
}

func (s *Store) SelectDuePortabilityRequests(_ context.Context, arg database.SelectDuePortabilityRequestsParams) ([]database.PortabilityRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []database.PortabilityRequest
	for _, id := range sortedKeys(s.t.portability) {
		r := s.t.portability[id]
		if r.CountryCode == arg.CountryCode &&
			slices.Contains(arg.RequestTypes, r.RequestType) &&
			slices.Contains(arg.ActiveStates, r.StatusNc) &&
			due(r.ScheduledAt, arg.Now) {
			items = append(items, r)
		}
	}
	slices.SortStableFunc(items, func(a, b database.PortabilityRequest) int {
		return compareSchedule(a.ScheduledAt, b.ScheduledAt)
	})
	if len(items) > int(arg.RowLimit) {
		items = items[:arg.RowLimit]
	}
	return items, nil
}

// compareSchedule orders NULLS FIRST, then ascending.
func compareSchedule(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func (s *Store) UpdatePortabilityRequestStatusBSS(_ context.Context, arg database.UpdatePortabilityRequestStatusBSSParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.portability[arg.ID]
	if !ok || r.BssTerminal {
		return 0, nil
	}
	r.StatusBss = arg.StatusBss
	r.BssTerminal = r.BssTerminal || arg.Terminal
	r.UpdatedAt = arg.UpdatedAt
	s.t.portability[r.ID] = r
	return 1, nil
}

func (s *Store) matchSearch(r database.PortabilityRequest, msisdn, ref, reqType, status *string, from, to *time.Time) bool {
	return (msisdn == nil || r.Msisdn == *msisdn) &&
		(ref == nil || deref(r.ReferenceCode) == *ref) &&
		(reqType == nil || r.RequestType == *reqType) &&
		(status == nil || r.StatusNc == *status) &&
		(from == nil || !r.CreatedAt.Before(*from)) &&
		(to == nil || r.CreatedAt.Before(*to))
}

func (s *Store) SearchPortabilityRequests(_ context.Context, arg database.SearchPortabilityRequestsParams) ([]database.PortabilityRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := sortedKeys(s.t.portability)
	slices.Reverse(keys)
	var items []database.PortabilityRequest
	skipped := int32(0)
	for _, id := range keys {
		r := s.t.portability[id]
		if !s.matchSearch(r, arg.Msisdn, arg.ReferenceCode, arg.RequestType, arg.StatusNc, arg.CreatedFrom, arg.CreatedTo) {
			continue
		}
		if skipped < arg.RowOffset {
			skipped++
			continue
		}
		if len(items) >= int(arg.RowLimit) {
			break
		}
		items = append(items, r)
	}
	return items, nil
}

func (s *Store) CountPortabilityRequests(_ context.Context, arg database.CountPortabilityRequestsParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.t.portability {
		if s.matchSearch(r, arg.Msisdn, arg.ReferenceCode, arg.RequestType, arg.StatusNc, arg.CreatedFrom, arg.CreatedTo) {
			n++
		}
	}
	return n, nil
}

// --- return requests ---

func (s *Store) CreateReturnRequest(_ context.Context, arg database.CreateReturnRequestParams) (database.ReturnRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := database.ReturnRequest{
		ID:                 s.id(),
		CountryCode:        arg.CountryCode,
		RequestType:        arg.RequestType,
		ReferenceCode:      arg.ReferenceCode,
		SessionCode:        arg.SessionCode,
		Msisdn:             arg.Msisdn,
		DocumentType:       arg.DocumentType,
		DocumentNumber:     arg.DocumentNumber,
		DonorOperator:      arg.DonorOperator,
		RecipientOperator:  arg.RecipientOperator,
		RequestDate:        arg.RequestDate,
		CancellationReason: arg.CancellationReason,
		StatusNc:           arg.StatusNc,
		StatusBss:          arg.StatusBss,
		ScheduledAt:        arg.ScheduledAt,
		CancelReturnID:     arg.CancelReturnID,
		CreatedAt:          arg.CreatedAt,
		UpdatedAt:          arg.CreatedAt,
	}
	s.t.returns[r.ID] = r
	return r, nil
}

func (s *Store) GetReturnRequest(_ context.Context, id int64) (database.ReturnRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.returns[id]
	if !ok {
		return database.ReturnRequest{}, pgx.ErrNoRows
	}
	return r, nil
}

func (s *Store) GetReturnRequestByReference(_ context.Context, arg database.GetReturnRequestByReferenceParams) (database.ReturnRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := sortedKeys(s.t.returns)
	for i := len(keys) - 1; i >= 0; i-- {
		r := s.t.returns[keys[i]]
		if deref(r.ReferenceCode) == arg.ReferenceCode && r.RequestType == arg.RequestType {
			return r, nil
		}
	}
	return database.ReturnRequest{}, pgx.ErrNoRows
}

func (s *Store) UpdateReturnRequestState(_ context.Context, arg database.UpdateReturnRequestStateParams) (database.ReturnRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.returns[arg.ID]
	if !ok || slices.Contains(arg.TerminalStates, r.StatusNc) {
		return database.ReturnRequest{}, pgx.ErrNoRows
	}
	if arg.DueAt != nil && !due(r.ScheduledAt, *arg.DueAt) {
		return database.ReturnRequest{}, pgx.ErrNoRows
	}
	r.StatusNc = arg.StatusNc
	r.ReferenceCode = coalesce(r.ReferenceCode, arg.ReferenceCode)
	r.SessionCodeNc = coalesce(arg.SessionCodeNc, r.SessionCodeNc)
	r.ResponseCode = arg.ResponseCode
	r.ResponseStatus = arg.ResponseStatus
	r.RejectCode = coalesce(arg.RejectCode, r.RejectCode)
	r.Description = arg.Description
	r.ErrorFields = arg.ErrorFields
	r.LastError = arg.LastError
	r.RetryCount = arg.RetryCount
	r.ScheduledAt = arg.ScheduledAt
	r.CnCreatedAt = coalesce(arg.CnCreatedAt, r.CnCreatedAt)
	r.CnUpdatedAt = coalesce(arg.CnUpdatedAt, r.CnUpdatedAt)
	r.CompletedAt = arg.CompletedAt
	r.UpdatedAt = arg.UpdatedAt
	s.t.returns[r.ID] = r
	return r, nil
}

func (s *Store) SelectDueReturnRequests(_ context.Context, arg database.SelectDueReturnRequestsParams) ([]database.ReturnRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []database.ReturnRequest
	for _, id := range sortedKeys(s.t.returns) {
		r := s.t.returns[id]
		if r.CountryCode == arg.CountryCode &&
			slices.Contains(arg.RequestTypes, r.RequestType) &&
			slices.Contains(arg.ActiveStates, r.StatusNc) &&
			due(r.ScheduledAt, arg.Now) {
			items = append(items, r)
		}
	}
	slices.SortStableFunc(items, func(a, b database.ReturnRequest) int {
		return compareSchedule(a.ScheduledAt, b.ScheduledAt)
	})
	if len(items) > int(arg.RowLimit) {
		items = items[:arg.RowLimit]
	}
	return items, nil
}

func (s *Store) UpdateReturnRequestStatusBSS(_ context.Context, arg database.UpdateReturnRequestStatusBSSParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.returns[arg.ID]
	if !ok || r.BssTerminal {
		return 0, nil
	}
	r.StatusBss = arg.StatusBss
	r.BssTerminal = r.BssTerminal || arg.Terminal
	r.UpdatedAt = arg.UpdatedAt
	s.t.returns[r.ID] = r
	return 1, nil
}

// --- port-out ---

func (s *Store) CreatePortOutMetadata(_ context.Context, arg database.CreatePortOutMetadataParams) (database.PortOutMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := database.PortOutMetadata{
		ID:                s.id(),
		PageNumber:        arg.PageNumber,
		FirstRecord:       arg.FirstRecord,
		ResponseCode:      arg.ResponseCode,
		Description:       arg.Description,
		NotificationCount: arg.NotificationCount,
		SessionCodeNc:     arg.SessionCodeNc,
		RequestedAt:       arg.RequestedAt,
		CreatedAt:         arg.RequestedAt,
	}
	s.t.portOutMeta[m.ID] = m
	return m, nil
}

func (s *Store) InsertPortOutItem(_ context.Context, arg database.InsertPortOutItemParams) (database.PortOutItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.t.portOutItems {
		if it.ReferenceCode == arg.ReferenceCode {
			return database.PortOutItem{}, pgx.ErrNoRows // ON CONFLICT DO NOTHING
		}
	}
	it := database.PortOutItem{
		ID:                s.id(),
		MetadataID:        arg.MetadataID,
		ReferenceCode:     arg.ReferenceCode,
		Msisdn:            arg.Msisdn,
		DonorOperator:     arg.DonorOperator,
		RecipientOperator: arg.RecipientOperator,
		ResponseCode:      arg.ResponseCode,
		ResponseStatus:    arg.ResponseStatus,
		Description:       arg.Description,
		PortingWindow:     arg.PortingWindow,
		CnCreatedAt:       arg.CnCreatedAt,
		StatusNc:          arg.StatusNc,
		StatusBss:         arg.StatusBss,
		CreatedAt:         arg.CreatedAt,
		UpdatedAt:         arg.CreatedAt,
	}
	s.t.portOutItems[it.ID] = it
	return it, nil
}

func (s *Store) GetPortOutItem(_ context.Context, id int64) (database.PortOutItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.t.portOutItems[id]
	if !ok {
		return database.PortOutItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (s *Store) GetPortOutItemByReference(_ context.Context, referenceCode string) (database.PortOutItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.t.portOutItems {
		if it.ReferenceCode == referenceCode {
			return it, nil
		}
	}
	return database.PortOutItem{}, pgx.ErrNoRows
}

func (s *Store) MarkPortOutItemSubmitted(_ context.Context, arg database.MarkPortOutItemSubmittedParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.t.portOutItems[arg.ID]
	if !ok || it.SubmittedToBss != 0 {
		return 0, nil
	}
	it.SubmittedToBss = 1
	it.StatusBss = arg.StatusBss
	it.UpdatedAt = arg.UpdatedAt
	s.t.portOutItems[it.ID] = it
	return 1, nil
}

// --- BSS callbacks ---

func (s *Store) EnqueueBSSCallback(_ context.Context, arg database.EnqueueBSSCallbackParams) (database.BssCallback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := database.BssCallback{
		ID:               s.id(),
		SourceKind:       arg.SourceKind,
		SourceID:         arg.SourceID,
		Url:              arg.Url,
		Payload:          arg.Payload,
		DerivedStatusBss: arg.DerivedStatusBss,
		Terminal:         arg.Terminal,
		Status:           codes.CallbackPending,
		MaxAttempts:      arg.MaxAttempts,
		NextAttemptAt:    arg.NextAttemptAt,
		CreatedAt:        arg.NextAttemptAt,
	}
	s.t.callbacks[c.ID] = c
	return c, nil
}

func (s *Store) ClaimDueBSSCallbacks(_ context.Context, arg database.ClaimDueBSSCallbacksParams) ([]database.BssCallback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type source struct {
		kind string
		id   int64
	}
	seen := make(map[source]bool)
	var items []database.BssCallback
	for _, id := range sortedKeys(s.t.callbacks) {
		c := s.t.callbacks[id]
		if c.Status != codes.CallbackPending {
			continue
		}
		src := source{c.SourceKind, c.SourceID}
		if seen[src] {
			continue // an older pending callback of this source goes first
		}
		seen[src] = true
		if c.NextAttemptAt.After(arg.Now) {
			continue
		}
		if c.LockedAt != nil && !c.LockedAt.Before(arg.LockExpiredBefore) {
			continue
		}
		if len(items) >= int(arg.RowLimit) {
			break
		}
		lockedBy, lockedAt := arg.LockedBy, arg.Now
		c.LockedBy, c.LockedAt = &lockedBy, &lockedAt
		s.t.callbacks[id] = c
		items = append(items, c)
	}
	return items, nil
}

func (s *Store) MarkBSSCallbackDelivered(_ context.Context, arg database.MarkBSSCallbackDeliveredParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.t.callbacks[arg.ID]
	if !ok {
		return nil
	}
	delivered := arg.DeliveredAt
	c.Status = codes.CallbackDelivered
	c.Attempts++
	c.DeliveredAt = &delivered
	c.LastError, c.LockedBy, c.LockedAt = nil, nil, nil
	s.t.callbacks[c.ID] = c
	return nil
}

func (s *Store) MarkBSSCallbackFailed(_ context.Context, arg database.MarkBSSCallbackFailedParams) (database.BssCallback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.t.callbacks[arg.ID]
	if !ok {
		return database.BssCallback{}, pgx.ErrNoRows
	}
	c.Attempts++
	c.Status = codes.CallbackPending
	if c.Attempts >= c.MaxAttempts {
		c.Status = codes.CallbackFailed
	}
	c.NextAttemptAt = arg.NextAttemptAt
	c.LastError = arg.LastError
	c.LockedBy, c.LockedAt = nil, nil
	s.t.callbacks[c.ID] = c
	return c, nil
}

func (s *Store) HasPendingBSSCallback(_ context.Context, arg database.HasPendingBSSCallbackParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.t.callbacks {
		if c.SourceKind == arg.SourceKind && c.SourceID == arg.SourceID && c.Status == codes.CallbackPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListBSSCallbacksBySource(_ context.Context, arg database.ListBSSCallbacksBySourceParams) ([]database.BssCallback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []database.BssCallback
	for _, id := range sortedKeys(s.t.callbacks) {
		c := s.t.callbacks[id]
		if c.SourceKind == arg.SourceKind && c.SourceID == arg.SourceID {
			items = append(items, c)
		}
	}
	return items, nil
}

// --- Italy ---

func (s *Store) GetItalyPortRequest(_ context.Context, id int64) (database.ItalyPortRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.italyRequests[id]
	if !ok {
		return database.ItalyPortRequest{}, pgx.ErrNoRows
	}
	return r, nil
}

func (s *Store) GetItalyPortRequestByCodeForUpdate(_ context.Context, code string) (database.ItalyPortRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.t.italyRequests {
		if r.RecipientRequestCode == code {
			return r, nil
		}
	}
	return database.ItalyPortRequest{}, pgx.ErrNoRows
}

func (s *Store) UpsertItalyPortRequest(_ context.Context, arg database.UpsertItalyPortRequestParams) (database.ItalyPortRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.t.italyRequests {
		if r.RecipientRequestCode != arg.RecipientRequestCode {
			continue
		}
		r.Msisdn = coalesce(arg.Msisdn, r.Msisdn)
		r.MessageTypeCode = arg.MessageTypeCode
		r.ProcessStatus = arg.ProcessStatus
		r.CutOverDate = coalesce(arg.CutOverDate, r.CutOverDate)
		r.SenderOperator = arg.SenderOperator
		r.RecipientOperator = arg.RecipientOperator
		if arg.Amount.Valid {
			r.Amount = arg.Amount
		}
		r.FileName = arg.FileName
		r.FileTs = arg.FileTs
		r.RawXml = arg.RawXml
		r.UpdatedAt = arg.Now
		s.t.italyRequests[id] = r
		return r, nil
	}
	r := database.ItalyPortRequest{
		ID:                   s.id(),
		RecipientRequestCode: arg.RecipientRequestCode,
		Msisdn:               arg.Msisdn,
		MessageTypeCode:      arg.MessageTypeCode,
		ProcessStatus:        arg.ProcessStatus,
		CutOverDate:          arg.CutOverDate,
		SenderOperator:       arg.SenderOperator,
		RecipientOperator:    arg.RecipientOperator,
		Amount:               arg.Amount,
		FileName:             arg.FileName,
		FileTs:               arg.FileTs,
		RawXml:               arg.RawXml,
		CreatedAt:            arg.Now,
		UpdatedAt:            arg.Now,
	}
	s.t.italyRequests[r.ID] = r
	return r, nil
}

func (s *Store) UpdateItalyProcessStatus(_ context.Context, arg database.UpdateItalyProcessStatusParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.t.italyRequests[arg.ID]
	if !ok {
		return nil
	}
	r.ProcessStatus = arg.ProcessStatus
	r.UpdatedAt = arg.UpdatedAt
	s.t.italyRequests[r.ID] = r
	return nil
}

func (s *Store) InsertItalyStatusHistory(_ context.Context, arg database.InsertItalyStatusHistoryParams) (database.ItalyStatusHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := database.ItalyStatusHistory{
		ID:              s.id(),
		RequestID:       arg.RequestID,
		OldStatus:       arg.OldStatus,
		NewStatus:       arg.NewStatus,
		MessageTypeCode: arg.MessageTypeCode,
		Reason:          arg.Reason,
		Payload:         arg.Payload,
		CreatedAt:       arg.CreatedAt,
	}
	s.t.italyHistory[h.ID] = h
	return h, nil
}

func (s *Store) ListItalyStatusHistory(_ context.Context, requestID int64) ([]database.ItalyStatusHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []database.ItalyStatusHistory
	for _, id := range sortedKeys(s.t.italyHistory) {
		if h := s.t.italyHistory[id]; h.RequestID == requestID {
			items = append(items, h)
		}
	}
	return items, nil
}

func (s *Store) CreateItalyScheduledAction(_ context.Context, arg database.CreateItalyScheduledActionParams) (database.ItalyScheduledAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := database.ItalyScheduledAction{
		ID:                   s.id(),
		RequestID:            arg.RequestID,
		ActionType:           arg.ActionType,
		ScheduledAt:          arg.ScheduledAt,
		ExpiresAt:            arg.ExpiresAt,
		DependsOnMessageType: arg.DependsOnMessageType,
		DependsOnStatus:      arg.DependsOnStatus,
		Status:               codes.ActionPending,
		CreatedAt:            arg.CreatedAt,
		UpdatedAt:            arg.CreatedAt,
	}
	s.t.italyActions[a.ID] = a
	return a, nil
}

func (s *Store) ClaimDueItalyActions(_ context.Context, arg database.ClaimDueItalyActionsParams) ([]database.ItalyScheduledAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var candidates []database.ItalyScheduledAction
	for _, a := range s.t.italyActions {
		pending := a.Status == codes.ActionPending && !a.ScheduledAt.After(arg.Now)
		abandoned := a.Status == codes.ActionExecuting && a.UpdatedAt.Before(arg.StaleBefore)
		if pending || abandoned {
			candidates = append(candidates, a)
		}
	}
	slices.SortFunc(candidates, func(a, b database.ItalyScheduledAction) int {
		if c := a.ScheduledAt.Compare(b.ScheduledAt); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	if len(candidates) > int(arg.RowLimit) {
		candidates = candidates[:arg.RowLimit]
	}
	for i := range candidates {
		candidates[i].Status = codes.ActionExecuting
		candidates[i].Attempts++
		candidates[i].UpdatedAt = arg.Now
		s.t.italyActions[candidates[i].ID] = candidates[i]
	}
	return candidates, nil
}

func (s *Store) FinishItalyAction(_ context.Context, arg database.FinishItalyActionParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.t.italyActions[arg.ID]
	if !ok {
		return nil
	}
	a.Status = arg.Status
	a.LastError = arg.LastError
	a.UpdatedAt = arg.UpdatedAt
	s.t.italyActions[a.ID] = a
	return nil
}

func (s *Store) RescheduleItalyAction(_ context.Context, arg database.RescheduleItalyActionParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.t.italyActions[arg.ID]
	if !ok {
		return nil
	}
	a.Status = codes.ActionPending
	a.ScheduledAt = arg.ScheduledAt
	a.LastError = arg.LastError
	a.UpdatedAt = arg.UpdatedAt
	s.t.italyActions[a.ID] = a
	return nil
}

func (s *Store) CancelPendingItalyActions(_ context.Context, arg database.CancelPendingItalyActionsParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.t.italyActions {
		if a.RequestID != arg.RequestID || a.Status != codes.ActionPending {
			continue
		}
		a.Status = codes.ActionCancelled
		a.LastError = arg.Reason
		a.UpdatedAt = arg.UpdatedAt
		s.t.italyActions[id] = a
		n++
	}
	return n, nil
}

func (s *Store) ListItalyActionsByRequest(_ context.Context, requestID int64) ([]database.ItalyScheduledAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []database.ItalyScheduledAction
	for _, id := range sortedKeys(s.t.italyActions) {
		if a := s.t.italyActions[id]; a.RequestID == requestID {
			items = append(items, a)
		}
	}
	return items, nil
}

func (s *Store) NextItalyFileSequence(_ context.Context, arg database.NextItalyFileSequenceParams) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := seqKey{arg.Sender, arg.Recipient, arg.SeqDate.Format(time.DateOnly)}
	s.t.sequences[k]++
	return s.t.sequences[k], nil
}
