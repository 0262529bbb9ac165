package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/database/memdb"
	"github.com/thrillee/mnpgateway/internal/lease"
	"github.com/thrillee/mnpgateway/internal/metrics"
	"github.com/thrillee/mnpgateway/internal/statemachine"
	"github.com/thrillee/mnpgateway/pkg/codes"
)

var now = time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)

type fakeGate struct{ open bool }

func (g fakeGate) InWorkingHours(string, time.Time) bool { return g.open }
func (fakeGate) Location(string) *time.Location { return time.UTC }
func (fakeGate) Now() time.Time { return now }

type recorder struct {
	mu          sync.Mutex
	portability []int64
	returns     []int64
	err         error
}

func (r *recorder) HandlePortability(_ context.Context, row database.PortabilityRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.portability = append(r.portability, row.ID)
	return r.err
}

func (r *recorder) HandleReturn(_ context.Context, row database.ReturnRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.returns = append(r.returns, row.ID)
	return r.err
}

func ptr[T any](v T) *T { return &v }

func portability(t *testing.T, store *memdb.Store, reqType string, state statemachine.State, at time.Time) database.PortabilityRequest {
	t.Helper()
	r, err := store.CreatePortabilityRequest(context.Background(), database.CreatePortabilityRequestParams{
		CountryCode: codes.CountrySpain,
		RequestType: reqType,
		Msisdn:      "621800000",
		StatusNc:    string(state),
		StatusBss:   codes.BSSProcessing,
		ScheduledAt: &at,
		CreatedAt:   now,
	})
	require.NoError(t, err)
	return r
}

type dispatchEnv struct {
	store  *memdb.Store
	rec    *recorder
	leases *lease.Memory
	pool   *Pool
	d      *Dispatcher
}

func newDispatchEnv(t *testing.T, open bool) *dispatchEnv {
	t.Helper()
	e := &dispatchEnv{store: memdb.New(), rec: &recorder{}, leases: lease.NewMemory()}
	e.pool = NewPool(context.Background(), PoolConfig{Size: 2, QueueSize: 4, JobTimeout: time.Second})
	e.d = NewDispatcher(e.store, e.rec, e.rec, fakeGate{open: open}, e.leases, e.pool, DispatcherConfig{LeaseTTL: time.Minute})
	return e
}

func TestPool_RunsEveryJob(t *testing.T) {
	p := NewPool(context.Background(), PoolConfig{Size: 3})
	var ran, done atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(context.Background(), Job{
			Family: "test",
			Run: func(ctx context.Context) error {
				ran.Add(1)
				if i%2 == 0 {
					return errors.New("boom")
				}
				return nil
			},
			Done: func() { done.Add(1) },
		}))
	}
	require.NoError(t, p.Close())
	assert.Equal(t, int32(10), ran.Load())
	assert.Equal(t, int32(10), done.Load())
}

func TestPool_JobHasDeadline(t *testing.T) {
	p := NewPool(context.Background(), PoolConfig{Size: 1, JobTimeout: 30 * time.Second})
	var deadline time.Time
	require.NoError(t, p.Submit(context.Background(), Job{Family: "test", Run: func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	}}))
	require.NoError(t, p.Close())
	assert.WithinDuration(t, time.Now().Add(30*time.Second), deadline, 5*time.Second)
}

func TestDispatcher_ClosedOutsideWorkingHours(t *testing.T) {
	e := newDispatchEnv(t, false)
	portability(t, e.store, codes.RequestPortIn, statemachine.PendingSubmit, now.Add(-time.Minute))

	n, err := e.d.DispatchPortability(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, e.pool.Close())
	assert.Empty(t, e.rec.portability)
}

func TestDispatcher_DispatchesOnlyDueActiveRows(t *testing.T) {
	e := newDispatchEnv(t, true)
	dueSubmit := portability(t, e.store, codes.RequestPortIn, statemachine.PendingSubmit, now.Add(-time.Minute))
	dueCancel := portability(t, e.store, codes.RequestCancellation, statemachine.PendingResponse, now)
	portability(t, e.store, codes.RequestPortIn, statemachine.Submitted, now.Add(time.Minute))
	portability(t, e.store, codes.RequestPortIn, statemachine.PortInCompleted, now.Add(-time.Hour))
	portability(t, e.store, codes.RequestExtension, statemachine.PendingSubmit, now.Add(-time.Hour))

	ret, err := e.store.CreateReturnRequest(context.Background(), database.CreateReturnRequestParams{
		CountryCode: codes.CountrySpain,
		RequestType: codes.RequestReturn,
		Msisdn:      "621800009",
		StatusNc:    string(statemachine.PendingSubmit),
		StatusBss:   codes.BSSProcessing,
		ScheduledAt: ptr(now.Add(-time.Minute)),
		CreatedAt:   now,
	})
	require.NoError(t, err)

	n, err := e.d.DispatchPortability(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = e.d.DispatchReturns(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, e.pool.Close())
	assert.ElementsMatch(t, []int64{dueSubmit.ID, dueCancel.ID}, e.rec.portability)
	assert.Equal(t, []int64{ret.ID}, e.rec.returns)
	assert.Zero(t, e.leases.Held(), "leases are released once handlers return")
}

func TestDispatcher_SkipsLeasedRows(t *testing.T) {
	e := newDispatchEnv(t, true)
	held := portability(t, e.store, codes.RequestPortIn, statemachine.PendingSubmit, now.Add(-time.Minute))
	free := portability(t, e.store, codes.RequestPortIn, statemachine.PendingSubmit, now.Add(-time.Minute))

	_, ok, err := e.leases.Acquire(context.Background(), fmt.Sprintf("%s:%d", FamilyPortability, held.ID), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	before := testutil.ToFloat64(metrics.LeaseContention.WithLabelValues(FamilyPortability))

	n, err := e.d.DispatchPortability(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, e.pool.Close())

	assert.Equal(t, []int64{free.ID}, e.rec.portability)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LeaseContention.WithLabelValues(FamilyPortability)))
	assert.Equal(t, 1, e.leases.Held())
}

func TestDispatcher_HandlerErrorsAreCounted(t *testing.T) {
	e := newDispatchEnv(t, true)
	e.rec.err = errors.New("cn down")
	portability(t, e.store, codes.RequestPortIn, statemachine.PendingSubmit, now.Add(-time.Minute))
	before := testutil.ToFloat64(metrics.DispatchedJobs.WithLabelValues(FamilyPortability, "error"))

	_, err := e.d.DispatchPortability(context.Background(), 10)
	require.NoError(t, err)
	require.NoError(t, e.pool.Close())

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DispatchedJobs.WithLabelValues(FamilyPortability, "error")))
	assert.Zero(t, e.leases.Held())
}

func TestRunWork_AppliesTimeout(t *testing.T) {
	var deadline time.Time
	n := runWork(context.Background(), Loop{
		Name:    "probe",
		Timeout: 10 * time.Second,
		Work: func(ctx context.Context, _ int) (int, error) {
			deadline, _ = ctx.Deadline()
			return 3, nil
		},
	})
	assert.Equal(t, 3, n)
	assert.WithinDuration(t, time.Now().Add(10*time.Second), deadline, 2*time.Second)
}

type countingPoller struct{ calls atomic.Int32 }

func (c *countingPoller) PollPortOutNotifications(context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestManager_RunsLoopsUntilCancelled(t *testing.T) {
	e := newDispatchEnv(t, true)
	poller := &countingPoller{}
	var callbacks atomic.Int32
	m := NewManager(e.d, e.pool, poller, fakeGate{open: true},
		func(context.Context, int) (int, error) { callbacks.Add(1); return 0, nil },
		nil,
		Config{
			DispatchInterval: 10 * time.Millisecond,
			ReturnInterval:   10 * time.Millisecond,
			PortOutInterval:  10 * time.Millisecond,
			CallbackInterval: 10 * time.Millisecond,
			RunTimeout:       time.Second,
		})

	loops := m.Loops()
	require.Len(t, loops, 4)
	for _, l := range loops {
		assert.Equal(t, time.Second, l.Timeout, l.Name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(ctx))

	assert.Positive(t, poller.calls.Load())
	assert.Positive(t, callbacks.Load())
}

func TestManager_PortOutPollRespectsWorkingHours(t *testing.T) {
	e := newDispatchEnv(t, false)
	poller := &countingPoller{}
	m := NewManager(e.d, e.pool, poller, fakeGate{open: false}, nil, nil, Config{})

	n, err := m.pollPortOut(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, poller.calls.Load())
	require.NoError(t, e.pool.Close())
}
