package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr error
	}{
		{"pending submit goes anywhere", PendingSubmit, PortInCompleted, nil},
		{"pending submit to failure", PendingSubmit, RequestFailed, nil},
		{"submitted to pending response", Submitted, PendingResponse, nil},
		{"same state poll", PendingResponse, PendingResponse, nil},
		{"confirmed to completed", PortInConfirmed, PortInCompleted, nil},
		{"failure retried into submitted", RequestFailed, ReSubmitted, nil},
		{"confirmed cannot go back to submitted", PortInConfirmed, Submitted, ErrIllegalTransition},
		{"submitted cannot go back to pending submit", Submitted, PendingSubmit, ErrIllegalTransition},
		{"terminal absorbs", PortInCompleted, PortInCancelled, ErrTerminalState},
		{"terminal absorbs same state", MaxRetriesExceeded, MaxRetriesExceeded, ErrTerminalState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTerminalSet(t *testing.T) {
	for _, s := range []State{PortInCompleted, PortInRejected, PortInCancelled, CancelConfirmed,
		ReturnConfirmed, ReturnRejected, MaxRetriesExceeded} {
		assert.True(t, IsTerminal(s), s)
		assert.NotContains(t, ActiveStates(), string(s))
	}
	for _, s := range []State{PendingSubmit, Submitted, PortInConfirmed, RequestFailed, ServerError} {
		assert.False(t, IsTerminal(s), s)
		assert.Contains(t, ActiveStates(), string(s))
	}
}

func TestClassifyCancelResponse(t *testing.T) {
	tests := map[string]State{
		"400 BADRQ":  RequestFailed,
		"500 ERROR":  ServerError,
		"ASOL":       PendingResponse,
		"ACAN":       CancelConfirmed,
		"0000 0000":  CancelConfirmed,
		"0000 00000": CancelConfirmed,
		"AREC NOCAN": CancelRejected,
		"ACON":       PendingConfirmation,
	}
	for code, want := range tests {
		assert.Equal(t, want, ClassifyCancelResponse(code), code)
	}
}

func TestClassifyEstados(t *testing.T) {
	s, ok := ClassifyPortInEstado("APOR")
	require.True(t, ok)
	assert.Equal(t, PortInCompleted, s)

	s, ok = ClassifyPortInEstado("ACON")
	require.True(t, ok)
	assert.Equal(t, PortInConfirmed, s)
	assert.False(t, IsTerminal(s))

	_, ok = ClassifyPortInEstado("XXXX")
	assert.False(t, ok)

	s, ok = ClassifyReturnEstado("APOR")
	require.True(t, ok)
	assert.Equal(t, ReturnConfirmed, s)
}

func TestClassifySubmit(t *testing.T) {
	assert.Equal(t, Submitted, ClassifyPortInSubmit("0000 00000", 0))
	assert.Equal(t, ReSubmitted, ClassifyPortInSubmit("0000 00000", 2))
	assert.Equal(t, PortInRejected, ClassifyPortInSubmit("GENE INFOR", 0))
	assert.Equal(t, ReturnRejected, ClassifyReturnSubmit("AREC EXIST", 0))
	assert.Equal(t, ServerError, ClassifyHTTPFailure(503))
	assert.Equal(t, RequestFailed, ClassifyHTTPFailure(0))
	assert.Equal(t, RequestFailed, ClassifyHTTPFailure(404))
}

func TestShouldNotify(t *testing.T) {
	base := Snapshot{State: Submitted, ResponseCode: "0000 00000"}

	assert.False(t, ShouldNotify(base, base), "unchanged observation")
	assert.True(t, ShouldNotify(base, Snapshot{State: PendingResponse, ResponseCode: "0000 00000", ResponseStatus: "ASOL"}),
		"estado-only change")
	assert.True(t, ShouldNotify(Snapshot{State: PendingSubmit}, base), "first code")
	assert.False(t, ShouldNotify(Snapshot{State: RequestFailed}, Snapshot{State: RequestFailed}),
		"repeated transport failure")
	assert.True(t, ShouldNotify(Snapshot{State: RequestFailed}, Snapshot{State: MaxRetriesExceeded}),
		"entering max retries")
	assert.False(t, ShouldNotify(Snapshot{State: PortInCompleted, ResponseStatus: "APOR"},
		Snapshot{State: PortInCompleted, ResponseStatus: "ACAN"}), "terminal is absorbed")
}
