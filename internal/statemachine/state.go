package statemachine

import (
	"errors"
	"fmt"
	"slices"
)

// State is the internal lifecycle state of a request (status_nc).
type State string

const (
	PendingSubmit         State = "PENDING_SUBMIT"
	Submitted             State = "SUBMITTED"
	ReSubmitted           State = "RE_SUBMITTED"
	RequestResponded      State = "REQUEST_RESPONDED"
	PendingResponse       State = "PENDING_RESPONSE"     // CN estado ASOL
	PendingConfirmation   State = "PENDING_CONFIRMATION" // CN acknowledged, intermediate
	PendingNoResponseCode State = "PENDING_NO_RESPONSE_CODE_RECEIVED"
	PortInConfirmed       State = "PORT_IN_CONFIRMED" // CN estado ACON, still polled until APOR
	PortInCompleted       State = "PORT_IN_COMPLETED"
	PortInRejected        State = "PORT_IN_REJECTED"
	PortInCancelled       State = "PORT_IN_CANCELLED"
	CancelConfirmed       State = "CANCEL_CONFIRMED"
	CancelRejected        State = "CANCEL_REJECTED"
	ReturnConfirmed       State = "RETURN_CONFIRMED"
	ReturnRejected        State = "RETURN_REJECTED"
	ReturnCancelled       State = "RETURN_CANCELLED"
	RequestFailed         State = "REQUEST_FAILED"
	ServerError           State = "SERVER_ERROR"
	MaxRetriesExceeded    State = "MAX_RETRIES_EXCEEDED"
	Received              State = "RECEIVED" // port-out notification observed
)

var (
	ErrTerminalState     = errors.New("request is in a terminal state")
	ErrIllegalTransition = errors.New("illegal state transition")
)

// Failure states can be retried into any outcome a CN exchange can produce.
var retryable = []State{
	Submitted, ReSubmitted, RequestResponded, PendingResponse, PendingConfirmation, PendingNoResponseCode,
	PortInConfirmed, PortInCompleted, PortInRejected, PortInCancelled,
	CancelConfirmed, CancelRejected, ReturnConfirmed, ReturnRejected, ReturnCancelled,
	RequestFailed, ServerError, MaxRetriesExceeded,
}

var inFlight = []State{
	PendingResponse, PendingConfirmation, RequestResponded, PendingNoResponseCode,
	PortInConfirmed, PortInCompleted, PortInRejected, PortInCancelled,
	CancelConfirmed, CancelRejected, ReturnConfirmed, ReturnRejected, ReturnCancelled,
	RequestFailed, ServerError, MaxRetriesExceeded,
}

var transitions = map[State][]State{
	PendingSubmit:         nil, // any state, see CanTransition
	Submitted:             inFlight,
	ReSubmitted:           inFlight,
	RequestResponded:      inFlight,
	PendingResponse:       inFlight,
	PendingConfirmation:   inFlight,
	PendingNoResponseCode: retryable,
	RequestFailed:         retryable,
	ServerError:           retryable,
	PortInConfirmed: {
		PortInCompleted, PortInRejected, PortInCancelled,
		PendingNoResponseCode, RequestFailed, ServerError, MaxRetriesExceeded,
	},
	Received: {},

	PortInCompleted:    {}, // terminal
	PortInRejected:     {}, // terminal
	PortInCancelled:    {}, // terminal
	CancelConfirmed:    {}, // terminal
	CancelRejected:     {}, // terminal
	ReturnConfirmed:    {}, // terminal
	ReturnRejected:     {}, // terminal
	ReturnCancelled:    {}, // terminal
	MaxRetriesExceeded: {}, // terminal
}

var terminal = []State{
	PortInCompleted, PortInRejected, PortInCancelled,
	CancelConfirmed, CancelRejected,
	ReturnConfirmed, ReturnRejected, ReturnCancelled,
	MaxRetriesExceeded,
}

// active lists the states the dispatcher keeps driving.
var active = []State{
	PendingSubmit, Submitted, ReSubmitted, RequestResponded,
	PendingResponse, PendingConfirmation, PendingNoResponseCode,
	PortInConfirmed, RequestFailed, ServerError,
}

// IsTerminal reports whether no further transition is accepted from s.
func IsTerminal(s State) bool {
	return slices.Contains(terminal, s)
}

// TerminalStates returns the terminal set as plain strings, for store predicates.
func TerminalStates() []string {
	return toStrings(terminal)
}

// ActiveStates returns the states that still need dispatcher work.
func ActiveStates() []string {
	return toStrings(active)
}

// CanTransition checks the legal-transition matrix. Staying in the same
// non-terminal state is always allowed (a poll that observed nothing new).
func CanTransition(from, to State) error {
	if IsTerminal(from) {
		return fmt.Errorf("%w: %s", ErrTerminalState, from)
	}
	if from == to || from == PendingSubmit {
		return nil
	}
	next, ok := transitions[from]
	if !ok || !slices.Contains(next, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

func toStrings(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
