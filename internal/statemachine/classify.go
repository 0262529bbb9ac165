package statemachine

import (
	"strings"

	"github.com/thrillee/mnpgateway/pkg/codes"
)

// SubmitAccepted is the state after CN accepted a submission.
func SubmitAccepted(retryCount int32) State {
	if retryCount > 0 {
		return ReSubmitted
	}
	return Submitted
}

// ClassifyPortInSubmit maps the codigoRespuesta of a port-in creation.
func ClassifyPortInSubmit(code string, retryCount int32) State {
	if codes.IsCNSuccess(code) {
		return SubmitAccepted(retryCount)
	}
	return PortInRejected
}

// ClassifyReturnSubmit maps the codigoRespuesta of a return (baja) creation.
func ClassifyReturnSubmit(code string, retryCount int32) State {
	if codes.IsCNSuccess(code) {
		return SubmitAccepted(retryCount)
	}
	return ReturnRejected
}

// ClassifyPortInEstado maps a port-in estado. ok is false for estados the
// gateway does not track, in which case the current state is kept.
func ClassifyPortInEstado(estado string) (State, bool) {
	switch estado {
	case codes.EstadoSolicited:
		return PendingResponse, true
	case codes.EstadoConfirmed:
		return PortInConfirmed, true
	case codes.EstadoPorted:
		return PortInCompleted, true
	case codes.EstadoRejected:
		return PortInRejected, true
	case codes.EstadoCancelled:
		return PortInCancelled, true
	}
	return "", false
}

// ClassifyReturnEstado maps the estado of a return process.
func ClassifyReturnEstado(estado string) (State, bool) {
	switch estado {
	case codes.EstadoSolicited:
		return PendingResponse, true
	case codes.EstadoConfirmed, codes.EstadoPorted:
		return ReturnConfirmed, true
	case codes.EstadoRejected:
		return ReturnRejected, true
	case codes.EstadoCancelled:
		return ReturnCancelled, true
	}
	return "", false
}

// ClassifyCancelResponse maps the codigoRespuesta of a cancellation
// (port-in or return). The caller handles an empty code.
func ClassifyCancelResponse(code string) State {
	switch {
	case strings.HasPrefix(code, codes.CNClientErrPrefix):
		return RequestFailed
	case strings.HasPrefix(code, codes.CNServerErrPrefix):
		return ServerError
	case code == codes.EstadoSolicited:
		return PendingResponse
	case code == codes.EstadoCancelled, codes.IsZeroCode(code):
		return CancelConfirmed
	case strings.HasPrefix(code, codes.CNRejectionPrefix):
		return CancelRejected
	}
	return PendingConfirmation
}

// ClassifyHTTPFailure maps a transport-level failure. status is 0 when no
// HTTP response was received (timeout, connection refused, open breaker).
func ClassifyHTTPFailure(status int) State {
	if status >= 500 {
		return ServerError
	}
	return RequestFailed
}

// IsFailure reports whether s counts against retry_count.
func IsFailure(s State) bool {
	return s == RequestFailed || s == ServerError || s == PendingNoResponseCode
}
