package cn

import (
	"errors"
	"fmt"
)

var (
	ErrSessionFailure = errors.New("cn session failure")
	ErrCircuitOpen    = errors.New("cn circuit breaker open")
)

// SessionError is returned when CN answered IniciarSesion without success.
// It always matches ErrSessionFailure.
type SessionError struct {
	Code        string // codigoRespuesta
	Description string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("cn session rejected: %s %s", e.Code, e.Description)
}

func (e *SessionError) Unwrap() error {
	return ErrSessionFailure
}

// HTTPError is a non-2xx answer from CN. The body has already been read.
type HTTPError struct {
	Action     string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("cn %s returned HTTP %d", e.Action, e.StatusCode)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
