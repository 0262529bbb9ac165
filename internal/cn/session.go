package cn

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thrillee/mnpgateway/pkg/codes"
	"github.com/thrillee/mnpgateway/pkg/xmlfields"
)

// Credentials authenticate IniciarSesion.
type Credentials struct {
	Username     string
	AccessCode   string
	OperatorCode string
}

// SessionManager obtains a fresh codigoSesion per outbound call. Tokens are
// short-lived on the CN side, so nothing is cached.
type SessionManager struct {
	client *Client
	creds  Credentials
	logger *slog.Logger
}

func NewSessionManager(client *Client, creds Credentials, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{client: client, creds: creds, logger: logger}
}

// Session opens a CN session. Only a refusal by CN is a *SessionError;
// transport, HTTP and breaker failures come back like those of any other
// call so callers count them as attempts.
func (s *SessionManager) Session(ctx context.Context) (string, error) {
	body, err := Build(&SessionRequest{
		Username:     s.creds.Username,
		AccessCode:   s.creds.AccessCode,
		OperatorCode: s.creds.OperatorCode,
	})
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}

	raw, err := s.client.Call(ctx, EndpointAccess, OpInitiateSession.Action, body)
	if err != nil {
		return "", fmt.Errorf("initiate session: %w", err)
	}

	res := xmlfields.Parse(raw, []string{FieldResponseCode, FieldDescription, FieldSessionCode})
	code := res.Get(FieldResponseCode)
	token := res.Get(FieldSessionCode)
	if !codes.IsCNSuccess(code) || token == "" {
		s.logger.WarnContext(ctx, "CN refused session",
			slog.String("response_code", code),
			slog.String("description", res.Get(FieldDescription)),
		)
		return "", &SessionError{Code: code, Description: res.Get(FieldDescription)}
	}
	return token, nil
}
