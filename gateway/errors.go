package gateway

import (
	"errors"
	"net/http"

	"session-gateway/metrics"
	"session-gateway/session"
)

// Error é uma rejeição terminal já traduzida para HTTP.
type Error struct {
	Status  int
	Message string
	Outcome metrics.Outcome
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	errRateLimited = &Error{Status: http.StatusTooManyRequests, Message: "Rate limit exceeded", Outcome: metrics.OutcomeRateLimited}
	errNoHeader    = &Error{Status: http.StatusUnauthorized, Message: "Authorization header required", Outcome: metrics.OutcomeMissingHeader}
	errNoToken     = &Error{Status: http.StatusUnauthorized, Message: "Token not found", Outcome: metrics.OutcomeMissingToken}
	errOverloaded  = &Error{Status: http.StatusServiceUnavailable, Message: "Server busy", Outcome: metrics.OutcomeError}
)

// classify é o único lugar que mapeia falha -> status.
func classify(err error) *Error {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}
	switch {
	case errors.Is(err, session.ErrInvalidToken):
		return &Error{Status: http.StatusUnauthorized, Message: "Unauthorized", Outcome: metrics.OutcomeUnauthorized, Err: err}
	case errors.Is(err, session.ErrSessionExpired):
		return &Error{Status: http.StatusUnauthorized, Message: "Session expired", Outcome: metrics.OutcomeExpired, Err: err}
	case errors.Is(err, session.ErrNoSession):
		return &Error{Status: http.StatusUnauthorized, Message: "Session not found", Outcome: metrics.OutcomeNoSession, Err: err}
	default:
		return &Error{Status: http.StatusInternalServerError, Message: err.Error(), Outcome: metrics.OutcomeError, Err: err}
	}
}
