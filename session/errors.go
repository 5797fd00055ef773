package session

import "errors"

var (
	// ErrCacheMiss: não há entrada para o usuário.
	ErrCacheMiss = errors.New("session cache miss")
	// ErrSessionExpired: a entrada existia mas expires_at já passou.
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidToken: o provedor de identidade rejeitou o token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoSession: o provedor aceitou o token mas não devolveu sessão.
	ErrNoSession = errors.New("session not found")
	// ErrMissingExpiry: payload sem expires_at.
	ErrMissingExpiry = errors.New("session: missing expires_at")
)
