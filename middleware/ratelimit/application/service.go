package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"session-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// Quando o Limiter falha, Policy decide entre propagar o erro, liberar ou
// consultar o Fallback local.
type Service struct {
	Limiter    domain.Limiter
	Fallback   domain.Limiter
	Policy     domain.FailurePolicy
	RetryAfter time.Duration
	Logger     *slog.Logger
}

func (s Service) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Limiter == nil {
		return domain.Decision{Allowed: true}, nil
	}

	dec, err := s.Limiter.Allow(ctx, key)
	if err != nil {
		return s.onFailure(ctx, key, err)
	}
	return s.withRetryAfter(dec), nil
}

func (s Service) onFailure(ctx context.Context, key domain.Key, err error) (domain.Decision, error) {
	switch s.Policy {
	case domain.FailOpen:
		s.warn(ctx, key, err, "allowing request")
		return domain.Decision{Allowed: true}, nil
	case domain.FailLocal:
		if s.Fallback == nil {
			break
		}
		s.warn(ctx, key, err, "using local limiter")
		dec, ferr := s.Fallback.Allow(ctx, key)
		if ferr != nil {
			return domain.Decision{}, fmt.Errorf("rate limiter fallback: %w", ferr)
		}
		return s.withRetryAfter(dec), nil
	}
	return domain.Decision{}, fmt.Errorf("rate limiter: %w", err)
}

// withRetryAfter garante um Retry-After mínimo quando bloqueia.
func (s Service) withRetryAfter(dec domain.Decision) domain.Decision {
	if dec.Allowed || dec.RetryAfter > 0 {
		return dec
	}
	dec.RetryAfter = s.RetryAfter
	if dec.RetryAfter <= 0 {
		dec.RetryAfter = 1 * time.Second
	}
	return dec
}

func (s Service) warn(ctx context.Context, key domain.Key, err error, action string) {
	if s.Logger == nil {
		return
	}
	s.Logger.WarnContext(ctx, "rate limiter store unavailable",
		"key", string(key),
		"policy", string(s.Policy),
		"action", action,
		"error", err.Error(),
	)
}
