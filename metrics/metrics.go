package metrics

import (
	"context"
	"time"
)

// Outcome é o estado terminal de uma requisição no gateway.
type Outcome string

const (
	OutcomeRateLimited   Outcome = "rate_limited"
	OutcomeMissingHeader Outcome = "missing_header"
	OutcomeMissingToken  Outcome = "missing_token"
	OutcomeUnauthorized  Outcome = "unauthorized"
	OutcomeExpired       Outcome = "session_expired"
	OutcomeNoSession     Outcome = "session_not_found"
	OutcomeCacheHit      Outcome = "cache_hit"
	OutcomeCacheMiss     Outcome = "cache_miss"
	OutcomeError         Outcome = "error"
)

// Event representa o fim de uma requisição.
//
// Cuidado com cardinalidade: Key (IP do cliente) só é agregada quando o
// recorder foi criado com rastreio de chaves.
type Event struct {
	Outcome  Outcome
	Status   int
	Key      string
	Duration time.Duration
	At       time.Time
}

// Recorder persiste os eventos. O gateway trata erro como best-effort
// (nunca derruba a requisição).
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Nop descarta tudo.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
