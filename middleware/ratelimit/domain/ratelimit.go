package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Key string

// Limiter decide se a requisição atual de uma chave cabe na cota.
//
// A implementação distribuída (janela deslizante no Redis) responde em um único
// round-trip; a local (token bucket via golang.org/x/time/rate) nunca retorna erro.
type Limiter interface {
	Allow(ctx context.Context, key Key) (Decision, error)
}

type Decision struct {
	Allowed bool
	// Limit é a cota da janela (N). Zero quando desconhecido.
	Limit int
	// Remaining é quantas requisições ainda cabem na janela após esta decisão.
	Remaining int
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// FailurePolicy define o que acontece quando o store do limiter está inacessível.
type FailurePolicy string

const (
	// FailClosed propaga o erro; a requisição é rejeitada.
	FailClosed FailurePolicy = "closed"
	// FailOpen deixa a requisição passar.
	FailOpen FailurePolicy = "open"
	// FailLocal consulta um limiter em memória no lugar do store.
	FailLocal FailurePolicy = "local"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FailClosed, nil
	case FailClosed, FailOpen, FailLocal:
		return p, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}
