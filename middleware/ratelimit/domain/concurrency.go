package domain

import "context"

// SlotPool limita quantas requisições o gateway verifica ao mesmo tempo,
// protegendo o provedor de identidade e o Redis de picos de concorrência.
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
