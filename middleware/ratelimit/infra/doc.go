// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - SlidingWindow: janela deslizante distribuída (script Lua em sorted set no Redis)
//   - LocalStore: token bucket por chave usando golang.org/x/time/rate (fallback)
//   - SlotPool: semáforo de channel para limite de concorrência
package infra
