// Package ratelimit fornece as peças HTTP (net/http) do rate limit e do limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny com política de falha, acquire/timeout)
//   - infra: implementações concretas (janela deslizante no Redis, token bucket local, semáforo)
//   - ratelimit (este pacote): extração da chave do cliente + middleware de concorrência
//
// Fluxo no gateway (pacote gateway):
//
//  1. Extrai a chave do cliente (CF-Connecting-IP / X-Forwarded-For / "unknown")
//  2. Chama a camada application para obter a decisão
//  3. Se bloqueado, o gateway responde 429 antes de tocar no provedor de identidade ou no cache
//
// Variáveis de ambiente do binário (cmd/gateway) controlam o comportamento,
// como RATE_LIMIT, RATE_WINDOW, RATE_FAILURE_POLICY e CONCURRENCY_MAX.
package ratelimit
