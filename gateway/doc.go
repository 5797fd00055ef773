// Package gateway é o ponto de entrada HTTP da verificação de sessão.
//
// Máquina de estados por requisição (estados terminais entre colchetes):
//
//	RATE_LIMIT_CHECK        -> [429 Rate limit exceeded]
//	TOKEN_EXTRACT           -> [401 Authorization header required | Token not found]
//	UPSTREAM_IDENTITY_CHECK -> [401 Unauthorized]
//	CACHE_LOOKUP hit        -> [200 cached=true] | [401 Session expired]
//	CACHE_LOOKUP miss       -> UPSTREAM_SESSION_FETCH -> [401 Session not found]
//	                        -> CACHE_POPULATE -> [200 cached=false]
//	qualquer outra falha    -> [500 <mensagem do erro>]
//
// Sucesso: {"session": ..., "cached": bool}. Falha: {"error": "...", "session": null}.
// Toda resposta leva Content-Type application/json e os headers CORS.
//
// Não há retry: cada falha de componente vira rejeição terminal, e o mapeamento
// falha -> status existe só em classify.
package gateway
