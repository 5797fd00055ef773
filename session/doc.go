// Package session modela a sessão verificada e o cache-aside por usuário.
//
// Chave no store: "session:" + userID. Valor: o payload JSON da sessão, aceito
// tanto como objeto quanto como string JSON que contém o objeto.
//
// Os erros sentinela (ErrCacheMiss, ErrSessionExpired, ErrInvalidToken,
// ErrNoSession) são traduzidos para status HTTP apenas no pacote gateway.
package session
