// Package identity é o adapter HTTP do provedor de identidade externo.
//
// Contrato esperado pelo gateway:
//
//   - VerifyToken(ctx, token) -> userID | session.ErrInvalidToken
//   - FetchSession(ctx, token) -> session.Session | session.ErrNoSession
//
// Cada chamada usa o ctx da requisição e o Timeout do http.Client; não há retry.
package identity
