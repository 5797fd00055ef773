// Package infra liga o cache de sessões ao Redis (go-redis v9): criação do
// client a partir de REDIS_URL/REDIS_TOKEN e o Store de GET/SETEX/DEL.
package infra
