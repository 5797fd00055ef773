package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientConfig descreve a conexão com o store compartilhado.
type ClientConfig struct {
	// URL no formato redis://[user:pass@]host:port/db ou rediss:// (TLS).
	URL string
	// Token substitui a senha da URL (ex.: token de acesso do provedor gerenciado).
	Token string
	// Timeout vale para dial, leitura e escrita.
	Timeout time.Duration
}

// NewClient conecta e faz um PING limitado por Timeout.
//
// Retentativas internas do go-redis ficam desligadas: toda falha chega ao
// gateway na hora.
func NewClient(ctx context.Context, cfg ClientConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis: empty URL")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse URL: %w", err)
	}
	if cfg.Token != "" {
		opts.Password = cfg.Token
	}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	opts.MaxRetries = -1

	rdb := redis.NewClient(opts)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}
