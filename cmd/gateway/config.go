package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"session-gateway/middleware/ratelimit/domain"
)

type config struct {
	listenAddr string

	identityURL     string
	identityAnonKey string
	upstreamTimeout time.Duration

	redisURL     string
	redisToken   string
	storeTimeout time.Duration

	sessionTTL time.Duration

	rateLimit         int
	rateWindow        time.Duration
	ratePrefix        string
	rateFailurePolicy domain.FailurePolicy
	rateRemoteAddr    bool

	concurrencyMax     int
	concurrencyTimeout time.Duration

	corsAllowOrigin string

	statsEnabled   bool
	statsPrefix    string
	statsTTL       time.Duration
	statsBucket    string
	statsTrackKeys bool

	logLevel slog.Level
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")

	cfg.identityURL = strings.TrimSpace(os.Getenv("SUPABASE_URL"))
	cfg.identityAnonKey = os.Getenv("SUPABASE_ANON_KEY")
	cfg.upstreamTimeout = getenvDurationDefault("UPSTREAM_TIMEOUT", 5*time.Second)

	cfg.redisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.redisToken = os.Getenv("REDIS_TOKEN")
	cfg.storeTimeout = getenvDurationDefault("STORE_TIMEOUT", 2*time.Second)

	// SESSION_CACHE_TTL é em segundos inteiros; valor inválido é erro, não default
	ttl, err := getenvIntStrict("SESSION_CACHE_TTL", 3600)
	if err != nil {
		return config{}, err
	}
	cfg.sessionTTL = time.Duration(ttl) * time.Second

	cfg.rateLimit = getenvIntDefault("RATE_LIMIT", 10)
	cfg.rateWindow = getenvDurationDefault("RATE_WINDOW", 10*time.Second)
	cfg.ratePrefix = getenvDefault("RATE_PREFIX", "ratelimit")
	cfg.rateFailurePolicy, err = domain.ParseFailurePolicy(os.Getenv("RATE_FAILURE_POLICY"))
	if err != nil {
		return config{}, fmt.Errorf("RATE_FAILURE_POLICY: %w", err)
	}
	cfg.rateRemoteAddr = getenvBoolDefault("RATE_KEY_REMOTE_ADDR", false)

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 0)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.corsAllowOrigin = getenvDefault("CORS_ALLOW_ORIGIN", "*")

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "gateway:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("STATS_BUCKET", "minute")
	cfg.statsTrackKeys = getenvBoolDefault("STATS_TRACK_KEYS", false)

	if err := cfg.logLevel.UnmarshalText([]byte(getenvDefault("LOG_LEVEL", "info"))); err != nil {
		return config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if cfg.identityURL == "" {
		return config{}, errors.New("SUPABASE_URL is required")
	}
	if cfg.identityAnonKey == "" {
		return config{}, errors.New("SUPABASE_ANON_KEY is required")
	}
	if cfg.redisURL == "" {
		return config{}, errors.New("REDIS_URL is required")
	}
	if cfg.sessionTTL <= 0 {
		return config{}, errors.New("SESSION_CACHE_TTL must be > 0")
	}
	if cfg.rateLimit <= 0 {
		return config{}, errors.New("RATE_LIMIT must be > 0")
	}
	if cfg.rateWindow < time.Millisecond {
		return config{}, errors.New("RATE_WINDOW must be >= 1ms")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvIntStrict(k string, def int) (int, error) {
	v, ok := os.LookupEnv(k)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", k, err)
	}
	return i, nil
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
