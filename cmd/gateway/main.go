package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"session-gateway/gateway"
	"session-gateway/identity"
	"session-gateway/metrics"
	"session-gateway/middleware/ratelimit"
	"session-gateway/middleware/ratelimit/application"
	"session-gateway/middleware/ratelimit/domain"
	"session-gateway/middleware/ratelimit/infra"
	"session-gateway/session"
	sessioninfra "session-gateway/session/infra"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		slog.Error("config error", "error", err.Error())
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.logLevel}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rdb, err := sessioninfra.NewClient(ctx, sessioninfra.ClientConfig{
		URL:     cfg.redisURL,
		Token:   cfg.redisToken,
		Timeout: cfg.storeTimeout,
	})
	if err != nil {
		logger.Error("redis connect error", "error", err.Error())
		os.Exit(1)
	}
	defer func() { _ = rdb.Close() }()

	limiter := application.Service{
		Limiter: infra.NewSlidingWindow(rdb, cfg.rateLimit, cfg.rateWindow, infra.WithKeyPrefix(cfg.ratePrefix)),
		Policy:  cfg.rateFailurePolicy,
		Logger:  logger,
	}
	if cfg.rateFailurePolicy == domain.FailLocal {
		local := infra.NewLocalStore(cfg.rateLimit, cfg.rateWindow)
		local.StartJanitor(ctx)
		limiter.Fallback = local
	}

	var stats metrics.Recorder = metrics.Nop{}
	if cfg.statsEnabled {
		stats = metrics.NewRedisRecorder(
			rdb,
			metrics.WithPrefix(cfg.statsPrefix),
			metrics.WithTTL(cfg.statsTTL),
			metrics.WithBucket(cfg.statsBucket),
			metrics.WithTrackKeys(cfg.statsTrackKeys),
		)
	}

	cors := gateway.DefaultCORS()
	cors.AllowOrigin = cfg.corsAllowOrigin

	gw := gateway.New(gateway.Options{
		Limiter:         limiter,
		Identity:        identity.New(cfg.identityURL, cfg.identityAnonKey, identity.WithTimeout(cfg.upstreamTimeout)),
		Cache:           session.NewCache(sessioninfra.NewRedisStore(rdb), session.WithTTL(cfg.sessionTTL)),
		KeyFn:           ratelimit.ClientKeyFunc(nil, cfg.rateRemoteAddr),
		SessionTTL:      cfg.sessionTTL,
		UpstreamTimeout: cfg.upstreamTimeout,
		StoreTimeout:    cfg.storeTimeout,
		CORS:            cors,
		Logger:          logger,
		Stats:           stats,
	})

	h := http.Handler(gw)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		AcquireTimeout: cfg.concurrencyTimeout,
		Reject:         gw.Overloaded(),
	})(h)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/", h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening", "addr", cfg.listenAddr, "identity", cfg.identityURL)
	logger.Info("rate", "limit", cfg.rateLimit, "window", cfg.rateWindow.String(), "policy", string(cfg.rateFailurePolicy), "prefix", cfg.ratePrefix)
	logger.Info("session-cache", "ttl", cfg.sessionTTL.String(), "storeTimeout", cfg.storeTimeout.String(), "upstreamTimeout", cfg.upstreamTimeout.String())
	logger.Info("stats", "enabled", cfg.statsEnabled, "prefix", cfg.statsPrefix, "bucket", cfg.statsBucket, "ttl", cfg.statsTTL.String(), "trackKeys", cfg.statsTrackKeys)
	logger.Info("concurrency", "max", cfg.concurrencyMax, "acquireTimeout", cfg.concurrencyTimeout.String())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err.Error())
		os.Exit(1)
	}
}
