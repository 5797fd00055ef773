package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"session-gateway/metrics"
	"session-gateway/middleware/ratelimit"
	"session-gateway/middleware/ratelimit/domain"
	"session-gateway/session"
)

// Decider é o rate limiter visto pelo gateway (application.Service).
type Decider interface {
	Decide(ctx context.Context, key domain.Key) (domain.Decision, error)
}

// IdentityProvider é o auth service externo.
type IdentityProvider interface {
	VerifyToken(ctx context.Context, token string) (userID string, err error)
	FetchSession(ctx context.Context, token string) (session.Session, error)
}

// SessionCache é o cache-aside de sessões (session.Cache). Get já remove a
// entrada vencida antes de devolver session.ErrSessionExpired.
type SessionCache interface {
	Get(ctx context.Context, userID string) (session.Session, error)
	Put(ctx context.Context, userID string, s session.Session, ttl time.Duration) error
}

type Options struct {
	Limiter  Decider
	Identity IdentityProvider
	Cache    SessionCache

	KeyFn ratelimit.KeyFunc
	// SessionTTL é o TTL do store para entradas novas. 0 usa o do cache.
	SessionTTL time.Duration

	// Limites por round-trip; 0 desliga (herda só o ctx da requisição).
	UpstreamTimeout time.Duration
	StoreTimeout    time.Duration

	CORS   CORS
	Logger *slog.Logger
	Stats  metrics.Recorder
	Now    func() time.Time
}

// Gateway verifica a sessão do bearer token. Sem estado mutável próprio: tudo
// que é compartilhado vive no store externo.
type Gateway struct {
	opts Options
}

func New(opts Options) *Gateway {
	if opts.KeyFn == nil {
		opts.KeyFn = ratelimit.ClientKeyFunc(nil, false)
	}
	if opts.CORS == (CORS{}) {
		opts.CORS = DefaultCORS()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Stats == nil {
		opts.Stats = metrics.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gateway{opts: opts}
}

// requestState acompanha uma requisição para log e métricas.
type requestState struct {
	id     string
	key    string
	userID string
	start  time.Time
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.opts.CORS.apply(w.Header())
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	st := &requestState{id: requestID(r), start: g.opts.Now()}
	w.Header().Set("X-Request-ID", st.id)

	defer func() {
		if rec := recover(); rec != nil {
			g.fail(w, r, st, fmt.Errorf("panic: %v", rec))
		}
	}()

	s, cached, err := g.verify(w, r, st)
	if err != nil {
		g.fail(w, r, st, err)
		return
	}
	g.succeed(w, r, st, s, cached)
}

// verify percorre a máquina de estados na ordem fixa:
// rate limit -> token -> identidade -> cache -> (miss) sessão upstream -> cache.
func (g *Gateway) verify(w http.ResponseWriter, r *http.Request, st *requestState) (session.Session, bool, error) {
	ctx := r.Context()

	st.key = g.opts.KeyFn(r)
	if err := g.checkRate(ctx, w, st.key); err != nil {
		return session.Session{}, false, err
	}

	token, err := bearerToken(r)
	if err != nil {
		return session.Session{}, false, err
	}

	userID, err := g.verifyToken(ctx, token)
	if err != nil {
		return session.Session{}, false, err
	}
	st.userID = userID

	s, err := g.cacheGet(ctx, userID)
	switch {
	case err == nil:
		return s, true, nil
	case !errors.Is(err, session.ErrCacheMiss):
		return session.Session{}, false, err
	}

	s, err = g.fetchSession(ctx, token)
	if err != nil {
		return session.Session{}, false, err
	}
	if s.Expired(g.opts.Now()) {
		return session.Session{}, false, session.ErrSessionExpired
	}

	if err := g.cachePut(ctx, userID, s); err != nil {
		return session.Session{}, false, err
	}
	return s, false, nil
}

func (g *Gateway) checkRate(ctx context.Context, w http.ResponseWriter, key string) error {
	if g.opts.Limiter == nil {
		return nil
	}
	ctx, cancel := withTimeout(ctx, g.opts.StoreTimeout)
	defer cancel()

	dec, err := g.opts.Limiter.Decide(ctx, domain.Key(key))
	if err != nil {
		return err
	}
	if dec.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
	}
	if !dec.Allowed {
		if dec.RetryAfter > 0 {
			secs := int(math.Ceil(dec.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		return errRateLimited
	}
	return nil
}

func (g *Gateway) verifyToken(ctx context.Context, token string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.opts.UpstreamTimeout)
	defer cancel()
	return g.opts.Identity.VerifyToken(ctx, token)
}

func (g *Gateway) fetchSession(ctx context.Context, token string) (session.Session, error) {
	ctx, cancel := withTimeout(ctx, g.opts.UpstreamTimeout)
	defer cancel()
	return g.opts.Identity.FetchSession(ctx, token)
}

func (g *Gateway) cacheGet(ctx context.Context, userID string) (session.Session, error) {
	ctx, cancel := withTimeout(ctx, g.opts.StoreTimeout)
	defer cancel()
	return g.opts.Cache.Get(ctx, userID)
}

func (g *Gateway) cachePut(ctx context.Context, userID string, s session.Session) error {
	ctx, cancel := withTimeout(ctx, g.opts.StoreTimeout)
	defer cancel()
	return g.opts.Cache.Put(ctx, userID, s, g.opts.SessionTTL)
}

func (g *Gateway) succeed(w http.ResponseWriter, r *http.Request, st *requestState, s session.Session, cached bool) {
	now := g.opts.Now()
	dur := now.Sub(st.start)

	g.opts.Logger.InfoContext(r.Context(), "session_fetch",
		"type", "session_fetch",
		"request_id", st.id,
		"userId", st.userID,
		"cached", cached,
		"duration", dur.Milliseconds(),
		"timestamp", now.UTC().Format(time.RFC3339Nano),
	)

	outcome := metrics.OutcomeCacheMiss
	if cached {
		outcome = metrics.OutcomeCacheHit
	}
	g.record(r.Context(), st, outcome, http.StatusOK, dur)

	writeJSON(w, http.StatusOK, successBody{Session: s, Cached: cached})
}

func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, st *requestState, err error) {
	e := classify(err)
	now := g.opts.Now()
	dur := now.Sub(st.start)

	level := slog.LevelWarn
	if e.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []any{
		"type", "session_fetch_failed",
		"request_id", st.id,
		"status", e.Status,
		"error", err.Error(),
		"client", st.key,
		"duration", dur.Milliseconds(),
		"timestamp", now.UTC().Format(time.RFC3339Nano),
	}
	if st.userID != "" {
		attrs = append(attrs, "userId", st.userID)
	}
	g.opts.Logger.Log(r.Context(), level, "session_fetch_failed", attrs...)

	g.record(r.Context(), st, e.Outcome, e.Status, dur)
	writeError(w, e)
}

func (g *Gateway) record(ctx context.Context, st *requestState, o metrics.Outcome, status int, dur time.Duration) {
	ctx, cancel := withTimeout(ctx, g.opts.StoreTimeout)
	defer cancel()

	err := g.opts.Stats.Record(ctx, metrics.Event{
		Outcome:  o,
		Status:   status,
		Key:      st.key,
		Duration: dur,
		At:       g.opts.Now(),
	})
	if err != nil {
		g.opts.Logger.DebugContext(ctx, "stats record failed", "request_id", st.id, "error", err.Error())
	}
}

// Overloaded responde 503 no envelope JSON (rejeição do limite de concorrência).
func (g *Gateway) Overloaded() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.opts.CORS.apply(w.Header())
		st := &requestState{id: requestID(r), key: g.opts.KeyFn(r), start: g.opts.Now()}
		w.Header().Set("X-Request-ID", st.id)
		g.fail(w, r, st, errOverloaded)
	})
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errNoHeader
	}
	token := strings.TrimSpace(h)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	} else if strings.EqualFold(token, "bearer") {
		token = ""
	}
	if token == "" {
		return "", errNoToken
	}
	return token, nil
}

func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" && len(id) <= 128 {
		return id
	}
	return uuid.NewString()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
