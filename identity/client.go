package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"session-gateway/session"
)

const userPath = "/auth/v1/user"

// Client fala com um auth service no estilo GoTrue (Supabase).
//
// O token é verificado pelo serviço (GET /auth/v1/user); a assinatura nunca é
// checada localmente.
type Client struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
	now        func() time.Time
}

type Option func(*Client)

// WithHTTPClient troca o http.Client (o padrão tem Timeout de 5s).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type user struct {
	ID string `json:"id"`
}

// VerifyToken devolve o id do usuário dono do token, ou session.ErrInvalidToken.
func (c *Client) VerifyToken(ctx context.Context, token string) (string, error) {
	raw, err := c.getUser(ctx, token)
	if err != nil {
		return "", err
	}
	var u user
	if err := json.Unmarshal(raw, &u); err != nil {
		return "", fmt.Errorf("identity: decode user: %w", err)
	}
	if u.ID == "" {
		return "", session.ErrInvalidToken
	}
	return u.ID, nil
}

// FetchSession monta a sessão do token: o usuário atual do serviço mais
// expires_at vindo do claim exp. Token sem exp vira session.ErrNoSession.
func (c *Client) FetchSession(ctx context.Context, token string) (session.Session, error) {
	exp, err := tokenExpiry(token)
	if err != nil {
		return session.Session{}, err
	}

	rawUser, err := c.getUser(ctx, token)
	if err != nil {
		return session.Session{}, err
	}

	payload, err := json.Marshal(struct {
		AccessToken string          `json:"access_token"`
		TokenType   string          `json:"token_type"`
		ExpiresAt   int64           `json:"expires_at"`
		ExpiresIn   int64           `json:"expires_in"`
		User        json.RawMessage `json:"user"`
	}{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   exp.Unix(),
		ExpiresIn:   int64(exp.Sub(c.now()).Seconds()),
		User:        rawUser,
	})
	if err != nil {
		return session.Session{}, fmt.Errorf("identity: encode session: %w", err)
	}
	return session.New(payload)
}

func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", session.ErrNoSession, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, session.ErrNoSession
	}
	return exp.Time, nil
}

func (c *Client) getUser(ctx context.Context, token string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+userPath, nil)
	if err != nil {
		return nil, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("identity: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, session.ErrInvalidToken
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if !json.Valid(body) {
		return nil, errors.New("identity: user response is not JSON")
	}
	return body, nil
}

// StatusError é uma resposta inesperada (fora de 2xx/401/403) do auth service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("identity: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("identity: unexpected status %d: %s", e.Code, e.Body)
}
