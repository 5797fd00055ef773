package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-gateway/session"
)

const anonKey = "anon-key"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

type authServer struct {
	*httptest.Server
	calls atomic.Int32
}

// newAuthServer aceita apenas o token valid; status força outra resposta.
func newAuthServer(t *testing.T, valid string, status int) *authServer {
	t.Helper()
	s := &authServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		assert.Equal(t, userPath, r.URL.Path)
		assert.Equal(t, anonKey, r.Header.Get("apikey"))

		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"msg":"boom"}`))
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+valid {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-1","email":"a@example.com","role":"authenticated"}`))
	}))
	t.Cleanup(s.Close)
	return s
}

func TestClient_VerifyToken(t *testing.T) {
	tok := signToken(t, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	srv := newAuthServer(t, tok, 0)
	c := New(srv.URL+"/", anonKey)

	id, err := c.VerifyToken(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
	assert.EqualValues(t, 1, srv.calls.Load())
}

func TestClient_VerifyTokenRejected(t *testing.T) {
	srv := newAuthServer(t, "the-good-one", 0)
	c := New(srv.URL, anonKey)

	_, err := c.VerifyToken(context.Background(), "forged")
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestClient_ForbiddenIsInvalidToken(t *testing.T) {
	srv := newAuthServer(t, "x", http.StatusForbidden)
	c := New(srv.URL, anonKey)

	_, err := c.VerifyToken(context.Background(), "x")
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestClient_UpstreamFailureIsStatusError(t *testing.T) {
	srv := newAuthServer(t, "x", http.StatusBadGateway)
	c := New(srv.URL, anonKey)

	_, err := c.VerifyToken(context.Background(), "x")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Contains(t, err.Error(), "boom")
}

func TestClient_UnreachableUpstream(t *testing.T) {
	srv := newAuthServer(t, "x", 0)
	url := srv.URL
	srv.Close()

	_, err := New(url, anonKey).VerifyToken(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrInvalidToken)
}

func TestClient_TimeoutBoundsCall(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	start := time.Now()
	_, err := New(slow.URL, anonKey, WithTimeout(50*time.Millisecond)).VerifyToken(context.Background(), "x")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_FetchSession(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	exp := now.Add(time.Hour)
	tok := signToken(t, jwt.MapClaims{"sub": "user-1", "exp": exp.Unix()})
	srv := newAuthServer(t, tok, 0)
	c := New(srv.URL, anonKey, WithClock(func() time.Time { return now }))

	s, err := c.FetchSession(context.Background(), tok)
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt.Equal(exp))

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresAt   int64  `json:"expires_at"`
		ExpiresIn   int64  `json:"expires_in"`
		User        struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, tok, body.AccessToken)
	assert.Equal(t, "bearer", body.TokenType)
	assert.Equal(t, exp.Unix(), body.ExpiresAt)
	assert.EqualValues(t, 3600, body.ExpiresIn)
	assert.Equal(t, "user-1", body.User.ID)
}

func TestClient_FetchSessionWithoutExpClaim(t *testing.T) {
	tok := signToken(t, jwt.MapClaims{"sub": "user-1"})
	srv := newAuthServer(t, tok, 0)

	_, err := New(srv.URL, anonKey).FetchSession(context.Background(), tok)
	assert.ErrorIs(t, err, session.ErrNoSession)
	assert.Zero(t, srv.calls.Load())
}

func TestClient_FetchSessionOpaqueToken(t *testing.T) {
	srv := newAuthServer(t, "opaque", 0)

	_, err := New(srv.URL, anonKey).FetchSession(context.Background(), "opaque")
	assert.ErrorIs(t, err, session.ErrNoSession)
}
