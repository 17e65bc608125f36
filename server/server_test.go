package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-test"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newServer(nil, Config{JWTSecret: testSecret, TokenTTL: time.Hour})
}

func do(s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := do(s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	_ = do(s, http.MethodGet, "/health", "", "")

	rec := do(s, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "devpilot_server_http_requests_total")
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodGet, "/api/v1/sync", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "authorization required")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid authorization format")

	rec = do(s, http.MethodGet, "/api/v1/sync", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// valid token reaches the handler, which rejects the query before any
	// database access
	token, _, err := s.issueToken("u1", "sam")
	require.NoError(t, err)
	rec = do(s, http.MethodGet, "/api/v1/sync?since=abc", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTokens(t *testing.T) {
	s := newTestServer(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	token, expires, err := s.issueToken("u1", "sam")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	claims, err := s.parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "sam", claims.Username)

	other := newServer(nil, Config{JWTSecret: "another-secret-value"})
	_, err = other.parseToken(token)
	assert.Error(t, err)

	now = now.Add(2 * time.Hour)
	_, err = s.parseToken(token)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.parseToken(unsigned)
	assert.Error(t, err)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	cases := map[string]string{
		"missing fields": `{"username":"sam"}`,
		"bad email":      `{"username":"sam","email":"sam","password":"longenough"}`,
		"short password": `{"username":"sam","email":"sam@example.com","password":"short"}`,
		"not json":       `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(s, http.MethodPost, "/api/v1/register", body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestNewRejectsWeakSecret(t *testing.T) {
	_, err := New(Config{DatabaseURL: "postgres://invalid", JWTSecret: "short"})
	assert.Error(t, err)
}

func TestSyncPushValidation(t *testing.T) {
	s := newTestServer(t)
	token, _, err := s.issueToken("u1", "sam")
	require.NoError(t, err)

	rec := do(s, http.MethodPost, "/api/v1/sync", `{"items":[{"data":"x"}]}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "client_id required")

	rec = do(s, http.MethodPost, "/api/v1/sync", `{"items":`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
