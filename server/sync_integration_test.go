//go:build integration

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: DEVPILOT_TEST_DATABASE_URL=postgres://... go test -tags integration ./server
func newPostgresServer(t *testing.T) *Server {
	t.Helper()
	dsn := os.Getenv("DEVPILOT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DEVPILOT_TEST_DATABASE_URL not set")
	}
	s, err := New(Config{DatabaseURL: dsn, JWTSecret: testSecret})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func registerUser(t *testing.T, s *Server) authResponse {
	t.Helper()
	name := "u" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	rec := do(s, http.MethodPost, "/api/v1/register",
		`{"username":"`+name+`","email":"`+name+`@example.com","password":"longenough"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var auth authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	return auth
}

func pull(t *testing.T, s *Server, token, since string) SyncPullResponse {
	t.Helper()
	rec := do(s, http.MethodGet, "/api/v1/sync?since="+since, "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SyncPullResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestPushDocumentsAllocatesVersionsPerUser(t *testing.T) {
	s := newPostgresServer(t)
	ctx := context.Background()
	alice := registerUser(t, s)
	bob := registerUser(t, s)

	updated, err := s.pushDocuments(ctx, alice.UserID, []SyncItem{
		{ClientID: "p1", Data: `{"name":"one"}`},
		{ClientID: "p2", Data: "ciphertext", Encrypted: true},
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, int64(1), updated[0].SyncVersion)
	assert.Equal(t, int64(2), updated[1].SyncVersion)
	assert.Empty(t, updated[0].Data)

	other, err := s.pushDocuments(ctx, bob.UserID, []SyncItem{{ClientID: "p1", Data: "bob"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), other[0].SyncVersion)

	again, err := s.pushDocuments(ctx, alice.UserID, []SyncItem{{ClientID: "p1", Data: "gone", Deleted: true}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), again[0].SyncVersion)

	resp := pull(t, s, alice.Token, "1")
	assert.Equal(t, int64(3), resp.SyncVersion)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "p2", resp.Items[0].ClientID)
	assert.True(t, resp.Items[0].Encrypted)
	assert.Equal(t, "p1", resp.Items[1].ClientID)
	assert.True(t, resp.Items[1].Deleted)
	assert.Empty(t, resp.Items[1].Data)
}

func TestClearTombstonesAboveCurrentVersion(t *testing.T) {
	s := newPostgresServer(t)
	user := registerUser(t, s)

	rec := do(s, http.MethodPost, "/api/v1/sync",
		`{"items":[{"client_id":"a","data":"x"},{"client_id":"b","data":"y"},{"client_id":"c","deleted":true}]}`, user.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(s, http.MethodPost, "/api/v1/clear", "", user.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"cleared":2}`, rec.Body.String())

	resp := pull(t, s, user.Token, "3")
	require.Len(t, resp.Items, 2)
	seen := map[int64]bool{}
	for _, item := range resp.Items {
		assert.True(t, item.Deleted)
		assert.Empty(t, item.Data)
		assert.Greater(t, item.SyncVersion, int64(3))
		assert.False(t, seen[item.SyncVersion])
		seen[item.SyncVersion] = true
	}

	rec = do(s, http.MethodPost, "/api/v1/clear", "", user.Token)
	assert.JSONEq(t, `{"cleared":0}`, rec.Body.String())
}
