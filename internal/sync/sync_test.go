package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/existflow/devpilot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	dirty   []model.Document
	synced  map[string]int64
	applied []model.Document
	cleared bool
}

func (m *memStore) DirtyProjects(ctx context.Context) ([]model.Document, error) {
	return m.dirty, nil
}

func (m *memStore) MarkSynced(ctx context.Context, id string, version int64) error {
	if m.synced == nil {
		m.synced = map[string]int64{}
	}
	m.synced[id] = version
	return nil
}

func (m *memStore) ApplyRemote(ctx context.Context, docs []model.Document) (int, error) {
	m.applied = append(m.applied, docs...)
	return len(docs), nil
}

func (m *memStore) ClearProjects(ctx context.Context) error {
	m.cleared = true
	return nil
}

func (m *memStore) MarkAllDirty(ctx context.Context) error { return nil }

// fakeServer stores pushed items in memory and serves them back
type fakeServer struct {
	mu      stdsync.Mutex
	items   []SyncItem
	version int64
	token   string
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "correct horse" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(authResponse{Token: f.token, UserID: "u1"})
	})
	mux.HandleFunc("/api/v1/sync", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+f.token, r.Header.Get("Authorization"))
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Method == http.MethodPost {
			var req SyncPushRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			var res SyncPushResponse
			for _, it := range req.Items {
				f.version++
				it.SyncVersion = f.version
				f.items = append(f.items, it)
				res.Updated = append(res.Updated, it)
			}
			_ = json.NewEncoder(w).Encode(res)
			return
		}
		_ = json.NewEncoder(w).Encode(SyncPullResponse{Items: f.items, SyncVersion: f.version})
	})
	return mux
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c := NewClientAt(filepath.Join(t.TempDir(), "sync.json"), nil)
	require.NoError(t, c.SetServer(url+"/"))
	return c
}

func projectDoc(t *testing.T, id, name string) model.Document {
	t.Helper()
	p := model.NewProject(name)
	p.ID = id
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return model.Document{ID: id, Data: data, UpdatedAt: time.Now()}
}

func TestLoginStoresSession(t *testing.T) {
	fs := &fakeServer{token: "tok"}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Login(context.Background(), "sam", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid credentials", apiErr.Message)
	assert.False(t, c.IsLoggedIn())

	require.NoError(t, c.Login(context.Background(), "sam", "correct horse"))
	assert.True(t, c.IsLoggedIn())

	info, err := os.Stat(c.configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded := NewClientAt(c.configPath, nil)
	st := reloaded.Status()
	assert.Equal(t, "sam", st.Username)
	assert.Equal(t, srv.URL, st.ServerURL)
	assert.True(t, st.LoggedIn)

	require.NoError(t, reloaded.Logout())
	assert.False(t, reloaded.IsLoggedIn())
}

func TestSyncRequiresLogin(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.Sync(context.Background(), &memStore{}, SyncModeMerge)
	assert.Error(t, err)
}

func TestSyncMergeRoundTrip(t *testing.T) {
	fs := &fakeServer{token: "tok"}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Login(context.Background(), "sam", "correct horse"))

	deleted := time.Now()
	store := &memStore{dirty: []model.Document{
		projectDoc(t, "p1", "Storefront"),
		{ID: "p2", DeletedAt: &deleted},
	}}

	res, err := c.Sync(context.Background(), store, SyncModeMerge)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pushed)
	assert.Equal(t, map[string]int64{"p1": 1, "p2": 2}, store.synced)

	require.Len(t, store.applied, 2)
	assert.JSONEq(t, string(store.dirty[0].Data), string(store.applied[0].Data))
	assert.NotNil(t, store.applied[1].DeletedAt)
	assert.Equal(t, int64(2), c.Status().LastSync)
}

func TestSyncEncryptsDocuments(t *testing.T) {
	fs := &fakeServer{token: "tok"}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Login(context.Background(), "sam", "correct horse"))
	fp, err := c.SetPassphrase("a long passphrase")
	require.NoError(t, err)
	assert.Len(t, fp, 12)
	assert.True(t, c.Status().Encrypted)

	store := &memStore{dirty: []model.Document{projectDoc(t, "p1", "Secret plans")}}
	_, err = c.Sync(context.Background(), store, SyncModeMerge)
	require.NoError(t, err)

	require.Len(t, fs.items, 1)
	assert.True(t, fs.items[0].Encrypted)
	assert.NotContains(t, fs.items[0].Data, "Secret plans")

	require.Len(t, store.applied, 1)
	assert.JSONEq(t, string(store.dirty[0].Data), string(store.applied[0].Data))

	// a client without the key skips what it cannot read
	other := newTestClient(t, srv.URL)
	require.NoError(t, other.Login(context.Background(), "sam", "correct horse"))
	otherStore := &memStore{}
	res, err := other.Sync(context.Background(), otherStore, SyncModeRemoteToLocal)
	require.NoError(t, err)
	assert.True(t, otherStore.cleared)
	assert.Zero(t, res.Pulled)
}

func TestCryptoRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	cr := NewCrypto("passphrase", salt)

	sealed, err := cr.Encrypt([]byte(`{"a":1}`))
	require.NoError(t, err)

	restored, err := NewCryptoFromKey(cr.Key())
	require.NoError(t, err)
	plain, err := restored.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(plain))

	_, err = NewCrypto("other", salt).Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = NewCryptoFromKey("c2hvcnQ=")
	assert.Error(t, err)
}

func TestWatcherTriggerSyncDebounces(t *testing.T) {
	fs := &fakeServer{token: "tok"}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Login(context.Background(), "sam", "correct horse"))

	w := NewWatcher(c, &memStore{dirty: []model.Document{projectDoc(t, "p1", "A")}})
	w.SetIntervals(20*time.Millisecond, time.Hour)
	defer w.Stop()

	w.TriggerSync()
	w.TriggerSync()
	assert.True(t, w.IsPending())

	require.Eventually(t, func() bool {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		return len(fs.items) == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, w.IsPending())
}

func TestImportKeySharesDocuments(t *testing.T) {
	fs := &fakeServer{token: "tok"}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	first := newTestClient(t, srv.URL)
	require.NoError(t, first.Login(context.Background(), "sam", "correct horse"))
	fp, err := first.SetPassphrase("a long passphrase")
	require.NoError(t, err)

	store := &memStore{dirty: []model.Document{projectDoc(t, "p1", "Shared")}}
	_, err = first.Sync(context.Background(), store, SyncModeMerge)
	require.NoError(t, err)

	second := newTestClient(t, srv.URL)
	require.NoError(t, second.Login(context.Background(), "sam", "correct horse"))
	_, err = second.ImportKey("not base64!")
	assert.Error(t, err)

	imported, err := second.ImportKey(first.ExportKey() + "\n")
	require.NoError(t, err)
	assert.Equal(t, fp, imported)

	otherStore := &memStore{}
	res, err := second.Sync(context.Background(), otherStore, SyncModeMerge)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pulled)
	assert.JSONEq(t, string(store.dirty[0].Data), string(otherStore.applied[0].Data))

	require.NoError(t, second.DisableEncryption())
	assert.Empty(t, second.ExportKey())
	assert.False(t, second.Status().Encrypted)
}
