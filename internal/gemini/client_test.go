package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestGenerateWithoutKeyMakesNoRequest(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c := NewClient(Config{Endpoint: srv.URL})

	_, err := c.Generate(context.Background(), "hi", InsightGeneration)

	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.False(t, c.Configured())
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestGenerateSendsExpectedRequest(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "secret key", r.URL.Query().Get("key"))

		var body generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Contents, 1) {
			assert.Equal(t, "analyse this", body.Contents[0].Parts[0].Text)
		}
		assert.Equal(t, 0.3, body.GenerationConfig.Temperature)
		assert.Equal(t, 2048, body.GenerationConfig.MaxOutputTokens)
		assert.Len(t, body.SafetySettings, 4)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  raw {\"overview\":\"x\"} text  "}]}}]}`))
	})
	c := NewClient(Config{APIKey: "secret key", Endpoint: srv.URL})

	text, err := c.Generate(context.Background(), "analyse this", InsightGeneration)
	require.NoError(t, err)
	assert.Equal(t, `  raw {"overview":"x"} text  `, text, "text is returned unmodified")
}

func TestGenerateRemoteError(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	})
	c := NewClient(Config{APIKey: "bad", Endpoint: srv.URL})

	_, err := c.Generate(context.Background(), "x", InsightGeneration)

	var re *RemoteServiceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusForbidden, re.StatusCode)
	assert.Equal(t, "API key not valid", re.Message)
}

func TestGenerateRemoteErrorWithoutBody(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL})

	_, err := c.Generate(context.Background(), "x", InsightGeneration)

	var re *RemoteServiceError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "Service Unavailable", re.Message)
}

func TestGenerateEmptyResponse(t *testing.T) {
	for name, body := range map[string]string{
		"no candidates": `{"candidates":[]}`,
		"no parts":      `{"candidates":[{"content":{"parts":[]}}]}`,
		"blank text":    `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			c := NewClient(Config{APIKey: "k", Endpoint: srv.URL})

			_, err := c.Generate(context.Background(), "x", InsightGeneration)

			var ee *EmptyResponseError
			assert.True(t, errors.As(err, &ee))
		})
	}
}

func TestGenerateHonoursTimeout(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL, Timeout: 50 * time.Millisecond})

	_, err := c.Generate(context.Background(), "x", InsightGeneration)
	require.Error(t, err)
	assert.False(t, IsConfigurationError(err))
}

func TestKeySourceIsReadPerCall(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})
	key := ""
	c := NewClient(Config{Endpoint: srv.URL}, WithKeySource(func() string { return key }))

	ok, err := c.Ping(context.Background())
	assert.False(t, ok)
	assert.True(t, IsConfigurationError(err))

	key = "now-set"
	ok, err = c.Ping(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestTransportErrorsHideKey(t *testing.T) {
	const key = "SECRET-KEY-123"

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	c := NewClient(Config{Endpoint: closed.URL}, WithKeySource(func() string { return key }))

	_, err := c.Generate(context.Background(), "x", InsightGeneration)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), key)
	assert.Contains(t, err.Error(), "key=REDACTED")
	assert.True(t, strings.HasPrefix(err.Error(), "generation request failed: "))

	slow, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	c = NewClient(Config{APIKey: key, Endpoint: slow.URL, Timeout: 50 * time.Millisecond})
	_, err = c.Generate(context.Background(), "x", InsightGeneration)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), key)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Timeout"))
}
