package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil config uses defaults", func(t *testing.T) {
		client := New(nil)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
	})

	t.Run("custom config", func(t *testing.T) {
		cfg := Config{DefaultTimeout: 5 * time.Second, UserAgent: "TestAgent/1.0"}
		client := New(&cfg)
		assert.Equal(t, 5*time.Second, client.defaultTimeout)
		assert.Equal(t, "TestAgent/1.0", client.userAgent)
		assert.Zero(t, cfg.MaxIdleConnsPerHost, "caller config is not mutated")
	})
}

func TestDo_UserAgentAndDefaultDeadline(t *testing.T) {
	t.Parallel()
	var receivedUA string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		receivedUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	client := newTestClientWithConfig(t, &Config{UserAgent: "CustomAgent/2.0"})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	resp, cancel, err := client.Do(t.Context(), req)
	require.NoError(t, err)
	defer cancel()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "CustomAgent/2.0", receivedUA)
}

func TestDo_TimeoutWithoutDeadline(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	t.Cleanup(func() { close(release) })
	client := newTestClientWithConfig(t, &Config{DefaultTimeout: 50 * time.Millisecond})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	_, _, err = client.Do(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPostJSON(t *testing.T) {
	t.Parallel()
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in["fail"] != "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"echo":"` + in["text"] + `"}`))
	})
	client := newTestClientWithConfig(t, nil)

	var out struct {
		OK   bool   `json:"ok"`
		Echo string `json:"echo"`
	}
	require.NoError(t, client.PostJSON(t.Context(), server.URL, map[string]string{"text": "hi"}, &out))
	assert.True(t, out.OK)
	assert.Equal(t, "hi", out.Echo)

	err := client.PostJSON(t.Context(), server.URL, map[string]string{"fail": "1"}, nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.False(t, statusErr.Temporary())
	assert.True(t, strings.Contains(statusErr.Error(), "chat not found"))
}

func TestStatusError_Temporary(t *testing.T) {
	t.Parallel()
	for code, want := range map[int]bool{
		http.StatusBadRequest:          false,
		http.StatusForbidden:           false,
		http.StatusNotFound:            false,
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
	} {
		assert.Equal(t, want, (&StatusError{StatusCode: code}).Temporary(), "status %d", code)
	}
}
