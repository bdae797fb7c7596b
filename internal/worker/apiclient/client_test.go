package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return New(baseURL, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestReady(t *testing.T) {
	t.Run("healthy api", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/healthz", r.URL.Path)
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		assert.NoError(t, newTestClient(srv.URL).Ready(context.Background()))
	})

	t.Run("non-2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).Ready(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not ready")
	})

	t.Run("unreachable api", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		err := newTestClient(srv.URL).Ready(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not reachable")
	})
}

func TestPushStatus(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	patch := &domain.JobPatch{
		Status:     domain.StatusPtr(domain.JobStatusRunning),
		TotalPages: domain.IntPtr(3),
	}
	require.NoError(t, newTestClient(srv.URL).PushStatus(context.Background(), "job-1", patch))

	assert.Equal(t, "/internal/jobs/job-1/status", gotPath)
	assert.Equal(t, "RUNNING", gotBody["status"])
	assert.Equal(t, float64(3), gotBody["totalPages"])
	assert.NotContains(t, gotBody, "errorMessage")
}

func TestPushEvent(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	event := domain.NewProgressEvent(2, 3)
	require.NoError(t, newTestClient(srv.URL).PushEvent(context.Background(), "job-1", event))

	assert.Equal(t, "/internal/jobs/job-1/events", gotPath)
	assert.Equal(t, "progress", gotBody["type"])
	assert.Equal(t, "Analyzing page 2/3", gotBody["message"])
}

func TestPush_RejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).PushEvent(context.Background(), "job-1", domain.NewFailedEvent("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
