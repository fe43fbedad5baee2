package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/app"
	"github.com/ternarybob/maplist/internal/common"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Badger.Enabled = false

	application, err := app.New(cfg, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { application.Close() })

	ts := httptest.NewServer(New(application).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestRoutes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/health", "", http.StatusOK},
		{http.MethodGet, "/api/version", "", http.StatusOK},
		{http.MethodGet, "/api/status/session_missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/download/session_missing", "", http.StatusNotFound},
		{http.MethodPost, "/api/cancel/session_missing", "", http.StatusNotFound},
		{http.MethodPost, "/api/scrape", `{"maxItems":5}`, http.StatusBadRequest},
		{http.MethodGet, "/api/scrape", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nowhere", "", http.StatusNotFound},
		{http.MethodOptions, "/api/scrape", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestAddrAndShutdown(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Badger.Enabled = false
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	application, err := app.New(cfg, arbor.NewLogger())
	require.NoError(t, err)
	defer application.Close()

	srv := New(application)
	assert.Equal(t, "127.0.0.1:0", srv.Addr())

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	// Start may still be binding; either way Shutdown must return and Start must exit cleanly.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}

func TestErrorBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/status/session_missing")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Session not found", body["error"])
}
