package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meatloaf02/KG/internal/config"
	"github.com/meatloaf02/KG/internal/ingest"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		Ingest: config.IngestConfig{
			UserAgent:    "TestBot/1.0",
			ContactEmail: "crawler@example.edu",
			DefaultRPS:   1,
			MaxRetries:   1,
		},
		HTTP:   config.HTTPConfig{TimeoutSeconds: 5},
		Robots: config.RobotsConfig{CacheTTLSeconds: 3600},
	}
	session := ingest.NewSession(cfg, nil, nil, zap.NewNop())
	return NewServer(session, zap.NewNop())
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := get(t, srv, path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	rec := get(t, srv, "/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats ingest.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.NotEmpty(t, stats.SessionID)
	require.Zero(t, stats.URLsSeen)
}

func TestDomainsEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	rec := get(t, srv, "/v1/domains")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Domains []string `json:"domains"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Contains(t, payload.Domains, "sec.gov")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	rec := get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	rec := get(t, srv, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
