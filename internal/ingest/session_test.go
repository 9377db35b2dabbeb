package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meatloaf02/KG/internal/config"
	"github.com/meatloaf02/KG/internal/ingest/domains"
	"github.com/meatloaf02/KG/internal/ingest/fetch"
)

func testConfig() config.Config {
	return config.Config{
		Ingest: config.IngestConfig{
			UserAgent:           "TestBot/1.0",
			ContactEmail:        "crawler@example.edu",
			RequestDelaySeconds: 0.01,
			MaxRetries:          1,
			DefaultRPS:          1000,
		},
		HTTP: config.HTTPConfig{
			TimeoutSeconds:   5,
			BackoffInitialMs: 1,
			BackoffMaxMs:     5,
		},
		Robots: config.RobotsConfig{
			CacheTTLSeconds:     3600,
			FetchTimeoutSeconds: 5,
		},
		Server: config.ServerConfig{Port: 8080},
	}
}

// newTestSite serves robots.txt plus a couple of pages and returns a session
// whose allowlist contains only the test host.
func newTestSite(t *testing.T, handler http.Handler) (*Session, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	registry, err := domains.NewRegistry(domains.Config{
		Domain:            u.Host,
		Source:            domains.SourceBlog,
		Priority:          domains.PriorityLow,
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)

	session := NewSession(testConfig(), nil, registry, zap.NewNop())
	return session, srv
}

func siteHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.HandleFunc("/page/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "content of %s", r.URL.Path)
	})
	mux.HandleFunc("/copy/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "identical body")
	})
	return mux
}

func TestSession_Fetch(t *testing.T) {
	t.Parallel()
	session, srv := newTestSite(t, siteHandler())

	doc, err := session.Fetch(context.Background(), srv.URL+"/page/one")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, doc.Result.StatusCode)
	require.Equal(t, "content of /page/one", string(doc.Result.Body))
	require.Len(t, doc.URLHash, 16)
	require.Len(t, doc.ContentHash, 64)
	require.False(t, doc.DuplicateContent)
}

func TestSession_FetchSeenURL(t *testing.T) {
	t.Parallel()
	session, srv := newTestSite(t, siteHandler())

	_, err := session.Fetch(context.Background(), srv.URL+"/page/one")
	require.NoError(t, err)

	// Exact repeat and tracking-param variant both hit the dedup set.
	_, err = session.Fetch(context.Background(), srv.URL+"/page/one")
	require.ErrorIs(t, err, ErrSeenURL)
	_, err = session.Fetch(context.Background(), srv.URL+"/page/one?utm_source=feed")
	require.ErrorIs(t, err, ErrSeenURL)
}

func TestSession_FetchDuplicateContent(t *testing.T) {
	t.Parallel()
	session, srv := newTestSite(t, siteHandler())

	first, err := session.Fetch(context.Background(), srv.URL+"/copy/a")
	require.NoError(t, err)
	require.False(t, first.DuplicateContent)

	second, err := session.Fetch(context.Background(), srv.URL+"/copy/b")
	require.NoError(t, err)
	require.True(t, second.DuplicateContent)
	require.Equal(t, first.ContentHash, second.ContentHash)
}

func TestSession_FetchDomainNotAllowed(t *testing.T) {
	t.Parallel()
	session, _ := newTestSite(t, siteHandler())

	_, err := session.Fetch(context.Background(), "http://not-on-the-list.com/page")
	require.ErrorIs(t, err, ErrDomainNotAllowed)
}

func TestSession_FetchInvalidURL(t *testing.T) {
	t.Parallel()
	session, _ := newTestSite(t, siteHandler())

	_, err := session.Fetch(context.Background(), "ftp://example.com/file")
	require.ErrorIs(t, err, fetch.ErrInvalidURL)
}

func TestSession_FetchDisallowedPath(t *testing.T) {
	t.Parallel()
	session, srv := newTestSite(t, siteHandler())

	_, err := session.Fetch(context.Background(), srv.URL+"/private/secret")
	require.ErrorIs(t, err, fetch.ErrDisallowed)
}

func TestSession_Stats(t *testing.T) {
	t.Parallel()
	session, srv := newTestSite(t, siteHandler())

	_, err := session.Fetch(context.Background(), srv.URL+"/page/one")
	require.NoError(t, err)
	_, err = session.Fetch(context.Background(), srv.URL+"/page/two")
	require.NoError(t, err)

	stats := session.Stats()
	require.Equal(t, session.ID(), stats.SessionID)
	require.Equal(t, 2, stats.URLsSeen)
	require.Equal(t, 2, stats.ContentHashes)
	require.Equal(t, 1, stats.RobotsCached)
	require.Len(t, stats.Domains, 1)
}

func TestNewSession_Defaults(t *testing.T) {
	t.Parallel()
	session := NewSession(testConfig(), nil, nil, nil)

	require.NotEmpty(t, session.ID())
	require.True(t, session.Registry().Allowed("sec.gov"))

	other := NewSession(testConfig(), nil, nil, nil)
	require.NotEqual(t, session.ID(), other.ID())
}
