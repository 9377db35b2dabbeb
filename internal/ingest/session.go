// Package ingest wires the politeness components into a crawl session. A
// Session replaces the global limiter/robots singletons of earlier designs
// with an explicitly constructed, caller-owned object, so independent
// sessions (and tests) never share throttle or dedup state.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meatloaf02/KG/internal/config"
	"github.com/meatloaf02/KG/internal/ingest/domains"
	"github.com/meatloaf02/KG/internal/ingest/fetch"
	"github.com/meatloaf02/KG/internal/ingest/ratelimit"
	"github.com/meatloaf02/KG/internal/ingest/retry"
	"github.com/meatloaf02/KG/internal/ingest/robots"
	"github.com/meatloaf02/KG/internal/ingest/urlutil"
	"github.com/meatloaf02/KG/internal/telemetry"
)

// ErrSeenURL marks a URL whose canonical form was already fetched in this
// session.
var ErrSeenURL = errors.New("url already seen in session")

// ErrDomainNotAllowed marks a URL whose domain is not in the allowlist.
var ErrDomainNotAllowed = errors.New("domain not in allowlist")

// Document is a fetched, dedup-checked page.
type Document struct {
	Result           *fetch.Result
	CanonicalURL     string
	URLHash          string
	ContentHash      string
	DuplicateContent bool
}

// Stats is an observability snapshot of one session.
type Stats struct {
	SessionID     string                     `json:"session_id"`
	Domains       map[string]ratelimit.Stats `json:"domains"`
	RobotsCached  int                        `json:"robots_cached"`
	URLsSeen      int                        `json:"urls_seen"`
	ContentHashes int                        `json:"content_hashes"`
}

// Session owns one registry, rate limiter, robots cache, deduplicator and
// fetcher for the lifetime of a crawl.
type Session struct {
	id       string
	registry *domains.Registry
	limiter  *ratelimit.Limiter
	robots   *robots.Cache
	dedup    *urlutil.Deduplicator
	fetcher  *fetch.Fetcher
	logger   *zap.Logger
}

// NewSession builds a Session from configuration. A nil client installs the
// default net/http transport; a nil registry installs the standing allowlist.
func NewSession(cfg config.Config, client fetch.Client, registry *domains.Registry, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = domains.Default()
	}
	if client == nil {
		client = fetch.NewHTTPClient(cfg.HTTPTimeout())
	}

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:  cfg.Ingest.DefaultRPS,
		DomainRates: registry.Rates(),
	}, logger)

	robotsCache := robots.New(robots.Config{
		UserAgent:    cfg.Ingest.UserAgent,
		ContactEmail: cfg.Ingest.ContactEmail,
		TTL:          cfg.RobotsTTL(),
		DefaultDelay: cfg.RequestDelay(),
		FetchTimeout: cfg.RobotsFetchTimeout(),
	}, logger)

	fetcher := fetch.New(client, robotsCache, limiter, fetch.Config{
		Retry: retry.Policy{
			MaxRetries: cfg.Ingest.MaxRetries,
			Initial:    cfg.BackoffInitial(),
			Max:        cfg.BackoffMax(),
		},
	}, logger)

	id := uuid.NewString()
	return &Session{
		id:       id,
		registry: registry,
		limiter:  limiter,
		robots:   robotsCache,
		dedup:    urlutil.NewDeduplicator(),
		fetcher:  fetcher,
		logger:   logger.With(zap.String("session_id", id)),
	}
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Registry exposes the session's domain allowlist.
func (s *Session) Registry() *domains.Registry { return s.registry }

// Limiter exposes the session's rate limiter, primarily for stats.
func (s *Session) Limiter() *ratelimit.Limiter { return s.limiter }

// Robots exposes the session's robots cache.
func (s *Session) Robots() *robots.Cache { return s.robots }

// Fetcher exposes the underlying throttled fetcher for callers that want to
// bypass allowlist and dedup handling.
func (s *Session) Fetcher() *fetch.Fetcher { return s.fetcher }

// Fetch retrieves one URL with the full politeness pipeline: allowlist check,
// session-level URL dedup, robots permission, rate limiting and retries. A
// repeated canonical URL returns ErrSeenURL without any network traffic;
// repeated content is fetched but flagged on the returned Document.
func (s *Session) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if !urlutil.IsValid(rawURL) {
		return nil, fmt.Errorf("%w: %q", fetch.ErrInvalidURL, rawURL)
	}
	if !s.registry.Allowed(urlutil.ExtractDomain(rawURL)) {
		return nil, fmt.Errorf("%w: %s", ErrDomainNotAllowed, urlutil.ExtractDomain(rawURL))
	}
	if s.dedup.SeenURL(rawURL) {
		telemetry.IncDedupSkip("url")
		return nil, fmt.Errorf("%w: %s", ErrSeenURL, rawURL)
	}

	result, err := s.fetcher.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	_, contentNew := s.dedup.Record(rawURL, result.Body)
	if !contentNew {
		telemetry.IncDedupSkip("content")
		s.logger.Debug("duplicate content", zap.String("url", rawURL))
	}

	return &Document{
		Result:           result,
		CanonicalURL:     urlutil.Canonicalize(rawURL, false),
		URLHash:          urlutil.URLHash(rawURL),
		ContentHash:      urlutil.ContentHash(result.Body),
		DuplicateContent: !contentNew,
	}, nil
}

// Stats snapshots the session's throttle, robots and dedup state.
func (s *Session) Stats() Stats {
	return Stats{
		SessionID:     s.id,
		Domains:       s.limiter.StatsAll(),
		RobotsCached:  s.robots.Size(),
		URLsSeen:      s.dedup.URLCount(),
		ContentHashes: s.dedup.ContentCount(),
	}
}
