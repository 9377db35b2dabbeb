// Package robots caches parsed robots.txt directives per origin and answers
// whether a URL may be fetched and at what cadence.
//
// Robots infrastructure failures never block a crawl: when robots.txt cannot
// be fetched or parsed the cache fails open, allowing the URL with the
// default delay and a reason callers can log. That is a deliberate
// availability-over-strictness trade-off and a compliance risk against
// sources that are not permissively licensed.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/meatloaf02/KG/internal/telemetry"
)

// Defaults for cache construction.
const (
	DefaultTTL          = time.Hour
	DefaultCrawlDelay   = 1 * time.Second
	DefaultFetchTimeout = 10 * time.Second

	// maxRobotsBytes caps how much of a robots.txt body is read.
	maxRobotsBytes = 1 << 20
)

// Decision is the outcome of a robots.txt check. Declared distinguishes a
// crawl-delay the origin actually stated from the configured default filled
// in when robots.txt is silent.
type Decision struct {
	Allowed    bool
	CrawlDelay time.Duration
	Declared   bool
	Reason     string
}

// entry is one cached origin. A nil data pointer means the fetch failed and
// the origin is served fail-open until the TTL expires.
type entry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
	fetchOK   bool
	reason    string
}

// Config holds cache construction parameters.
type Config struct {
	UserAgent    string
	ContactEmail string
	TTL          time.Duration
	DefaultDelay time.Duration
	FetchTimeout time.Duration
}

// Cache fetches and caches robots.txt per origin (scheme+host). All paths
// under one origin share one fetch.
type Cache struct {
	userAgent    string
	contactEmail string
	ttl          time.Duration
	defaultDelay time.Duration
	client       *http.Client
	logger       *zap.Logger

	mu      sync.Mutex
	entries map[string]entry
}

// New builds a Cache. Zero config fields fall back to package defaults.
func New(cfg Config, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.DefaultDelay <= 0 {
		cfg.DefaultDelay = DefaultCrawlDelay
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Cache{
		userAgent:    cfg.UserAgent,
		contactEmail: cfg.ContactEmail,
		ttl:          cfg.TTL,
		defaultDelay: cfg.DefaultDelay,
		client:       &http.Client{Timeout: cfg.FetchTimeout},
		logger:       logger,
		entries:      make(map[string]entry),
	}
}

// CanFetch reports whether the URL may be fetched under the cached directives
// for its origin, refreshing the cache when missing or expired. Failures of
// any kind produce a fail-open decision, never an error.
func (c *Cache) CanFetch(ctx context.Context, rawURL string) Decision {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Decision{
			Allowed:    true,
			CrawlDelay: c.defaultDelay,
			Reason:     fmt.Sprintf("robots check skipped: unparseable url %q", rawURL),
		}
	}

	e := c.lookup(ctx, u)
	if e.data == nil {
		return Decision{Allowed: true, CrawlDelay: c.defaultDelay, Reason: e.reason}
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	group := e.data.FindGroup(c.userAgent)
	delay := c.defaultDelay
	declared := group.CrawlDelay > 0
	if declared {
		delay = group.CrawlDelay
	}
	if !group.Test(path) {
		return Decision{Allowed: false, CrawlDelay: delay, Declared: declared, Reason: "disallowed by robots.txt"}
	}
	return Decision{Allowed: true, CrawlDelay: delay, Declared: declared, Reason: "allowed by robots.txt"}
}

// lookup returns a valid cache entry for the URL's origin, fetching
// robots.txt when the entry is missing or older than the TTL.
func (c *Cache) lookup(ctx context.Context, u *url.URL) entry {
	origin := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)

	c.mu.Lock()
	cached, ok := c.entries[origin]
	c.mu.Unlock()
	if ok {
		if time.Since(cached.fetchedAt) < c.ttl {
			telemetry.ObserveRobotsCache("hit")
			return cached
		}
		telemetry.ObserveRobotsCache("expired")
	} else {
		telemetry.ObserveRobotsCache("miss")
	}

	fresh := c.fetch(ctx, origin)
	c.mu.Lock()
	c.entries[origin] = fresh
	c.mu.Unlock()
	return fresh
}

// fetch retrieves and parses origin/robots.txt. HTTP 404/410 mean "no
// restrictions"; any other failure yields a fail-open entry with a reason.
func (c *Cache) fetch(ctx context.Context, origin string) entry {
	robotsURL := origin + "/robots.txt"
	now := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return c.failOpen(now, fmt.Sprintf("robots request build failed: %v", err))
	}
	for key, value := range c.Headers() {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("robots.txt fetch failed; allowing with default delay",
			zap.String("url", robotsURL),
			zap.Error(err),
		)
		return c.failOpen(now, fmt.Sprintf("robots fetch failed: %v", err))
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("robots body close failed", zap.Error(cerr))
		}
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
		if err != nil {
			return c.failOpen(now, fmt.Sprintf("robots read failed: %v", err))
		}
		data, err := robotstxt.FromBytes(body)
		if err != nil {
			return c.failOpen(now, fmt.Sprintf("robots parse failed: %v", err))
		}
		return entry{data: data, fetchedAt: now, fetchOK: true}

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// Absent robots.txt means everything is allowed.
		data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, nil)
		if err != nil {
			return c.failOpen(now, fmt.Sprintf("robots parse failed: %v", err))
		}
		return entry{data: data, fetchedAt: now, fetchOK: true}

	default:
		c.logger.Warn("unexpected robots.txt status; allowing with default delay",
			zap.String("url", robotsURL),
			zap.Int("status", resp.StatusCode),
		)
		return c.failOpen(now, fmt.Sprintf("robots fetch returned status %d", resp.StatusCode))
	}
}

func (c *Cache) failOpen(now time.Time, reason string) entry {
	return entry{fetchedAt: now, fetchOK: false, reason: reason}
}

// Headers returns the identification headers used for robots fetches, so the
// fetcher can reuse them on real requests. Crawler-politeness convention
// requires a descriptive User-Agent plus a contact channel.
func (c *Cache) Headers() map[string]string {
	return map[string]string{
		"User-Agent": c.userAgent,
		"From":       c.contactEmail,
		"Accept":     "text/plain, text/html, */*",
	}
}

// SECHeaders returns headers compliant with SEC EDGAR identification
// requirements (contact embedded in the User-Agent).
func (c *Cache) SECHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      fmt.Sprintf("%s (%s)", c.userAgent, c.contactEmail),
		"Accept-Encoding": "gzip, deflate",
	}
}

// ClearCache drops every cached origin.
func (c *Cache) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Size returns the number of cached origins.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
