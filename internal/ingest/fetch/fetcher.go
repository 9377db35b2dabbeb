// Package fetch composes the robots cache, the rate limiter and the retry
// orchestrator around a single injected HTTP transport. Fetcher.Get is the
// politeness layer's entry point.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/meatloaf02/KG/internal/ingest/ratelimit"
	"github.com/meatloaf02/KG/internal/ingest/retry"
	"github.com/meatloaf02/KG/internal/ingest/robots"
	"github.com/meatloaf02/KG/internal/ingest/urlutil"
	"github.com/meatloaf02/KG/internal/telemetry"
)

// defaultRetryAfter applies when a 429 carries no usable Retry-After header.
const defaultRetryAfter = 60 * time.Second

// Config holds fetcher construction parameters.
type Config struct {
	Retry retry.Policy
}

// Result is a successful throttled fetch.
type Result struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
	Elapsed    time.Duration
}

// Fetcher is the throttled, retrying fetch orchestrator.
type Fetcher struct {
	client  Client
	robots  RobotsChecker
	limiter *ratelimit.Limiter
	cfg     Config
	logger  *zap.Logger
}

// RobotsChecker is the slice of the robots cache the fetcher needs; fakes
// stand in for it in tests.
type RobotsChecker interface {
	CanFetch(ctx context.Context, rawURL string) robots.Decision
	Headers() map[string]string
}

// New builds a Fetcher.
func New(client Client, robotsChecker RobotsChecker, limiter *ratelimit.Limiter, cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:  client,
		robots:  robotsChecker,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

// Get fetches a URL politely: robots permission first, then per-attempt rate
// limiting, with transient failures retried under jittered backoff. Robots
// rejections and malformed URLs return immediately without touching the
// network. The limiter is told about every failed attempt and the final
// success.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Result, error) {
	if !urlutil.IsValid(rawURL) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	decision := f.robots.CanFetch(ctx, rawURL)
	if !decision.Allowed {
		telemetry.ObserveFetch(rawURL, "disallowed", 0)
		return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
	}
	if decision.Reason != "" {
		f.logger.Debug("robots decision",
			zap.String("url", rawURL),
			zap.String("reason", decision.Reason),
		)
	}

	// A robots-declared crawl delay takes precedence over the static table.
	if decision.Declared && decision.CrawlDelay > 0 {
		f.limiter.SetRate(ratelimit.Domain(rawURL), 1/decision.CrawlDelay.Seconds())
	}

	headers := f.robots.Headers()

	op := func(ctx context.Context) (*Response, error) {
		if _, err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, err
		}
		resp, err := f.client.Get(ctx, rawURL, headers)
		if err != nil {
			f.limiter.RecordError(rawURL)
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			f.limiter.RecordError(rawURL)
			return nil, &RateLimitedError{
				URL:        rawURL,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}
		if resp.StatusCode >= http.StatusBadRequest {
			f.limiter.RecordError(rawURL)
			return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
		}
		return resp, nil
	}

	outcome := retry.Do(ctx, f.cfg.Retry, op, Retryable,
		func(attempt int, err error) {
			telemetry.IncRetry(rawURL)
			f.logger.Warn("fetch attempt failed; retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		},
	)
	if !outcome.OK {
		telemetry.ObserveFetch(rawURL, "failure", 0)
		if !Retryable(outcome.Err) {
			return nil, outcome.Err
		}
		return nil, &ExhaustedError{
			URL:      rawURL,
			Attempts: outcome.Attempts,
			Elapsed:  outcome.Elapsed,
			Err:      outcome.Err,
		}
	}

	f.limiter.RecordSuccess(rawURL)
	telemetry.ObserveFetch(rawURL, "success", len(outcome.Value.Body))
	return &Result{
		URL:        rawURL,
		StatusCode: outcome.Value.StatusCode,
		Header:     outcome.Value.Header,
		Body:       outcome.Value.Body,
		Attempts:   outcome.Attempts,
		Elapsed:    outcome.Elapsed,
	}, nil
}

// parseRetryAfter understands the integer-seconds form of Retry-After and
// falls back to the 60s default otherwise.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}
