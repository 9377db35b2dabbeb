// Package ratelimit implements the per-domain adaptive throttle. Each domain
// gets its own token-interval bucket seeded from the registry rate; sustained
// errors halve the rate and successes claw it back toward the configured
// ceiling.
package ratelimit

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/meatloaf02/KG/internal/telemetry"
)

const (
	// DefaultRPS applies to domains without a registry entry.
	DefaultRPS = 1.0

	// minRPS is the floor the adaptive slowdown never crosses; the current
	// rate stays strictly positive.
	minRPS = 0.1

	// errorRunLength is how many consecutive errors trigger one halving.
	errorRunLength = 3

	// recoveryFactor is the multiplicative rate restore applied per success
	// while below the configured ceiling. Asymmetric with the halving on
	// purpose: fast drop, slow climb.
	recoveryFactor = 1.1

	// jitterFactor bounds the one-sided jitter added to a wait, as a
	// fraction of the remaining delay.
	jitterFactor = 0.1
)

// Config holds limiter construction parameters.
type Config struct {
	DefaultRPS  float64
	DomainRates map[string]float64
}

// Stats is a read-only snapshot of one domain's throttle state.
type Stats struct {
	Domain      string    `json:"domain"`
	Requests    int64     `json:"request_count"`
	Errors      int       `json:"error_count"`
	CurrentRPS  float64   `json:"current_rate"`
	LastRequest time.Time `json:"last_request,omitempty"`
}

// domainState is mutated only under its own mutex so unrelated domains never
// serialize on each other.
type domainState struct {
	mu         sync.Mutex
	domain     string
	bucket     *rate.Limiter
	configured float64
	current    float64
	last       time.Time
	requests   int64
	errors     int
}

// Limiter tracks throttle state per domain. The outer mutex guards only the
// map; waiting happens against the domain's own bucket.
type Limiter struct {
	mu          sync.Mutex
	domains     map[string]*domainState
	defaultRPS  float64
	domainRates map[string]float64
	logger      *zap.Logger
}

// New builds a Limiter seeded with per-domain rates (typically
// registry.Rates()).
func New(cfg Config, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultRPS := cfg.DefaultRPS
	if defaultRPS <= 0 {
		defaultRPS = DefaultRPS
	}
	rates := make(map[string]float64, len(cfg.DomainRates))
	for domain, rps := range cfg.DomainRates {
		if rps > 0 {
			rates[strings.ToLower(domain)] = rps
		}
	}
	return &Limiter{
		domains:     make(map[string]*domainState),
		defaultRPS:  defaultRPS,
		domainRates: rates,
		logger:      logger,
	}
}

// Domain extracts the lowercased host a URL is throttled under. The port is
// kept so the key matches registry entries exactly.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.ToLower(u.Host)
}

// state lazily creates the throttle record for a domain.
func (l *Limiter) state(domain string) *domainState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.domains[domain]; ok {
		return s
	}
	rps, ok := l.domainRates[domain]
	if !ok {
		rps = l.defaultRPS
	}
	s := &domainState{
		domain:     domain,
		bucket:     rate.NewLimiter(rate.Limit(rps), 1),
		configured: rps,
		current:    rps,
	}
	l.domains[domain] = s
	return s
}

// Wait blocks until the domain's minimum inter-request interval has elapsed,
// plus a one-sided jitter of up to 10% of the remaining delay. It returns the
// wait actually performed. A context cancellation during the wait releases
// the reserved slot and returns the context error.
func (l *Limiter) Wait(ctx context.Context, rawURL string) (time.Duration, error) {
	domain := Domain(rawURL)
	s := l.state(domain)

	s.mu.Lock()
	now := time.Now()
	reservation := s.bucket.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	s.mu.Unlock()

	if delay > 0 {
		delay += randomJitter(time.Duration(float64(delay) * jitterFactor))
		l.logger.Debug("rate limiting",
			zap.String("domain", domain),
			zap.Duration("wait", delay),
		)
		if err := sleep(ctx, delay); err != nil {
			s.mu.Lock()
			reservation.Cancel()
			s.mu.Unlock()
			return 0, err
		}
		telemetry.ObserveRateLimitWait(domain, delay)
	}

	s.mu.Lock()
	s.last = time.Now()
	s.requests++
	s.mu.Unlock()

	if delay < 0 {
		delay = 0
	}
	return delay, nil
}

// RecordError notes a failed request. Every completed run of three errors
// halves the current rate, floored at 0.1 req/s.
func (l *Limiter) RecordError(rawURL string) {
	domain := Domain(rawURL)
	s := l.state(domain)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
	if s.errors%errorRunLength != 0 {
		return
	}
	halved := s.current / 2
	if halved < minRPS {
		halved = minRPS
	}
	if halved != s.current {
		s.current = halved
		s.bucket.SetLimit(rate.Limit(s.current))
	}
	l.logger.Warn("slowing down domain after errors",
		zap.String("domain", domain),
		zap.Int("errors", s.errors),
		zap.Float64("current_rps", s.current),
	)
}

// RecordSuccess notes a successful request: one error is forgiven and, while
// the rate is depressed below the configured ceiling, it is restored by 10%.
func (l *Limiter) RecordSuccess(rawURL string) {
	domain := Domain(rawURL)
	s := l.state(domain)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errors == 0 {
		return
	}
	s.errors--
	if s.current < s.configured {
		restored := s.current * recoveryFactor
		if restored > s.configured {
			restored = s.configured
		}
		s.current = restored
		s.bucket.SetLimit(rate.Limit(s.current))
	}
}

// SetRate overrides a domain's configured and current rate, used when a
// robots.txt crawl-delay takes precedence over the static table.
func (l *Limiter) SetRate(domain string, rps float64) {
	if rps <= 0 {
		return
	}
	if rps < minRPS {
		rps = minRPS
	}
	domain = strings.ToLower(domain)

	l.mu.Lock()
	l.domainRates[domain] = rps
	l.mu.Unlock()

	s := l.state(domain)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configured == rps && s.current == rps {
		return
	}
	s.configured = rps
	s.current = rps
	s.bucket.SetLimit(rate.Limit(rps))
	l.logger.Debug("domain rate overridden",
		zap.String("domain", domain),
		zap.Float64("rps", rps),
	)
}

// Stats returns the snapshot for one domain, or a zero-valued snapshot if the
// domain has never been throttled.
func (l *Limiter) Stats(domain string) Stats {
	domain = strings.ToLower(domain)
	l.mu.Lock()
	s, ok := l.domains[domain]
	l.mu.Unlock()
	if !ok {
		return Stats{Domain: domain}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Domain:      s.domain,
		Requests:    s.requests,
		Errors:      s.errors,
		CurrentRPS:  s.current,
		LastRequest: s.last,
	}
}

// StatsAll returns snapshots for every domain seen so far.
func (l *Limiter) StatsAll() map[string]Stats {
	l.mu.Lock()
	names := make([]string, 0, len(l.domains))
	for domain := range l.domains {
		names = append(names, domain)
	}
	l.mu.Unlock()

	out := make(map[string]Stats, len(names))
	for _, domain := range names {
		out[domain] = l.Stats(domain)
	}
	return out
}

// sleep waits for the delay or the context, whichever ends first. It parks
// only the calling goroutine.
func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// randomJitter returns a uniformly random duration in [0, limit).
func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
