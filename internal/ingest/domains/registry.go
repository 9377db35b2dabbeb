// Package domains holds the static crawl allowlist. Only domains present in
// the registry may be fetched; each entry carries classification, priority
// and the target request rate used to seed the rate limiter.
package domains

import (
	"fmt"
	"sort"
	"strings"
)

// SourceType classifies where a domain's documents come from.
type SourceType string

// Source classifications.
const (
	SourceSECFiling          SourceType = "sec_filing"
	SourceEarningsTranscript SourceType = "earnings_transcript"
	SourcePressRelease       SourceType = "press_release"
	SourceBlog               SourceType = "blog"
	SourceInvestorRelations  SourceType = "investor_relations"
	SourceNewsMedia          SourceType = "news_media"
)

// Priority orders domains by crawl importance.
type Priority int

// Crawl priority levels.
const (
	PriorityHigh Priority = iota + 1
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Config describes one allowed domain. Immutable after registry construction.
type Config struct {
	Domain            string
	Source            SourceType
	Priority          Priority
	RequestsPerSecond float64
	Description       string
	SpecialHandling   bool
	Notes             string
}

// Registry is a read-only table of allowed domains keyed by lowercase name.
type Registry struct {
	table map[string]Config
	order []string
}

// NewRegistry builds a registry from the given configs. Matching is exact and
// case-insensitive: sec.gov and www.sec.gov are independent entries, no
// subdomain inference is performed. Duplicate keys and non-positive rates are
// construction errors.
func NewRegistry(configs ...Config) (*Registry, error) {
	r := &Registry{table: make(map[string]Config, len(configs))}
	for _, cfg := range configs {
		key := normalize(cfg.Domain)
		if key == "" {
			return nil, fmt.Errorf("domain registry: empty domain name")
		}
		if _, exists := r.table[key]; exists {
			return nil, fmt.Errorf("domain registry: duplicate entry %q", key)
		}
		if cfg.RequestsPerSecond <= 0 {
			return nil, fmt.Errorf("domain registry: %q requests_per_second must be > 0", key)
		}
		cfg.Domain = key
		r.table[key] = cfg
		r.order = append(r.order, key)
	}
	sort.Strings(r.order)
	return r, nil
}

func normalize(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// Lookup returns the config for a domain, if present.
func (r *Registry) Lookup(domain string) (Config, bool) {
	cfg, ok := r.table[normalize(domain)]
	return cfg, ok
}

// Allowed reports whether the domain is in the allowlist.
func (r *Registry) Allowed(domain string) bool {
	_, ok := r.table[normalize(domain)]
	return ok
}

// BySource returns the configs with the given source classification.
func (r *Registry) BySource(source SourceType) []Config {
	var out []Config
	for _, key := range r.order {
		if cfg := r.table[key]; cfg.Source == source {
			out = append(out, cfg)
		}
	}
	return out
}

// ByPriority returns the configs with the given priority level.
func (r *Registry) ByPriority(priority Priority) []Config {
	var out []Config
	for _, key := range r.order {
		if cfg := r.table[key]; cfg.Priority == priority {
			out = append(out, cfg)
		}
	}
	return out
}

// Domains lists all allowed domain names in sorted order.
func (r *Registry) Domains() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Rates returns the configured requests-per-second per domain, in the shape
// the rate limiter consumes.
func (r *Registry) Rates() map[string]float64 {
	out := make(map[string]float64, len(r.table))
	for key, cfg := range r.table {
		out[key] = cfg.RequestsPerSecond
	}
	return out
}

// Len returns the number of registered domains.
func (r *Registry) Len() int {
	return len(r.table)
}
