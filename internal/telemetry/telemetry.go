// Package telemetry defines the Prometheus metrics for the ingestion core.
package telemetry

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_fetches_total",
			Help: "Total fetch outcomes, labeled by domain and result.",
		},
		[]string{"domain", "result"},
	)

	fetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_fetch_bytes_total",
			Help: "Total bytes fetched, labeled by domain.",
		},
		[]string{"domain"},
	)

	rateLimitWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_rate_limit_wait_seconds",
			Help:    "Histogram of rate limiter wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	robotsCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_robots_cache_total",
			Help: "Robots cache lookups, labeled by result (hit, miss, expired).",
		},
		[]string{"result"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_retries_total",
			Help: "Retry attempts performed, labeled by domain.",
		},
		[]string{"domain"},
	)

	dedupSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_dedup_skips_total",
			Help: "Documents skipped as duplicates, labeled by kind (url, content).",
		},
		[]string{"kind"},
	)
)

// Handler returns the standard Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SanitizeDomain extracts a lowercase hostname label from a URL, falling back
// to "unknown" so label cardinality stays bounded on garbage input.
func SanitizeDomain(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveFetch records a fetch outcome for a domain.
func ObserveFetch(rawURL, result string, bytesFetched int) {
	domain := SanitizeDomain(rawURL)
	fetchesTotal.WithLabelValues(domain, result).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(domain).Add(float64(bytesFetched))
	}
}

// ObserveRateLimitWait records how long a caller was delayed by the limiter.
func ObserveRateLimitWait(domain string, waited time.Duration) {
	rateLimitWaitSeconds.WithLabelValues(domain).Observe(waited.Seconds())
}

// ObserveRobotsCache records a robots cache lookup result.
func ObserveRobotsCache(result string) {
	robotsCacheTotal.WithLabelValues(result).Inc()
}

// IncRetry records one retry attempt against a domain.
func IncRetry(rawURL string) {
	retriesTotal.WithLabelValues(SanitizeDomain(rawURL)).Inc()
}

// IncDedupSkip records a skipped duplicate, kind is "url" or "content".
func IncDedupSkip(kind string) {
	dedupSkipsTotal.WithLabelValues(kind).Inc()
}
