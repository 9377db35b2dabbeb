package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the non-retryable rejection classes. Both are raised
// before any network attempt or rate-limit state is touched.
var (
	// ErrDisallowed marks a URL robots.txt forbids; a hard policy rejection.
	ErrDisallowed = errors.New("disallowed by robots.txt")

	// ErrInvalidURL marks input that is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")
)

// StatusError is an HTTP error status from the target server.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// RateLimitedError is an HTTP 429 response, kept distinct from other status
// errors so callers can see the server-requested pause.
type RateLimitedError struct {
	URL        string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("fetch %s: rate limited (429), retry after %s", e.URL, e.RetryAfter)
}

// ExhaustedError wraps the last underlying error once every retry attempt has
// failed, carrying the attempt count and elapsed wall time for diagnostics.
type ExhaustedError struct {
	URL      string
	Attempts int
	Elapsed  time.Duration
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts in %s: %v", e.URL, e.Attempts, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Retryable classifies an error for the retry loop: policy rejections,
// malformed input and context cancellation end the loop immediately, while
// transport failures and HTTP error statuses (429 included) are retried.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrDisallowed), errors.Is(err, ErrInvalidURL):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}
