package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// Response is what a transport returns for one GET. Error statuses are
// reported here, not as Go errors; only transport-level failures surface as
// errors from Client.Get.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is the injected HTTP transport capability.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (*Response, error)
}

// HTTPClient is the default Client backed by net/http with a bounded timeout.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient builds the default transport. A non-positive timeout falls
// back to 30 seconds.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get issues the request and reads the body. Any HTTP status is returned in
// the Response; a non-nil error always means the request itself failed.
func (c *HTTPClient) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read side already consumed

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
