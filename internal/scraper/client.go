package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// ProbeTimeout bounds cheap existence checks (HEAD, API ping).
	ProbeTimeout = 5 * time.Second
	// PageTimeout bounds full-page fetches.
	PageTimeout = 30 * time.Second

	UserAgent = "trailscan/1.0 (github.com/hashtrails/trailscan)"

	maxBodyBytes = 4 << 20 // a trail announcement page has no business being bigger
)

// Client fetches source pages with bounded timeouts and transient-error
// retry. All methods honor context cancellation; a cancelled fetch
// reports an error instead of hanging the orchestrator.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a fetch client. The underlying http.Client carries
// the page timeout; probes tighten it per-request via context.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: PageTimeout},
	}
}

// StatusError is a non-2xx HTTP response, kept as a typed error so the
// orchestrator can record the status code in fetch errors.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Status)
}

// Get fetches a URL and returns the body. Transient failures (network
// errors, 5xx, 429) are retried with exponential backoff, capped to
// three attempts; 4xx responses fail immediately.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("fetching page: %w", ctx.Err()))
			}
			return fmt.Errorf("fetching page: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return &StatusError{URL: url, Status: resp.StatusCode}
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(&StatusError{URL: url, Status: resp.StatusCode})
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return body, nil
}

// Probe performs a cheap existence check with the short timeout. Used by
// fallback chains to decide whether a strategy is worth a full fetch.
func (c *Client) Probe(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probing %s: %w", url, err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &StatusError{URL: url, Status: resp.StatusCode}
	}
	return nil
}
