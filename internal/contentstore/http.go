package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
)

// HTTPClient fetches record maps from a content store API exposing
// GET {base}/pages/{compact-id}.
type HTTPClient struct {
	base     string
	http     *http.Client
	attempts uint
	delay    time.Duration
}

// HTTPOption customizes an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.http = hc }
}

// WithRetry sets the number of attempts and the base delay between them.
func WithRetry(attempts uint, delay time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.delay = delay
	}
}

// NewHTTPClient returns a client for the API rooted at base.
func NewHTTPClient(base string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		base:     strings.TrimRight(base, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		attempts: 3,
		delay:    200 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchPage requests the record map of pageID, retrying transient failures.
// A 404 is returned as ErrPageNotFound without retrying.
func (c *HTTPClient) FetchPage(ctx context.Context, pageID string) (*models.RecordMap, error) {
	id, err := pageid.Parse(pageID)
	if err != nil {
		return nil, fmt.Errorf("contentstore: fetch: %w", err)
	}
	url := c.base + "/pages/" + pageid.Compact(id)

	rm, err := retry.DoWithData(
		func() (*models.RecordMap, error) { return c.get(ctx, url, id) },
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return rm, nil
}

func (c *HTTPClient) get(ctx context.Context, url, id string) (*models.RecordMap, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("contentstore: request %s: %w", id, err))
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contentstore: fetch %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, retry.Unrecoverable(fmt.Errorf("%w: %s", ErrPageNotFound, id))
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("contentstore: fetch %s: status %d", id, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Unrecoverable(fmt.Errorf("contentstore: fetch %s: status %d", id, resp.StatusCode))
	}

	var rm models.RecordMap
	if err := json.NewDecoder(resp.Body).Decode(&rm); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("contentstore: decode %s: %w", id, err))
	}
	return &rm, nil
}
