// Package update checks a remote server for newer rule sets and merges them
// with the user's custom rules.
package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/solatis/antiseptic/internal/ruleset"
	"github.com/solatis/antiseptic/internal/types"
	"go.uber.org/zap"
)

/*
 * Remote protocol.
 *
 * Two plain HTTP resources under a base URL:
 *   GET <base>/latest      bare version token, surrounding whitespace trimmed
 *   GET <base>/rules.json  rule source document
 *
 * Every failed attempt (transport error or non-2xx status) is an
 * ErrFetchFailure. The client retries immediately, with no backoff, up to
 * MaxAttempts; after that the request fails with ErrUpdateUnavailable.
 */

// DefaultMaxAttempts is the attempt budget when none is configured.
const DefaultMaxAttempts = 3

// maxBodySize caps response bodies; rule sets are a few hundred kilobytes.
const maxBodySize = 16 << 20

// Fetcher performs a single GET.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches over net/http. Each attempt gets its own Timeout.
type HTTPFetcher struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
}

// Fetch issues one GET and returns the body of a 2xx response.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrFetchFailure, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s returned %s", types.ErrFetchFailure, url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", types.ErrFetchFailure, url, err)
	}
	return body, nil
}

// Client talks to an update server.
type Client struct {
	BaseURL     string
	Fetcher     Fetcher
	MaxAttempts int
	Logger      *zap.SugaredLogger
}

// NewClient returns a Client using an HTTPFetcher with the given per-attempt timeout.
func NewClient(baseURL string, maxAttempts int, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	return &Client{
		BaseURL:     baseURL,
		Fetcher:     &HTTPFetcher{Timeout: timeout, UserAgent: "antiseptic"},
		MaxAttempts: maxAttempts,
		Logger:      logger,
	}
}

// Latest returns the newest version token the server advertises.
func (c *Client) Latest(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "latest")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// Rules downloads and parses the current rule set.
func (c *Client) Rules(ctx context.Context) (*ruleset.Document, error) {
	body, err := c.get(ctx, "rules.json")
	if err != nil {
		return nil, err
	}
	doc, err := ruleset.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("downloaded rules: %w", err)
	}
	if !doc.HasRules() {
		return nil, fmt.Errorf("downloaded rules: %w", types.ErrMissingRuleSection)
	}
	return doc, nil
}

// URL joins the base URL and a resource name with exactly one slash.
func (c *Client) URL(resource string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + resource
}

func (c *Client) get(ctx context.Context, resource string) ([]byte, error) {
	url := c.URL(resource)
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	logger := c.logger()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Debugw("requesting URL", "url", url, "attempt", attempt)

		body, err := c.Fetcher.Fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		logger.Debugw("request failed", "url", url, "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %w", types.ErrUpdateUnavailable, url, attempts, lastErr)
}

func (c *Client) logger() *zap.SugaredLogger {
	if c.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return c.Logger
}
