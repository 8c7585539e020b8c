// Package trends provides the outbound trends sources used by trends-cli:
// the JSON trends API and the public trends RSS feed.
package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/robertmeta/trends-cli/model"
	"github.com/robertmeta/trends-cli/query"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TrendsPath is the endpoint path of the trends API.
const TrendsPath = "/api/trends"

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response body is logged.
const maxErrorBody = 512

// Client fetches trends from the JSON trends API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: NewHTTPClient(DefaultTimeout),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient returns an HTTP client with an instrumented transport.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// RequestURL returns the URL requested for q.
func (c *Client) RequestURL(q model.Query) string {
	u := c.baseURL + TrendsPath
	if encoded := query.Serialize(q); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// Fetch issues GET /api/trends for q and decodes the result. Transport
// failures and non-2xx responses are returned as *model.NetworkError.
func (c *Client) Fetch(ctx context.Context, q model.Query) (*model.TrendsResult, error) {
	reqURL := c.RequestURL(q)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "requesting trends", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WarnContext(ctx, "trends request failed",
			"url", reqURL,
			"status", resp.StatusCode,
			"body", strings.TrimSpace(string(body)),
		)
		return nil, &model.NetworkError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.NetworkError{Err: err}
	}

	var result model.TrendsResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode trends response: %w", err)
	}
	result.Raw = body

	return &result, nil
}
