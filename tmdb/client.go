package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/c360/filmgraph/errors"
	"github.com/c360/filmgraph/metric"
)

// DefaultBaseURL is the public metadata API root.
const DefaultBaseURL = "https://api.themoviedb.org/3"

const searchMovieEndpoint = "search_movie"

// ErrNotConfigured is returned when the client has no API key.
var ErrNotConfigured = errors.New("tmdb api key not configured")

// Client queries the metadata provider. It performs exactly one request per
// call and never retries.
type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
	metrics *metric.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpc = &http.Client{Timeout: timeout}
		}
	}
}

// WithMetrics records upstream request outcomes.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultBaseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// SearchMovies runs a title search and returns the first page of results.
func (c *Client) SearchMovies(ctx context.Context, title string) (results *SearchMovieResults, err error) {
	if !c.Configured() {
		return nil, upstreamError(ErrNotConfigured, "check api key")
	}
	defer func() { c.metrics.RecordUpstream(searchMovieEndpoint, err) }()

	endpoint, err := url.Parse(c.baseURL + "/search/movie")
	if err != nil {
		return nil, upstreamError(err, "build url")
	}
	q := endpoint.Query()
	q.Set("api_key", c.apiKey)
	q.Set("query", title)
	endpoint.RawQuery = q.Encode()

	var out SearchMovieResults
	if err := c.doGET(ctx, endpoint.String(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doGET(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return upstreamError(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return upstreamError(redact(err, c.apiKey), "send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return upstreamError(fmt.Errorf("unexpected status %s", resp.Status), "send request")
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return upstreamError(fmt.Errorf("%w: %w", errors.ErrUpstreamDecode, err), "decode response")
	}
	return nil
}

func upstreamError(err error, action string) error {
	return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrUpstream, err), "TMDBClient", "SearchMovies", action)
}

// redact strips the API key from transport errors, which embed the request URL.
func redact(err error, apiKey string) error {
	msg := err.Error()
	if apiKey == "" || !strings.Contains(msg, apiKey) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, apiKey, "REDACTED"))
}
