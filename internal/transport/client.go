// Package transport is the JSON-over-HTTP plumbing shared by the backend,
// chat and rate clients.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mrz1836/onboard/internal/metrics"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

const (
	// DefaultTimeout is the HTTP request timeout when none is configured.
	DefaultTimeout = 30 * time.Second

	// maxResponseBody caps how much of a response is read (1 MB).
	maxResponseBody = 1 << 20
)

// ErrURLRequired indicates a client was built without a base URL.
var ErrURLRequired = onboarderr.WithSuggestion(onboarderr.ErrConfigInvalid, "service URL is required") //nolint:gochecknoglobals // sentinel

// Options configures a Client.
type Options struct {
	// Timeout overrides DefaultTimeout.
	Timeout time.Duration
	// HTTPClient overrides the default HTTP client (tests use httptest clients).
	HTTPClient *http.Client
	// RatePerSecond and Burst configure client-side rate limiting.
	RatePerSecond float64
	Burst         int
	// UserAgent is sent on every request.
	UserAgent string
	// Service names the remote for call metrics.
	Service string
	// Metrics overrides metrics.Global.
	Metrics *metrics.Metrics
}

// WithService returns a copy of opts tagged with service unless one is set.
// A nil opts yields fresh options.
func WithService(opts *Options, service string) *Options {
	out := Options{}
	if opts != nil {
		out = *opts
	}
	if out.Service == "" {
		out.Service = service
	}
	return &out
}

// Request describes one call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers map[string]string

	// Endpoint names the rate-limit bucket; defaults to Path.
	Endpoint string
}

// Client performs JSON requests against a base URL.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *RateLimiter
	userAgent   string
	service     string
	metrics     *metrics.Metrics
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts *Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrURLRequired
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, onboarderr.WithCause(onboarderr.ErrConfigInvalid, err)
	}

	if opts == nil {
		opts = &Options{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		rateLimiter: NewRateLimiter(opts.RatePerSecond, opts.Burst),
		userAgent:   opts.UserAgent,
		service:     opts.Service,
		metrics:     metrics.Global,
	}
	if opts.HTTPClient != nil {
		c.httpClient = opts.HTTPClient
	}
	if opts.Metrics != nil {
		c.metrics = opts.Metrics
	}

	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and decodes a JSON response into out (which may be nil).
// Non-2xx responses become ErrNetworkError with the status in the details;
// 429 becomes ErrRateLimited.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	start := time.Now()
	err := c.do(ctx, req, out)
	c.metrics.RecordServiceCall(c.service, time.Since(start), err)
	return err
}

func (c *Client) do(ctx context.Context, req Request, out any) error {
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = req.Path
	}
	if err := c.rateLimiter.Wait(ctx, endpoint); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		reqURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq) //nolint:gosec // URL comes from sanitized configuration
	if err != nil {
		return onboarderr.WithCause(onboarderr.ErrNetworkError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return onboarderr.WithCause(onboarderr.ErrNetworkError, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return onboarderr.WithDetails(onboarderr.ErrRateLimited, map[string]string{
			"endpoint": endpoint,
		})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncateBody(string(data), 512)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return onboarderr.WithCause(onboarderr.ErrNetworkError, fmt.Errorf("parsing response: %w", err))
	}
	return nil
}

// StatusError is a non-2xx response. It matches ErrNetworkError.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", onboarderr.ErrNetworkError.Message, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNetworkError) match.
func (e *StatusError) Is(target error) bool {
	return onboarderr.Is(onboarderr.ErrNetworkError, target)
}

// Unwrap exposes the network sentinel with the status attached.
func (e *StatusError) Unwrap() error {
	return onboarderr.WithDetails(onboarderr.ErrNetworkError, map[string]string{
		"status": strconv.Itoa(e.StatusCode),
	})
}

func truncateBody(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
