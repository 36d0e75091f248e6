// Package transport sends JSON requests to the API with the stored
// credential attached at send time.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/semmy-space/shelf/internal/metrics"
)

// DefaultTimeout bounds a single HTTP exchange when no client is supplied.
const DefaultTimeout = 30 * time.Second

// Factory hands out Clients, one per normalized base URL. Every Client shares
// the factory's credential source, middleware and HTTP client.
type Factory struct {
	httpClient  *http.Client
	credentials oauth2.TokenSource
	middleware  []Middleware
	hooks       []ResponseHook
	limiter     *rate.Limiter
	metrics     *metrics.Collector
	log         hclog.Logger
	userAgent   string

	mu      sync.Mutex
	clients map[string]*Client
}

// Option configures a Factory.
type Option func(*Factory)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Factory) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithCredentials attaches the token source read on every request.
func WithCredentials(src oauth2.TokenSource) Option {
	return func(f *Factory) {
		f.credentials = src
	}
}

// WithMiddleware appends outbound middleware. It runs after the built-in
// request id and throttle steps and before the credential is attached.
func WithMiddleware(mw ...Middleware) Option {
	return func(f *Factory) {
		f.middleware = append(f.middleware, mw...)
	}
}

// WithResponseHook appends an inbound hook.
func WithResponseHook(h ResponseHook) Option {
	return func(f *Factory) {
		f.hooks = append(f.hooks, h)
	}
}

// WithRateLimit throttles outbound requests to rps per second.
// Zero or negative disables throttling.
func WithRateLimit(rps float64) Option {
	return func(f *Factory) {
		if rps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithMetrics records request metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(f *Factory) {
		f.metrics = c
	}
}

// WithLogger sets the request trace logger.
func WithLogger(log hclog.Logger) Option {
	return func(f *Factory) {
		if log != nil {
			f.log = log
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Factory) {
		f.userAgent = ua
	}
}

// NewFactory creates a client factory.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        hclog.NewNullLogger(),
		clients:    make(map[string]*Client),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Client returns the cached client for baseURL, creating it on first use.
func (f *Factory) Client(baseURL string) (*Client, error) {
	base, err := normalizeBase(baseURL)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[base]; ok {
		return c, nil
	}

	c := &Client{
		base:    base,
		factory: f,
		rt:      chain(RoundTripperFunc(f.httpClient.Do), f.buildMiddleware()),
	}
	f.clients[base] = c
	return c, nil
}

func (f *Factory) buildMiddleware() []Middleware {
	mw := []Middleware{RequestID()}
	if f.limiter != nil {
		mw = append(mw, RateLimit(f.limiter))
	}
	mw = append(mw, f.middleware...)
	if f.credentials != nil {
		mw = append(mw, Credential(f.credentials))
	}
	return mw
}

func normalizeBase(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("API base URL is not configured")
	}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid API base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid API base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid API base URL %q: missing host", raw)
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// Client sends requests relative to a fixed base URL.
type Client struct {
	base    string
	factory *Factory
	rt      RoundTripper
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.base
}

// RequestOptions are per-call transport options.
type RequestOptions struct {
	Query  url.Values
	Header http.Header
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do sends one request. body is JSON encoded unless it is nil, []byte or
// json.RawMessage. Non-2xx responses return *HTTPError. Context
// cancellation surfaces as an error wrapping ctx.Err().
func (c *Client) Do(ctx context.Context, method, path string, body any, opts *RequestOptions) (*Response, error) {
	f := c.factory
	endpoint := endpointLabel(path)

	target, err := c.resolve(path, opts)
	if err != nil {
		return nil, err
	}

	reader, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if opts != nil {
		for k, vs := range opts.Header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	f.metrics.RecordRequestStart(method, endpoint)
	defer f.metrics.RecordRequestEnd(method, endpoint)

	start := time.Now()
	resp, err := c.rt.RoundTrip(req)
	if err != nil {
		f.metrics.RecordError(method, endpoint)
		f.log.Debug("request failed", "method", method, "url", target, "error", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return nil, err
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	f.metrics.RecordRequest(method, endpoint, resp.StatusCode, elapsed)
	if f.log.IsDebug() {
		var requestID string
		if resp.Request != nil {
			requestID = resp.Request.Header.Get(RequestIDHeader)
		}
		f.log.Debug("request", "method", method, "url", target, "status", resp.StatusCode,
			"duration", elapsed, "request_id", requestID)
	}

	for _, hook := range f.hooks {
		if err := hook(resp); err != nil {
			return nil, err
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPError(resp.StatusCode, data)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// resolve joins path onto the base URL. Absolute URLs are used unchanged.
func (c *Client) resolve(path string, opts *RequestOptions) (string, error) {
	target := c.base
	if path != "" {
		if u, err := url.Parse(path); err == nil && u.IsAbs() {
			target = path
		} else {
			target = c.base + "/" + strings.TrimLeft(path, "/")
		}
	}

	if opts == nil || len(opts.Query) == 0 {
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %q: %w", target, err)
	}
	q := u.Query()
	for k, vs := range opts.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func encodeBody(body any) (io.Reader, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(v), nil
	case json.RawMessage:
		return bytes.NewReader(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

// endpointLabel strips the query so metric labels stay bounded.
func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") && !strings.Contains(path, "://") {
		return "/" + path
	}
	return path
}
