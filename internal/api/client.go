package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/five82/basket/internal/busy"
)

// Mode selects the transport behind the client.
type Mode string

const (
	// ModeMock serves requests in-process from an http.Handler.
	ModeMock Mode = "mock"
	// ModeLive talks to the server at Config.BaseURL.
	ModeLive Mode = "live"
)

// Config is the explicit transport configuration.
type Config struct {
	Mode      Mode
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

const (
	defaultBaseURL   = "http://127.0.0.1:8080/api"
	mockBaseURL      = "http://basket.mock/api"
	defaultUserAgent = "basket/0.1"
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 8 << 20
)

var (
	readOptions = busy.Options{
		Source:  busy.SourceBackend,
		Mode:    busy.ModeSoft,
		Message: "Loading data…",
	}
	writeOptions = busy.Options{
		Source:  busy.SourceBackend,
		Mode:    busy.ModeHard,
		Message: "Saving data…",
	}
)

// Client talks to the shopping-list REST API. Every call is reported to the
// busy tracker: reads as soft work, writes as hard work.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	tracker   *busy.Tracker
	logger    *slog.Logger
}

type clientOptions struct {
	tracker    *busy.Tracker
	httpClient *http.Client
	handler    http.Handler
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

// WithTracker instruments every call through t.
func WithTracker(t *busy.Tracker) Option {
	return func(o *clientOptions) { o.tracker = t }
}

// WithHTTPClient replaces the underlying http.Client. A cookie jar is added
// when the client has none.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithHandler supplies the in-memory server used in ModeMock.
func WithHandler(h http.Handler) Option {
	return func(o *clientOptions) { o.handler = h }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// NewClient builds a Client for cfg.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	var base *url.URL
	switch cfg.Mode {
	case ModeMock:
		if o.handler == nil {
			return nil, fmt.Errorf("mock mode requires a handler")
		}
		base, _ = url.Parse(mockBaseURL)
		dup := *httpClient
		dup.Transport = handlerTransport{handler: o.handler}
		httpClient = &dup
	case ModeLive, "":
		parsed, err := parseBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		base = parsed
	default:
		return nil, fmt.Errorf("unknown api mode %q", cfg.Mode)
	}

	if httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		dup := *httpClient
		dup.Jar = jar
		httpClient = &dup
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		baseURL:   base,
		http:      httpClient,
		userAgent: userAgent,
		tracker:   o.tracker,
		logger:    o.logger,
	}, nil
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL.String()
}

// Get fetches path and decodes the JSON body into dest.
func (c *Client) Get(ctx context.Context, path string, dest any) error {
	return c.decode(c.Do(ctx, http.MethodGet, path, nil))(dest)
}

// Post sends body as JSON (or a Multipart as-is) and decodes the reply into dest.
func (c *Client) Post(ctx context.Context, path string, body, dest any) error {
	return c.decode(c.Do(ctx, http.MethodPost, path, body))(dest)
}

// Put sends body as JSON (or a Multipart as-is) and decodes the reply into dest.
func (c *Client) Put(ctx context.Context, path string, body, dest any) error {
	return c.decode(c.Do(ctx, http.MethodPut, path, body))(dest)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.Do(ctx, http.MethodDelete, path, nil)
	return err
}

// Do performs one request. It returns nil for 204 and for any empty 2xx
// body, and an *HTTPError for non-2xx responses.
func (c *Client) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	opts := writeOptions
	if method == http.MethodGet || method == http.MethodHead {
		opts = readOptions
	}
	return busy.Do(ctx, c.tracker, opts, func(ctx context.Context) (json.RawMessage, error) {
		return c.roundTrip(ctx, method, path, body)
	})
}

func (c *Client) decode(raw json.RawMessage, err error) func(dest any) error {
	return func(dest any) error {
		if err != nil {
			return err
		}
		if dest == nil || raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, dest); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	reqURL := c.baseURL.JoinPath(path)

	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case Multipart:
		reader, contentType = b.Body, b.ContentType
	case *Multipart:
		reader, contentType = b.Body, b.ContentType
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("api request", "method", method, "url", reqURL.String())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPError(method, path, resp, data)
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("decode response: api %s %s returned invalid JSON", method, path)
	}
	return json.RawMessage(data), nil
}

// handlerTransport serves requests from an in-process handler.
type handlerTransport struct {
	handler http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
