package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parseq/mutation_sdk_go/internal/logger"
)

// RequestIDHeader carries a per-request id generated by the client.
const RequestIDHeader = "X-Request-ID"

// Observer is notified once per completed request. status is 0 when the
// transport failed before a response was received.
type Observer func(method, route string, status int, elapsed time.Duration)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used by the helper.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithHeaders assigns default headers added to every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithTimeout bounds every request. Zero means no client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithObserver installs a request observer (metrics hook).
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// Client wraps http.Client with base URL resolution, request ids and error
// decoding. It performs exactly one attempt per call.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	headers    http.Header
	timeout    time.Duration
	observer   Observer
}

// Request describes a single outbound request.
type Request struct {
	Method string
	// Path is resolved against the base URL. It must already be escaped.
	Path string
	// Route is the path template used for logs and metrics, e.g. "/lists/{name}".
	Route  string
	Query  url.Values
	Header http.Header
	Body   io.Reader
}

// NewClient creates a Client for the provided base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpx: base URL is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httpx: invalid base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("httpx: invalid base URL %q: scheme and host are required", baseURL)
	}
	// Keep the base path as a directory so relative references append to it.
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{},
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do executes the request and returns the response, or an *HTTPError for
// statuses >= 400. Transport errors are returned as produced by net/http.
func (c *Client) Do(ctx context.Context, req *Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("httpx: request is nil")
	}
	if req.Method == "" {
		return nil, errors.New("httpx: HTTP method is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fullURL, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	cancel := func() {}
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	body := req.Body
	if body == nil {
		body = http.NoBody
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		cancel()
		return nil, err
	}

	httpReq.Header = cloneHeader(c.headers)
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	requestID := httpReq.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		httpReq.Header.Set(RequestIDHeader, requestID)
	}

	route := req.Route
	if route == "" {
		route = req.Path
	}
	log := logger.From(ctx).With(logger.RequestID(requestID), logger.Method(req.Method), logger.Path(route))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		cancel()
		c.observe(req.Method, route, 0, elapsed)
		log.Debug("request failed", logger.Duration(elapsed))
		return nil, err
	}
	c.observe(req.Method, route, resp.StatusCode, elapsed)
	log.Debug("request completed", logger.Status(resp.StatusCode), logger.Duration(elapsed))

	if resp.StatusCode >= 400 {
		err := c.handleError(resp)
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (c *Client) observe(method, route string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer(method, route, status, elapsed)
	}
}

// cancelOnClose releases the per-request timeout once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func closeBody(rc io.ReadCloser) {
	if rc != nil {
		_ = rc.Close()
	}
}

func (c *Client) buildURL(path string, q url.Values) (string, error) {
	path = strings.TrimPrefix(path, "/")
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	if len(q) > 0 {
		ref.RawQuery = q.Encode()
	}
	full := c.baseURL.ResolveReference(ref)
	return full.String(), nil
}

func (c *Client) handleError(resp *http.Response) error {
	defer closeBody(resp.Body)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpx: read error body: %w", err)
	}
	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header.Clone(),
	}
	if isJSON(resp.Header.Get("Content-Type")) {
		httpErr.JSON = decodeJSONBody(body)
	}
	return httpErr
}

// JSONBody serializes v into JSON without HTML escaping and without the
// trailing newline added by json.Encoder.
func JSONBody(v any) (io.Reader, error) {
	data, err := MarshalJSON(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// MarshalJSON encodes v the way request bodies are sent on the wire.
func MarshalJSON(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ReadAllAndClose drains the reader and ensures it is closed.
func ReadAllAndClose(rc io.ReadCloser) ([]byte, error) {
	defer closeBody(rc)
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType) == "application/json"
}

func cloneHeader(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, values := range src {
		vCopy := make([]string, len(values))
		copy(vCopy, values)
		dst[k] = vCopy
	}
	return dst
}
