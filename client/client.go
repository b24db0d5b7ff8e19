// Package client provides the HTTP client used to talk to the library index
// and the repository metadata API.
//
// Every call is bounded by a per-call timeout. Retrying is explicit: callers
// wrap operations with [Retry], and rate-limit responses carry enough
// information ([RateLimitWait]) for the caller to wait them out.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "git-pkgs-catalog"
	maxErrorBody     = 1024
)

// Client is an HTTP client with a per-call timeout and default headers.
type Client struct {
	http      *http.Client
	timeout   time.Duration
	userAgent string
	headers   map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the ceiling applied to every call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(name, value string) Option {
	return func(c *Client) {
		c.headers[name] = value
	}
}

// WithToken authenticates every request with a bearer token.
// An empty token leaves requests unauthenticated.
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.headers["Authorization"] = "Bearer " + token
		}
	}
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Transport: NewTransport()},
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		headers:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a fully read HTTP response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET and reads the whole body within the call timeout.
// Only transport failures are returned as errors; any status code is a
// valid Response. A deadline overrun is reported as ErrTimeout.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(url, err)
	}

	return &Response{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// CheckResponse converts a non-2xx response into an error.
func CheckResponse(resp *Response, now time.Time) error {
	if resp.OK() {
		return nil
	}
	if IsRateLimited(resp.StatusCode, resp.Header) {
		reset, _ := ResetTime(resp.Header, now)
		return &RateLimitError{URL: resp.URL, Reset: reset}
	}
	body := resp.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &HTTPError{StatusCode: resp.StatusCode, URL: resp.URL, Body: string(body)}
}

func classify(url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, url)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, url)
	}
	return fmt.Errorf("fetching %s: %w", url, err)
}
