// Package http is a fluent client for outgoing HTTP calls.
//
//	resp, err := client.Post(url).
//	    WithContext(ctx).
//	    Raw(imageBytes, "application/octet-stream").
//	    Timeout(20 * time.Second).
//	    Send()
//
//	var out DetectResponse
//	err = resp.Throw()
//	err = resp.JSON(&out)
//
// Tests pass a testkit.MockTransport to NewClient instead of touching the
// network.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	gohttp "net/http"
	"time"

	"github.com/shashiranjanraj/krishimitra/pkg/logger"
)

// maxResponseBytes caps how much of a response body is buffered.
const maxResponseBytes = 8 << 20

var defaultTransport = &gohttp.Transport{
	Proxy:               gohttp.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
}

// Client sends requests over one transport.
type Client struct {
	hc *gohttp.Client
}

// NewClient returns a client over rt, or the pooled default transport when
// rt is nil.
func NewClient(rt gohttp.RoundTripper) *Client {
	if rt == nil {
		rt = defaultTransport
	}
	return &Client{hc: &gohttp.Client{Transport: rt}}
}

// Default is the shared production client.
var Default = NewClient(nil)

func (c *Client) Get(url string) *Request  { return c.newRequest(gohttp.MethodGet, url) }
func (c *Client) Post(url string) *Request { return c.newRequest(gohttp.MethodPost, url) }

func Get(url string) *Request  { return Default.Get(url) }
func Post(url string) *Request { return Default.Post(url) }

// ------------------- Request -------------------

// Request is a fluent request builder.
type Request struct {
	client      *Client
	method      string
	url         string
	headers     map[string]string
	body        interface{}
	contentType string
	timeout     time.Duration
	attempts    int
	retryWait   time.Duration
	ctx         context.Context
}

func (c *Client) newRequest(method, url string) *Request {
	return &Request{
		client:    c,
		method:    method,
		url:       url,
		headers:   map[string]string{"Accept": "application/json"},
		timeout:   30 * time.Second,
		attempts:  1,
		retryWait: 500 * time.Millisecond,
		ctx:       context.Background(),
	}
}

func (r *Request) Header(key, value string) *Request {
	r.headers[key] = value
	return r
}

// Bearer sets Authorization: Bearer <token>. Empty tokens are ignored.
func (r *Request) Bearer(token string) *Request {
	if token == "" {
		return r
	}
	return r.Header("Authorization", "Bearer "+token)
}

// Body sets a JSON body; v is marshalled on send.
func (r *Request) Body(v interface{}) *Request {
	r.body, r.contentType = v, "application/json"
	return r
}

// Raw sets a byte body with an explicit content type.
func (r *Request) Raw(b []byte, contentType string) *Request {
	r.body, r.contentType = b, contentType
	return r
}

// Timeout bounds each attempt.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Retry sets the total number of attempts (1 = no retry) and the initial
// backoff, which doubles per attempt.
func (r *Request) Retry(n int, wait time.Duration) *Request {
	if n < 1 {
		n = 1
	}
	r.attempts, r.retryWait = n, wait
	return r
}

func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// ------------------- Send -------------------

// Send executes the request. Non-2xx statuses are not errors; use Throw.
func (r *Request) Send() (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, err := r.do()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if r.ctx.Err() != nil {
			break
		}
		if attempt < r.attempts {
			backoff := time.Duration(float64(r.retryWait) * math.Pow(2, float64(attempt-1)))
			logger.WithCtx(r.ctx).Warn("http: request failed, retrying",
				"url", r.url, "attempt", attempt, "backoff", backoff, "error", err)
			select {
			case <-time.After(backoff):
			case <-r.ctx.Done():
				return nil, fmt.Errorf("http: %s %s: %w", r.method, r.url, r.ctx.Err())
			}
		}
	}

	return nil, fmt.Errorf("http: %s %s failed after %d attempt(s): %w", r.method, r.url, r.attempts, lastErr)
}

func (r *Request) do() (*Response, error) {
	body, err := r.buildBody()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	req, err := gohttp.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if body != nil && r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := r.client.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("http: read body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Raw: raw}, nil
}

func (r *Request) buildBody() (io.Reader, error) {
	switch v := r.body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(v), nil
	case string:
		return bytes.NewBufferString(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("http: marshal body: %w", err)
		}
		return bytes.NewReader(b), nil
	}
}

// ------------------- Response -------------------

// ErrStatus is wrapped by Throw for non-2xx responses.
var ErrStatus = errors.New("http: unexpected status")

type Response struct {
	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
}

func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

func (r *Response) JSON(dest interface{}) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}

func (r *Response) Text() string { return string(r.Raw) }

// Throw returns an ErrStatus error unless the status is 2xx.
func (r *Response) Throw() error {
	if r.OK() {
		return nil
	}
	snippet := r.Raw
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}
	return fmt.Errorf("%w %d: %s", ErrStatus, r.StatusCode, snippet)
}
