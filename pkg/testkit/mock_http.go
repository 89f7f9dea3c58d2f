// Package testkit holds test doubles shared across packages: a
// RoundTripper that answers outgoing HTTP calls from canned steps, and
// testify-backed mockers for non-HTTP side effects such as mail.
package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockStep is one canned answer. The first step whose Method and MatchURL
// prefix match an outgoing request answers it.
type MockStep struct {
	Method     string // empty matches any method
	MatchURL   string // prefix; empty matches any URL
	StatusCode int    // defaults to 200
	Body       []byte
	Header     http.Header
	Err        error // returned instead of a response, e.g. to simulate a dial failure
}

// RecordedRequest is a request seen by MockTransport.
type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// MockTransport implements http.RoundTripper.
//
//	mt := testkit.NewMockTransport(testkit.MockStep{MatchURL: "http://vision/", Body: []byte(`{"detections":[]}`)})
//	client := khttp.NewClient(mt)
//	...
//	testkit.AssertMocksAllCalled(t, mt)
type MockTransport struct {
	mu       sync.Mutex
	steps    []*mockEntry
	requests []RecordedRequest
	// Strict makes unmatched calls fail instead of answering 404.
	Strict bool
}

type mockEntry struct {
	step  MockStep
	calls int
}

func NewMockTransport(steps ...MockStep) *MockTransport {
	mt := &MockTransport{}
	for _, s := range steps {
		mt.steps = append(mt.steps, &mockEntry{step: s})
	}
	return mt
}

// RoundTrip answers req from the first matching step.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.requests = append(mt.requests, RecordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})

	for _, e := range mt.steps {
		if e.step.Method != "" && !strings.EqualFold(e.step.Method, req.Method) {
			continue
		}
		if !strings.HasPrefix(req.URL.String(), e.step.MatchURL) {
			continue
		}
		e.calls++
		if e.step.Err != nil {
			return nil, e.step.Err
		}
		return buildResponse(req, e.step), nil
	}

	if mt.Strict {
		return nil, fmt.Errorf("testkit: unexpected outgoing HTTP call to %s", req.URL)
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Status:     "404 Not Found",
		Body:       io.NopCloser(strings.NewReader(`{"error":"no mock configured"}`)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Requests returns every request seen so far.
func (mt *MockTransport) Requests() []RecordedRequest {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]RecordedRequest(nil), mt.requests...)
}

// Uncalled returns an error per step that never matched.
func (mt *MockTransport) Uncalled() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var errs []error
	for _, e := range mt.steps {
		if e.calls == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock step %s %q was never called", e.step.Method, e.step.MatchURL))
		}
	}
	return errs
}

func buildResponse(req *http.Request, s MockStep) *http.Response {
	code := s.StatusCode
	if code == 0 {
		code = http.StatusOK
	}
	header := s.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}
	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.Body)),
		Request:    req,
	}
}
