// Package testutil provides an httptest-backed fake of the upstream providers.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockProvider is a configurable fake upstream for testing.
type MockProvider struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount      int
	inflight          int
	maxInflight       int
	lastRequestHeader http.Header
	pathCounts        map[string]int
}

// NewMockProvider creates and starts a new mock server.
func NewMockProvider() *MockProvider {
	mock := &MockProvider{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastRequestHeader = r.Header.Clone()
		mock.inflight++
		if mock.inflight > mock.maxInflight {
			mock.maxInflight = mock.inflight
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		defer func() {
			mock.mu.Lock()
			mock.inflight--
			mock.mu.Unlock()
		}()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))

	return mock
}

// URL returns the mock server base URL.
func (m *MockProvider) URL() string {
	return m.server.URL
}

// Client returns an http.Client wired to the mock server.
func (m *MockProvider) Client() *http.Client {
	return m.server.Client()
}

// Close shuts down the mock server.
func (m *MockProvider) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.maxInflight = 0
	m.lastRequestHeader = nil
	m.pathCounts = make(map[string]int)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockProvider) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockProvider) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetHanging makes a path block until the client gives up.
func (m *MockProvider) SetHanging(path string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
}

// RequestCount returns the number of requests received.
func (m *MockProvider) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests received for path.
func (m *MockProvider) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// MaxInflight returns the highest number of concurrently served requests.
func (m *MockProvider) MaxInflight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxInflight
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockProvider) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// NewJSONResponse creates a 200 OK JSON response.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewCachedJSONResponse creates a 200 OK JSON response carrying an ETag and Expires.
func NewCachedJSONResponse(body, etag string, ttl time.Duration) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
			"ETag":         etag,
			"Expires":      time.Now().Add(ttl).UTC().Format(http.TimeFormat),
		},
	}
}

// NewJSONPResponse creates a 200 OK response with the "{}&&" prefix some providers prepend.
func NewJSONPResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       "{}&&" + body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewStatusResponse creates a response with the given status and a small JSON error body.
func NewStatusResponse(status int) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       `{"error":"` + http.StatusText(status) + `"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response with Retry-After.
func NewRateLimitResponse(retryAfter time.Duration) MockResponse {
	resp := NewStatusResponse(http.StatusTooManyRequests)
	resp.Headers["Retry-After"] = strconv.Itoa(int(retryAfter.Seconds()))
	return resp
}

// NewConditionalHandler answers 304 when If-None-Match carries etag, else 200 with data.
func NewConditionalHandler(etag string, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).UTC().Format(http.TimeFormat))

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}

// ClosedURL returns the URL of a server that has already been shut down,
// so any request to it fails at the transport level.
func ClosedURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}
