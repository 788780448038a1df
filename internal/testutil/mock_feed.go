// Package testutil provides testing utilities for the air quality service.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockFeedResponse defines the behavior of one mocked feed endpoint.
type MockFeedResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockFeed is a configurable stand-in for the WAQI feed API. Targets are keyed
// by their decoded path segment, e.g. "London" or "geo:48.8;2.3".
type MockFeed struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
	LastToken    string
}

// NewMockFeed starts a mock feed server. Unconfigured targets answer with a
// minimal healthy reading.
func NewMockFeed() *MockFeed {
	mock := &MockFeed{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastToken = r.URL.Query().Get("token")
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// BaseURL returns the mock server URL in the form the client expects as its
// feed base, trailing slash included.
func (m *MockFeed) BaseURL() string {
	return m.server.URL + "/"
}

// Close shuts down the mock server.
func (m *MockFeed) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockFeed) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastToken = ""
}

// SetHandler sets a custom handler for a target.
func (m *MockFeed) SetHandler(target string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers["/"+target+"/"] = handler
}

// SetResponse configures a simple response for a target.
func (m *MockFeed) SetResponse(target string, resp MockFeedResponse) {
	m.SetHandler(target, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
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

// GetRequestCount returns the number of requests the server has seen.
func (m *MockFeed) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastToken returns the token query parameter of the most recent request.
func (m *MockFeed) GetLastToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastToken
}

// defaultHandler answers like the feed does for a known station.
func (m *MockFeed) defaultHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok", "data": {"aqi": 42}}`))
}

// NewOKResponse wraps data in the feed's success envelope.
func NewOKResponse(data string) MockFeedResponse {
	return MockFeedResponse{
		StatusCode: http.StatusOK,
		Body:       `{"status": "ok", "data": ` + data + `}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRejectedResponse builds a 200 reply whose body reports an error, the way
// the feed signals an unknown station or bad token.
func NewRejectedResponse(detail string) MockFeedResponse {
	return MockFeedResponse{
		StatusCode: http.StatusOK,
		Body:       `{"status": "error", "data": "` + detail + `"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockFeedResponse {
	return MockFeedResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
