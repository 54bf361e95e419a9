// Package testutil provides testing utilities for the AeroAPI facade.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock AeroAPI endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAeroAPI is a configurable mock AeroAPI server for testing.
type MockAeroAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount    int
	requestsByPath  map[string]int
	lastRequestSeen *http.Request
	lastAPIKey      string
}

// NewMockAeroAPI creates a new mock AeroAPI server.
func NewMockAeroAPI() *MockAeroAPI {
	mock := &MockAeroAPI{
		handlers:       make(map[string]func(w http.ResponseWriter, r *http.Request)),
		requestsByPath: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.requestsByPath[r.URL.Path]++
		mock.lastRequestSeen = r
		mock.lastAPIKey = r.Header.Get("x-apikey")
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

// URL returns the mock server URL.
func (m *MockAeroAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAeroAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAeroAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.requestsByPath = make(map[string]int)
	m.lastRequestSeen = nil
	m.lastAPIKey = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAeroAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAeroAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAeroAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetRequestCountForPath returns the number of requests to one path.
func (m *MockAeroAPI) GetRequestCountForPath(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestsByPath[path]
}

// GetLastAPIKey returns the x-apikey header of the most recent request.
func (m *MockAeroAPI) GetLastAPIKey() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastAPIKey
}

// defaultHandler answers 404 with an AeroAPI-shaped error body for any
// path without a configured response.
func (m *MockAeroAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"title": "Not Found", "detail": "Unknown resource", "status": 404}`))
}

// NewFlightsResponse wraps entities in a flights payload.
func NewFlightsResponse(entities string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"flights": [` + entities + `]}`,
	}
}

// NewBoardResponse wraps entities in a board payload under topLevelKey
// (arrivals, departures, scheduled_arrivals, scheduled_departures).
func NewBoardResponse(topLevelKey, entities string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"` + topLevelKey + `": [` + entities + `]}`,
	}
}

// NewNotFoundResponse creates a 404 response with the AeroAPI error shape.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"title": "Not Found", "detail": "Flight not found", "status": 404}`,
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"title": "Internal Error", "detail": "Upstream failure", "status": 500}`,
	}
}

// FlightEntity renders a minimal raw AeroAPI flight object for tests.
func FlightEntity(faFlightID, ident, origin, destination string) string {
	return `{"fa_flight_id": "` + faFlightID + `", "ident": "` + ident + `",` +
		` "origin": {"code": "` + origin + `"}, "destination": {"code": "` + destination + `"}}`
}
