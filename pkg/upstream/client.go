// Package upstream provides the AeroAPI HTTP client.
//
// The client makes exactly one authenticated GET per call and never
// returns a Go error to callers: transport and decode failures are
// synthesized into a {title, detail, status} envelope with status 500,
// and non-2xx upstream statuses pass through untouched. Classifying a
// failure is the caller's job, by inspecting the status code.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/flightboard/aeroapi-proxy/pkg/logging"
)

// DefaultBaseURL is the production AeroAPI endpoint.
const DefaultBaseURL = "https://aeroapi.flightaware.com/aeroapi"

// DefaultTimeout bounds a single upstream round-trip.
const DefaultTimeout = 30 * time.Second

// Prometheus metrics for upstream operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aeroapi_upstream_requests_total",
		Help: "Total AeroAPI requests by status",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aeroapi_upstream_request_duration_seconds",
		Help:    "AeroAPI request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})
)

// Response is the outcome of one upstream call. Body is the verbatim
// upstream payload on any real HTTP response, or a synthesized Envelope
// (and StatusCode 500) when the transport or the payload failed.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the upstream answered 200.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Config holds the client configuration.
type Config struct {
	// APIKey is sent as the x-apikey header (required).
	APIKey string

	// BaseURL overrides DefaultBaseURL, mainly for tests.
	BaseURL string

	// Timeout bounds each request; DefaultTimeout when zero.
	Timeout time.Duration
}

// Client issues single-attempt GETs against AeroAPI.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	timeout    time.Duration
	logger     zerolog.Logger
}

// New creates an AeroAPI client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		timeout:    timeout,
		logger:     logging.NewLogger("upstream"),
	}, nil
}

// Fetch performs one GET against the given resource path (which may carry
// a query string). It always returns a usable Response; see the package
// doc for the failure contract.
func (c *Client) Fetch(ctx context.Context, resource string) *Response {
	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Info().Str("resource", resource).Msg("Making AeroAPI request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+resource, nil)
	if err != nil {
		return c.failure(resource, "TransportError", err)
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.failure(resource, "TransportError", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.failure(resource, "TransportError", err)
	}

	if resp.StatusCode == http.StatusOK && !json.Valid(body) {
		return c.failure(resource, "MalformedResponse",
			fmt.Errorf("upstream returned a non-JSON body for %s", resource))
	}

	upstreamRequestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Str("resource", resource).
			Int("status", resp.StatusCode).
			Msg("AeroAPI request returned non-200")
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}
}

// failure synthesizes the 500 error envelope for a failed round-trip.
func (c *Client) failure(resource, title string, err error) *Response {
	c.logger.Error().
		Err(err).
		Str("resource", resource).
		Str("kind", title).
		Msg("AeroAPI request failed")

	upstreamRequestsTotal.WithLabelValues("transport_error").Inc()

	body, marshalErr := json.Marshal(Envelope{
		Title:  title,
		Detail: err.Error(),
		Status: http.StatusInternalServerError,
	})
	if marshalErr != nil {
		// Envelope is three plain fields; this cannot fail in practice.
		body = []byte(`{"title":"TransportError","detail":"request failed","status":500}`)
	}

	return &Response{StatusCode: http.StatusInternalServerError, Body: body}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
