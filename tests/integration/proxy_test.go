package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/flightboard/aeroapi-proxy/internal/testutil"
	"github.com/flightboard/aeroapi-proxy/pkg/board"
	"github.com/flightboard/aeroapi-proxy/pkg/resolver"
	"github.com/flightboard/aeroapi-proxy/pkg/server"
	"github.com/flightboard/aeroapi-proxy/pkg/store"
	"github.com/flightboard/aeroapi-proxy/pkg/upstream"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// setupProxy wires the full stack against a Redis-backed cache and the
// mock AeroAPI.
func setupProxy(t *testing.T, redisClient *redis.Client, mock *testutil.MockAeroAPI, ttl time.Duration) http.Handler {
	t.Helper()

	client, err := upstream.New(upstream.Config{APIKey: "integration-key", BaseURL: mock.URL()})
	if err != nil {
		t.Fatalf("Failed to create upstream client: %v", err)
	}

	flights := store.NewRedis(redisClient)
	lists := store.NewRedis(redisClient)

	boards, err := board.New(board.Config{
		Flights: flights,
		Lists:   lists,
		Client:  client,
		TTL:     ttl,
	})
	if err != nil {
		t.Fatalf("Failed to create board assembler: %v", err)
	}

	res, err := resolver.New(resolver.Config{
		Flights:      flights,
		Lists:        lists,
		Client:       client,
		TTL:          ttl,
		PositionsTTL: ttl,
	})
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}

	srv, err := server.New(boards, res)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	return srv.Handler()
}

// TestFullRequestFlow tests the complete flight lookup: Cache Miss →
// AeroAPI Fetch → Normalize → Cache Store → Cache Hit.
func TestFullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockAeroAPI()
	defer mock.Close()

	mock.SetResponse("/flights/INT123", testutil.NewFlightsResponse(
		testutil.FlightEntity("INT123", "UAL900", "ORD", "SFO")))

	handler := setupProxy(t, redisClient, mock, 5*time.Minute)

	// Request 1: cache miss, full flow
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest("GET", "/flights/INT123", nil))
	if rec1.Code != http.StatusOK {
		t.Fatalf("Request 1 status = %d, want 200", rec1.Code)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Upstream requests = %d, want 1", mock.GetRequestCount())
	}
	if mock.GetLastAPIKey() != "integration-key" {
		t.Errorf("x-apikey = %q, want integration-key", mock.GetLastAPIKey())
	}

	var flight map[string]any
	if err := json.Unmarshal(rec1.Body.Bytes(), &flight); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if flight["id"] != "INT123" || flight["flight_number"] != "UAL900" {
		t.Errorf("Unexpected flight: %v", flight)
	}

	// The entity landed in Redis under the service prefix.
	ctx := context.Background()
	if err := redisClient.Get(ctx, "aeroapi:INT123").Err(); err != nil {
		t.Errorf("Entity not in Redis after fetch: %v", err)
	}

	// Request 2: served from Redis, no second upstream call
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest("GET", "/flights/INT123", nil))
	if rec2.Code != http.StatusOK {
		t.Fatalf("Request 2 status = %d, want 200", rec2.Code)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Upstream requests = %d, want 1 after cached request", mock.GetRequestCount())
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Error("Cached response differs from the original")
	}
}

// TestBoardFlowPopulatesRedis verifies a cold board backfill writes both
// the collection id list and every entity to Redis.
func TestBoardFlowPopulatesRedis(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockAeroAPI()
	defer mock.Close()

	resource := board.KindArrivals.Resource("KSEA")
	mock.SetResponse(resource, testutil.NewBoardResponse("arrivals",
		testutil.FlightEntity("B1", "ASA1", "LAX", "SEA")+","+
			testutil.FlightEntity("B2", "DAL2", "ATL", "SEA")))

	handler := setupProxy(t, redisClient, mock, 5*time.Minute)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/airports/KSEA/arrivals", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	ctx := context.Background()

	listData, err := redisClient.Get(ctx, "aeroapi:"+resource).Bytes()
	if err != nil {
		t.Fatalf("Collection not in Redis: %v", err)
	}
	var ids []string
	if err := json.Unmarshal(listData, &ids); err != nil {
		t.Fatalf("Collection entry corrupt: %v", err)
	}
	if len(ids) != 2 || ids[0] != "B1" || ids[1] != "B2" {
		t.Errorf("Collection ids = %v, want [B1 B2]", ids)
	}

	for _, id := range ids {
		if err := redisClient.Get(ctx, "aeroapi:"+id).Err(); err != nil {
			t.Errorf("Entity %s not in Redis: %v", id, err)
		}
	}

	// Two entities are below the hit threshold, so a second request
	// backfills again instead of serving from cache.
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest("GET", "/airports/KSEA/arrivals", nil))
	if rec2.Code != http.StatusOK {
		t.Fatalf("Second status = %d, want 200", rec2.Code)
	}
	if got := mock.GetRequestCountForPath(resource); got != 2 {
		t.Errorf("Upstream board requests = %d, want 2 below the hit threshold", got)
	}
}

// TestTTLExpiryInRedis verifies Redis evicts entries after the TTL and
// the next request goes back upstream.
func TestTTLExpiryInRedis(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockAeroAPI()
	defer mock.Close()

	mock.SetResponse("/flights/TTL1", testutil.NewFlightsResponse(
		testutil.FlightEntity("TTL1", "UAL1", "ORD", "SFO")))

	handler := setupProxy(t, redisClient, mock, time.Second)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/flights/TTL1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if mock.GetRequestCount() != 1 {
		t.Fatalf("Upstream requests = %d, want 1", mock.GetRequestCount())
	}

	time.Sleep(1500 * time.Millisecond)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest("GET", "/flights/TTL1", nil))
	if rec2.Code != http.StatusOK {
		t.Fatalf("Post-expiry status = %d, want 200", rec2.Code)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("Upstream requests = %d, want 2 after TTL expiry", mock.GetRequestCount())
	}
}

// TestErrorPassthrough verifies upstream errors reach the caller with
// the original status and that Redis stays clean.
func TestErrorPassthrough(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockAeroAPI()
	defer mock.Close()

	mock.SetResponse("/flights/NOPE", testutil.NewNotFoundResponse())

	handler := setupProxy(t, redisClient, mock, 5*time.Minute)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/flights/NOPE", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	if err := redisClient.Get(context.Background(), "aeroapi:NOPE").Err(); err != redis.Nil {
		t.Errorf("Redis must stay clean after an upstream 404, got %v", err)
	}
}
