// Package board assembles airport boards (arrivals, departures, enroute,
// scheduled) from the collection and entity caches, backfilling both from
// AeroAPI when cache coverage is too thin.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/flightboard/aeroapi-proxy/pkg/logging"
	"github.com/flightboard/aeroapi-proxy/pkg/normalize"
	"github.com/flightboard/aeroapi-proxy/pkg/store"
	"github.com/flightboard/aeroapi-proxy/pkg/upstream"
)

// DefaultHitThreshold is how many cached entities a board needs before it
// is served without an upstream call. Boards return large lists; partial
// coverage above this line is good enough to skip the fetch. A heuristic,
// not a correctness guarantee.
const DefaultHitThreshold = 15

// Prometheus metrics for board assembly.
var (
	boardCacheServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aeroapi_board_cache_served_total",
		Help: "Boards served entirely from cache",
	})

	boardBackfills = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aeroapi_board_backfills_total",
		Help: "Boards that required an upstream backfill",
	})
)

// Kind identifies one airport board.
type Kind string

const (
	KindArrivals   Kind = "arrivals"
	KindDepartures Kind = "departures"
	KindEnroute    Kind = "enroute"
	KindScheduled  Kind = "scheduled"
)

// Resource returns the AeroAPI resource path for this board at the given
// airport. Enroute and scheduled map to the scheduled_arrivals and
// scheduled_departures list endpoints.
func (k Kind) Resource(airport string) string {
	switch k {
	case KindEnroute:
		return fmt.Sprintf("/airports/%s/flights/scheduled_arrivals", airport)
	case KindScheduled:
		return fmt.Sprintf("/airports/%s/flights/scheduled_departures", airport)
	default:
		return fmt.Sprintf("/airports/%s/flights/%s", airport, k)
	}
}

// TopLevelKey returns the payload key the upstream response nests the
// entities under.
func (k Kind) TopLevelKey() string {
	switch k {
	case KindEnroute:
		return "scheduled_arrivals"
	case KindScheduled:
		return "scheduled_departures"
	default:
		return string(k)
	}
}

// Config holds the assembler dependencies.
type Config struct {
	// Flights is the entity cache, keyed by flight id.
	Flights store.Store

	// Lists is the collection cache, keyed by resource path.
	Lists store.Store

	// Client fetches from AeroAPI on a backfill.
	Client *upstream.Client

	// TTL applies to every cache write.
	TTL time.Duration

	// HitThreshold overrides DefaultHitThreshold when positive.
	HitThreshold int
}

// Assembler satisfies board requests from the two caches.
type Assembler struct {
	flights      store.Store
	lists        store.Store
	client       *upstream.Client
	ttl          time.Duration
	hitThreshold int
	logger       zerolog.Logger
}

// New creates a board assembler.
func New(cfg Config) (*Assembler, error) {
	if cfg.Flights == nil || cfg.Lists == nil {
		return nil, fmt.Errorf("both cache stores are required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("upstream client is required")
	}

	threshold := cfg.HitThreshold
	if threshold <= 0 {
		threshold = DefaultHitThreshold
	}

	return &Assembler{
		flights:      cfg.Flights,
		lists:        cfg.Lists,
		client:       cfg.Client,
		ttl:          cfg.TTL,
		hitThreshold: threshold,
		logger:       logging.NewLogger("boards"),
	}, nil
}

// Board returns the flights for one airport board. Cached entities are
// collected first; when at least the hit threshold resolve, the board is
// served from cache. Otherwise a single upstream fetch backfills both
// caches. A non-200 upstream status fails the request with the
// passthrough body and writes nothing.
func (a *Assembler) Board(ctx context.Context, airport string, kind Kind) ([]normalize.Flight, error) {
	resource := kind.Resource(airport)

	cached := a.fromCache(ctx, resource)
	if len(cached) >= a.hitThreshold {
		a.logger.Info().
			Str("resource", resource).
			Int("cached", len(cached)).
			Msg("Populating board from cache")
		boardCacheServed.Inc()
		return cached, nil
	}

	boardBackfills.Inc()

	resp := a.client.Fetch(ctx, resource)
	if !resp.OK() {
		return nil, upstream.NewStatusError(resp)
	}

	flights, err := normalize.List(resp.Body, kind.TopLevelKey())
	if err != nil {
		return nil, fmt.Errorf("normalize board payload: %w", err)
	}

	a.populate(ctx, resource, flights)

	return flights, nil
}

// fromCache resolves the cached id list and collects the entities that
// are still present. Ids whose entity has expired are silently dropped.
func (a *Assembler) fromCache(ctx context.Context, resource string) []normalize.Flight {
	data, found, err := a.lists.Get(ctx, resource)
	if err != nil {
		a.logger.Warn().Err(err).Str("key", resource).Msg("Collection cache read failed")
		return nil
	}
	if !found {
		return nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		a.logger.Warn().Err(err).Str("key", resource).Msg("Corrupt collection entry")
		return nil
	}

	flights := make([]normalize.Flight, 0, len(ids))
	for _, id := range ids {
		entity, found, err := a.flights.Get(ctx, id)
		if err != nil || !found {
			continue
		}
		var f normalize.Flight
		if err := json.Unmarshal(entity, &f); err != nil {
			continue
		}
		flights = append(flights, f)
	}

	a.logger.Debug().
		Str("key", resource).
		Int("listed", len(ids)).
		Int("cached", len(flights)).
		Msg("Collection cache lookup")

	return flights
}

// populate writes every entity and then replaces the collection id list
// wholesale. Replacing rather than appending keeps repeated backfills
// from accumulating duplicate ids across TTL cycles.
func (a *Assembler) populate(ctx context.Context, resource string, flights []normalize.Flight) {
	ids := make([]string, 0, len(flights))
	for _, f := range flights {
		data, err := json.Marshal(f)
		if err != nil {
			a.logger.Warn().Err(err).Str("id", f.ID).Msg("Entity marshal failed, not cached")
			continue
		}
		if err := a.flights.Set(ctx, f.ID, data, a.ttl); err != nil {
			a.logger.Warn().Err(err).Str("id", f.ID).Msg("Entity cache write failed")
			continue
		}
		ids = append(ids, f.ID)
	}

	listData, err := json.Marshal(ids)
	if err != nil {
		a.logger.Warn().Err(err).Str("key", resource).Msg("Collection marshal failed, not cached")
		return
	}
	if err := a.lists.Set(ctx, resource, listData, a.ttl); err != nil {
		a.logger.Warn().Err(err).Str("key", resource).Msg("Collection cache write failed")
	}
}
