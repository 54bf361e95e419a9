// Package resolver satisfies single-entity lookups: one flight by id,
// a random in-air flight, position tracks, map images, and the busiest
// airports list.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/flightboard/aeroapi-proxy/pkg/logging"
	"github.com/flightboard/aeroapi-proxy/pkg/normalize"
	"github.com/flightboard/aeroapi-proxy/pkg/store"
	"github.com/flightboard/aeroapi-proxy/pkg/upstream"
)

const (
	// searchResource is the cache key and resource for the broad query
	// behind random-flight picks.
	searchResource = "/flights/search"

	// searchQuery matches flights currently in the air.
	searchQuery = "-inAir 1"

	// disruptionResource ranks airports by cancellation counts.
	disruptionResource = "/disruption_counts/origin"
)

// Config holds the resolver dependencies.
type Config struct {
	// Flights is the entity cache, keyed by flight id.
	Flights store.Store

	// Lists is the collection cache, keyed by resource path. Position
	// tracks and map payloads are cached here verbatim.
	Lists store.Store

	// Client fetches from AeroAPI on a miss.
	Client *upstream.Client

	// TTL applies to entity, map, and id-list writes.
	TTL time.Duration

	// PositionsTTL applies to position-track writes, typically much
	// shorter since positions are time sensitive.
	PositionsTTL time.Duration
}

// Resolver orchestrates the entity cache for single lookups.
type Resolver struct {
	flights      store.Store
	lists        store.Store
	client       *upstream.Client
	ttl          time.Duration
	positionsTTL time.Duration
	logger       zerolog.Logger

	// pick selects an index in [0, n), replaceable in tests.
	pick func(n int) int
}

// New creates a resolver.
func New(cfg Config) (*Resolver, error) {
	if cfg.Flights == nil || cfg.Lists == nil {
		return nil, fmt.Errorf("both cache stores are required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("upstream client is required")
	}

	return &Resolver{
		flights:      cfg.Flights,
		lists:        cfg.Lists,
		client:       cfg.Client,
		ttl:          cfg.TTL,
		positionsTTL: cfg.PositionsTTL,
		logger:       logging.NewLogger("resolver"),
		pick:         rand.Intn,
	}, nil
}

// FlightByID returns the normalized flight for one id, from the entity
// cache when possible. A lookup that resolves to nothing upstream maps
// to a 404; failed fetches leave the cache untouched.
func (r *Resolver) FlightByID(ctx context.Context, id string) (normalize.Flight, error) {
	entity, found, err := r.flights.Get(ctx, id)
	if err != nil {
		r.logger.Warn().Err(err).Str("id", id).Msg("Entity cache read failed")
	}
	if found {
		var f normalize.Flight
		if err := json.Unmarshal(entity, &f); err == nil {
			r.logger.Info().Str("id", id).Msg("Populating flight from cache")
			return f, nil
		}
		r.logger.Warn().Str("id", id).Msg("Corrupt entity entry, refetching")
	}

	resp := r.client.Fetch(ctx, "/flights/"+id)
	if !resp.OK() {
		return normalize.Flight{}, upstream.NewStatusError(resp)
	}

	flight, err := normalize.One(resp.Body)
	if errors.Is(err, normalize.ErrNoFlights) {
		return normalize.Flight{}, upstream.NotFoundError("no flight found for " + id)
	}
	if err != nil {
		return normalize.Flight{}, fmt.Errorf("normalize flight payload: %w", err)
	}

	if data, err := json.Marshal(flight); err == nil {
		if err := r.flights.Set(ctx, flight.ID, data, r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("id", flight.ID).Msg("Entity cache write failed")
		}
	}

	return flight, nil
}

// RandomFlight picks one id uniformly at random from a broad in-air
// search and delegates to FlightByID, so randomness affects selection
// only, never what gets cached.
func (r *Resolver) RandomFlight(ctx context.Context) (normalize.Flight, error) {
	ids, err := r.searchIDs(ctx)
	if err != nil {
		return normalize.Flight{}, err
	}
	if len(ids) == 0 {
		return normalize.Flight{}, upstream.NotFoundError("no flights matched the search")
	}

	return r.FlightByID(ctx, ids[r.pick(len(ids))])
}

// searchIDs returns the cached id list for the in-air search, fetching
// and caching it on a miss.
func (r *Resolver) searchIDs(ctx context.Context) ([]string, error) {
	data, found, err := r.lists.Get(ctx, searchResource)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", searchResource).Msg("Collection cache read failed")
	}
	if found {
		var ids []string
		if err := json.Unmarshal(data, &ids); err == nil {
			r.logger.Info().Str("key", searchResource).Msg("Populating search from cache")
			return ids, nil
		}
	}

	resp := r.client.Fetch(ctx, searchResource+"?query="+url.QueryEscape(searchQuery))
	if !resp.OK() {
		return nil, upstream.NewStatusError(resp)
	}

	var payload struct {
		Flights []struct {
			FaFlightID string `json:"fa_flight_id"`
		} `json:"flights"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decode search payload: %w", err)
	}

	ids := make([]string, 0, len(payload.Flights))
	for _, f := range payload.Flights {
		ids = append(ids, f.FaFlightID)
	}

	if data, err := json.Marshal(ids); err == nil {
		if err := r.lists.Set(ctx, searchResource, data, r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("key", searchResource).Msg("Collection cache write failed")
		}
	}

	return ids, nil
}

// Positions returns the raw position array for one flight, cached
// verbatim (no renames) under the track resource with the shorter
// positions TTL.
func (r *Resolver) Positions(ctx context.Context, id string) (json.RawMessage, error) {
	resource := "/flights/" + id + "/track"

	data, found, err := r.lists.Get(ctx, resource)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", resource).Msg("Collection cache read failed")
	}
	if found {
		r.logger.Info().Str("key", resource).Msg("Populating positions from cache")
		return json.RawMessage(data), nil
	}

	resp := r.client.Fetch(ctx, resource)
	if !resp.OK() {
		return nil, upstream.NewStatusError(resp)
	}

	var payload struct {
		Positions json.RawMessage `json:"positions"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decode track payload: %w", err)
	}
	if payload.Positions == nil {
		return nil, fmt.Errorf("track payload missing positions")
	}

	if err := r.lists.Set(ctx, resource, payload.Positions, r.positionsTTL); err != nil {
		r.logger.Warn().Err(err).Str("key", resource).Msg("Collection cache write failed")
	}

	return payload.Positions, nil
}

// MapImage returns the base64 map image for one flight as the bare
// string, cached under the map resource.
func (r *Resolver) MapImage(ctx context.Context, id string) (string, error) {
	resource := "/flights/" + id + "/map"

	data, found, err := r.lists.Get(ctx, resource)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", resource).Msg("Collection cache read failed")
	}
	if found {
		r.logger.Info().Str("key", resource).Msg("Populating map from cache")
		return string(data), nil
	}

	resp := r.client.Fetch(ctx, resource)
	if !resp.OK() {
		return "", upstream.NewStatusError(resp)
	}

	var payload struct {
		Map *string `json:"map"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return "", fmt.Errorf("decode map payload: %w", err)
	}
	if payload.Map == nil {
		return "", fmt.Errorf("map payload missing map field")
	}

	if err := r.lists.Set(ctx, resource, []byte(*payload.Map), r.ttl); err != nil {
		r.logger.Warn().Err(err).Str("key", resource).Msg("Collection cache write failed")
	}

	return *payload.Map, nil
}

// BusiestAirports returns airport codes ranked by disruption counts.
// Only the list of entity ids is cached; the disruption entities differ
// in shape from flights and are not cached individually.
func (r *Resolver) BusiestAirports(ctx context.Context) ([]string, error) {
	data, found, err := r.lists.Get(ctx, disruptionResource)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", disruptionResource).Msg("Collection cache read failed")
	}
	if found {
		var airports []string
		if err := json.Unmarshal(data, &airports); err == nil {
			r.logger.Info().Str("key", disruptionResource).Msg("Populating airports from cache")
			return airports, nil
		}
	}

	resp := r.client.Fetch(ctx, disruptionResource)
	if !resp.OK() {
		return nil, upstream.NewStatusError(resp)
	}

	var payload struct {
		Entities []struct {
			EntityID string `json:"entity_id"`
		} `json:"entities"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decode disruption payload: %w", err)
	}

	airports := make([]string, 0, len(payload.Entities))
	for _, e := range payload.Entities {
		airports = append(airports, e.EntityID)
	}

	if data, err := json.Marshal(airports); err == nil {
		if err := r.lists.Set(ctx, disruptionResource, data, r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("key", disruptionResource).Msg("Collection cache write failed")
		}
	}

	return airports, nil
}
