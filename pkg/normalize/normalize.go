package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TopLevelFlights is the payload key for single-flight lookups.
const TopLevelFlights = "flights"

var (
	// ErrNoFlights indicates a flights payload with an empty list. A
	// single-flight lookup on it resolves to nothing; callers surface a
	// not-found condition instead of indexing past the end.
	ErrNoFlights = errors.New("no flights in payload")

	// ErrMissingKey indicates the payload lacks the expected top-level
	// key. Feeding already-normalized output back in fails with this
	// error rather than double-renaming: re-normalization is not
	// supported, the raw field names no longer exist after one pass.
	ErrMissingKey = errors.New("payload missing top-level key")
)

// List normalizes every entity under topLevelKey, preserving upstream
// order.
func List(payload []byte, topLevelKey string) ([]Flight, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	rawList, ok := doc[topLevelKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingKey, topLevelKey)
	}

	var raws []rawFlight
	if err := json.Unmarshal(rawList, &raws); err != nil {
		return nil, fmt.Errorf("decode %q entities: %w", topLevelKey, err)
	}

	flights := make([]Flight, 0, len(raws))
	for _, r := range raws {
		flights = append(flights, r.flatten())
	}

	return flights, nil
}

// One normalizes a flights payload down to its first entity, mirroring
// the single-flight lookup shape. Returns ErrNoFlights when the list is
// empty.
func One(payload []byte) (Flight, error) {
	flights, err := List(payload, TopLevelFlights)
	if err != nil {
		return Flight{}, err
	}
	if len(flights) == 0 {
		return Flight{}, ErrNoFlights
	}
	return flights[0], nil
}
