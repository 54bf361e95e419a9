// Package store provides the TTL key-value stores backing the flight and
// board caches.
//
// Two implementations share one interface: Memory, a single-process map
// with lazy expiry, and Redis, for deployments that want a shared backend.
// A miss is reported through the found return, never as an error, and it
// is distinct from a stored empty value: a key written with an empty list
// is found, a key never written (or expired) is not.
package store

import (
	"context"
	"time"
)

// Store is a time-expiring key-value store. Values are raw bytes; callers
// marshal their own types. Set replaces any existing value wholesale and
// restarts the TTL. Entries past their TTL behave as absent.
type Store interface {
	// Get returns the value for key and whether it was present and live.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key for ttl, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
