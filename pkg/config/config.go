// Package config defines the service configuration surface.
//
// Every field is a kong flag with an environment binding, so the service
// can be configured from flags, the environment, or both. AEROAPI_KEY is
// required: kong fails the parse and the process exits before serving.
package config

import (
	"time"
)

// Config holds the full service configuration.
type Config struct {
	AeroAPIKey string `name:"aeroapi-key" env:"AEROAPI_KEY" required:"" help:"AeroAPI key, sent as the x-apikey header on every upstream request."`
	BaseURL    string `name:"base-url" env:"AEROAPI_BASE_URL" default:"https://aeroapi.flightaware.com/aeroapi" help:"AeroAPI base URL."`

	CacheTime          int `name:"cache-time" env:"CACHE_TIME" default:"300" help:"TTL in seconds for the entity and collection caches."`
	PositionsCacheTime int `name:"positions-cache-time" env:"POSITIONS_CACHE_TIME" default:"30" help:"TTL in seconds for position/track lookups."`
	BoardHitThreshold  int `name:"board-hit-threshold" env:"BOARD_HIT_THRESHOLD" default:"15" help:"Cached entities needed to serve a board without an upstream call."`

	UpstreamTimeout time.Duration `name:"upstream-timeout" env:"UPSTREAM_TIMEOUT" default:"30s" help:"Deadline for a single upstream request."`

	CacheBackend string `name:"cache-backend" env:"CACHE_BACKEND" default:"memory" enum:"memory,redis" help:"Cache backend: memory or redis."`
	RedisURL     string `name:"redis-url" env:"REDIS_URL" default:"localhost:6379" help:"Redis address when the cache backend is redis."`

	Port      string `name:"port" env:"PORT" default:"5000" help:"HTTP listen port."`
	LogLevel  string `name:"log-level" env:"LOG_LEVEL" default:"info" help:"Log level: debug, info, warn, error."`
	LogPretty bool   `name:"log-pretty" env:"LOG_PRETTY" default:"false" help:"Human-readable console log output."`
}

// CacheTTL returns the entity/collection cache TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTime) * time.Second
}

// PositionsTTL returns the position-lookup cache TTL as a duration.
func (c Config) PositionsTTL() time.Duration {
	return time.Duration(c.PositionsCacheTime) * time.Second
}
