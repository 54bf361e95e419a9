package config

import (
	"testing"
	"time"

	"github.com/alecthomas/kong"
)

// parse runs a kong parse the way main does, against the given argv.
func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()

	var cfg Config
	parser, err := kong.New(&cfg)
	if err != nil {
		t.Fatalf("kong.New failed: %v", err)
	}
	_, err = parser.Parse(args)
	return cfg, err
}

func TestDefaults(t *testing.T) {
	cfg, err := parse(t, "--aeroapi-key", "test-key")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.CacheTime != 300 {
		t.Errorf("CacheTime = %d, want 300", cfg.CacheTime)
	}
	if cfg.PositionsCacheTime != 30 {
		t.Errorf("PositionsCacheTime = %d, want 30", cfg.PositionsCacheTime)
	}
	if cfg.BoardHitThreshold != 15 {
		t.Errorf("BoardHitThreshold = %d, want 15", cfg.BoardHitThreshold)
	}
	if cfg.CacheBackend != "memory" {
		t.Errorf("CacheBackend = %q, want memory", cfg.CacheBackend)
	}
	if cfg.UpstreamTimeout != 30*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 30s", cfg.UpstreamTimeout)
	}
	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want 5000", cfg.Port)
	}
}

func TestMissingAPIKeyFailsParse(t *testing.T) {
	_, err := parse(t)
	if err == nil {
		t.Fatal("Parse should fail when AEROAPI_KEY is absent")
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("AEROAPI_KEY", "env-key")

	cfg, err := parse(t)
	if err != nil {
		t.Fatalf("Parse failed with AEROAPI_KEY set: %v", err)
	}
	if cfg.AeroAPIKey != "env-key" {
		t.Errorf("AeroAPIKey = %q, want env-key", cfg.AeroAPIKey)
	}
}

func TestInvalidBackendRejected(t *testing.T) {
	_, err := parse(t, "--aeroapi-key", "k", "--cache-backend", "memcached")
	if err == nil {
		t.Fatal("Parse should reject an unknown cache backend")
	}
}

func TestTTLHelpers(t *testing.T) {
	cfg := Config{CacheTime: 120, PositionsCacheTime: 15}

	if cfg.CacheTTL() != 2*time.Minute {
		t.Errorf("CacheTTL() = %v, want 2m", cfg.CacheTTL())
	}
	if cfg.PositionsTTL() != 15*time.Second {
		t.Errorf("PositionsTTL() = %v, want 15s", cfg.PositionsTTL())
	}
}
