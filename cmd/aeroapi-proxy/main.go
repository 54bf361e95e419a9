package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/flightboard/aeroapi-proxy/pkg/board"
	"github.com/flightboard/aeroapi-proxy/pkg/config"
	"github.com/flightboard/aeroapi-proxy/pkg/logging"
	"github.com/flightboard/aeroapi-proxy/pkg/resolver"
	"github.com/flightboard/aeroapi-proxy/pkg/server"
	"github.com/flightboard/aeroapi-proxy/pkg/store"
	"github.com/flightboard/aeroapi-proxy/pkg/upstream"
)

const shutdownGrace = 10 * time.Second

func main() {
	var cfg config.Config
	kong.Parse(&cfg,
		kong.Name("aeroapi-proxy"),
		kong.Description("Caching facade in front of the FlightAware AeroAPI."))

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})
	logger := logging.NewLogger("main")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Service failed")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flights, lists, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}

	client, err := upstream.New(upstream.Config{
		APIKey:  cfg.AeroAPIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		return fmt.Errorf("create upstream client: %w", err)
	}

	boards, err := board.New(board.Config{
		Flights:      flights,
		Lists:        lists,
		Client:       client,
		TTL:          cfg.CacheTTL(),
		HitThreshold: cfg.BoardHitThreshold,
	})
	if err != nil {
		return fmt.Errorf("create board assembler: %w", err)
	}

	res, err := resolver.New(resolver.Config{
		Flights:      flights,
		Lists:        lists,
		Client:       client,
		TTL:          cfg.CacheTTL(),
		PositionsTTL: cfg.PositionsTTL(),
	})
	if err != nil {
		return fmt.Errorf("create resolver: %w", err)
	}

	srv, err := server.New(boards, res)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("cache_backend", cfg.CacheBackend).
			Dur("cache_ttl", cfg.CacheTTL()).
			Msg("Starting AeroAPI proxy")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

// buildStores returns the entity and collection caches for the
// configured backend. Memory stores get a background sweeper tied to
// the process context; the Redis backend is pinged so a bad address
// fails at startup instead of on the first request.
func buildStores(ctx context.Context, cfg config.Config) (store.Store, store.Store, error) {
	switch cfg.CacheBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisURL, err)
		}
		return store.NewRedis(rdb), store.NewRedis(rdb), nil

	case "memory":
		flights := store.NewMemory()
		lists := store.NewMemory()
		go flights.RunSweeper(ctx, time.Minute)
		go lists.RunSweeper(ctx, time.Minute)
		return flights, lists, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
