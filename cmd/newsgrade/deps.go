package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/newsgrade/config"
	"github.com/mohammad-safakhou/newsgrade/internal/archive"
	"github.com/mohammad-safakhou/newsgrade/internal/dedup"
	"github.com/mohammad-safakhou/newsgrade/internal/index"
	"github.com/mohammad-safakhou/newsgrade/internal/scoring"
	"github.com/mohammad-safakhou/newsgrade/internal/store"
	"github.com/mohammad-safakhou/newsgrade/internal/telemetry"
)

// newDedupStore picks the configured dedup backend.
func newDedupStore(ctx context.Context, cfg *config.Config) (dedup.Store, error) {
	switch cfg.Dedup.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%d", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
			Password:     cfg.Storage.Redis.Password,
			DB:           cfg.Storage.Redis.DB,
			DialTimeout:  cfg.Storage.Redis.Timeout,
			ReadTimeout:  cfg.Storage.Redis.Timeout,
			WriteTimeout: cfg.Storage.Redis.Timeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return dedup.NewRedisStore(client, cfg.Dedup.Window), nil
	default:
		return dedup.NewMemoryStore(cfg.Dedup.Window), nil
	}
}

// newMatrix builds the weight matrix from configuration.
func newMatrix(cfg *config.Config) (*scoring.Matrix, error) {
	return scoring.NewMatrix(cfg.Scoring.DivergenceThreshold)
}

// newArchiver builds the run archiver.
func newArchiver(cfg *config.Config) *archive.Archiver {
	return archive.New(cfg.Pipeline.WorkDir, cfg.Archive, telemetry.NewLogger("ARCHIVE"))
}

// openStore connects to Postgres when configured. Returns nil without error
// when no database is configured: run history is then disk-only.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if _, err := cfg.Storage.Postgres.DSN(); err != nil {
		return nil, nil
	}
	return store.New(ctx, cfg.Storage.Postgres, telemetry.NewLogger("STORE"))
}

// openIndex opens the on-disk search index.
func openIndex(cfg *config.Config) (*index.Index, error) {
	return index.Open(cfg.Pipeline.IndexDir, telemetry.NewLogger("INDEX"))
}
