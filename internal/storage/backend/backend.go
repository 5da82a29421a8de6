// Package backend builds the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/vytor/quizkeeper/internal/config"
	"github.com/vytor/quizkeeper/internal/db"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/storage"
	"github.com/vytor/quizkeeper/internal/storage/redisstore"
	"github.com/vytor/quizkeeper/internal/storage/sqlite"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the configured store and a closer releasing its resources.
func Open(ctx context.Context, cfg config.Config) (storage.Store, io.Closer, error) {
	log := logger.FromContext(ctx).WithPrefix("storage")

	switch cfg.StorageBackend {
	case config.BackendMemory:
		log.Warn("using in-memory storage: progress will not survive a restart")
		return storage.NewMemoryStore(cfg.StorageQuotaBytes), nopCloser{}, nil

	case config.BackendSQLite:
		database, err := db.Open(cfg.StoragePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		log.Info("using sqlite storage at %s (origin %s)", cfg.StoragePath, cfg.StorageOrigin)
		return sqlite.New(database.DB, cfg.StorageOrigin, sqlite.WithQuota(cfg.StorageQuotaBytes)), database, nil

	case config.BackendRedis:
		client := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		store := redisstore.New(client, cfg.StorageOrigin)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis storage at %s: %w", cfg.RedisAddr, err)
		}
		log.Info("using redis storage at %s (origin %s)", cfg.RedisAddr, cfg.StorageOrigin)
		return store, client, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
