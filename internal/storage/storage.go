// Package storage is the durable key-value layer that quiz state is
// persisted to. Values are plain strings; structured values are JSON.
//
// Persistence is best-effort: the Adapter swallows read failures (reporting
// the value as absent) and only logs write failures, so a full or broken
// store degrades a session to in-memory state instead of failing it.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Store.Get when the key is absent.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned by Store.Set when the write would exceed
	// the store's capacity.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("storage: unavailable")
)

// Store is an origin-scoped string key-value store that survives restarts.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
