package storage

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/vytor/quizkeeper/internal/errors"
	"github.com/vytor/quizkeeper/internal/logger"
)

// Adapter wraps a Store with typed, best-effort accessors.
type Adapter struct {
	store Store
	log   *logger.Logger
}

// NewAdapter returns an Adapter over store. A nil store yields an adapter
// whose reads report absent and whose writes fail with ErrUnavailable.
func NewAdapter(store Store) *Adapter {
	return &Adapter{
		store: store,
		log:   logger.Default().WithPrefix("storage"),
	}
}

// Store returns the wrapped store.
func (a *Adapter) Store() Store {
	return a.store
}

// Get returns the value for key and whether it was present. Read failures
// are logged and reported as absent.
func (a *Adapter) Get(ctx context.Context, key string) (string, bool) {
	if a.store == nil {
		return "", false
	}
	v, err := a.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.log.Warn("read %s failed, treating as absent: %v", key, err)
		}
		return "", false
	}
	return v, true
}

// GetInt64 reads an integer value. Malformed values are reported as absent.
func (a *Adapter) GetInt64(ctx context.Context, key string) (int64, bool) {
	raw, ok := a.Get(ctx, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		// Persisted by a float-typed writer ("1700.0") is still a usable value.
		f, ferr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if ferr != nil || math.IsNaN(f) || f < -(1<<63) || f >= 1<<63 {
			a.log.Warn("malformed integer under %s, treating as absent: %q", key, raw)
			return 0, false
		}
		n = int64(f)
	}
	return n, true
}

// GetJSON decodes the JSON value under key into v. Malformed JSON is
// reported as absent and v is left untouched.
func (a *Adapter) GetJSON(ctx context.Context, key string, v any) bool {
	raw, ok := a.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		a.log.Warn("malformed JSON under %s, treating as absent: %v", key, err)
		return false
	}
	return true
}

// Set writes value under key. Failures are logged and returned wrapped in an
// AppError with code STORAGE_ERROR; callers are free to ignore them.
func (a *Adapter) Set(ctx context.Context, key, value string) error {
	if a.store == nil {
		return apperrors.NewStorageError("set", key, ErrUnavailable)
	}
	if err := a.store.Set(ctx, key, value); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			a.log.Warn("write %s rejected: quota exceeded", key)
		} else {
			a.log.Error("write %s failed: %v", key, err)
		}
		return apperrors.NewStorageError("set", key, err)
	}
	return nil
}

// SetInt64 writes an integer value.
func (a *Adapter) SetInt64(ctx context.Context, key string, n int64) error {
	return a.Set(ctx, key, strconv.FormatInt(n, 10))
}

// SetJSON encodes v as JSON and writes it under key.
func (a *Adapter) SetJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewStorageError("encode", key, err)
	}
	return a.Set(ctx, key, string(b))
}

// Remove deletes key, logging failures.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if a.store == nil {
		return apperrors.NewStorageError("remove", key, ErrUnavailable)
	}
	if err := a.store.Remove(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		a.log.Error("remove %s failed: %v", key, err)
		return apperrors.NewStorageError("remove", key, err)
	}
	return nil
}

// RemoveAll deletes every key, continuing past failures. It returns the
// first error encountered.
func (a *Adapter) RemoveAll(ctx context.Context, keys ...string) error {
	var first error
	for _, k := range keys {
		if err := a.Remove(ctx, k); err != nil && first == nil {
			first = err
		}
	}
	return first
}
