package redisstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/storage"
)

// Store keeps quiz state in redis under "{origin}:{key}".
type Store struct {
	rdb    redis.UniversalClient
	origin string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires every written key after ttl. Zero keeps keys forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// NewClient initializes a redis client for addr.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// New returns a Store over rdb.
func New(rdb redis.UniversalClient, origin string, opts ...Option) *Store {
	s := &Store{rdb: rdb, origin: origin}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return translate(s.rdb.Ping(ctx).Err())
}

func (s *Store) key(k string) string {
	return s.origin + ":" + k
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if err != nil {
		return "", translate(err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		logger.FromContext(ctx).WithPrefix("kv_redis").Error("failed to write %s: %v", key, err)
		return translate(err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return translate(s.rdb.Del(ctx, s.key(key)).Err())
}

// translate maps redis failures onto the storage error set.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return storage.ErrNotFound
	case strings.HasPrefix(err.Error(), "OOM"):
		return errors.Join(storage.ErrQuotaExceeded, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return errors.Join(storage.ErrUnavailable, err)
	}
}
