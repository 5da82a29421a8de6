package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/quizkeeper/internal/logger"
	"github.com/vytor/quizkeeper/internal/storage"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// Store keeps key-value pairs in the kv_store table, scoped by origin so
// several front-ends can share one database file without seeing each
// other's state.
type Store struct {
	db     *sql.DB
	origin string
	quota  int
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithQuota bounds the bytes (keys plus values) one origin may hold.
func WithQuota(bytes int) Option {
	return func(s *Store) {
		s.quota = bytes
	}
}

// New returns a Store over db, which must have the kv_store migration applied.
func New(db *sql.DB, origin string, opts ...Option) *Store {
	s := &Store{db: db, origin: origin, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	log := logger.FromContext(ctx).WithPrefix("kv_sqlite")

	query, args, err := sqlBuilder.Select("value").
		From("kv_store").
		Where(squirrel.Eq{"origin": s.origin, "key": key}).
		ToSql()
	if err != nil {
		return "", err
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		log.Error("failed to read %s: %v", key, err)
		return "", errors.Join(storage.ErrUnavailable, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	log := logger.FromContext(ctx).WithPrefix("kv_sqlite")

	if s.quota > 0 {
		used, err := s.usedExcluding(ctx, key)
		if err != nil {
			return err
		}
		if used+len(key)+len(value) > s.quota {
			log.Warn("quota exceeded for origin %s: used=%d write=%d quota=%d", s.origin, used, len(key)+len(value), s.quota)
			return storage.ErrQuotaExceeded
		}
	}

	query, args, err := sqlBuilder.Insert("kv_store").
		Columns("origin", "key", "value", "updated_at").
		Values(s.origin, key, value, s.now().UTC()).
		Suffix("ON CONFLICT(origin, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to write %s: %v", key, err)
		return errors.Join(storage.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	query, args, err := sqlBuilder.Delete("kv_store").
		Where(squirrel.Eq{"origin": s.origin, "key": key}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).WithPrefix("kv_sqlite").Error("failed to remove %s: %v", key, err)
		return errors.Join(storage.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) usedExcluding(ctx context.Context, key string) (int, error) {
	query, args, err := sqlBuilder.Select("COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0)").
		From("kv_store").
		Where(squirrel.Eq{"origin": s.origin}).
		Where(squirrel.NotEq{"key": key}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var used int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&used); err != nil {
		return 0, errors.Join(storage.ErrUnavailable, err)
	}
	return used, nil
}
