package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CacheEntry is a read-through cache record.
type CacheEntry struct {
	Key       string
	Value     []byte
	CachedAt  time.Time
	ExpiresAt *time.Time
}

// Valid reports whether the entry is still usable at the given instant.
func (e CacheEntry) Valid(now time.Time) bool {
	return e.ExpiresAt == nil || now.Before(*e.ExpiresAt)
}

// CacheSet stores or overwrites a cache entry. A zero ttl means the entry
// never expires.
func (s *Store) CacheSet(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key is required")
	}

	now := time.Now().UTC()
	var expiresAt any
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO cache_entries (key, value, cached_at, expires_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value,
             cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		key,
		value,
		now.UnixNano(),
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// CacheGet returns the cached value for key. Expired entries are deleted
// lazily and reported as absent, indistinguishable from never-cached keys.
func (s *Store) CacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT value, cached_at, expires_at FROM cache_entries WHERE key = ?`,
		key,
	)

	var (
		value      []byte
		cachedRaw  int64
		expiresRaw sql.NullInt64
	)
	if err := row.Scan(&value, &cachedRaw, &expiresRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	if expiresRaw.Valid && time.Now().UTC().UnixNano() >= expiresRaw.Int64 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
			return nil, false, fmt.Errorf("purge expired cache entry: %w", err)
		}
		return nil, false, nil
	}
	return value, true, nil
}

// CachePurgeExpired removes every expired entry in one pass.
func (s *Store) CachePurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM cache_entries WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge expired cache entries: %w", err)
	}
	return res.RowsAffected()
}

// CacheClear removes all cache entries.
func (s *Store) CacheClear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return res.RowsAffected()
}
