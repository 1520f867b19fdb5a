package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CacheRepository persists the durable tier of the two-tier cache. It
// implements cache.Store.
type CacheRepository struct {
	BaseRepository
}

// NewCacheRepository creates a new cache entry repository.
func NewCacheRepository(db *DB) *CacheRepository {
	return &CacheRepository{BaseRepository: NewBaseRepository(db)}
}

// Get returns the entry for a key along with its expiry. Expired entries
// are returned as found; deciding whether they count is the cache's job.
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	var data []byte
	var expiredAt time.Time

	err := r.DB().QueryRowContext(ctx, `
		SELECT data, expired_at FROM cache_entries WHERE key = ?
	`, key).Scan(&data, &expiredAt)

	if err == sql.ErrNoRows {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("querying cache entry: %w", err)
	}

	return data, expiredAt, true, nil
}

// Put stores or overwrites the entry for a key with an absolute expiry.
func (r *CacheRepository) Put(ctx context.Context, key string, data []byte, expiredAt time.Time) error {
	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO cache_entries (key, data, expired_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			expired_at = excluded.expired_at,
			updated_at = excluded.updated_at
	`, key, data, expiredAt, r.Now())

	if err != nil {
		return fmt.Errorf("upserting cache entry: %w", err)
	}
	return nil
}
