// Package cache provides a two-tier TTL cache: a fast in-process map in
// front of a durable remote store. It wraps expensive, idempotent producers
// such as the roster fetch and the report collection.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store is the durable second tier. Implementations report the entry's
// expiry alongside the data; expired entries are surfaced as-is and treated
// as misses by the cache, never evicted proactively.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, expiredAt time.Time, found bool, err error)
	Put(ctx context.Context, key string, data []byte, expiredAt time.Time) error
}

// Producer computes the value on a full miss.
type Producer func(ctx context.Context) ([]byte, error)

type localEntry struct {
	data      []byte
	expiredAt time.Time
}

// Cache is safe for concurrent use. The local tier is guarded by a mutex;
// the remote tier's store-then-read race is accepted as last-writer-wins.
type Cache struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	local map[string]localEntry
}

// New creates a cache over the given durable store. A nil store disables
// the second tier.
func New(store Store) *Cache {
	return &Cache{
		store: store,
		now:   time.Now,
		local: make(map[string]localEntry),
	}
}

// Key derives the deterministic cache key for a call: the producer name,
// its positional arguments in order, and its keyword arguments in sorted
// key order, hashed together.
func Key(name string, args []any, kwargs map[string]any) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|", name)
	for _, a := range args {
		fmt.Fprintf(h, "%v|", a)
	}
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v|", k, kwargs[k])
	}
	return name + ":" + hex.EncodeToString(h.Sum(nil))
}

// Do returns the cached value for the key or recomputes it via fn.
//
// Lookup order is local map, then remote store, then fn. An expired entry
// in either tier counts as a miss and is left in place; expiry is lazy on
// read, never on a timer. A recomputed value is written to the remote store
// with its own absolute expiry, then to the local map.
func (c *Cache) Do(ctx context.Context, key string, localTTL, remoteTTL time.Duration, fn Producer) ([]byte, error) {
	now := c.now()

	c.mu.Lock()
	if e, ok := c.local[key]; ok {
		if now.Before(e.expiredAt) {
			c.mu.Unlock()
			return e.data, nil
		}
		delete(c.local, key)
	}
	c.mu.Unlock()

	if c.store != nil {
		data, expiredAt, found, err := c.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("reading remote cache: %w", err)
		}
		if found && now.Before(expiredAt) {
			c.putLocal(key, data, now.Add(localTTL))
			return data, nil
		}
	}

	data, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		if err := c.store.Put(ctx, key, data, now.Add(remoteTTL)); err != nil {
			return nil, fmt.Errorf("writing remote cache: %w", err)
		}
	}
	c.putLocal(key, data, now.Add(localTTL))

	return data, nil
}

func (c *Cache) putLocal(key string, data []byte, expiredAt time.Time) {
	c.mu.Lock()
	c.local[key] = localEntry{data: data, expiredAt: expiredAt}
	c.mu.Unlock()
}
