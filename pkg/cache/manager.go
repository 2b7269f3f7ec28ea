package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned for absent and expired entries.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry is returned when a stored value does not decode.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// purgeBatch is the SCAN page size used by PurgeHost.
const purgeBatch = 200

// Manager stores provider responses in Redis.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a Manager. It panics on a nil client.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("cache: nil redis client")
	}
	return &Manager{redis: redisClient}
}

// Get returns the entry stored under key, or ErrCacheMiss.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	raw, err := m.redis.Get(ctx, key.String()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	case err != nil:
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, err
	}

	// The Redis TTL is rounded; Expires is authoritative.
	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	return entry, nil
}

// Set stores entry until its Expires. Expired entries are dropped silently.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache: nil entry for %s", key)
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), raw, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(raw)))
	return nil
}

// Delete removes the entry under key. Deleting a missing key is not an error.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// UpdateTTL moves the expiry of a stored entry, typically after a 304.
func (m *Manager) UpdateTTL(ctx context.Context, key CacheKey, expires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	entry.Expires = expires
	return m.Set(ctx, key, entry)
}

// PurgeHost deletes every entry cached for host and returns how many were
// removed.
func (m *Manager) PurgeHost(ctx context.Context, host string) (int, error) {
	pattern := CacheKey{Host: host}.String() + ":*"

	purged := 0
	iter := m.redis.Scan(ctx, 0, pattern, purgeBatch).Iterator()
	batch := make([]string, 0, purgeBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := m.redis.Del(ctx, batch...).Result()
		if err != nil {
			CacheErrors.WithLabelValues("delete").Inc()
			return fmt.Errorf("redis del: %w", err)
		}
		purged += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatch {
			if err := flush(); err != nil {
				return purged, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("scan").Inc()
		return purged, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if err := flush(); err != nil {
		return purged, err
	}
	return purged, nil
}

func decodeEntry(raw []byte) (*CacheEntry, error) {
	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if entry.Expires.IsZero() {
		return nil, fmt.Errorf("%w: no expiry", ErrInvalidEntry)
	}
	return &entry, nil
}
