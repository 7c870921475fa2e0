package tokens

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache holds the key set of each registered issuer for a time-to-live.
// Concurrent misses for one issuer share a single fetch. When a refresh
// fails, the previous key set keeps being served until it is older than
// the stale limit.
type Cache struct {
	ttl        time.Duration
	staleLimit time.Duration
	minRefresh time.Duration
	now        func() time.Time
	log        *zap.Logger

	mu      sync.RWMutex
	sources map[string]KeySetSource
	entries map[string]cacheEntry
	forced  map[string]time.Time
	group   singleflight.Group
}

type cacheEntry struct {
	set     *KeySet
	fetched time.Time
}

type CacheOption func(*Cache)

// WithStaleLimit sets how long past its TTL a key set may still be served
// while the provider cannot be reached. Zero disables stale serving.
func WithStaleLimit(d time.Duration) CacheOption {
	return func(c *Cache) { c.staleLimit = d }
}

// WithMinRefreshInterval rate limits refreshes forced by unknown key ids.
func WithMinRefreshInterval(d time.Duration) CacheOption {
	return func(c *Cache) { c.minRefresh = d }
}

func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func WithCacheLogger(log *zap.Logger) CacheOption {
	return func(c *Cache) { c.log = log }
}

func NewCache(ttl time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{
		ttl:        ttl,
		staleLimit: ttl,
		minRefresh: 30 * time.Second,
		now:        time.Now,
		log:        zap.NewNop(),
		sources:    make(map[string]KeySetSource),
		entries:    make(map[string]cacheEntry),
		forced:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add registers the key set source of an issuer, replacing any previous
// source and dropping its cached key set.
func (c *Cache) Add(issuer string, src KeySetSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[issuer] = src
	delete(c.entries, issuer)
	delete(c.forced, issuer)
}

// KeySet returns the cached key set of issuer, fetching it when missing
// or expired.
func (c *Cache) KeySet(ctx context.Context, issuer string) (*KeySet, error) {
	c.mu.RLock()
	entry, ok := c.entries[issuer]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.fetched) < c.ttl {
		return entry.set, nil
	}
	return c.load(ctx, issuer)
}

// Refresh refetches the key set of issuer, for instance after a token
// names a key id the cached set does not know. Refreshes closer together
// than the minimum refresh interval return the cached set instead.
func (c *Cache) Refresh(ctx context.Context, issuer string) (*KeySet, error) {
	c.mu.Lock()
	last, forced := c.forced[issuer]
	entry, cached := c.entries[issuer]
	if cached && forced && c.now().Sub(last) < c.minRefresh {
		c.mu.Unlock()
		return entry.set, nil
	}
	c.forced[issuer] = c.now()
	c.mu.Unlock()

	return c.load(ctx, issuer)
}

// Invalidate drops the cached key set of issuer.
func (c *Cache) Invalidate(issuer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, issuer)
}

func (c *Cache) load(ctx context.Context, issuer string) (*KeySet, error) {
	c.mu.RLock()
	src, ok := c.sources[issuer]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no key source for issuer %q", ErrProviderUnreachable, issuer)
	}

	// the fetch outlives any single caller; each source bounds its own
	// attempts with a timeout
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(issuer, func() (any, error) {
		return c.fetch(fetchCtx, issuer, src)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrProviderUnreachable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	}
}

func (c *Cache) fetch(ctx context.Context, issuer string, src KeySetSource) (*KeySet, error) {
	set, err := src.Fetch(ctx)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		entry, ok := c.entries[issuer]
		if ok && c.staleLimit > 0 && now.Sub(entry.fetched) < c.ttl+c.staleLimit {
			c.log.Warn("serving stale key set",
				zap.String("issuer", issuer),
				zap.Duration("age", now.Sub(entry.fetched)),
				zap.Error(err),
			)
			return entry.set, nil
		}
		return nil, err
	}

	c.entries[issuer] = cacheEntry{set: set, fetched: now}
	c.log.Debug("key set refreshed",
		zap.String("issuer", issuer),
		zap.Int("keys", len(set.Keys)),
	)
	return set, nil
}
