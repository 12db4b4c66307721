package generate

import (
	"context"
	"sync"
	"time"

	"github.com/glintshell/glint/internal/spec"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// cacheSize bounds how many generator results are retained.
const cacheSize = 256

type cacheEntry struct {
	suggestions []spec.Suggestion
	storedAt    time.Time
}

// Cache retains generator output across invocations. Expired entries are
// either served stale while a background refresh runs, or recomputed in
// place, depending on the generator's cache strategy.
type Cache struct {
	logger *zap.Logger

	mu         sync.Mutex
	entries    *lru.Cache[string, *cacheEntry]
	refreshing map[string]bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewCache creates a Cache. A nil logger means no-op logging.
func NewCache(logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, _ := lru.New[string, *cacheEntry](cacheSize)
	return &Cache{
		logger:     logger,
		entries:    entries,
		refreshing: make(map[string]bool),
		now:        time.Now,
	}
}

// Lookup serves a cached result for key or computes one. For the
// stale-while-revalidate strategy an expired entry is returned immediately
// and refreshed in the background; for max-age it is recomputed
// synchronously.
func (c *Cache) Lookup(ctx context.Context, key string, policy *spec.CachePolicy, compute func(context.Context) ([]spec.Suggestion, error)) ([]spec.Suggestion, error) {
	c.mu.Lock()
	entry, ok := c.entries.Get(key)
	if ok {
		fresh := c.now().Sub(entry.storedAt) <= policy.TTL
		if fresh {
			c.mu.Unlock()
			return entry.suggestions, nil
		}
		if policy.Strategy == spec.CacheStaleWhileRevalidate {
			if !c.refreshing[key] {
				c.refreshing[key] = true
				go c.refresh(key, compute)
			}
			c.mu.Unlock()
			return entry.suggestions, nil
		}
	}
	c.mu.Unlock()

	suggestions, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	c.store(key, suggestions)
	return suggestions, nil
}

// refresh recomputes one expired entry off the request path. The stale
// value keeps being served until the refresh lands; a failed refresh leaves
// it in place.
func (c *Cache) refresh(key string, compute func(context.Context) ([]spec.Suggestion, error)) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("cache refresh panic", zap.Any("cause", r))
		}
		c.mu.Lock()
		delete(c.refreshing, key)
		c.mu.Unlock()
	}()

	suggestions, err := compute(context.Background())
	if err != nil {
		c.logger.Debug("cache refresh failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	c.store(key, suggestions)
}

func (c *Cache) store(key string, suggestions []spec.Suggestion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, &cacheEntry{
		suggestions: suggestions,
		storedAt:    c.now(),
	})
}

// Clear drops every cached result.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}
