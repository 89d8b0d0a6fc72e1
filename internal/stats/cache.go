// Package stats serves channel dashboard totals.
package stats

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/videotube/backend/internal/models"
)

// ErrProviderUnavailable indicates no stats source is configured.
var ErrProviderUnavailable = errors.New("channel stats provider unavailable")

// Provider aggregates the dashboard totals of a channel.
type Provider interface {
	ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error)
}

type cacheEntry struct {
	stats   models.ChannelStats
	expires time.Time
}

// CachingProvider wraps another Provider with a TTL-based in-memory cache.
type CachingProvider struct {
	base Provider
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingProvider returns a Provider that caches lookups for the provided TTL.
func NewCachingProvider(base Provider, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingProvider{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]cacheEntry),
	}
}

// WithNowFunc overrides the clock used for expiry.
func (c *CachingProvider) WithNowFunc(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// ChannelStats returns cached totals when fresh, otherwise it delegates to the
// underlying provider and stores the result.
func (c *CachingProvider) ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error) {
	if c == nil || c.base == nil {
		return models.ChannelStats{}, ErrProviderUnavailable
	}

	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[channelID]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.stats, nil
	}

	stats, err := c.base.ChannelStats(ctx, channelID)
	if err != nil {
		return models.ChannelStats{}, err
	}

	c.mu.Lock()
	c.items[channelID] = cacheEntry{stats: stats, expires: now.Add(c.ttl)}
	for id, e := range c.items {
		if !now.Before(e.expires) {
			delete(c.items, id)
		}
	}
	c.mu.Unlock()

	return stats, nil
}

// Invalidate drops the cached totals of a channel.
func (c *CachingProvider) Invalidate(channelID string) {
	c.mu.Lock()
	delete(c.items, channelID)
	c.mu.Unlock()
}
