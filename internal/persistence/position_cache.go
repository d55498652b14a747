package persistence

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const positionKeyPrefix = "ticket:pos:"

// PositionCache stores ticket positions in Redis with a short TTL. Lookups
// on the kiosk position endpoint vastly outnumber queue mutations, so even a
// few seconds of caching absorbs most of the read load. Every operation is
// best-effort: Redis being down never fails the engine.
type PositionCache struct {
	redis  *Redis
	ttl    time.Duration
	logger *zap.Logger
}

// NewPositionCache builds the cache. ttlSeconds <= 0 falls back to a 5
// second TTL.
func NewPositionCache(redis *Redis, ttlSeconds int, logger *zap.Logger) *PositionCache {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &PositionCache{redis: redis, ttl: ttl, logger: logger}
}

// Get returns the cached position for a ticket.
func (c *PositionCache) Get(ctx context.Context, ticketID string) (int, bool) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return 0, false
	}
	pos, err := c.redis.Client.Get(ctx, positionKeyPrefix+ticketID).Int()
	if err != nil {
		return 0, false
	}
	return pos, true
}

// Set caches the position for a ticket.
func (c *PositionCache) Set(ctx context.Context, ticketID string, position int) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return
	}
	if err := c.redis.Client.Set(ctx, positionKeyPrefix+ticketID, position, c.ttl).Err(); err != nil {
		c.logger.Debug("position cache set failed", zap.Error(err))
	}
}

// Invalidate drops cached positions for the given tickets.
func (c *PositionCache) Invalidate(ctx context.Context, ticketIDs ...string) {
	if c == nil || c.redis == nil || c.redis.Client == nil || len(ticketIDs) == 0 {
		return
	}
	keys := make([]string, len(ticketIDs))
	for i, id := range ticketIDs {
		keys[i] = positionKeyPrefix + id
	}
	if err := c.redis.Client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Debug("position cache invalidate failed", zap.Error(err))
	}
}
