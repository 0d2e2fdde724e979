package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stickerlab/sticker-engine/pkg/models"
)

// snapshotCacheKey is the Redis key holding the serialized stats snapshot.
const snapshotCacheKey = "stats:snapshot"

// SnapshotCache caches the aggregate stats snapshot. Implementations must
// treat the cache as advisory: a miss or a cache failure never fails the
// read, and Invalidate is called after every successful ingestion so the
// cache never serves a catalog state that predates an insert.
type SnapshotCache interface {
	Get(ctx context.Context) (*models.StatsSnapshot, bool)
	Set(ctx context.Context, snapshot *models.StatsSnapshot)
	Invalidate(ctx context.Context)
}

// redisSnapshotCache implements SnapshotCache on Redis with a short TTL.
type redisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSnapshotCache creates a Redis-backed snapshot cache.
func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) SnapshotCache {
	return &redisSnapshotCache{client: client, ttl: ttl, logger: logger}
}

func (c *redisSnapshotCache) Get(ctx context.Context) (*models.StatsSnapshot, bool) {
	data, err := c.client.Get(ctx, snapshotCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Snapshot cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var snapshot models.StatsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		c.logger.Warn("Snapshot cache held invalid payload", zap.Error(err))
		return nil, false
	}
	return &snapshot, true
}

func (c *redisSnapshotCache) Set(ctx context.Context, snapshot *models.StatsSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.Warn("Failed to marshal snapshot for cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, snapshotCacheKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Snapshot cache write failed", zap.Error(err))
	}
}

func (c *redisSnapshotCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, snapshotCacheKey).Err(); err != nil {
		c.logger.Warn("Snapshot cache invalidation failed", zap.Error(err))
	}
}

// noopSnapshotCache disables caching when Redis is not configured.
type noopSnapshotCache struct{}

// NewNoopSnapshotCache returns a cache that never hits.
func NewNoopSnapshotCache() SnapshotCache { return noopSnapshotCache{} }

func (noopSnapshotCache) Get(ctx context.Context) (*models.StatsSnapshot, bool) { return nil, false }
func (noopSnapshotCache) Set(ctx context.Context, snapshot *models.StatsSnapshot) {}
func (noopSnapshotCache) Invalidate(ctx context.Context)                          {}
