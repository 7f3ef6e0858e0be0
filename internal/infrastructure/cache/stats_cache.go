package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/inkwellhq/inkwell-backend/internal/domain/audit"
	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
)

// The single well-known key callers can recover after a restart. The
// window a snapshot covers travels inside the payload, never in the key.
const statsSnapshotKey = "inkwell:admin:stats:latest"

// StatsCache persists aggregated statistics snapshots in Redis so the
// aggregator can warm-start after a restart instead of replaying the
// full audit log.
type StatsCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewStatsCache creates a snapshot store backed by the given Redis client.
// Snapshots expire after ttl; pass the retention window so stale snapshots
// age out with the entries they summarize.
func NewStatsCache(client *redis.Client, logger *zap.Logger, ttl time.Duration) (*StatsCache, error) {
	if client == nil {
		return nil, errors.NewInternalError("redis client is required")
	}
	if ttl <= 0 {
		return nil, errors.NewValidationError("INVALID_TTL", "snapshot ttl must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StatsCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}, nil
}

var _ audit.StatsStore = (*StatsCache)(nil)

// SaveSnapshot replaces the latest snapshot
func (c *StatsCache) SaveSnapshot(ctx context.Context, stats *audit.Statistics) error {
	if stats == nil {
		return errors.NewValidationError("MISSING_SNAPSHOT", "statistics snapshot is required")
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return errors.NewInternalError("failed to marshal statistics snapshot").WithCause(err)
	}

	if err := c.client.Set(ctx, statsSnapshotKey, data, c.ttl).Err(); err != nil {
		return errors.NewStorageError("SNAPSHOT_WRITE_FAILED", "failed to store statistics snapshot").WithCause(err)
	}

	c.logger.Debug("statistics snapshot stored",
		zap.Time("generated_at", stats.GeneratedAt),
		zap.Int64("total_count", stats.TotalCount),
	)

	return nil
}

// LoadSnapshot retrieves the latest snapshot. A cache miss returns a
// not-found error so callers can fall back to a rebuild.
func (c *StatsCache) LoadSnapshot(ctx context.Context) (*audit.Statistics, error) {
	data, err := c.client.Get(ctx, statsSnapshotKey).Bytes()
	if err == redis.Nil {
		return nil, errors.NewNotFoundError("statistics snapshot")
	}
	if err != nil {
		return nil, errors.NewStorageError("SNAPSHOT_READ_FAILED", "failed to load statistics snapshot").WithCause(err)
	}

	var stats audit.Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		// A corrupt snapshot is treated as a miss; the caller rebuilds
		c.logger.Warn("discarding corrupt statistics snapshot", zap.Error(err))
		return nil, errors.NewNotFoundError("statistics snapshot")
	}

	return &stats, nil
}
