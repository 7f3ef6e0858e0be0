package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/inkwellhq/inkwell-backend/internal/domain/audit"
	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
)

func setupTestStatsCache(t *testing.T) (*StatsCache, *miniredis.Miniredis) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	cache, err := NewStatsCache(client, zaptest.NewLogger(t), time.Hour)
	require.NoError(t, err)

	return cache, s
}

func testSnapshot(from, to time.Time) *audit.Statistics {
	return &audit.Statistics{
		Range:        audit.DateRange{From: from, To: to},
		GeneratedAt:  to,
		TotalCount:   12,
		SuccessCount: 10,
		FailureCount: 2,
		ByAction: []audit.Bucket{
			{Key: "publish", Count: 8, LastUpdated: to},
			{Key: "delete", Count: 4, LastUpdated: to},
		},
		TopActors: []audit.RankedKey{
			{Key: "admin-1", Count: 9, LastActivity: to},
		},
	}
}

func TestStatsCache_SaveAndLoad(t *testing.T) {
	cache, _ := setupTestStatsCache(t)
	ctx := context.Background()

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	snapshot := testSnapshot(from, to)

	require.NoError(t, cache.SaveSnapshot(ctx, snapshot))

	loaded, err := cache.LoadSnapshot(ctx)
	require.NoError(t, err)

	// The covered window survives the roundtrip inside the payload
	assert.Equal(t, snapshot.Range, loaded.Range)
	assert.Equal(t, snapshot.TotalCount, loaded.TotalCount)
	assert.Equal(t, snapshot.SuccessCount, loaded.SuccessCount)
	assert.Equal(t, snapshot.ByAction, loaded.ByAction)
	assert.Equal(t, snapshot.TopActors, loaded.TopActors)
}

func TestStatsCache_SaveReplacesLatest(t *testing.T) {
	cache, _ := setupTestStatsCache(t)
	ctx := context.Background()

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	first := testSnapshot(from, from.Add(24*time.Hour))
	require.NoError(t, cache.SaveSnapshot(ctx, first))

	second := testSnapshot(from.Add(time.Hour), from.Add(25*time.Hour))
	second.TotalCount = 20
	require.NoError(t, cache.SaveSnapshot(ctx, second))

	// A restart always recovers the most recent snapshot
	loaded, err := cache.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Range, loaded.Range)
	assert.EqualValues(t, 20, loaded.TotalCount)
}

func TestStatsCache_LoadMiss(t *testing.T) {
	cache, _ := setupTestStatsCache(t)

	_, err := cache.LoadSnapshot(context.Background())
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeNotFound, appErr.Type)
}

func TestStatsCache_CorruptSnapshotIsAMiss(t *testing.T) {
	cache, s := setupTestStatsCache(t)

	require.NoError(t, s.Set(statsSnapshotKey, "{not json"))

	_, err := cache.LoadSnapshot(context.Background())
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeNotFound, appErr.Type)
}

func TestStatsCache_SnapshotExpires(t *testing.T) {
	cache, s := setupTestStatsCache(t)
	ctx := context.Background()

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	snapshot := testSnapshot(from, from.Add(24*time.Hour))

	require.NoError(t, cache.SaveSnapshot(ctx, snapshot))

	s.FastForward(2 * time.Hour)

	_, err := cache.LoadSnapshot(ctx)
	assert.Error(t, err)
}

func TestNewStatsCache_Validation(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})

	_, err := NewStatsCache(nil, nil, time.Hour)
	assert.Error(t, err)

	_, err = NewStatsCache(client, nil, 0)
	assert.Error(t, err)
}
