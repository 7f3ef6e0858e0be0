package batch

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultBuilder_Build(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(250 * time.Millisecond)
	correlationID := uuid.New()

	b := NewResultBuilder(5, correlationID, start)
	b.SetSuccess(0, "post-1", nil)
	b.SetFailure(1, "post-2", "post locked")
	b.SetSuccess(2, "post-3", nil)
	b.SetFailure(3, "post-4", "post locked")
	b.SetSkipped(4, "post-5")

	result, err := b.Build(end)
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalCount)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 2, result.FailCount)
	assert.Equal(t, 1, result.SkippedCount)
	assert.Equal(t, result.TotalCount, result.SuccessCount+result.FailCount+result.SkippedCount)
	assert.Len(t, result.ItemResults, 5)
	assert.Equal(t, 250*time.Millisecond, result.Duration)
	assert.Equal(t, correlationID, result.CorrelationID)

	// Duplicate failure messages collapse into one distinct entry
	assert.Equal(t, []string{"post locked"}, result.Errors)

	// Item order mirrors input order
	assert.Equal(t, "post-1", result.ItemResults[0].TargetID)
	assert.Equal(t, "post-5", result.ItemResults[4].TargetID)
}

func TestResultBuilder_UnfilledSlot(t *testing.T) {
	b := NewResultBuilder(2, uuid.New(), time.Now())
	b.SetSuccess(0, "post-1", nil)

	result, err := b.Build(time.Now())
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestItemResult_SuccessHasNoError(t *testing.T) {
	b := NewResultBuilder(1, uuid.New(), time.Now())
	b.SetSuccess(0, "post-1", &Payload{Kind: PayloadModeration})

	result, err := b.Build(time.Now())
	require.NoError(t, err)

	item := result.ItemResults[0]
	assert.True(t, item.Success)
	assert.Empty(t, item.Error)
	assert.Equal(t, PayloadModeration, item.Payload.Kind)
}
