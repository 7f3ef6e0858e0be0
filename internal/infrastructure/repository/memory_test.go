package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellhq/inkwell-backend/internal/domain/audit"
)

func storeEntry(t *testing.T, repo *InMemoryAuditRepository, draft audit.Draft, at time.Time) *audit.Entry {
	t.Helper()
	entry, err := audit.NewEntry(draft, at)
	require.NoError(t, err)
	require.NoError(t, repo.Store(context.Background(), entry))
	return entry
}

func TestInMemoryAuditRepository_StoreAndGet(t *testing.T) {
	repo := NewInMemoryAuditRepository()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	entry := storeEntry(t, repo, audit.Draft{
		ActorID:      "admin-1",
		Action:       audit.ActionApprove,
		ResourceType: audit.ResourcePost,
		ResourceID:   "post-1",
		Outcome:      audit.OutcomeSuccess,
	}, now)

	got, err := repo.GetByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	_, err = repo.GetByID(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestInMemoryAuditRepository_DuplicateStoreRejected(t *testing.T) {
	repo := NewInMemoryAuditRepository()
	entry, err := audit.NewEntry(audit.Draft{
		Action:       audit.ActionArchive,
		ResourceType: audit.ResourcePost,
		ResourceID:   "post-1",
		Outcome:      audit.OutcomeSuccess,
	}, time.Now())
	require.NoError(t, err)

	require.NoError(t, repo.Store(context.Background(), entry))
	assert.Error(t, repo.Store(context.Background(), entry))
}

func TestInMemoryAuditRepository_QueryFilters(t *testing.T) {
	repo := NewInMemoryAuditRepository()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		storeEntry(t, repo, audit.Draft{
			ActorID:      "admin-1",
			Action:       audit.ActionApprove,
			ResourceType: audit.ResourcePost,
			ResourceID:   fmt.Sprintf("post-%d", i),
			Outcome:      audit.OutcomeSuccess,
		}, base.Add(time.Duration(i)*time.Minute))
	}
	storeEntry(t, repo, audit.Draft{
		ActorID:      "admin-2",
		Action:       audit.ActionDelete,
		ResourceType: audit.ResourceComment,
		ResourceID:   "comment-1",
		Outcome:      audit.OutcomeFailure,
		ErrorMessage: "gone",
	}, base.Add(10*time.Minute))

	ctx := context.Background()

	byActor, err := repo.Query(ctx, audit.EntryFilter{ActorID: "admin-1"})
	require.NoError(t, err)
	assert.Len(t, byActor, 3)

	byAction, err := repo.Query(ctx, audit.EntryFilter{Actions: []audit.Action{audit.ActionDelete}})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, "comment-1", byAction[0].ResourceID)

	byRange, err := repo.Query(ctx, audit.EntryFilter{
		Range: audit.DateRange{From: base.Add(5 * time.Minute)},
	})
	require.NoError(t, err)
	assert.Len(t, byRange, 1)

	// Descending order, newest first
	all, err := repo.Query(ctx, audit.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "comment-1", all[0].ResourceID)
}

func TestInMemoryAuditRepository_Pagination(t *testing.T) {
	repo := NewInMemoryAuditRepository()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		storeEntry(t, repo, audit.Draft{
			Action:       audit.ActionArchive,
			ResourceType: audit.ResourcePost,
			ResourceID:   fmt.Sprintf("post-%d", i),
			Outcome:      audit.OutcomeSuccess,
		}, base.Add(time.Duration(i)*time.Minute))
	}

	ctx := context.Background()

	page, err := repo.Query(ctx, audit.EntryFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "post-3", page[0].ResourceID)
	assert.Equal(t, "post-2", page[1].ResourceID)

	past, err := repo.Query(ctx, audit.EntryFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestInMemoryAuditRepository_CountByActorOutcome(t *testing.T) {
	repo := NewInMemoryAuditRepository()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		storeEntry(t, repo, audit.Draft{
			ActorID:      "admin-1",
			Action:       audit.ActionDelete,
			ResourceType: audit.ResourcePost,
			ResourceID:   fmt.Sprintf("post-%d", i),
			Outcome:      audit.OutcomeFailure,
			ErrorMessage: "locked",
		}, base.Add(time.Duration(i)*time.Minute))
	}

	count, err := repo.CountByActorOutcome(context.Background(), "admin-1", audit.OutcomeFailure, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestInMemoryAuditRepository_StoredEntriesAreIsolated(t *testing.T) {
	repo := NewInMemoryAuditRepository()
	entry := storeEntry(t, repo, audit.Draft{
		Action:       audit.ActionTag,
		ResourceType: audit.ResourcePost,
		ResourceID:   "post-1",
		Outcome:      audit.OutcomeSuccess,
		ExtraFlags:   []audit.ComplianceFlag{audit.FlagBulkOperation},
	}, time.Now())

	// Mutating the caller's copy must not change the stored entry
	entry.Flags[0] = audit.FlagPIIAccess

	stored, err := repo.GetByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, audit.FlagBulkOperation, stored.Flags[0])
}
