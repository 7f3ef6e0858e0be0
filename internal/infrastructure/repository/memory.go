package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell-backend/internal/domain/audit"
	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
)

// InMemoryAuditRepository is a mutex-guarded audit store for tests and
// single-process development wiring. Append-only like every
// EntryRepository implementation.
type InMemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []*audit.Entry
	byID    map[uuid.UUID]*audit.Entry
}

// NewInMemoryAuditRepository creates an empty in-memory audit store
func NewInMemoryAuditRepository() *InMemoryAuditRepository {
	return &InMemoryAuditRepository{
		byID: make(map[uuid.UUID]*audit.Entry),
	}
}

// Store persists a single audit entry
func (r *InMemoryAuditRepository) Store(_ context.Context, entry *audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[entry.ID]; exists {
		return errors.NewConflictError("audit entry already stored")
	}

	stored := entry.Clone()
	r.entries = append(r.entries, stored)
	r.byID[stored.ID] = stored
	return nil
}

// StoreBatch persists multiple entries from one batch invocation
func (r *InMemoryAuditRepository) StoreBatch(ctx context.Context, entries []*audit.Entry) error {
	for _, e := range entries {
		if err := r.Store(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves an entry by its unique identifier
func (r *InMemoryAuditRepository) GetByID(_ context.Context, id uuid.UUID) (*audit.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byID[id]
	if !ok {
		return nil, errors.ErrEntryNotFound
	}
	return entry.Clone(), nil
}

// Query retrieves entries matching the filter, ordered by timestamp
// descending, honoring Limit and Offset
func (r *InMemoryAuditRepository) Query(_ context.Context, filter audit.EntryFilter) ([]*audit.Entry, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	var matched []*audit.Entry
	for _, e := range r.entries {
		if filter.Matches(e) {
			matched = append(matched, e.Clone())
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

// Count returns the number of entries matching the filter
func (r *InMemoryAuditRepository) Count(_ context.Context, filter audit.EntryFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, e := range r.entries {
		if filter.Matches(e) {
			count++
		}
	}
	return count, nil
}

// CountByActorOutcome counts entries for an actor with the given outcome
// since the given time
func (r *InMemoryAuditRepository) CountByActorOutcome(_ context.Context, actorID string, outcome audit.Outcome, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, e := range r.entries {
		if e.ActorID == actorID && e.Outcome == outcome && !e.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

var _ audit.EntryRepository = (*InMemoryAuditRepository)(nil)
