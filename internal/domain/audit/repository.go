package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntryRepository defines the persistence port for the audit log.
// The log is append-only: implementations never expose update or delete.
type EntryRepository interface {
	// Store persists a single audit entry
	Store(ctx context.Context, entry *Entry) error

	// StoreBatch persists multiple entries from one batch invocation
	StoreBatch(ctx context.Context, entries []*Entry) error

	// GetByID retrieves an entry by its unique identifier
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// Query retrieves entries matching the filter, ordered by timestamp
	// descending
	Query(ctx context.Context, filter EntryFilter) ([]*Entry, error)

	// Count returns the number of entries matching the filter
	Count(ctx context.Context, filter EntryFilter) (int64, error)

	// CountByActorOutcome counts entries for an actor with the given
	// outcome since the given time. Used by the risk scoring path.
	CountByActorOutcome(ctx context.Context, actorID string, outcome Outcome, since time.Time) (int, error)
}

// StatsStore is the optional warm-start port for the statistics cache.
// SaveSnapshot replaces the most recent snapshot; LoadSnapshot returns
// it, with the window it covers carried in Statistics.Range.
type StatsStore interface {
	SaveSnapshot(ctx context.Context, stats *Statistics) error
	LoadSnapshot(ctx context.Context) (*Statistics, error)
}

// Clock abstracts time for deterministic tests
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
