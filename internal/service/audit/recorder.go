package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inkwellhq/inkwell-backend/internal/domain/audit"
	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
)

// RecorderConfig configures the audit recorder
type RecorderConfig struct {
	// RiskWindow bounds how far back prior failures by the same actor
	// count toward risk escalation (default: 1h).
	RiskWindow time.Duration

	// SensitiveActions extends the sensitivity policy beyond the
	// risk-level and destructive-action derivation.
	SensitiveActions []audit.Action
}

// DefaultRecorderConfig returns default configuration
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		RiskWindow: time.Hour,
		SensitiveActions: []audit.Action{
			audit.ActionDelete,
			audit.ActionSuspend,
			audit.ActionBan,
			audit.ActionSettingsChange,
			audit.ActionExport,
		},
	}
}

// Observer receives each entry after it has been durably stored.
// Observer errors never affect the record path.
type Observer func(entry *audit.Entry)

// Recorder owns the append path of the audit log. Every administrative
// action flows through Record exactly once; entries are immutable after
// that point.
type Recorder struct {
	config RecorderConfig
	policy audit.SensitivityPolicy
	repo   audit.EntryRepository
	scorer *audit.RiskScorer
	clock  audit.Clock
	logger *zap.Logger

	mu        sync.RWMutex
	observers []Observer
}

// NewRecorder creates an audit recorder
func NewRecorder(repo audit.EntryRepository, clock audit.Clock, logger *zap.Logger, config RecorderConfig) *Recorder {
	if config.RiskWindow <= 0 {
		config.RiskWindow = time.Hour
	}

	return &Recorder{
		config: config,
		policy: audit.NewSensitivityPolicy(config.SensitiveActions),
		repo:   repo,
		scorer: audit.NewRiskScorer(),
		clock:  clock,
		logger: logger,
	}
}

// SensitivityPolicy returns the policy entries are judged against.
// Consumers that classify entries, the statistics aggregator included,
// share it so counts and queries agree on what is sensitive.
func (r *Recorder) SensitivityPolicy() audit.SensitivityPolicy {
	return r.policy
}

// Subscribe registers an observer for stored entries
func (r *Recorder) Subscribe(obs Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, obs)
}

// Record assigns identity and timestamp to the draft, scores its risk,
// and appends it to the audit log. A failed store write surfaces as a
// storage error; Record never fails silently.
func (r *Recorder) Record(ctx context.Context, draft audit.Draft) (*audit.Entry, error) {
	now := r.clock.Now()

	entry, err := audit.NewEntry(draft, now)
	if err != nil {
		return nil, err
	}

	priorFailures := 0
	if entry.ActorID != "" {
		since := now.Add(-r.config.RiskWindow)
		priorFailures, err = r.repo.CountByActorOutcome(ctx, entry.ActorID, audit.OutcomeFailure, since)
		if err != nil {
			// The scorer degrades to a zero prior-failure count rather
			// than blocking the append path.
			r.logger.Warn("prior failure lookup failed, scoring without history",
				zap.String("actor_id", entry.ActorID),
				zap.Error(err))
			priorFailures = 0
		}
	}

	level, flags := r.scorer.Score(entry.Action, entry.ResourceType, entry.Outcome, priorFailures)
	entry.RiskLevel = level
	for _, f := range flags {
		if !audit.HasFlag(entry.Flags, f) {
			entry.Flags = append(entry.Flags, f)
		}
	}

	if err := r.repo.Store(ctx, entry); err != nil {
		r.logger.Error("audit entry write failed",
			zap.String("entry_id", entry.ID.String()),
			zap.String("action", entry.Action.String()),
			zap.Error(err))
		return nil, errors.NewStorageError("STORAGE_WRITE_FAILED",
			"audit entry could not be persisted").WithCause(err)
	}

	r.notify(entry)

	return entry.Clone(), nil
}

// RecordBatch appends multiple drafts sharing one correlation id. Entries
// are scored and stored together; a failed batch write surfaces as one
// storage error covering the whole set.
func (r *Recorder) RecordBatch(ctx context.Context, drafts []audit.Draft) ([]*audit.Entry, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	now := r.clock.Now()
	entries := make([]*audit.Entry, 0, len(drafts))

	// One history lookup per distinct actor, not per entry
	priorByActor := make(map[string]int)
	since := now.Add(-r.config.RiskWindow)
	for _, d := range drafts {
		if d.ActorID == "" {
			continue
		}
		if _, ok := priorByActor[d.ActorID]; ok {
			continue
		}
		count, err := r.repo.CountByActorOutcome(ctx, d.ActorID, audit.OutcomeFailure, since)
		if err != nil {
			r.logger.Warn("prior failure lookup failed, scoring without history",
				zap.String("actor_id", d.ActorID),
				zap.Error(err))
			count = 0
		}
		priorByActor[d.ActorID] = count
	}

	for _, draft := range drafts {
		entry, err := audit.NewEntry(draft, now)
		if err != nil {
			return nil, err
		}

		level, flags := r.scorer.Score(entry.Action, entry.ResourceType, entry.Outcome, priorByActor[entry.ActorID])
		entry.RiskLevel = level
		for _, f := range flags {
			if !audit.HasFlag(entry.Flags, f) {
				entry.Flags = append(entry.Flags, f)
			}
		}

		entries = append(entries, entry)
	}

	if err := r.repo.StoreBatch(ctx, entries); err != nil {
		r.logger.Error("audit batch write failed",
			zap.Int("entry_count", len(entries)),
			zap.Error(err))
		return nil, errors.NewStorageError("STORAGE_WRITE_FAILED",
			"audit entries could not be persisted").WithCause(err)
	}

	out := make([]*audit.Entry, len(entries))
	for i, e := range entries {
		r.notify(e)
		out[i] = e.Clone()
	}

	return out, nil
}

// Query retrieves audit entries matching the filter, most recent first.
// SensitiveOnly is resolved here against the sensitivity policy before
// reaching the repository.
func (r *Recorder) Query(ctx context.Context, filter audit.EntryFilter) ([]*audit.Entry, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	entries, err := r.repo.Query(ctx, filter)
	if err != nil {
		return nil, errors.NewStorageError("STORAGE_READ_FAILED",
			"audit query failed").WithCause(err)
	}

	if !filter.SensitiveOnly {
		return entries, nil
	}

	sensitive := entries[:0]
	for _, e := range entries {
		if r.policy.IsSensitive(e) {
			sensitive = append(sensitive, e)
		}
	}
	return sensitive, nil
}

func (r *Recorder) notify(entry *audit.Entry) {
	r.mu.RLock()
	observers := r.observers
	r.mu.RUnlock()

	for _, obs := range observers {
		obs(entry.Clone())
	}
}
