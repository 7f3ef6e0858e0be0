package stats

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/inkwellhq/inkwell-backend/internal/domain/audit"
)

const (
	hourlyKeyFormat = "2006-01-02T15"
	dailyKeyFormat  = "2006-01-02"

	// DefaultTopK bounds the ranked actor and source IP breakdowns
	DefaultTopK = 10
)

// bucketState is one counter of one dimension
type bucketState struct {
	count       int64
	lastUpdated time.Time
}

// dimension is an independently locked counter map, so concurrent
// batches touching different dimensions never serialize on one lock
type dimension struct {
	mu      sync.RWMutex
	buckets map[string]*bucketState
}

func newDimension() *dimension {
	return &dimension{buckets: make(map[string]*bucketState)}
}

func (d *dimension) observe(key string, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, ok := d.buckets[key]
	if !ok {
		state = &bucketState{}
		d.buckets[key] = state
	}
	state.count++
	if at.After(state.lastUpdated) {
		state.lastUpdated = at
	}
}

func (d *dimension) snapshot(include func(key string) bool) []audit.Bucket {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]audit.Bucket, 0, len(d.buckets))
	for key, state := range d.buckets {
		if include != nil && !include(key) {
			continue
		}
		out = append(out, audit.Bucket{
			Key:         key,
			Count:       state.count,
			LastUpdated: state.lastUpdated,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ranked is an independently locked ranked dimension
type ranked struct {
	mu     sync.RWMutex
	states map[string]*rankedState
}

func newRanked() *ranked {
	return &ranked{states: make(map[string]*rankedState)}
}

func (r *ranked) observe(key string, at time.Time) {
	if key == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[key]
	if !ok {
		state = &rankedState{}
		r.states[key] = state
	}
	state.count++
	if at.After(state.lastActivity) {
		state.lastActivity = at
	}
}

func (r *ranked) top(k int) []audit.RankedKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return selectTopK(r.states, k)
}

// Aggregator maintains rolling counters over the audit entry stream.
// It is derived state: losing it costs nothing because Rebuild replays
// the audit log. Each dimension carries its own lock; totals are
// atomics. Observe must be called at most once per entry — duplicate
// observation is a caller error, not something the aggregator dedupes.
type Aggregator struct {
	topK   int
	clock  audit.Clock
	policy audit.SensitivityPolicy

	totalCount     int64
	successCount   int64
	failureCount   int64
	sensitiveCount int64
	highRiskCount  int64

	hourly   *dimension
	daily    *dimension
	byAction *dimension
	byRes    *dimension
	byRisk   *dimension

	actors    *ranked
	sourceIPs *ranked
}

// NewAggregator creates an empty aggregator. topK <= 0 selects the
// default bound of 10. The policy must be the same one the recorder
// judges entries with, so SensitiveCount and SensitiveOnly queries
// never disagree.
func NewAggregator(topK int, clock audit.Clock, policy audit.SensitivityPolicy) *Aggregator {
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Aggregator{
		topK:      topK,
		clock:     clock,
		policy:    policy,
		hourly:    newDimension(),
		daily:     newDimension(),
		byAction:  newDimension(),
		byRes:     newDimension(),
		byRisk:    newDimension(),
		actors:    newRanked(),
		sourceIPs: newRanked(),
	}
}

// Observe applies one audit entry to the rolling counters. Safe for
// concurrent invocation from multiple batch executions.
func (a *Aggregator) Observe(entry *audit.Entry) {
	ts := entry.Timestamp.UTC()

	atomic.AddInt64(&a.totalCount, 1)
	switch entry.Outcome {
	case audit.OutcomeSuccess:
		atomic.AddInt64(&a.successCount, 1)
	case audit.OutcomeFailure:
		atomic.AddInt64(&a.failureCount, 1)
	}
	if a.policy.IsSensitive(entry) {
		atomic.AddInt64(&a.sensitiveCount, 1)
	}
	if entry.RiskLevel.AtLeast(audit.RiskHigh) {
		atomic.AddInt64(&a.highRiskCount, 1)
	}

	a.hourly.observe(ts.Format(hourlyKeyFormat), ts)
	a.daily.observe(ts.Format(dailyKeyFormat), ts)
	a.byAction.observe(entry.Action.String(), ts)
	a.byRes.observe(entry.ResourceType.String(), ts)
	a.byRisk.observe(entry.RiskLevel.String(), ts)
	a.actors.observe(entry.ActorID, ts)
	a.sourceIPs.observe(entry.SourceIP, ts)
}

// Snapshot produces the point-in-time read model. It never mutates
// aggregator state and is safe to call concurrently with Observe. Time
// buckets are restricted to windows intersecting the range; running
// sums and top-K breakdowns cover everything observed.
func (a *Aggregator) Snapshot(r audit.DateRange) *audit.Statistics {
	return &audit.Statistics{
		Range:       r,
		GeneratedAt: a.clock.Now(),

		TotalCount:     atomic.LoadInt64(&a.totalCount),
		SuccessCount:   atomic.LoadInt64(&a.successCount),
		FailureCount:   atomic.LoadInt64(&a.failureCount),
		SensitiveCount: atomic.LoadInt64(&a.sensitiveCount),
		HighRiskCount:  atomic.LoadInt64(&a.highRiskCount),

		ByAction:       a.byAction.snapshot(nil),
		ByResourceType: a.byRes.snapshot(nil),
		ByRiskLevel:    a.byRisk.snapshot(nil),
		HourlyBuckets:  a.hourly.snapshot(windowFilter(r, hourlyKeyFormat, time.Hour)),
		DailyBuckets:   a.daily.snapshot(windowFilter(r, dailyKeyFormat, 24*time.Hour)),

		TopActors:    a.actors.top(a.topK),
		TopSourceIPs: a.sourceIPs.top(a.topK),
	}
}

// EntrySource is the replay port used to rebuild lost aggregator state
// from the audit log
type EntrySource interface {
	Query(ctx context.Context, filter audit.EntryFilter) ([]*audit.Entry, error)
}

// Rebuild constructs a fresh aggregator by replaying the audit log over
// the given range, each entry observed exactly once. The result is
// identical to one that observed the same entries incrementally online.
func Rebuild(ctx context.Context, src EntrySource, r audit.DateRange, topK int, clock audit.Clock, policy audit.SensitivityPolicy) (*Aggregator, error) {
	entries, err := src.Query(ctx, audit.EntryFilter{Range: r})
	if err != nil {
		return nil, err
	}

	agg := NewAggregator(topK, clock, policy)
	for _, entry := range entries {
		agg.Observe(entry)
	}
	return agg, nil
}

// FromSnapshot reconstructs an aggregator from a persisted snapshot so
// a restart does not begin counting from zero. Running sums and
// dimension buckets restore exactly. Ranked breakdowns restore only the
// persisted top K, so long-tail actors and source IPs re-enter the
// ranking as new entries arrive; callers that need exact rankings
// rebuild from the log instead.
func FromSnapshot(snap *audit.Statistics, topK int, clock audit.Clock, policy audit.SensitivityPolicy) *Aggregator {
	agg := NewAggregator(topK, clock, policy)

	agg.totalCount = snap.TotalCount
	agg.successCount = snap.SuccessCount
	agg.failureCount = snap.FailureCount
	agg.sensitiveCount = snap.SensitiveCount
	agg.highRiskCount = snap.HighRiskCount

	restoreDimension(agg.byAction, snap.ByAction)
	restoreDimension(agg.byRes, snap.ByResourceType)
	restoreDimension(agg.byRisk, snap.ByRiskLevel)
	restoreDimension(agg.hourly, snap.HourlyBuckets)
	restoreDimension(agg.daily, snap.DailyBuckets)
	restoreRanked(agg.actors, snap.TopActors)
	restoreRanked(agg.sourceIPs, snap.TopSourceIPs)

	return agg
}

func restoreDimension(d *dimension, buckets []audit.Bucket) {
	for _, b := range buckets {
		d.buckets[b.Key] = &bucketState{count: b.Count, lastUpdated: b.LastUpdated}
	}
}

func restoreRanked(r *ranked, keys []audit.RankedKey) {
	for _, k := range keys {
		r.states[k.Key] = &rankedState{count: k.Count, lastActivity: k.LastActivity}
	}
}

// windowFilter includes only bucket keys whose window intersects the
// range. A window that has fully elapsed is immutable; late-arriving
// entries are not retrofitted into closed windows.
func windowFilter(r audit.DateRange, layout string, width time.Duration) func(string) bool {
	if r.From.IsZero() && r.To.IsZero() {
		return nil
	}

	return func(key string) bool {
		start, err := time.ParseInLocation(layout, key, time.UTC)
		if err != nil {
			return false
		}
		end := start.Add(width)

		if !r.From.IsZero() && !end.After(r.From) {
			return false
		}
		if !r.To.IsZero() && start.After(r.To) {
			return false
		}
		return true
	}
}
