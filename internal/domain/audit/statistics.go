package audit

import "time"

// Bucket is a counting structure for one key of one dimension. Counts are
// monotonically non-decreasing within the bucket's window; a bucket whose
// window has fully elapsed is immutable (late-arriving entries are not
// retrofitted into closed windows).
type Bucket struct {
	Key         string    `json:"key"`
	Count       int64     `json:"count"`
	LastUpdated time.Time `json:"last_updated"`
}

// RankedKey is one element of a top-K breakdown
type RankedKey struct {
	Key          string    `json:"key"`
	Count        int64     `json:"count"`
	LastActivity time.Time `json:"last_activity"`
}

// Statistics is the point-in-time read model produced by the stats
// aggregator and consumed by admin dashboards. It is derived state,
// rebuildable from the audit log, never a source of truth.
type Statistics struct {
	Range       DateRange `json:"range"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalCount     int64 `json:"total_count"`
	SuccessCount   int64 `json:"success_count"`
	FailureCount   int64 `json:"failure_count"`
	SensitiveCount int64 `json:"sensitive_count"`
	HighRiskCount  int64 `json:"high_risk_count"`

	ByAction       []Bucket `json:"by_action"`
	ByResourceType []Bucket `json:"by_resource_type"`
	ByRiskLevel    []Bucket `json:"by_risk_level"`
	HourlyBuckets  []Bucket `json:"hourly_buckets"`
	DailyBuckets   []Bucket `json:"daily_buckets"`

	TopActors    []RankedKey `json:"top_actors"`
	TopSourceIPs []RankedKey `json:"top_source_ips"`
}
