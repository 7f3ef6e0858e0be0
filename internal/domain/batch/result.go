package batch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
)

// PayloadKind discriminates the closed set of payload shapes an operation
// may attach to an item result. Open-ended payloads carry raw JSON plus a
// schema version rather than an untyped value.
type PayloadKind string

const (
	PayloadNone       PayloadKind = "none"
	PayloadModeration PayloadKind = "moderation"
	PayloadUserState  PayloadKind = "user_state"
	PayloadTagging    PayloadKind = "tagging"
	PayloadOpaque     PayloadKind = "opaque"
)

// Payload is the tagged result value of one item operation
type Payload struct {
	Kind          PayloadKind     `json:"kind"`
	SchemaVersion int             `json:"schema_version,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// ItemResult records the outcome of one target within a batch.
// Invariant: Success implies Error is empty.
type ItemResult struct {
	TargetID string   `json:"target_id"`
	Success  bool     `json:"success"`
	Skipped  bool     `json:"skipped,omitempty"`
	Error    string   `json:"error,omitempty"`
	Payload  *Payload `json:"payload,omitempty"`
}

// OperationResult aggregates a whole batch invocation. Mutable only
// inside the result builder; immutable once returned to the caller.
// Invariant: SuccessCount+FailCount+SkippedCount == TotalCount == len(ItemResults).
type OperationResult struct {
	TotalCount   int           `json:"total_count"`
	SuccessCount int           `json:"success_count"`
	FailCount    int           `json:"fail_count"`
	SkippedCount int           `json:"skipped_count"`
	ItemResults  []ItemResult  `json:"item_results"`
	Duration     time.Duration `json:"duration"`
	Errors       []string      `json:"errors,omitempty"`

	CorrelationID uuid.UUID `json:"correlation_id"`

	// AuditDegraded is set when the batch completed but one or more
	// audit writes failed. The result itself is still authoritative.
	AuditDegraded bool `json:"audit_degraded,omitempty"`
}

// ResultBuilder assembles an OperationResult with slots pre-sized to the
// target list, so concurrent workers can write at their target's original
// index and item order always mirrors input order.
type ResultBuilder struct {
	items         []ItemResult
	filled        []bool
	correlationID uuid.UUID
	startedAt     time.Time
}

// NewResultBuilder creates a builder for a batch over n targets
func NewResultBuilder(n int, correlationID uuid.UUID, startedAt time.Time) *ResultBuilder {
	return &ResultBuilder{
		items:         make([]ItemResult, n),
		filled:        make([]bool, n),
		correlationID: correlationID,
		startedAt:     startedAt,
	}
}

// SetSuccess records a successful item at its original index
func (b *ResultBuilder) SetSuccess(index int, targetID string, payload *Payload) {
	b.items[index] = ItemResult{TargetID: targetID, Success: true, Payload: payload}
	b.filled[index] = true
}

// SetFailure records a failed item at its original index
func (b *ResultBuilder) SetFailure(index int, targetID, errMsg string) {
	b.items[index] = ItemResult{TargetID: targetID, Error: errMsg}
	b.filled[index] = true
}

// SetSkipped records an item that was never attempted
func (b *ResultBuilder) SetSkipped(index int, targetID string) {
	b.items[index] = ItemResult{TargetID: targetID, Skipped: true}
	b.filled[index] = true
}

// Build assembles the final result and enforces the count invariant.
// An unfilled slot means the executor lost track of an item, which is a
// programming bug surfaced as an error rather than a silent bad count.
func (b *ResultBuilder) Build(endedAt time.Time) (*OperationResult, error) {
	result := &OperationResult{
		TotalCount:    len(b.items),
		ItemResults:   b.items,
		Duration:      endedAt.Sub(b.startedAt),
		CorrelationID: b.correlationID,
	}

	seen := make(map[string]struct{})
	for i, item := range b.items {
		if !b.filled[i] {
			return nil, errors.NewBusinessError("UNACCOUNTED_ITEM",
				fmt.Sprintf("no outcome recorded for item %d (%s)", i, item.TargetID))
		}

		switch {
		case item.Skipped:
			result.SkippedCount++
		case item.Success:
			result.SuccessCount++
		default:
			result.FailCount++
			if _, dup := seen[item.Error]; !dup && item.Error != "" {
				seen[item.Error] = struct{}{}
				result.Errors = append(result.Errors, item.Error)
			}
		}
	}

	if result.SuccessCount+result.FailCount+result.SkippedCount != result.TotalCount {
		return nil, errors.NewBusinessError("COUNT_MISMATCH",
			"item counts do not sum to total")
	}

	return result, nil
}
