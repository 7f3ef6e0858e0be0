package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
)

// DateRange bounds a query or snapshot window. Zero values leave the
// corresponding side unbounded.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Validate checks that the range is well formed
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return errors.NewValidationError("INVALID_DATE_RANGE",
			"range end precedes range start")
	}
	return nil
}

// Contains reports whether t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// EntryFilter selects audit entries for queries. Zero-valued fields do
// not constrain the result. Results are ordered by timestamp descending
// unless stated otherwise by the repository.
type EntryFilter struct {
	ActorID       string
	Actions       []Action
	ResourceType  ResourceType
	RiskLevels    []RiskLevel
	Range         DateRange
	CorrelationID uuid.UUID

	// SensitiveOnly restricts results to entries the recorder's
	// sensitivity policy marks sensitive. Resolved by the recorder, not
	// the repository.
	SensitiveOnly bool

	Limit  int
	Offset int
}

// Validate checks filter bounds before a query is executed
func (f EntryFilter) Validate() error {
	if err := f.Range.Validate(); err != nil {
		return err
	}
	if f.Limit < 0 {
		return errors.NewValidationError("INVALID_LIMIT", "limit cannot be negative")
	}
	if f.Offset < 0 {
		return errors.NewValidationError("INVALID_OFFSET", "offset cannot be negative")
	}
	return nil
}

// Matches reports whether the entry satisfies all constraints of the
// filter. Limit and Offset are pagination concerns and ignored here.
func (f EntryFilter) Matches(e *Entry) bool {
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}

	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if e.Action == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}

	if len(f.RiskLevels) > 0 {
		found := false
		for _, rl := range f.RiskLevels {
			if e.RiskLevel == rl {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.CorrelationID != uuid.Nil && e.CorrelationID != f.CorrelationID {
		return false
	}

	return f.Range.Contains(e.Timestamp)
}
