package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
)

// Draft carries the caller-supplied fields of an audit entry before the
// recorder assigns identity, timestamp and risk classification.
type Draft struct {
	ActorID       string // empty for system actions
	Action        Action
	ResourceType  ResourceType
	ResourceID    string
	Outcome       Outcome
	ErrorMessage  string
	SourceIP      string
	CorrelationID uuid.UUID
	RefID         *uuid.UUID // references a prior entry being corrected
	ExtraFlags    []ComplianceFlag
}

// Entry represents an immutable audit log entry. Corrections are modeled
// as new entries referencing the original through RefID; past entries are
// never mutated.
type Entry struct {
	ID            uuid.UUID        `json:"id"`
	ActorID       string           `json:"actor_id,omitempty"`
	Action        Action           `json:"action"`
	ResourceType  ResourceType     `json:"resource_type"`
	ResourceID    string           `json:"resource_id"`
	Timestamp     time.Time        `json:"timestamp"`
	Outcome       Outcome          `json:"outcome"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	RiskLevel     RiskLevel        `json:"risk_level"`
	Flags         []ComplianceFlag `json:"compliance_flags,omitempty"`
	SourceIP      string           `json:"source_ip,omitempty"`
	CorrelationID uuid.UUID        `json:"correlation_id"`
	RefID         *uuid.UUID       `json:"ref_id,omitempty"`
}

// NewEntry creates a new audit entry from a draft with validation.
// Following Inkwell patterns: all validation in domain constructors.
func NewEntry(draft Draft, now time.Time) (*Entry, error) {
	if !draft.Action.IsValid() {
		return nil, errors.NewValidationError("INVALID_ACTION",
			"action must be valid")
	}

	if !draft.ResourceType.IsValid() {
		return nil, errors.NewValidationError("INVALID_RESOURCE_TYPE",
			"resource type must be valid")
	}

	if draft.ResourceID == "" {
		return nil, errors.NewValidationError("MISSING_RESOURCE_ID",
			"resource ID is required")
	}

	if !draft.Outcome.IsValid() {
		return nil, errors.NewValidationError("INVALID_OUTCOME",
			"outcome must be success or failure")
	}

	if draft.Outcome == OutcomeSuccess && draft.ErrorMessage != "" {
		return nil, errors.NewValidationError("UNEXPECTED_ERROR_MESSAGE",
			"successful entries cannot carry an error message")
	}

	if draft.Outcome == OutcomeFailure && draft.ErrorMessage == "" {
		return nil, errors.NewValidationError("MISSING_ERROR_MESSAGE",
			"failed entries must carry an error message")
	}

	correlationID := draft.CorrelationID
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}

	entry := &Entry{
		ID:            uuid.New(),
		ActorID:       draft.ActorID,
		Action:        draft.Action,
		ResourceType:  draft.ResourceType,
		ResourceID:    draft.ResourceID,
		Timestamp:     now.UTC(),
		Outcome:       draft.Outcome,
		ErrorMessage:  draft.ErrorMessage,
		RiskLevel:     RiskLow,
		SourceIP:      draft.SourceIP,
		CorrelationID: correlationID,
		RefID:         draft.RefID,
	}

	if len(draft.ExtraFlags) > 0 {
		entry.Flags = append(entry.Flags, draft.ExtraFlags...)
	}

	return entry, nil
}

// IsSystemAction returns true when no human actor performed the action
func (e *Entry) IsSystemAction() bool {
	return e.ActorID == ""
}

// IsSensitive reports whether the entry is high risk or performs a
// destructive action
func (e *Entry) IsSensitive() bool {
	return e.RiskLevel.AtLeast(RiskHigh) || e.Action.IsDestructive()
}

// Clone returns a deep copy so callers can hand entries out without
// exposing the stored value to mutation
func (e *Entry) Clone() *Entry {
	clone := *e
	if e.Flags != nil {
		clone.Flags = make([]ComplianceFlag, len(e.Flags))
		copy(clone.Flags, e.Flags)
	}
	if e.RefID != nil {
		ref := *e.RefID
		clone.RefID = &ref
	}
	return &clone
}
