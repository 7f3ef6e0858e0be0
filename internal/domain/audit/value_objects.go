package audit

import (
	"fmt"
	"strings"

	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
)

// Action represents an administrative verb recorded in the audit log.
// Following Inkwell patterns: immutable value object with validation
type Action string

const (
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionPublish        Action = "publish"
	ActionUnpublish      Action = "unpublish"
	ActionDelete         Action = "delete"
	ActionSuspend        Action = "suspend"
	ActionActivate       Action = "activate"
	ActionBan            Action = "ban"
	ActionTag            Action = "tag"
	ActionFeature        Action = "feature"
	ActionArchive        Action = "archive"
	ActionExport         Action = "export"
	ActionLogin          Action = "login"
	ActionSettingsChange Action = "settings_change"
)

// NewAction creates a new Action value object with validation
func NewAction(action string) (Action, error) {
	if action == "" {
		return "", errors.NewValidationError("EMPTY_ACTION",
			"action cannot be empty")
	}

	normalized := Action(strings.ToLower(strings.TrimSpace(action)))

	if !normalized.IsValid() {
		return "", errors.NewValidationError("INVALID_ACTION",
			fmt.Sprintf("invalid action: %s", action))
	}

	return normalized, nil
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// IsValid checks if the action is valid
func (a Action) IsValid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionPublish, ActionUnpublish,
		ActionDelete, ActionSuspend, ActionActivate, ActionBan, ActionTag,
		ActionFeature, ActionArchive, ActionExport, ActionLogin,
		ActionSettingsChange:
		return true
	default:
		return false
	}
}

// IsDestructive returns true if the action removes or revokes access to data
func (a Action) IsDestructive() bool {
	switch a {
	case ActionDelete, ActionSuspend, ActionBan:
		return true
	default:
		return false
	}
}

// ResourceType represents the type of entity an administrative action targets
type ResourceType string

const (
	ResourcePost     ResourceType = "post"
	ResourceComment  ResourceType = "comment"
	ResourceUser     ResourceType = "user"
	ResourceTag      ResourceType = "tag"
	ResourceCategory ResourceType = "category"
	ResourceMedia    ResourceType = "media"
	ResourceSetting  ResourceType = "setting"
	ResourceReport   ResourceType = "report"
)

// NewResourceType creates a new ResourceType value object with validation
func NewResourceType(resourceType string) (ResourceType, error) {
	if resourceType == "" {
		return "", errors.NewValidationError("EMPTY_RESOURCE_TYPE",
			"resource type cannot be empty")
	}

	normalized := ResourceType(strings.ToLower(strings.TrimSpace(resourceType)))

	if !normalized.IsValid() {
		return "", errors.NewValidationError("INVALID_RESOURCE_TYPE",
			fmt.Sprintf("invalid resource type: %s", resourceType))
	}

	return normalized, nil
}

// String returns the string representation of the resource type
func (rt ResourceType) String() string {
	return string(rt)
}

// IsValid checks if the resource type is valid
func (rt ResourceType) IsValid() bool {
	switch rt {
	case ResourcePost, ResourceComment, ResourceUser, ResourceTag,
		ResourceCategory, ResourceMedia, ResourceSetting, ResourceReport:
		return true
	default:
		return false
	}
}

// IsSensitive returns true if the resource type carries PII or
// platform-wide configuration
func (rt ResourceType) IsSensitive() bool {
	switch rt {
	case ResourceUser, ResourceMedia, ResourceSetting:
		return true
	default:
		return false
	}
}

// Outcome represents the result of a recorded action
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// NewOutcome creates a new Outcome value object with validation
func NewOutcome(outcome string) (Outcome, error) {
	normalized := Outcome(strings.ToLower(strings.TrimSpace(outcome)))

	if !normalized.IsValid() {
		return "", errors.NewValidationError("INVALID_OUTCOME",
			fmt.Sprintf("invalid outcome: %s", outcome))
	}

	return normalized, nil
}

// String returns the string representation of the outcome
func (o Outcome) String() string {
	return string(o)
}

// IsValid checks if the outcome is valid
func (o Outcome) IsValid() bool {
	return o == OutcomeSuccess || o == OutcomeFailure
}

// RiskLevel is the ordinal risk classification attached to an audit entry
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// NewRiskLevel creates a new RiskLevel value object with validation
func NewRiskLevel(level string) (RiskLevel, error) {
	normalized := RiskLevel(strings.ToLower(strings.TrimSpace(level)))

	if !normalized.IsValid() {
		return "", errors.NewValidationError("INVALID_RISK_LEVEL",
			fmt.Sprintf("invalid risk level: %s", level))
	}

	return normalized, nil
}

// String returns the string representation of the risk level
func (rl RiskLevel) String() string {
	return string(rl)
}

// IsValid checks if the risk level is valid
func (rl RiskLevel) IsValid() bool {
	switch rl {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	default:
		return false
	}
}

// ordinal maps risk levels onto a comparable scale
func (rl RiskLevel) ordinal() int {
	switch rl {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return -1
	}
}

// AtLeast returns true if the risk level is at or above the given level
func (rl RiskLevel) AtLeast(other RiskLevel) bool {
	return rl.ordinal() >= other.ordinal()
}

// Max returns the higher of two risk levels
func (rl RiskLevel) Max(other RiskLevel) RiskLevel {
	if other.ordinal() > rl.ordinal() {
		return other
	}
	return rl
}

// ComplianceFlag tags an entry with a compliance-relevant property
type ComplianceFlag string

const (
	FlagPIIAccess          ComplianceFlag = "pii_access"
	FlagDestructiveAction  ComplianceFlag = "destructive_action"
	FlagRepeatedFailure    ComplianceFlag = "repeated_failure"
	FlagPrivilegedResource ComplianceFlag = "privileged_resource"
	FlagBulkOperation      ComplianceFlag = "bulk_operation"
)

// String returns the string representation of the compliance flag
func (cf ComplianceFlag) String() string {
	return string(cf)
}

// HasFlag reports whether flags contains the given flag
func HasFlag(flags []ComplianceFlag, flag ComplianceFlag) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
