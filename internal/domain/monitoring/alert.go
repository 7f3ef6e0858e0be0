package monitoring

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// String returns the string representation of the severity
func (s Severity) String() string {
	return string(s)
}

// SeverityFor maps a classification onto an alert severity
func SeverityFor(c Classification) Severity {
	switch c {
	case ClassCritical:
		return SeverityCritical
	case ClassWarning:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Alert is a raised system-health condition with an operator-driven
// lifecycle: Raised -> Acknowledged -> Resolved, where acknowledgement is
// optional before resolution. There is no transition out of Resolved.
//
// Invariants: AcknowledgedAt is nil exactly when Acknowledged is false,
// ResolvedAt is nil exactly when Resolved is false. An alert may be
// resolved without ever being acknowledged.
type Alert struct {
	ID             uuid.UUID  `json:"id"`
	MetricName     string     `json:"metric_name"`
	Severity       Severity   `json:"severity"`
	Message        string     `json:"message"`
	RaisedAt       time.Time  `json:"raised_at"`
	Acknowledged   bool       `json:"acknowledged"`
	Resolved       bool       `json:"resolved"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// NewAlert raises a new alert for the given metric
func NewAlert(metricName string, severity Severity, message string, raisedAt time.Time) *Alert {
	return &Alert{
		ID:         uuid.New(),
		MetricName: metricName,
		Severity:   severity,
		Message:    message,
		RaisedAt:   raisedAt.UTC(),
	}
}

// Acknowledge marks the alert as acknowledged. Acknowledging an alert
// that is already acknowledged or resolved is a no-op, not an error.
// Returns true when a transition happened.
func (a *Alert) Acknowledge(now time.Time) bool {
	if a.Acknowledged || a.Resolved {
		return false
	}
	ts := now.UTC()
	a.Acknowledged = true
	a.AcknowledgedAt = &ts
	return true
}

// Resolve marks the alert as resolved. Prior acknowledgement is not
// required. Resolving an already-resolved alert is a no-op.
// Returns true when a transition happened.
func (a *Alert) Resolve(now time.Time) bool {
	if a.Resolved {
		return false
	}
	ts := now.UTC()
	a.Resolved = true
	a.ResolvedAt = &ts
	return true
}

// IsOpen reports whether the alert still demands attention
func (a *Alert) IsOpen() bool {
	return !a.Resolved
}

// Clone returns a copy safe to hand to callers
func (a *Alert) Clone() *Alert {
	clone := *a
	if a.AcknowledgedAt != nil {
		ts := *a.AcknowledgedAt
		clone.AcknowledgedAt = &ts
	}
	if a.ResolvedAt != nil {
		ts := *a.ResolvedAt
		clone.ResolvedAt = &ts
	}
	return &clone
}
