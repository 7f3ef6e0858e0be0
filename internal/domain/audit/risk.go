package audit

// RiskScorer classifies an action's risk and compliance flags. Pure and
// deterministic: the same inputs always produce the same classification,
// no I/O, no clock access.
type RiskScorer struct {
	// priorFailureThreshold is the number of failures by the same actor
	// within the risk window that escalates the classification to High.
	priorFailureThreshold int
}

// NewRiskScorer creates a scorer with the baseline rule set
func NewRiskScorer() *RiskScorer {
	return &RiskScorer{priorFailureThreshold: 3}
}

// Score maps an action's metadata to a risk level and compliance flags.
//
// Baseline rules:
//   - a failed destructive action (delete, suspend, ban) scores at least Medium
//   - a ban scores at least Medium even on success
//   - priorFailures at or above the threshold escalates to High
//   - an action against a PII-bearing resource adds FlagPIIAccess
//     regardless of outcome
func (s *RiskScorer) Score(action Action, resourceType ResourceType, outcome Outcome, priorFailures int) (RiskLevel, []ComplianceFlag) {
	level := RiskLow
	var flags []ComplianceFlag

	if action.IsDestructive() {
		flags = append(flags, FlagDestructiveAction)
		if outcome == OutcomeFailure {
			level = level.Max(RiskMedium)
		}
	}

	if action == ActionBan {
		level = level.Max(RiskMedium)
	}

	if priorFailures >= s.priorFailureThreshold {
		level = level.Max(RiskHigh)
		flags = append(flags, FlagRepeatedFailure)
	}

	if resourceType.IsSensitive() {
		flags = append(flags, FlagPIIAccess)
	}

	if resourceType == ResourceSetting {
		flags = append(flags, FlagPrivilegedResource)
		level = level.Max(RiskMedium)
	}

	// A failed, repeatedly-failing destructive action on a sensitive
	// resource is the worst observable combination.
	if outcome == OutcomeFailure && action.IsDestructive() &&
		priorFailures >= s.priorFailureThreshold && resourceType.IsSensitive() {
		level = RiskCritical
	}

	return level, flags
}
