package audit

// SensitivityPolicy decides which entries count as sensitive. The base
// derivation of Entry.IsSensitive (high risk or destructive action)
// always applies; a configured action set extends it. The zero value
// applies the base derivation only.
//
// Every consumer of sensitivity — query filtering and statistics alike —
// must judge entries through the same policy so counts and query
// results agree.
type SensitivityPolicy struct {
	actions map[Action]struct{}
}

// NewSensitivityPolicy builds a policy extended by the given actions
func NewSensitivityPolicy(actions []Action) SensitivityPolicy {
	if len(actions) == 0 {
		return SensitivityPolicy{}
	}

	set := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return SensitivityPolicy{actions: set}
}

// IsSensitive reports whether the entry is sensitive under this policy
func (p SensitivityPolicy) IsSensitive(e *Entry) bool {
	if e.IsSensitive() {
		return true
	}
	_, ok := p.actions[e.Action]
	return ok
}
