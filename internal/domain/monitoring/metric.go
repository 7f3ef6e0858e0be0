package monitoring

import (
	"math"
	"time"

	"github.com/inkwellhq/inkwell-backend/internal/domain/errors"
)

// MetricSample is one observed value of a named metric
type MetricSample struct {
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Threshold holds the warning and critical boundaries for a metric
type Threshold struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

// Validate checks that the boundaries are finite and ordered
func (t Threshold) Validate() error {
	if math.IsNaN(t.Warning) || math.IsInf(t.Warning, 0) ||
		math.IsNaN(t.Critical) || math.IsInf(t.Critical, 0) {
		return errors.NewConfigurationError("INVALID_THRESHOLD",
			"threshold boundaries must be finite")
	}
	if t.Warning >= t.Critical {
		return errors.NewConfigurationError("INVALID_THRESHOLD",
			"warning boundary must be below critical boundary")
	}
	return nil
}

// Classification is the severity band of a sampled value
type Classification string

const (
	ClassHealthy  Classification = "healthy"
	ClassWarning  Classification = "warning"
	ClassCritical Classification = "critical"
)

// String returns the string representation of the classification
func (c Classification) String() string {
	return string(c)
}

// Classify places a value into a severity band. Boundary values belong to
// the higher-severity band: value == warning classifies as Warning,
// value == critical classifies as Critical.
func Classify(value float64, t Threshold) Classification {
	switch {
	case value >= t.Critical:
		return ClassCritical
	case value >= t.Warning:
		return ClassWarning
	default:
		return ClassHealthy
	}
}
