package monitoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	threshold := Threshold{Warning: 70, Critical: 90}

	tests := []struct {
		name  string
		value float64
		want  Classification
	}{
		{"well below warning", 10, ClassHealthy},
		{"just below warning", 69.9, ClassHealthy},
		{"at warning boundary", 70, ClassWarning},
		{"between bands", 80, ClassWarning},
		{"just below critical", 89.9, ClassWarning},
		{"at critical boundary", 90, ClassCritical},
		{"above critical", 92, ClassCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.value, threshold))
		})
	}
}

func TestThreshold_Validate(t *testing.T) {
	require.NoError(t, Threshold{Warning: 70, Critical: 90}.Validate())

	assert.Error(t, Threshold{Warning: 90, Critical: 70}.Validate())
	assert.Error(t, Threshold{Warning: 70, Critical: 70}.Validate())
	assert.Error(t, Threshold{Warning: math.NaN(), Critical: 90}.Validate())
	assert.Error(t, Threshold{Warning: 70, Critical: math.Inf(1)}.Validate())
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, SeverityCritical, SeverityFor(ClassCritical))
	assert.Equal(t, SeverityWarning, SeverityFor(ClassWarning))
	assert.Equal(t, SeverityInfo, SeverityFor(ClassHealthy))
}
