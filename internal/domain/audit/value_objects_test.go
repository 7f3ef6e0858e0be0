package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAction(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Action
		wantErr bool
	}{
		{"valid action", "approve", ActionApprove, false},
		{"normalizes case and whitespace", "  Suspend ", ActionSuspend, false},
		{"empty", "", "", true},
		{"unknown", "explode", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAction(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAction_IsDestructive(t *testing.T) {
	destructive := []Action{ActionDelete, ActionSuspend, ActionBan}
	for _, a := range destructive {
		assert.True(t, a.IsDestructive(), a.String())
	}

	benign := []Action{ActionApprove, ActionReject, ActionPublish, ActionTag, ActionExport}
	for _, a := range benign {
		assert.False(t, a.IsDestructive(), a.String())
	}
}

func TestNewResourceType(t *testing.T) {
	rt, err := NewResourceType("Post")
	require.NoError(t, err)
	assert.Equal(t, ResourcePost, rt)

	_, err = NewResourceType("spaceship")
	require.Error(t, err)

	_, err = NewResourceType("")
	require.Error(t, err)
}

func TestResourceType_IsSensitive(t *testing.T) {
	assert.True(t, ResourceUser.IsSensitive())
	assert.True(t, ResourceMedia.IsSensitive())
	assert.True(t, ResourceSetting.IsSensitive())
	assert.False(t, ResourcePost.IsSensitive())
	assert.False(t, ResourceComment.IsSensitive())
}

func TestNewRiskLevel(t *testing.T) {
	rl, err := NewRiskLevel("HIGH")
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, rl)

	_, err = NewRiskLevel("extreme")
	require.Error(t, err)
}

func TestHasFlag(t *testing.T) {
	flags := []ComplianceFlag{FlagPIIAccess, FlagBulkOperation}
	assert.True(t, HasFlag(flags, FlagPIIAccess))
	assert.False(t, HasFlag(flags, FlagRepeatedFailure))
	assert.False(t, HasFlag(nil, FlagPIIAccess))
}
