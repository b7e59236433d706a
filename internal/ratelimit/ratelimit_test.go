package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Observe_EmitsOneWarningPerThresholdCrossing(t *testing.T) {
	tr := NewTracker()

	warnings := tr.Observe(Snapshot{Primary: &WindowSnapshot{UsedPercent: 80, WindowMinutes: 300}})
	require.Len(t, warnings, 1)
	assert.Equal(t, 75, warnings[0].Threshold)
	assert.Equal(t, WindowPrimary, warnings[0].Window)

	// Same window, still under 90: no new warning.
	warnings = tr.Observe(Snapshot{Primary: &WindowSnapshot{UsedPercent: 82, WindowMinutes: 300}})
	assert.Empty(t, warnings)

	warnings = tr.Observe(Snapshot{Primary: &WindowSnapshot{UsedPercent: 91, WindowMinutes: 300}})
	require.Len(t, warnings, 1)
	assert.Equal(t, 90, warnings[0].Threshold)
}

func TestTracker_Observe_SuppressesRepeatsAfter100Percent(t *testing.T) {
	tr := NewTracker()

	warnings := tr.Observe(Snapshot{Primary: &WindowSnapshot{UsedPercent: 100, WindowMinutes: 300}})
	require.Len(t, warnings, 1)
	assert.Equal(t, 100, warnings[0].Threshold)

	warnings = tr.Observe(Snapshot{Primary: &WindowSnapshot{UsedPercent: 100, WindowMinutes: 300}})
	assert.Empty(t, warnings)
}

func TestTracker_Observe_PrimaryAndSecondaryIndependent(t *testing.T) {
	tr := NewTracker()

	warnings := tr.Observe(Snapshot{
		Primary:   &WindowSnapshot{UsedPercent: 95, WindowMinutes: 300},
		Secondary: &WindowSnapshot{UsedPercent: 10, WindowMinutes: 10080},
	})
	require.Len(t, warnings, 1)
	assert.Equal(t, WindowPrimary, warnings[0].Window)
	assert.Equal(t, 95, warnings[0].Threshold)

	warnings = tr.Observe(Snapshot{Secondary: &WindowSnapshot{UsedPercent: 76, WindowMinutes: 10080}})
	require.Len(t, warnings, 1)
	assert.Equal(t, WindowSecondary, warnings[0].Window)
	assert.Equal(t, 75, warnings[0].Threshold)
}

func TestTracker_Observe_SkipsIntermediateThresholdsInOneJump(t *testing.T) {
	tr := NewTracker()
	warnings := tr.Observe(Snapshot{Primary: &WindowSnapshot{UsedPercent: 97, WindowMinutes: 300}})
	require.Len(t, warnings, 1)
	assert.Equal(t, 95, warnings[0].Threshold)
	assert.Equal(t, 95, tr.HighestWarned(WindowPrimary))
}

func TestTokenUsageInfo_AddTurn_AccumulatesTotal(t *testing.T) {
	u := &TokenUsageInfo{}
	u.AddTurn(100)
	u.AddTurn(50)
	assert.Equal(t, int64(150), u.Total)
	assert.Equal(t, int64(50), u.LastTurn)
}
