package store

import (
	"encoding/json"
	"testing"

	"kiln_dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) models.StateUpdate {
	t.Helper()
	var u models.StateUpdate
	require.NoError(t, json.Unmarshal([]byte(s), &u))
	return u
}

func TestStore_MergeReplacesPresentSectionsOnly(t *testing.T) {
	s := New()
	s.Merge(decode(t, `{
		"settings": {"system_mode": 1, "temp_min": 300, "heating_on": true, "label": "x"},
		"values": {"Temp Forno": 351.2, "Pressão Gases": null},
		"actuators": {"ventilador": true, "tambor_pul": false},
		"timers": {"resistencia_start_time": null}
	}`))

	got := s.Merge(decode(t, `{"values": {"Temp Forno": 352.0}}`))

	assert.Equal(t, 1.0, got.Settings["system_mode"])
	assert.Equal(t, 1.0, got.Settings["heating_on"], "booleans coerce to 1")
	assert.NotContains(t, got.Settings, "label", "non-numeric settings are dropped")
	assert.Equal(t, map[string]float64{"Temp Forno": 352.0}, got.Values)
	assert.True(t, got.Actuators["ventilador"])
	assert.Contains(t, got.Extra, "timers")
}

func TestStore_UnknownSettingKeysRetained(t *testing.T) {
	s := New()
	s.Merge(decode(t, `{"settings": {"future_knob": 7}}`))
	assert.Equal(t, 7.0, s.Setting("future_knob", 0))
	assert.Equal(t, 0.0, s.Setting("missing", 0))
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := New()
	s.Merge(decode(t, `{"actuators": {"ventilador": true}}`))

	snap := s.Snapshot()
	snap.Actuators["ventilador"] = false

	assert.True(t, s.Actuators()["ventilador"])
}

func TestActuatorSet_DrumDerivedStates(t *testing.T) {
	cases := []struct {
		name             string
		set              models.ActuatorSet
		fwd, rev, stoppd bool
	}{
		{"stopped", models.ActuatorSet{}, false, false, true},
		{"stopped with dir", models.ActuatorSet{"tambor_dir": true}, false, false, true},
		{"forward", models.ActuatorSet{"tambor_dir": true, "tambor_pul": true}, true, false, false},
		{"reverse", models.ActuatorSet{"tambor_pul": true}, false, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.fwd, tc.set.DrumForward())
			assert.Equal(t, tc.rev, tc.set.DrumReverse())
			assert.Equal(t, tc.stoppd, tc.set.DrumStopped())
		})
	}
}
