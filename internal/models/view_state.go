package models

import (
	"encoding/json"
	"strconv"
)

// Setting keys the dashboard knows how to render.
const (
	SettingSystemMode    = "system_mode"
	SettingHeatingStatus = "heating_status"
	SettingDrumSpeed     = "tambor_velocidade"
)

// System modes reported in the system_mode setting.
const (
	ModeAutomatic = 0
	ModeManual    = 1
)

// Actuator names as reported by the backend.
const (
	ActuatorFan        = "ventilador"
	ActuatorHeater     = "resistencia"
	ActuatorScrew      = "motor_rosca"
	ActuatorCoolingFan = "ventilacao_resfriador"
	ActuatorDrumDir    = "tambor_dir"
	ActuatorDrumPulse  = "tambor_pul"
	ActuatorDrumEnable = "tambor_ena"
)

// ViewState mirrors the state last reported by the backend.
type ViewState struct {
	Settings  map[string]float64         `json:"settings"`
	Values    map[string]float64         `json:"values"`
	Actuators ActuatorSet                `json:"actuators"`
	Extra     map[string]json.RawMessage `json:"-"`
}

// NewViewState returns an empty state with all sections allocated.
func NewViewState() ViewState {
	return ViewState{
		Settings:  map[string]float64{},
		Values:    map[string]float64{},
		Actuators: ActuatorSet{},
		Extra:     map[string]json.RawMessage{},
	}
}

// Setting returns the named setting or def when missing.
func (s ViewState) Setting(name string, def float64) float64 {
	if v, ok := s.Settings[name]; ok {
		return v
	}
	return def
}

// ActuatorSet holds named actuator booleans.
type ActuatorSet map[string]bool

// DrumForward reports whether the drum is pulsing forward.
func (a ActuatorSet) DrumForward() bool { return a[ActuatorDrumPulse] && a[ActuatorDrumDir] }

// DrumReverse reports whether the drum is pulsing in reverse.
func (a ActuatorSet) DrumReverse() bool { return a[ActuatorDrumPulse] && !a[ActuatorDrumDir] }

// DrumStopped reports whether the drum pulse line is off.
func (a ActuatorSet) DrumStopped() bool { return !a[ActuatorDrumPulse] }

// StateUpdate is a partial or full snapshot pushed by the backend.
// A nil section means the section was absent from the message.
type StateUpdate struct {
	Settings  map[string]float64
	Values    map[string]float64
	Actuators ActuatorSet
	Extra     map[string]json.RawMessage
}

// UnmarshalJSON decodes a push payload, tolerating boolean settings and null values.
func (u *StateUpdate) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for key, section := range raw {
		switch key {
		case "settings":
			u.Settings = decodeNumbers(section)
		case "values":
			u.Values = decodeNumbers(section)
		case "actuators":
			acts := ActuatorSet{}
			var m map[string]json.RawMessage
			if err := json.Unmarshal(section, &m); err != nil {
				return err
			}
			for name, v := range m {
				acts[name] = truthy(v)
			}
			u.Actuators = acts
		default:
			if u.Extra == nil {
				u.Extra = map[string]json.RawMessage{}
			}
			u.Extra[key] = section
		}
	}
	return nil
}

// decodeNumbers keeps numeric and boolean entries; anything else is dropped.
func decodeNumbers(section json.RawMessage) map[string]float64 {
	out := map[string]float64{}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(section, &m); err != nil {
		return out
	}
	for name, v := range m {
		if f, ok := number(v); ok {
			out[name] = f
		}
	}
	return out
}

func number(v json.RawMessage) (float64, bool) {
	if string(v) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, true
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		if b {
			return 1, true
		}
		return 0, true
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func truthy(v json.RawMessage) bool {
	f, ok := number(v)
	return ok && f != 0
}
