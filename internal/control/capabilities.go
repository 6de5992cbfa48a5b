package control

import (
	"fmt"
	"strings"

	"kiln_dashboard/internal/config"
	"kiln_dashboard/internal/models"
)

// Interaction is how binary controls respond to the pointer.
type Interaction string

const (
	// Latched controls flip on click and stay until clicked again.
	Latched Interaction = "latched"
	// Momentary controls are active only while held.
	Momentary Interaction = "momentary"
)

// Control identifiers as exposed to the shell.
const (
	ControlFan         = "fan"
	ControlScrew       = "screw"
	ControlHeater      = "heater"
	ControlCoolingFan  = "cooling_fan"
	ControlDrumForward = "drum_forward"
	ControlDrumReverse = "drum_reverse"
)

// Capabilities describes the control-panel variant of one installation.
type Capabilities struct {
	Interaction          Interaction
	CoolingFan           bool
	DrumEnable           bool
	ConsolidatedPressure bool
}

// CapabilitiesFrom resolves the configured variant.
func CapabilitiesFrom(c config.Capabilities) (Capabilities, error) {
	in := Interaction(strings.ToLower(strings.TrimSpace(c.Interaction)))
	switch in {
	case "":
		in = Latched
	case Latched, Momentary:
	default:
		return Capabilities{}, fmt.Errorf("unknown interaction %q", c.Interaction)
	}
	return Capabilities{
		Interaction:          in,
		CoolingFan:           c.CoolingFan,
		DrumEnable:           c.DrumEnable,
		ConsolidatedPressure: c.ConsolidatedPressure,
	}, nil
}

// Controls lists the controls present in this variant, in panel order.
func (c Capabilities) Controls() []string {
	out := []string{ControlFan, ControlScrew, ControlHeater}
	if c.CoolingFan {
		out = append(out, ControlCoolingFan)
	}
	return append(out, ControlDrumForward, ControlDrumReverse)
}

// binaryTarget maps a single-actuator control to its actuator name.
func (c Capabilities) binaryTarget(control string) (string, bool) {
	switch control {
	case ControlFan:
		return models.ActuatorFan, true
	case ControlScrew:
		return models.ActuatorScrew, true
	case ControlHeater:
		return models.ActuatorHeater, true
	case ControlCoolingFan:
		return models.ActuatorCoolingFan, c.CoolingFan
	}
	return "", false
}

// ManualEnabled reports whether manual affordances are shown for a snapshot.
// It is a display concern only; the backend decides whether commands apply.
func ManualEnabled(state models.ViewState) bool {
	return state.Setting(models.SettingSystemMode, models.ModeAutomatic) == models.ModeManual
}
