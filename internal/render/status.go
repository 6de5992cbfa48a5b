package render

import (
	"fmt"
	"strconv"

	"kiln_dashboard/internal/control"
	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/surface"
)

// liveDisplays maps backend value names to their readout widgets.
var liveDisplays = []struct {
	value string
	id    string
	q     Quantity
}{
	{"Temp Forno", "display_temp_forno", Temperature},
	{"Torre Nível 1", "display_temp_torre1", Temperature},
	{"Torre Nível 2", "display_temp_torre2", Temperature},
	{"Torre Nível 3", "display_temp_torre3", Temperature},
	{"Temp Tanque", "display_temp_tanque", Temperature},
	{"Temp Saída Gases", "display_temp_gases", Temperature},
	{"Pressão Gases", "display_pressao_gases", Pressure},
	{"Velocidade", "display_velocidade", Velocity},
}

// LiveDisplayIDs lists the readout widgets ControlPanel can fill.
func LiveDisplayIDs() []string {
	ids := make([]string, 0, len(liveDisplays))
	for _, d := range liveDisplays {
		ids = append(ids, d.id)
	}
	return ids
}

var manualButtons = []struct {
	id       string
	actuator string
}{
	{IDManualFan, models.ActuatorFan},
	{IDManualScrew, models.ActuatorScrew},
	{IDManualHeater, models.ActuatorHeater},
	{IDManualCooling, models.ActuatorCoolingFan},
}

// StatusActuators are the actuators with an ON/OFF badge.
var StatusActuators = []string{
	models.ActuatorFan,
	models.ActuatorHeater,
	models.ActuatorScrew,
	models.ActuatorCoolingFan,
}

// ControlPanel paints the last received snapshot: setting fields, mode,
// heating button, manual affordances, live readouts and actuator badges.
// Widgets a variant does not declare are skipped.
func (r *Renderer) ControlPanel(st models.ViewState, unit format.PressureUnit) {
	for name, v := range st.Settings {
		value := strconv.FormatFloat(v, 'f', -1, 64)
		r.page.Update(name, func(w *surface.Widget) { w.Value = value })
	}

	manual := control.ManualEnabled(st)
	r.page.Update(IDSystemMode, func(w *surface.Widget) {
		if manual {
			w.Value, w.Text = strconv.Itoa(models.ModeManual), "Manual"
		} else {
			w.Value, w.Text = strconv.Itoa(models.ModeAutomatic), "Automatic"
		}
	})
	r.page.Update(IDManualControls, func(w *surface.Widget) { w.Disabled = !manual })

	heating := st.Setting(models.SettingHeatingStatus, 0) == 1
	r.page.Update(IDHeatingButton, func(w *surface.Widget) {
		w.Active = heating
		if heating {
			w.Text, w.Class, w.Icon = "Heating on", "btn-success", "fa-check"
		} else {
			w.Text, w.Class, w.Icon = "Turn heating on", "btn-danger", "fa-power-off"
		}
	})

	act := st.Actuators
	for _, b := range manualButtons {
		on := act[b.actuator]
		r.page.Update(b.id, func(w *surface.Widget) {
			w.Disabled = !manual
			if manual {
				w.Active = on
			}
			w.Value = onOff(on, "On", "Off")
			w.Class = onOff(on, "btn-success", "btn-outline-success")
		})
	}
	for _, d := range []struct {
		id     string
		active bool
	}{{IDManualDrumFwd, act.DrumForward()}, {IDManualDrumRev, act.DrumReverse()}} {
		r.page.Update(d.id, func(w *surface.Widget) {
			w.Disabled = !manual
			if manual {
				w.Active = d.active
			}
		})
	}

	for _, d := range liveDisplays {
		v, ok := st.Values[d.value]
		if !ok {
			continue
		}
		var text string
		switch d.q {
		case Temperature:
			text = fmt.Sprintf("%s °C", format.Fixed(v, format.TemperaturePlaces))
		case Pressure:
			text = format.Pressure(&v, unit)
		default:
			text = format.Velocity(&v)
		}
		r.page.SetText(d.id, text)
	}

	for _, name := range StatusActuators {
		on := act[name]
		r.page.SetBadge(StatusID(name), onOff(on, "ON", "OFF"), onOff(on, "badge bg-success", "badge bg-secondary"))
	}
	r.page.SetBadge(IDDrumStatus, onOff(!act.DrumStopped(), "ON", "OFF"),
		onOff(!act.DrumStopped(), "badge bg-success", "badge bg-secondary"))

	icon, text, class := "fa-stop", "STOPPED", "badge bg-secondary"
	switch {
	case act.DrumForward():
		icon, text, class = "fa-arrow-right", "FORWARD", "badge bg-primary"
	case act.DrumReverse():
		icon, text, class = "fa-arrow-left", "REVERSE", "badge bg-warning"
	}
	r.page.Update(IDDrumDirIcon, func(w *surface.Widget) { w.Icon = icon })
	r.page.SetBadge(IDDrumDirStatus, text, class)
}

// Connection shows the realtime link state.
func (r *Renderer) Connection(up bool) {
	r.page.SetBadge(IDConnection, onOff(up, "Connected", "Disconnected"), onOff(up, "badge bg-success", "badge bg-danger"))
}

func onOff(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}
