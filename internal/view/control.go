package view

import (
	"context"
	"sync"

	"kiln_dashboard/internal/control"
	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/notify"
	"kiln_dashboard/internal/render"
	"kiln_dashboard/internal/store"
	"kiln_dashboard/internal/surface"
)

// settingFields are the setpoint inputs of the panel.
var settingFields = []string{
	"temp_min",
	"temp_max",
	"resistencia_timer",
	"rosca_on_timer",
	"rosca_off_timer",
	models.SettingDrumSpeed,
}

var controlButtons = map[string]string{
	control.ControlFan:         render.IDManualFan,
	control.ControlScrew:       render.IDManualScrew,
	control.ControlHeater:      render.IDManualHeater,
	control.ControlCoolingFan:  render.IDManualCooling,
	control.ControlDrumForward: render.IDManualDrumFwd,
	control.ControlDrumReverse: render.IDManualDrumRev,
}

var buttonLabels = map[string]string{
	control.ControlFan:         "Fan",
	control.ControlScrew:       "Screw",
	control.ControlHeater:      "Heater",
	control.ControlCoolingFan:  "Cooling fan",
	control.ControlDrumForward: "Drum forward",
	control.ControlDrumReverse: "Drum reverse",
}

func controlWidgets(caps control.Capabilities) []surface.Widget {
	w := []surface.Widget{
		badge(render.IDConnection),
		list(IDSensorsMenu),
		input(render.IDSystemMode),
		button(render.IDHeatingButton, "Turn heating on"),
		{ID: render.IDManualControls, Kind: surface.KindGroup, Disabled: true},
		input(IDPressureUnit),
	}
	for _, s := range settingFields {
		w = append(w, input(s))
	}
	for _, c := range caps.Controls() {
		b := button(controlButtons[c], buttonLabels[c])
		b.Disabled = true
		w = append(w, b)
	}
	for _, id := range render.LiveDisplayIDs() {
		w = append(w, text(id))
	}
	for _, a := range render.StatusActuators {
		if a == models.ActuatorCoolingFan && !caps.CoolingFan {
			continue
		}
		w = append(w, badge(render.StatusID(a)))
	}
	return append(w,
		badge(render.IDDrumStatus),
		text(render.IDDrumDirIcon),
		badge(render.IDDrumDirStatus),
	)
}

// ControlPanel is the live control screen. Its widgets always show the
// last snapshot pushed by the backend; commands never update them directly.
type ControlPanel struct {
	*base
	store *store.Store
	ch    Channel
	rec   *control.Reconciler
	wg    sync.WaitGroup
}

// NewControlPanel builds the panel and connects its channel. A failed
// connection leaves the panel up, showing the link as disconnected.
func NewControlPanel(ctx context.Context, d Deps) (*ControlPanel, error) {
	ch, err := d.NewChannel()
	if err != nil {
		return nil, err
	}
	cp := &ControlPanel{
		base:  newBase(NameControl, d, controlWidgets(d.Capabilities)),
		store: store.New(),
		ch:    ch,
	}
	cp.rec = control.NewReconciler(d.Capabilities, ch, cp.store, cp.deps.Notifier, cp.log, d.Metrics)

	ch.OnUpdate(cp.apply)
	ch.OnConnect(cp.connected)
	ch.OnDisconnect(func(error) { cp.r.Connection(false) })

	cp.r.ControlPanel(cp.store.Snapshot(), cp.unit)
	cp.r.Connection(false)
	if err := ch.Connect(ctx); err != nil {
		cp.deps.Notifier.Notify(notify.Warning, "Realtime channel unavailable: "+err.Error())
	}
	return cp, nil
}

// apply merges one push update and repaints. Runs on the channel reader,
// so updates are applied in delivery order.
func (cp *ControlPanel) apply(u models.StateUpdate) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	snap := cp.store.Merge(u)
	cp.r.ControlPanel(snap, cp.unit)
}

// connected repaints the link badge and starts the one-shot sensors fetch
// that backs up the initial snapshot request.
func (cp *ControlPanel) connected() {
	cp.r.Connection(true)
	cp.wg.Add(1)
	go func() {
		defer cp.wg.Done()
		cp.loadSensorsMenu(cp.ctx)
	}()
}

// Snapshot is the last state received from the backend.
func (cp *ControlPanel) Snapshot() models.ViewState { return cp.store.Snapshot() }

// Capabilities is the variant the panel was built for.
func (cp *ControlPanel) Capabilities() control.Capabilities { return cp.rec.Capabilities() }

func (cp *ControlPanel) Click(c string) error           { return cp.rec.Click(c) }
func (cp *ControlPanel) Press(c string) error           { return cp.rec.Press(c) }
func (cp *ControlPanel) Release(c string) error         { return cp.rec.Release(c) }
func (cp *ControlPanel) SetMode(mode int) error         { return cp.rec.SetMode(mode) }
func (cp *ControlPanel) ToggleHeating() error           { return cp.rec.ToggleHeating() }
func (cp *ControlPanel) SetSetting(n, raw string) error { return cp.rec.SetSetting(n, raw) }

// SetUnit switches the pressure readouts to u.
func (cp *ControlPanel) SetUnit(u format.PressureUnit) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.setUnitLocked(u)
	cp.r.ControlPanel(cp.store.Snapshot(), u)
}

// Close releases any held momentary control, then drops the channel.
func (cp *ControlPanel) Close() {
	cp.close(func() {
		if err := cp.rec.ReleaseAll(); err != nil {
			cp.log.Warnw("release_on_exit_failed", "err", err)
		}
		if err := cp.ch.Close(); err != nil {
			cp.log.Debugw("channel_close", "err", err)
		}
		cp.wg.Wait()
	})
}
