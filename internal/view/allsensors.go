package view

import (
	"context"
	"strconv"

	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/render"
	"kiln_dashboard/internal/surface"
)

func allSensorsWidgets(withPressure bool) []surface.Widget {
	w := []surface.Widget{
		input(IDTimeRange),
		button(IDAutoRefresh, "Auto-refresh"),
		list(IDSensorsMenu),
		text(render.IDLastUpdate),
		chart(render.IDAllSensorsChart),
		text(render.IDTempFornoCurrent),
		text(render.IDTorre1Current),
		text(render.IDTorre2Current),
		text(render.IDTorre3Current),
		text(render.IDTempTanqueCurrent),
		text(render.IDTempGasesCurrent),
		text(render.IDVelocityCurrent),
		text(render.IDModeCurrent),
		table(render.IDRecentData),
	}
	if withPressure {
		w = append(w, input(IDPressureUnit), text(render.IDPressaoCurrent))
	}
	return w
}

// AllSensors shows the consolidated overlay chart.
type AllSensors struct {
	*base
	hours  int
	last   []models.ConsolidatedSample
	loaded bool
}

func NewAllSensors(ctx context.Context, d Deps, hours int) *AllSensors {
	if hours <= 0 {
		hours = d.Charts.DefaultHours
	}
	v := &AllSensors{base: newBase(NameAllSensors, d, allSensorsWidgets(d.Capabilities.ConsolidatedPressure)), hours: hours}
	v.loadSensorsMenu(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	_ = v.loadLocked(ctx)
	return v
}

// Refresh refetches the consolidated series. hours > 0 also changes the window.
func (v *AllSensors) Refresh(ctx context.Context, hours int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if hours > 0 {
		v.hours = hours
	}
	return v.loadLocked(ctx)
}

func (v *AllSensors) SetAutoRefresh(on bool) {
	v.setAutoRefresh(on, v.deps.Refresh.AllSensors, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		_ = v.loadLocked(v.ctx)
	})
}

// SetUnit redraws the pressure dataset, axis and readouts in u.
func (v *AllSensors) SetUnit(u format.PressureUnit) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setUnitLocked(u)
	if v.loaded {
		v.r.Consolidated(v.last, u, v.deps.Capabilities.ConsolidatedPressure)
	}
}

func (v *AllSensors) loadLocked(ctx context.Context) error {
	v.page.Update(IDTimeRange, func(w *surface.Widget) { w.Value = strconv.Itoa(v.hours) })
	samples, err := v.deps.API.AllSensorsData(ctx, v.hours)
	if err != nil {
		if v.ctx.Err() == nil {
			v.r.ConsolidatedFailed(err)
		}
		return err
	}
	v.last, v.loaded = samples, true
	v.r.Consolidated(samples, v.currentUnitLocked(), v.deps.Capabilities.ConsolidatedPressure)
	return nil
}

func (v *AllSensors) Close() { v.close(nil) }
