package view

import (
	"context"
	"strconv"

	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/notify"
	"kiln_dashboard/internal/render"
	"kiln_dashboard/internal/surface"
)

func sensorWidgets() []surface.Widget {
	w := []surface.Widget{
		text(IDSensorName),
		input(IDTimeRange),
		input(IDPressureUnit),
		button(IDAutoRefresh, "Auto-refresh"),
		list(IDSensorsMenu),
		text(render.IDLastUpdate),
		chart(render.IDTemperatureChart),
		chart(render.IDPressureChart),
		chart(render.IDVelocityChart),
		text(render.IDTempCurrent),
		text(render.IDPressureCurrent),
		text(render.IDVelocityCurrent),
		text(render.IDDataCount),
		text(render.IDDataPeriod),
		table(render.IDRecentData),
	}
	for _, q := range []render.Quantity{render.Temperature, render.Pressure, render.Velocity} {
		for _, s := range []string{"avg", "min", "max"} {
			w = append(w, text(render.StatID(q, s)))
		}
	}
	return w
}

// SensorDetail shows the per-quantity charts of one sensor.
type SensorDetail struct {
	*base
	sensor string
	hours  int
	last   []models.Sample
	loaded bool
}

// NewSensorDetail enters the detail screen of sensor and loads hours of data.
// hours <= 0 uses the configured default window.
func NewSensorDetail(ctx context.Context, d Deps, sensor string, hours int) *SensorDetail {
	if hours <= 0 {
		hours = d.Charts.DefaultHours
	}
	v := &SensorDetail{base: newBase(NameSensor, d, sensorWidgets()), sensor: sensor, hours: hours}
	v.page.SetText(IDSensorName, sensor)
	v.loadSensorsMenu(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	_ = v.loadLocked(ctx)
	return v
}

// Sensor is the sensor shown.
func (v *SensorDetail) Sensor() string { return v.sensor }

// Refresh refetches the series. hours > 0 also changes the window.
func (v *SensorDetail) Refresh(ctx context.Context, hours int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if hours > 0 {
		v.hours = hours
	}
	if err := v.loadLocked(ctx); err != nil {
		return err
	}
	v.deps.Notifier.Notify(notify.Success, "Charts updated")
	return nil
}

// SetAutoRefresh starts or stops periodic reloading of the current window.
func (v *SensorDetail) SetAutoRefresh(on bool) {
	v.setAutoRefresh(on, v.deps.Refresh.SensorDetail, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		_ = v.loadLocked(v.ctx)
	})
}

// SetUnit redraws the loaded series in pressure unit u without refetching.
func (v *SensorDetail) SetUnit(u format.PressureUnit) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setUnitLocked(u)
	if v.loaded {
		v.r.SensorDetail(v.last, v.hours, u)
	}
}

func (v *SensorDetail) loadLocked(ctx context.Context) error {
	v.page.Update(IDTimeRange, func(w *surface.Widget) { w.Value = strconv.Itoa(v.hours) })
	samples, err := v.deps.API.Chart(ctx, v.sensor, v.hours, v.deps.Charts.MaxPoints)
	if err != nil {
		if v.ctx.Err() == nil {
			v.r.DetailFailed(err)
		}
		return err
	}
	v.last, v.loaded = samples, true
	v.r.SensorDetail(samples, v.hours, v.currentUnitLocked())
	return nil
}

// Close leaves the screen.
func (v *SensorDetail) Close() { v.close(nil) }
