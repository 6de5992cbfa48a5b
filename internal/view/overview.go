package view

import (
	"context"

	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/render"
	"kiln_dashboard/internal/surface"
	"kiln_dashboard/internal/timers"

	"golang.org/x/sync/errgroup"
)

// overviewSensors is how many sensors the overview chart plots.
const overviewSensors = 4

// overviewHours is the overview chart window.
const overviewHours = 24

func overviewWidgets() []surface.Widget {
	return []surface.Widget{
		list(IDSensorsMenu),
		input(IDPressureUnit),
		chart(render.IDOverviewChart),
		text(render.IDStatTotalReadings),
		text(render.IDStatReadings24h),
		text(render.IDStatSensorCount),
	}
}

// Overview is the landing screen: statistics cards polled on a timer and
// an overview chart of the first sensors.
type Overview struct {
	*base
	series []render.NamedSeries
	loaded bool
}

// NewOverview loads the screen and starts its two pollers.
func NewOverview(ctx context.Context, d Deps) *Overview {
	v := &Overview{base: newBase(NameOverview, d, overviewWidgets())}

	v.mu.Lock()
	_ = v.statsLocked(ctx)
	_ = v.chartLocked(ctx)
	v.mu.Unlock()

	v.timers.Every(timers.StatsPoll, d.Refresh.Stats, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		_ = v.statsLocked(v.ctx)
	})
	v.timers.Every(timers.ChartPoll, d.Refresh.Overview, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		_ = v.chartLocked(v.ctx)
	})
	return v
}

// Refresh reloads both the cards and the chart.
func (v *Overview) Refresh(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.statsLocked(ctx); err != nil {
		return err
	}
	return v.chartLocked(ctx)
}

// SetUnit redraws pressure sensors of the overview in u.
func (v *Overview) SetUnit(u format.PressureUnit) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setUnitLocked(u)
	if v.loaded {
		v.r.Overview(v.series, u)
	}
}

func (v *Overview) statsLocked(ctx context.Context) error {
	st, err := v.deps.API.Stats(ctx)
	if err != nil {
		return err
	}
	v.r.Stats(st)
	return nil
}

// chartLocked fetches the first sensors concurrently. Any failure fails the
// whole pass so the chart never mixes fresh and stale series.
func (v *Overview) chartLocked(ctx context.Context) error {
	names, err := v.deps.API.Sensors(ctx)
	if err != nil {
		v.failedLocked(err)
		return err
	}
	v.page.Update(IDSensorsMenu, func(w *surface.Widget) { w.Items = names })
	names = names[:min(len(names), overviewSensors)]

	series := make([]render.NamedSeries, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			samples, err := v.deps.API.SensorData(gctx, name, overviewHours)
			if err != nil {
				return err
			}
			series[i] = render.NamedSeries{Name: name, Samples: samples}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		v.failedLocked(err)
		return err
	}
	v.series, v.loaded = series, true
	v.r.Overview(series, v.currentUnitLocked())
	return nil
}

func (v *Overview) failedLocked(err error) {
	if v.ctx.Err() == nil {
		v.r.OverviewFailed(err)
	}
}

func (v *Overview) Close() { v.close(nil) }
