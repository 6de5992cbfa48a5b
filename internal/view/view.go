// Package view holds one scoped controller per dashboard screen. A
// controller is built when its screen is entered and closed when it is
// left; closing cancels its timers, drops its channel and releases its
// charts.
package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"kiln_dashboard/internal/config"
	"kiln_dashboard/internal/control"
	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/listing"
	"kiln_dashboard/internal/logger"
	"kiln_dashboard/internal/metrics"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/notify"
	"kiln_dashboard/internal/render"
	"kiln_dashboard/internal/surface"
	"kiln_dashboard/internal/timers"
)

// Screen names.
const (
	NameControl    = "control"
	NameSensor     = "sensor"
	NameAllSensors = "all-sensors"
	NameOverview   = "overview"
	NameReadings   = "readings"
)

// Shared widget ids.
const (
	IDAutoRefresh  = "auto-refresh"
	IDPressureUnit = "pressure-unit"
	IDTimeRange    = "time-range"
	IDSensorName   = "sensor-name"
	IDSensorsMenu  = "sensors-dropdown"
)

var ErrUnknownView = errors.New("unknown view")

// API is the backend REST surface the screens use.
type API interface {
	Sensors(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (models.Stats, error)
	Chart(ctx context.Context, sensor string, hours, limit int) ([]models.Sample, error)
	SensorData(ctx context.Context, sensor string, hours int) ([]models.Sample, error)
	AllSensorsData(ctx context.Context, hours int) ([]models.ConsolidatedSample, error)
	listing.Source
}

// Channel is the realtime link used by the control panel.
type Channel interface {
	control.Emitter
	OnUpdate(func(models.StateUpdate))
	OnConnect(func())
	OnDisconnect(func(error))
	Connect(ctx context.Context) error
	Connected() bool
	Close() error
}

// Deps are the collaborators every screen is built from.
type Deps struct {
	API          API
	NewChannel   func() (Channel, error)
	Capabilities control.Capabilities
	Refresh      config.Refresh
	Charts       config.Charts
	Unit         format.PressureUnit
	Locale       *format.Locale
	Notifier     notify.Notifier
	Log          *logger.Logger
	Metrics      *metrics.Metrics
}

// View is an entered screen.
type View interface {
	Name() string
	Page() *surface.Page
	Close()
}

// base carries what every screen owns: its page, renderer, timers and a
// context that ends when the screen is left.
type base struct {
	name   string
	page   *surface.Page
	r      *render.Renderer
	timers *timers.Registry
	deps   Deps
	log    *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	mu   sync.Mutex
	unit format.PressureUnit
}

func newBase(name string, d Deps, widgets []surface.Widget) *base {
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Unit == "" {
		d.Unit = format.PSI
	}
	log := logger.OrNop(d.Log)
	page := surface.NewPage(name, widgets...)
	ctx, cancel := context.WithCancel(context.Background())
	b := &base{
		name:   name,
		page:   page,
		r:      render.New(page, d.Locale, log, d.Metrics),
		timers: timers.New(d.Metrics),
		deps:   d,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		unit:   d.Unit,
	}
	page.Update(IDPressureUnit, func(w *surface.Widget) { w.Value = string(b.unit) })
	page.Update(IDAutoRefresh, func(w *surface.Widget) { w.Text = "Auto-refresh" })
	return b
}

func (b *base) Name() string             { return b.name }
func (b *base) Page() *surface.Page      { return b.page }
func (b *base) Context() context.Context { return b.ctx }

// AutoRefreshActive reports whether the auto-refresh timer is running.
func (b *base) AutoRefreshActive() bool { return b.timers.Active(timers.AutoRefresh) }

// ActiveTimers counts the screen's repeating timers.
func (b *base) ActiveTimers() int { return b.timers.Count() }

// close cancels in-flight work, waits for the timers and releases the page.
// It must not be called with b.mu held: timer callbacks take it.
func (b *base) close(extra func()) {
	b.once.Do(func() {
		b.cancel()
		b.timers.StopAll()
		if extra != nil {
			extra()
		}
		b.page.Close()
		b.log.Debugw("view_closed", "view", b.name)
	})
}

// setAutoRefresh starts or stops the auto-refresh timer of the screen.
func (b *base) setAutoRefresh(on bool, every time.Duration, fn func()) {
	if on {
		b.timers.Every(timers.AutoRefresh, every, fn)
		b.deps.Notifier.Notify(notify.Success, "Auto-refresh enabled ("+every.String()+")")
	} else if b.timers.Stop(timers.AutoRefresh) {
		b.deps.Notifier.Notify(notify.Info, "Auto-refresh disabled")
	}
	b.page.Update(IDAutoRefresh, func(w *surface.Widget) {
		w.Active = on
		if on {
			w.Text, w.Icon = "Stop", "fa-pause"
		} else {
			w.Text, w.Icon = "Auto-refresh", "fa-play"
		}
	})
}

// currentUnitLocked returns the session unit. Callers hold b.mu.
func (b *base) currentUnitLocked() format.PressureUnit { return b.unit }

// setUnitLocked stores u and mirrors it on the unit selector.
func (b *base) setUnitLocked(u format.PressureUnit) {
	b.unit = u
	b.page.Update(IDPressureUnit, func(w *surface.Widget) { w.Value = string(u) })
}

// loadSensorsMenu fills the sensor navigation list.
func (b *base) loadSensorsMenu(ctx context.Context) {
	if !b.page.Has(IDSensorsMenu) {
		return
	}
	names, err := b.deps.API.Sensors(ctx)
	if err != nil {
		return
	}
	b.page.Update(IDSensorsMenu, func(w *surface.Widget) { w.Items = names })
}

func text(id string) surface.Widget  { return surface.Widget{ID: id, Kind: surface.KindText} }
func badge(id string) surface.Widget { return surface.Widget{ID: id, Kind: surface.KindBadge} }
func button(id, label string) surface.Widget {
	return surface.Widget{ID: id, Kind: surface.KindButton, Text: label}
}
func chart(id string) surface.Widget { return surface.Widget{ID: id, Kind: surface.KindChart} }
func table(id string) surface.Widget { return surface.Widget{ID: id, Kind: surface.KindTable} }
func input(id string) surface.Widget { return surface.Widget{ID: id, Kind: surface.KindInput} }
func list(id string) surface.Widget  { return surface.Widget{ID: id, Kind: surface.KindList} }
