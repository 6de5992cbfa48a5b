package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/logger"
	"kiln_dashboard/internal/view"
)

var (
	ErrNotEntered     = errors.New("view not entered")
	ErrSensorRequired = errors.New("sensor name is required")
	ErrNotSupported   = errors.New("operation not supported by view")
	errUnexpectedView = errors.New("registered view has unexpected type")
	knownViews        = []string{view.NameControl, view.NameSensor, view.NameAllSensors, view.NameOverview, view.NameReadings}
)

// EnterParams are the optional inputs of entering a screen.
type EnterParams struct {
	Sensor string `json:"sensor"`
	Hours  int    `json:"hours"`
}

// ViewRegistry holds at most one live instance per screen. Entering a screen
// again swaps in the new instance, then closes the previous one.
type ViewRegistry struct {
	enter sync.Mutex // serialises Enter and Exit

	mu     sync.Mutex
	deps   view.Deps
	unit   format.PressureUnit
	active map[string]view.View
	log    *logger.Logger
}

func NewViewRegistry(d view.Deps) *ViewRegistry {
	unit := d.Unit
	if unit == "" {
		unit = format.PSI
	}
	return &ViewRegistry{
		deps:   d,
		unit:   unit,
		active: map[string]view.View{},
		log:    logger.OrNop(d.Log),
	}
}

// Known reports whether name is a screen of the dashboard.
func Known(name string) bool {
	for _, n := range knownViews {
		if n == name {
			return true
		}
	}
	return false
}

// Enter builds a fresh instance of the named screen.
func (r *ViewRegistry) Enter(ctx context.Context, name string, p EnterParams) (view.View, error) {
	if !Known(name) {
		return nil, fmt.Errorf("%w: %q", view.ErrUnknownView, name)
	}
	if name == view.NameSensor && p.Sensor == "" {
		return nil, ErrSensorRequired
	}

	r.enter.Lock()
	defer r.enter.Unlock()

	r.mu.Lock()
	d := r.deps
	d.Unit = r.unit
	r.mu.Unlock()

	var (
		v   view.View
		err error
	)
	switch name {
	case view.NameControl:
		v, err = view.NewControlPanel(ctx, d)
	case view.NameSensor:
		v = view.NewSensorDetail(ctx, d, p.Sensor, p.Hours)
	case view.NameAllSensors:
		v = view.NewAllSensors(ctx, d, p.Hours)
	case view.NameOverview:
		v = view.NewOverview(ctx, d)
	case view.NameReadings:
		v = view.NewReadings(ctx, d)
	}
	if err != nil {
		return nil, fmt.Errorf("enter %s: %w", name, err)
	}

	r.mu.Lock()
	prev, replaced := r.active[name]
	r.active[name] = v
	r.mu.Unlock()
	if replaced {
		prev.Close()
	}
	r.log.Infow("view_entered", "view", name, "sensor", p.Sensor, "hours", p.Hours)
	return v, nil
}

// Exit closes the named screen. It reports whether one was open.
func (r *ViewRegistry) Exit(name string) bool {
	r.enter.Lock()
	defer r.enter.Unlock()
	if !r.take(name) {
		return false
	}
	r.log.Infow("view_exited", "view", name)
	return true
}

// take removes and closes the live instance of name.
func (r *ViewRegistry) take(name string) bool {
	r.mu.Lock()
	v, ok := r.active[name]
	delete(r.active, name)
	r.mu.Unlock()
	if ok {
		v.Close()
	}
	return ok
}

func (r *ViewRegistry) Get(name string) (view.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.active[name]
	return v, ok
}

// CloseAll leaves every screen.
func (r *ViewRegistry) CloseAll() {
	r.enter.Lock()
	defer r.enter.Unlock()
	for _, name := range knownViews {
		r.take(name)
	}
}

func (r *ViewRegistry) Control() (*view.ControlPanel, error) {
	return lookup[*view.ControlPanel](r, view.NameControl)
}

func (r *ViewRegistry) Sensor() (*view.SensorDetail, error) {
	return lookup[*view.SensorDetail](r, view.NameSensor)
}

func (r *ViewRegistry) AllSensors() (*view.AllSensors, error) {
	return lookup[*view.AllSensors](r, view.NameAllSensors)
}

func (r *ViewRegistry) Overview() (*view.Overview, error) {
	return lookup[*view.Overview](r, view.NameOverview)
}

func (r *ViewRegistry) Readings() (*view.Readings, error) {
	return lookup[*view.Readings](r, view.NameReadings)
}

func lookup[T view.View](r *ViewRegistry, name string) (T, error) {
	var zero T
	v, ok := r.Get(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotEntered, name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, errUnexpectedView
	}
	return t, nil
}

// Refresh reloads the named screen. hours > 0 also changes the chart window
// of screens that have one.
func (r *ViewRegistry) Refresh(ctx context.Context, name string, hours int) error {
	v, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotEntered, name)
	}
	switch t := v.(type) {
	case interface {
		Refresh(context.Context, int) error
	}:
		return t.Refresh(ctx, hours)
	case interface{ Refresh(context.Context) error }:
		return t.Refresh(ctx)
	}
	return fmt.Errorf("%w: refresh on %s", ErrNotSupported, name)
}

// SetAutoRefresh toggles the auto-refresh timer of a chart screen.
func (r *ViewRegistry) SetAutoRefresh(name string, on bool) error {
	v, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotEntered, name)
	}
	t, ok := v.(interface{ SetAutoRefresh(bool) })
	if !ok {
		return fmt.Errorf("%w: auto-refresh on %s", ErrNotSupported, name)
	}
	t.SetAutoRefresh(on)
	return nil
}

// SetUnit changes the session pressure unit. Every open screen redraws in
// u and screens entered later start in it.
func (r *ViewRegistry) SetUnit(name string, u format.PressureUnit) error {
	if _, ok := r.Get(name); !ok && name != "" {
		return fmt.Errorf("%w: %s", ErrNotEntered, name)
	}

	r.mu.Lock()
	r.unit = u
	open := make([]view.View, 0, len(r.active))
	for _, v := range r.active {
		open = append(open, v)
	}
	r.mu.Unlock()

	for _, v := range open {
		if t, ok := v.(interface{ SetUnit(format.PressureUnit) }); ok {
			t.SetUnit(u)
		}
	}
	return nil
}

// Unit is the session pressure unit.
func (r *ViewRegistry) Unit() format.PressureUnit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unit
}
