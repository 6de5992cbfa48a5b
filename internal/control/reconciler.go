// Package control turns operator actions into backend commands.
package control

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"kiln_dashboard/internal/logger"
	"kiln_dashboard/internal/metrics"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/notify"
)

var (
	ErrInvalidNumber          = errors.New("invalid numeric value")
	ErrInvalidMode            = errors.New("invalid system mode")
	ErrUnknownControl         = errors.New("unknown control")
	ErrUnsupportedInteraction = errors.New("interaction not supported by this control panel")
)

// Emitter sends one event over the realtime channel.
type Emitter interface {
	Emit(event string, data any) error
}

// StateSource is the last snapshot received from the backend.
type StateSource interface {
	Actuators() models.ActuatorSet
	Setting(name string, def float64) float64
}

// Reconciler decides which commands a user action produces. Toggle
// directions come from the last received snapshot, never from the
// command just sent.
type Reconciler struct {
	caps   Capabilities
	out    Emitter
	state  StateSource
	notify notify.Notifier
	log    *logger.Logger
	m      *metrics.Metrics

	mu   sync.Mutex
	held map[string]bool
}

func NewReconciler(caps Capabilities, out Emitter, state StateSource, n notify.Notifier, log *logger.Logger, m *metrics.Metrics) *Reconciler {
	if n == nil {
		n = notify.Nop{}
	}
	return &Reconciler{
		caps:   caps,
		out:    out,
		state:  state,
		notify: n,
		log:    logger.OrNop(log),
		m:      m,
		held:   make(map[string]bool),
	}
}

// Capabilities returns the variant this reconciler was built for.
func (r *Reconciler) Capabilities() Capabilities { return r.caps }

// Click handles a latched toggle.
func (r *Reconciler) Click(control string) error {
	if r.caps.Interaction != Latched {
		return ErrUnsupportedInteraction
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	act := r.state.Actuators()
	switch control {
	case ControlDrumForward:
		if act.DrumForward() {
			return r.manual(models.ActuatorDrumPulse, false)
		}
		return r.startDrum(true)
	case ControlDrumReverse:
		if act.DrumReverse() {
			return r.manual(models.ActuatorDrumPulse, false)
		}
		return r.startDrum(false)
	}

	target, ok := r.caps.binaryTarget(control)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownControl, control)
	}
	return r.manual(target, !act[target])
}

// Press starts a momentary control. Repeated presses while held are ignored.
func (r *Reconciler) Press(control string) error {
	if r.caps.Interaction != Momentary {
		return ErrUnsupportedInteraction
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.held[control] {
		return nil
	}
	var err error
	switch control {
	case ControlDrumForward:
		err = r.startDrum(true)
	case ControlDrumReverse:
		err = r.startDrum(false)
	default:
		target, ok := r.caps.binaryTarget(control)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownControl, control)
		}
		err = r.manual(target, true)
	}
	if err != nil {
		return err
	}
	r.held[control] = true
	return nil
}

// Release stops a momentary control. Pointer-up, pointer-leave, touch-end and
// touch-cancel all land here; only the first one after a press emits.
func (r *Reconciler) Release(control string) error {
	if r.caps.Interaction != Momentary {
		return ErrUnsupportedInteraction
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	target := models.ActuatorDrumPulse
	if control != ControlDrumForward && control != ControlDrumReverse {
		t, ok := r.caps.binaryTarget(control)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownControl, control)
		}
		target = t
	}
	if !r.held[control] {
		return nil
	}
	if err := r.manual(target, false); err != nil {
		return err
	}
	delete(r.held, control)
	return nil
}

// ReleaseAll stops every held momentary control.
func (r *Reconciler) ReleaseAll() error {
	r.mu.Lock()
	held := make([]string, 0, len(r.held))
	for c := range r.held {
		held = append(held, c)
	}
	r.mu.Unlock()

	var errs []error
	for _, c := range held {
		errs = append(errs, r.Release(c))
	}
	return errors.Join(errs...)
}

// Held reports whether a momentary control is currently pressed.
func (r *Reconciler) Held(control string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held[control]
}

// SetSetting sends a setpoint taken from a form field.
func (r *Reconciler) SetSetting(name, raw string) error {
	name = strings.TrimSpace(name)
	v, err := parseNumber(raw)
	if name == "" || err != nil {
		r.notify.Notify(notify.Danger, fmt.Sprintf("Invalid value for %s: %q", name, raw))
		r.log.Infow("setting_rejected", "name", name, "raw", raw)
		return fmt.Errorf("%w: %s=%q", ErrInvalidNumber, name, raw)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setting(name, v)
}

// SetMode switches between automatic (0) and manual (1).
func (r *Reconciler) SetMode(mode int) error {
	if mode != models.ModeAutomatic && mode != models.ModeManual {
		return fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setting(models.SettingSystemMode, float64(mode))
}

// ToggleHeating flips heating_status relative to the last snapshot.
func (r *Reconciler) ToggleHeating() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.state.Setting(models.SettingHeatingStatus, 0)
	next := 1.0
	if current != 0 {
		next = 0
	}
	return r.setting(models.SettingHeatingStatus, next)
}

// startDrum arms the stepper (when wired), then sets direction before pulse
// so the drum never runs a transient pulse in the old direction.
func (r *Reconciler) startDrum(forward bool) error {
	if r.caps.DrumEnable {
		if err := r.manual(models.ActuatorDrumEnable, true); err != nil {
			return err
		}
	}
	if err := r.manual(models.ActuatorDrumDir, forward); err != nil {
		return err
	}
	return r.manual(models.ActuatorDrumPulse, true)
}

func (r *Reconciler) manual(target string, state bool) error {
	return r.send(models.CommandManualControl, models.ManualPayload{Target: target, State: state})
}

func (r *Reconciler) setting(name string, value float64) error {
	return r.send(models.CommandSetSetting, models.SettingPayload{Name: name, Value: value})
}

func (r *Reconciler) send(command string, payload any) error {
	err := r.out.Emit(models.EventControl, models.ControlEvent{Command: command, Payload: payload})
	if err != nil {
		r.log.Warnw("command_failed", "command", command, "payload", payload, "err", err)
		r.notify.Notify(notify.Danger, "Command not sent: "+err.Error())
		return fmt.Errorf("%s: %w", command, err)
	}
	r.m.Command(command)
	r.log.Debugw("command_sent", "command", command, "payload", payload)
	return nil
}

// parseNumber accepts a dot or a single comma as decimal separator.
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidNumber
	}
	return v, nil
}
