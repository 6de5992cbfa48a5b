package service

import (
	"context"
	"time"

	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/logger"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/notify"
	"kiln_dashboard/internal/realtime"
	"kiln_dashboard/internal/repository"
	"kiln_dashboard/internal/view"
)

// Views enters, finds and leaves the dashboard screens.
type Views interface {
	Enter(ctx context.Context, name string, p EnterParams) (view.View, error)
	Exit(name string) bool
	Get(name string) (view.View, bool)
	Control() (*view.ControlPanel, error)
	Sensor() (*view.SensorDetail, error)
	AllSensors() (*view.AllSensors, error)
	Overview() (*view.Overview, error)
	Readings() (*view.Readings, error)
	Refresh(ctx context.Context, name string, hours int) error
	SetAutoRefresh(name string, on bool) error
	SetUnit(name string, u format.PressureUnit) error
	Unit() format.PressureUnit
	CloseAll()
}

// Diagnostics records realtime envelopes and serves them back.
type Diagnostics interface {
	realtime.MessageRecorder
	List(ctx context.Context, f MessageFilter) ([]models.ChannelMessage, error)
	Run(ctx context.Context)
	Dropped() int64
}

// Notifications exposes the toasts currently on screen.
type Notifications interface {
	Active() []notify.Notification
}

// MessageFilter supports diagnostics filtering by time range and direction.
type MessageFilter struct {
	From      time.Time // inclusive; zero means no lower bound
	To        time.Time // inclusive; zero means no upper bound
	Direction string    // "", "IN", "OUT"
	Event     string
	Limit     int
}

// Dialer opens a realtime channel that records through rec.
type Dialer func(rec realtime.MessageRecorder) (view.Channel, error)

// Options carries what NewService cannot derive from the repositories.
type Options struct {
	Deps      view.Deps
	Toasts    *notify.Toasts
	Dial      Dialer
	Buffer    int
	Retention time.Duration
	Log       *logger.Logger
}

type Service struct {
	Views
	Diagnostics
	Notifications
}

// NewService wires the repositories and view dependencies into the services.
// Screens notify through the toasts and dial channels that record into diagnostics.
func NewService(repos *repository.Repository, o Options) *Service {
	diag := NewDiagnosticsService(repos.Messages, o.Buffer, o.Retention, o.Log)

	deps := o.Deps
	deps.Log = o.Log
	if o.Toasts != nil {
		deps.Notifier = o.Toasts
	}
	if o.Dial != nil {
		deps.NewChannel = func() (view.Channel, error) { return o.Dial(diag) }
	}

	var toasts Notifications = noToasts{}
	if o.Toasts != nil {
		toasts = o.Toasts
	}
	return &Service{
		Views:         NewViewRegistry(deps),
		Diagnostics:   diag,
		Notifications: toasts,
	}
}

type noToasts struct{}

func (noToasts) Active() []notify.Notification { return nil }
