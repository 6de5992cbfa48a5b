package handlers

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"kiln_dashboard/internal/apiclient"
	"kiln_dashboard/internal/config"
	"kiln_dashboard/internal/control"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/notify"
	"kiln_dashboard/internal/service"
	"kiln_dashboard/internal/view"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAPI struct {
	mu        sync.Mutex
	readings  []int
	filters   []models.ReadingFilter
	exportErr error
}

func (m *mockAPI) Sensors(context.Context) ([]string, error) {
	return []string{"Temp Forno", "Velocidade"}, nil
}
func (m *mockAPI) Stats(context.Context) (models.Stats, error) { return models.Stats{}, nil }
func (m *mockAPI) Chart(context.Context, string, int, int) ([]models.Sample, error) {
	return []models.Sample{{Timestamp: models.At(time.Now()), Temperature: models.Float(300)}}, nil
}
func (m *mockAPI) SensorData(context.Context, string, int) ([]models.Sample, error) { return nil, nil }
func (m *mockAPI) AllSensorsData(context.Context, int) ([]models.ConsolidatedSample, error) {
	return nil, nil
}
func (m *mockAPI) Readings(_ context.Context, f models.ReadingFilter, page int) (models.ReadingsPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, page)
	m.filters = append(m.filters, f)
	return models.ReadingsPage{Page: page, TotalPages: 12, Total: 600}, nil
}
func (m *mockAPI) Export(context.Context, models.ReadingFilter) (*apiclient.Download, error) {
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	return &apiclient.Download{
		ContentType:        "text/csv",
		ContentDisposition: `attachment; filename="readings.csv"`,
		Body:               io.NopCloser(strings.NewReader("id,sensor\n1,Temp Forno\n")),
	}, nil
}

type mockChannel struct {
	mu        sync.Mutex
	onUpdate  func(models.StateUpdate)
	onConnect []func()
	emitted   []models.ControlEvent
}

func (m *mockChannel) Emit(_ string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted = append(m.emitted, data.(models.ControlEvent))
	return nil
}
func (m *mockChannel) OnUpdate(h func(models.StateUpdate)) { m.onUpdate = h }
func (m *mockChannel) OnConnect(h func())                  { m.onConnect = append(m.onConnect, h) }
func (m *mockChannel) OnDisconnect(func(error))            {}
func (m *mockChannel) Connect(context.Context) error {
	for _, h := range m.onConnect {
		h()
	}
	return nil
}
func (m *mockChannel) Connected() bool { return true }
func (m *mockChannel) Close() error    { return nil }

func (m *mockChannel) sent() []models.ControlEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ControlEvent(nil), m.emitted...)
}

type mockDiagnostics struct {
	resp    []models.ChannelMessage
	err     error
	last    service.MessageFilter
	dropped int64
}

func (m *mockDiagnostics) Record(models.ChannelMessage) {}
func (m *mockDiagnostics) Run(context.Context)          {}
func (m *mockDiagnostics) Dropped() int64               { return m.dropped }
func (m *mockDiagnostics) List(_ context.Context, f service.MessageFilter) ([]models.ChannelMessage, error) {
	m.last = f
	return m.resp, m.err
}

type mockNotifications struct{ items []notify.Notification }

func (m *mockNotifications) Active() []notify.Notification { return m.items }

// ---- Shared Test Helpers ----

type fixture struct {
	svc   *service.Service
	api   *mockAPI
	ch    *mockChannel
	diag  *mockDiagnostics
	notes *mockNotifications
}

func newFixture(interaction control.Interaction) *fixture {
	f := &fixture{api: &mockAPI{}, ch: &mockChannel{}, diag: &mockDiagnostics{}, notes: &mockNotifications{}}
	views := service.NewViewRegistry(view.Deps{
		API:          f.api,
		NewChannel:   func() (view.Channel, error) { return f.ch, nil },
		Capabilities: control.Capabilities{Interaction: interaction, ConsolidatedPressure: true},
		Refresh: config.Refresh{
			SensorDetail: time.Hour, AllSensors: time.Hour, Readings: time.Hour, Stats: time.Hour, Overview: time.Hour,
		},
		Charts: config.Charts{MaxPoints: 100, DefaultHours: 24},
	})
	f.svc = &service.Service{Views: views, Diagnostics: f.diag, Notifications: f.notes}
	return f
}

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

var errBackend = errors.New("backend down")
