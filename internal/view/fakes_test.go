package view

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
	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/notify"
)

var t0 = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu        sync.Mutex
	sensors   []string
	samples   map[string][]models.Sample
	all       []models.ConsolidatedSample
	stats     models.Stats
	failOn    map[string]error
	calls     map[string]int
	readings  []int
	lastHours int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		sensors: []string{"Temp Forno", "Pressão Gases", "Velocidade", "Torre Nível 1", "Temp Tanque"},
		samples: map[string][]models.Sample{},
		failOn:  map[string]error{},
		calls:   map[string]int{},
	}
}

func (f *fakeAPI) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.failOn[name]
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[name] = err
}

func (f *fakeAPI) Sensors(ctx context.Context) ([]string, error) {
	if err := f.hit("sensors"); err != nil {
		return nil, err
	}
	return f.sensors, nil
}

func (f *fakeAPI) Stats(ctx context.Context) (models.Stats, error) {
	if err := f.hit("stats"); err != nil {
		return models.Stats{}, err
	}
	return f.stats, nil
}

func (f *fakeAPI) Chart(ctx context.Context, sensor string, hours, limit int) ([]models.Sample, error) {
	if err := f.hit("chart"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastHours = hours
	return f.samples[sensor], nil
}

func (f *fakeAPI) SensorData(ctx context.Context, sensor string, hours int) ([]models.Sample, error) {
	if err := f.hit("sensor_data:" + sensor); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.samples[sensor], nil
}

func (f *fakeAPI) AllSensorsData(ctx context.Context, hours int) ([]models.ConsolidatedSample, error) {
	if err := f.hit("all"); err != nil {
		return nil, err
	}
	return f.all, nil
}

func (f *fakeAPI) Readings(ctx context.Context, flt models.ReadingFilter, page int) (models.ReadingsPage, error) {
	if err := f.hit("readings"); err != nil {
		return models.ReadingsPage{}, err
	}
	f.mu.Lock()
	f.readings = append(f.readings, page)
	f.mu.Unlock()
	return models.ReadingsPage{Page: page, TotalPages: 9, Total: 450}, nil
}

func (f *fakeAPI) Export(ctx context.Context, flt models.ReadingFilter) (*apiclient.Download, error) {
	if err := f.hit("export"); err != nil {
		return nil, err
	}
	return &apiclient.Download{ContentType: "text/csv", Body: io.NopCloser(strings.NewReader("x"))}, nil
}

// fakeChannel stands in for the realtime client.
type fakeChannel struct {
	mu         sync.Mutex
	onUpdate   func(models.StateUpdate)
	onConnect  []func()
	onDrop     []func(error)
	connected  bool
	connectErr error
	closed     int
	emitted    []models.ControlEvent
}

func (c *fakeChannel) OnUpdate(h func(models.StateUpdate)) { c.onUpdate = h }
func (c *fakeChannel) OnConnect(h func())                  { c.onConnect = append(c.onConnect, h) }
func (c *fakeChannel) OnDisconnect(h func(error))          { c.onDrop = append(c.onDrop, h) }

func (c *fakeChannel) Connect(ctx context.Context) error {
	if c.connectErr != nil {
		return c.connectErr
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	for _, h := range c.onConnect {
		h()
	}
	return nil
}

func (c *fakeChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeChannel) Emit(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return errors.New("not connected")
	}
	c.emitted = append(c.emitted, data.(models.ControlEvent))
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.closed++
	return nil
}

func (c *fakeChannel) push(u models.StateUpdate) { c.onUpdate(u) }

func (c *fakeChannel) drop(err error) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	for _, h := range c.onDrop {
		h(err)
	}
}

func (c *fakeChannel) sent() []models.ControlEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ControlEvent(nil), c.emitted...)
}

func testDeps(api *fakeAPI, ch *fakeChannel, n notify.Notifier) Deps {
	return Deps{
		API:        api,
		NewChannel: func() (Channel, error) { return ch, nil },
		Capabilities: control.Capabilities{
			Interaction:          control.Latched,
			ConsolidatedPressure: true,
		},
		Refresh: config.Refresh{
			SensorDetail: time.Hour,
			AllSensors:   time.Hour,
			Readings:     time.Hour,
			Stats:        time.Hour,
			Overview:     time.Hour,
		},
		Charts:   config.Charts{MaxPoints: 500, DefaultHours: 24},
		Unit:     format.PSI,
		Locale:   format.NewLocale("pt-BR", time.UTC),
		Notifier: n,
	}
}

func sample(min int, temp, psi *float64) models.Sample {
	return models.Sample{
		Timestamp:   models.At(t0.Add(time.Duration(min) * time.Minute)),
		Temperature: temp,
		Pressure:    psi,
		Mode:        models.ModeSimulation,
	}
}
