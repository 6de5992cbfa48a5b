package render

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/logger"
	"kiln_dashboard/internal/metrics"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/surface"
)

const recentRows = 10

// Signature keys, one per independently refreshed chart group.
const (
	keyDetail       = "sensor-detail"
	keyConsolidated = "all-sensors"
	keyOverview     = "overview"
)

// Series colours.
const (
	colorTemperature = "#dc3545"
	colorPressure    = "#007bff"
	colorVelocity    = "#28a745"
)

var overviewColors = []string{"#dc3545", "#007bff", "#28a745", "#ffc107"}

// Renderer draws charts and readouts onto one page. It remembers the
// signature of the last series drawn per chart group so identical
// refreshes skip the chart pass.
type Renderer struct {
	page   *surface.Page
	locale *format.Locale
	log    *logger.Logger
	m      *metrics.Metrics
	now    func() time.Time

	mu   sync.Mutex
	last map[string]Signature
}

func New(page *surface.Page, locale *format.Locale, log *logger.Logger, m *metrics.Metrics) *Renderer {
	if locale == nil {
		locale = format.NewLocale("", nil)
	}
	return &Renderer{
		page:   page,
		locale: locale,
		log:    logger.OrNop(log),
		m:      m,
		now:    time.Now,
		last:   make(map[string]Signature),
	}
}

// Page is the surface this renderer draws on.
func (r *Renderer) Page() *surface.Page { return r.page }

// Touch updates the last-refreshed indicator.
func (r *Renderer) Touch() {
	r.page.SetText(IDLastUpdate, r.locale.Clock(r.now()))
}

// changed stores sig for key and reports whether it differs from the last one.
func (r *Renderer) changed(key string, sig Signature) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.last[key]
	r.last[key] = sig
	return !ok || prev != sig
}

// Forget drops the stored signature of every group so the next pass redraws.
func (r *Renderer) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.last)
}

type quantityChart struct {
	id    string
	q     Quantity
	title string
	color string
	cur   string
}

func detailCharts(u format.PressureUnit) []quantityChart {
	return []quantityChart{
		{IDTemperatureChart, Temperature, "Temperature (°C)", colorTemperature, IDTempCurrent},
		{IDPressureChart, Pressure, "Pressure (" + u.Label() + ")", colorPressure, IDPressureCurrent},
		{IDVelocityChart, Velocity, "Velocity (rpm)", colorVelocity, IDVelocityCurrent},
	}
}

// SensorDetail draws the three per-quantity charts of one sensor, their
// statistics and the recent-data table. It returns the render outcome.
func (r *Renderer) SensorDetail(samples []models.Sample, hours int, unit format.PressureUnit) string {
	r.Touch()
	r.page.SetText(IDDataCount, r.locale.Count(len(samples)))
	r.page.SetText(IDDataPeriod, strconv.Itoa(hours)+"h")
	if !r.changed(keyDetail, Sign(samples, unit)) {
		return r.outcome(metrics.RenderSkipped)
	}

	r.recentDetail(samples, unit)

	if len(samples) == 0 {
		for _, c := range detailCharts(unit) {
			r.noData(c.id)
			r.readouts(c, nil, unit)
		}
		return r.outcome(metrics.RenderPlaceholder)
	}

	result := metrics.RenderUpdated
	for _, c := range detailCharts(unit) {
		pts := Extract(samples, c.q, unit)
		r.readouts(c, pts, unit)
		if len(pts) == 0 {
			r.noData(c.id)
			continue
		}
		if r.draw(c.id, surface.ChartConfig{
			Datasets: []surface.Dataset{{
				Label:  c.title,
				Axis:   "y",
				Color:  c.color,
				Fill:   true,
				Unit:   unitOf(c.q, unit),
				Places: c.q.Places(unit),
				Points: pts,
			}},
			Axes: []surface.Axis{{ID: "y", Title: c.title, Position: "left"}},
		}) {
			result = metrics.RenderCreated
		}
	}
	return r.outcome(result)
}

// DetailFailed handles a failed sensor fetch.
func (r *Renderer) DetailFailed(err error) bool {
	return r.failed(keyDetail, err, IDTemperatureChart, IDPressureChart, IDVelocityChart)
}

// readouts fills the current value and min/avg/max of one quantity.
func (r *Renderer) readouts(c quantityChart, pts []surface.Point, unit format.PressureUnit) {
	places := c.q.Places(unit)
	st, ok := Summarize(pts)
	if !ok {
		for _, id := range []string{c.cur, StatID(c.q, "avg"), StatID(c.q, "min"), StatID(c.q, "max")} {
			r.page.SetText(id, "-")
		}
		return
	}
	cur := format.Fixed(pts[len(pts)-1].Y, places)
	if c.q == Pressure {
		cur += " " + unit.Label()
	}
	r.page.SetText(c.cur, cur)
	r.page.SetText(StatID(c.q, "avg"), format.Fixed(st.Mean, places))
	r.page.SetText(StatID(c.q, "min"), format.Fixed(st.Min, places))
	r.page.SetText(StatID(c.q, "max"), format.Fixed(st.Max, places))
}

func (r *Renderer) recentDetail(samples []models.Sample, unit format.PressureUnit) {
	tail := newestFirst(samples, recentRows)
	rows := make([][]string, 0, len(tail))
	for _, s := range tail {
		rows = append(rows, []string{
			r.locale.DateTime(s.Timestamp.Time),
			format.Temperature(s.Temperature),
			format.Pressure(s.Pressure, unit),
			format.Velocity(s.Velocity),
			shortMode(s.Mode),
		})
	}
	r.table(IDRecentData, []string{"Time", "Temperature", "Pressure", "Velocity", "Mode"}, rows)
}

type consolidatedField struct {
	label string
	color string
	cur   string
	pick  func(models.ConsolidatedSample) *float64
}

var temperatureFields = []consolidatedField{
	{"Temp Forno", "#dc3545", IDTempFornoCurrent, func(s models.ConsolidatedSample) *float64 { return s.TempForno }},
	{"Torre Nível 1", "#fd7e14", IDTorre1Current, func(s models.ConsolidatedSample) *float64 { return s.TorreNivel1 }},
	{"Torre Nível 2", "#ffc107", IDTorre2Current, func(s models.ConsolidatedSample) *float64 { return s.TorreNivel2 }},
	{"Torre Nível 3", "#28a745", IDTorre3Current, func(s models.ConsolidatedSample) *float64 { return s.TorreNivel3 }},
	{"Temp Tanque", "#17a2b8", IDTempTanqueCurrent, func(s models.ConsolidatedSample) *float64 { return s.TempTanque }},
	{"Temp Gases", "#6f42c1", IDTempGasesCurrent, func(s models.ConsolidatedSample) *float64 { return s.TempGases }},
}

func consolidatedTime(s models.ConsolidatedSample) time.Time { return s.Timestamp.Time }

// Consolidated draws the all-sensors overlay: temperatures on y and, when
// withPressure is set, the gas pressure on y1 in the session unit.
func (r *Renderer) Consolidated(samples []models.ConsolidatedSample, unit format.PressureUnit, withPressure bool) string {
	r.Touch()
	sig := Sign(samples, unit)
	if !withPressure {
		sig.Unit = ""
	}
	if !r.changed(keyConsolidated, sig) {
		return r.outcome(metrics.RenderSkipped)
	}

	r.recentConsolidated(samples, unit, withPressure)
	if len(samples) == 0 {
		r.noData(IDAllSensorsChart)
		return r.outcome(metrics.RenderPlaceholder)
	}

	datasets := make([]surface.Dataset, 0, len(temperatureFields)+1)
	for _, f := range temperatureFields {
		datasets = append(datasets, surface.Dataset{
			Label:  f.label,
			Axis:   "y",
			Color:  f.color,
			Unit:   "°C",
			Places: format.TemperaturePlaces,
			Points: points(samples, consolidatedTime, f.pick, nil),
		})
	}
	axes := []surface.Axis{{ID: "y", Title: "Temperature (°C)", Position: "left"}}
	if withPressure {
		datasets = append(datasets, surface.Dataset{
			Label:  "Pressão Gases (" + unit.Label() + ")",
			Axis:   "y1",
			Color:  colorPressure,
			Unit:   unit.Label(),
			Places: unit.Places(),
			Points: points(samples, consolidatedTime,
				func(s models.ConsolidatedSample) *float64 { return s.PressaoGases }, unit.Convert),
		})
		axes = append(axes, surface.Axis{ID: "y1", Title: "Pressure (" + unit.Label() + ")", Position: "right"})
	}

	latest := samples[len(samples)-1]
	for _, f := range temperatureFields {
		r.page.SetText(f.cur, format.Temperature(f.pick(latest)))
	}
	if withPressure {
		r.page.SetText(IDPressaoCurrent, format.Pressure(latest.PressaoGases, unit))
	}
	r.page.SetText(IDVelocityCurrent, format.Velocity(latest.Velocity))
	r.page.SetText(IDModeCurrent, longMode(latest.Mode))

	result := metrics.RenderUpdated
	if r.draw(IDAllSensorsChart, surface.ChartConfig{Datasets: datasets, Axes: axes}) {
		result = metrics.RenderCreated
	}
	return r.outcome(result)
}

// ConsolidatedFailed handles a failed all-sensors fetch.
func (r *Renderer) ConsolidatedFailed(err error) bool {
	return r.failed(keyConsolidated, err, IDAllSensorsChart)
}

func (r *Renderer) recentConsolidated(samples []models.ConsolidatedSample, unit format.PressureUnit, withPressure bool) {
	cols := []string{"Time"}
	for _, f := range temperatureFields {
		cols = append(cols, f.label)
	}
	if withPressure {
		cols = append(cols, "Pressão Gases")
	}
	cols = append(cols, "Velocity", "Mode")

	tail := newestFirst(samples, recentRows)
	rows := make([][]string, 0, len(tail))
	for _, s := range tail {
		row := []string{r.locale.DateTime(s.Timestamp.Time)}
		for _, f := range temperatureFields {
			row = append(row, format.Temperature(f.pick(s)))
		}
		if withPressure {
			row = append(row, format.Pressure(s.PressaoGases, unit))
		}
		row = append(row, format.Velocity(s.Velocity), longMode(s.Mode))
		rows = append(rows, row)
	}
	r.table(IDRecentData, cols, rows)
}

// NamedSeries is the fetched series of one sensor.
type NamedSeries struct {
	Name    string
	Samples []models.Sample
}

// Family picks the quantity plotted for a sensor from its name.
func Family(name string) (Quantity, bool) {
	switch {
	case strings.Contains(name, "Temp"), strings.Contains(name, "Torre"):
		return Temperature, true
	case strings.Contains(name, "Pressão"), strings.Contains(name, "Pressao"):
		return Pressure, true
	case strings.Contains(name, "Velocidade"):
		return Velocity, true
	}
	return 0, false
}

// Overview draws one dataset per sensor, each in the quantity its name
// family implies. Sensors of no known family or without points are left out.
func (r *Renderer) Overview(series []NamedSeries, unit format.PressureUnit) string {
	if !r.changed(keyOverview, Sign(series, unit)) {
		return r.outcome(metrics.RenderSkipped)
	}
	var datasets []surface.Dataset
	for i, s := range series {
		q, ok := Family(s.Name)
		if !ok {
			continue
		}
		pts := Extract(s.Samples, q, unit)
		if len(pts) == 0 {
			continue
		}
		u := unitOf(q, unit)
		datasets = append(datasets, surface.Dataset{
			Label:  s.Name + " (" + u + ")",
			Axis:   "y",
			Color:  overviewColors[i%len(overviewColors)],
			Unit:   u,
			Places: q.Places(unit),
			Points: pts,
		})
	}
	if len(datasets) == 0 {
		r.noData(IDOverviewChart)
		return r.outcome(metrics.RenderPlaceholder)
	}
	result := metrics.RenderUpdated
	if r.draw(IDOverviewChart, surface.ChartConfig{
		Title:    "Sensor overview",
		Datasets: datasets,
		Axes:     []surface.Axis{{ID: "y", Position: "left"}},
	}) {
		result = metrics.RenderCreated
	}
	return r.outcome(result)
}

// OverviewFailed handles a failed overview fetch.
func (r *Renderer) OverviewFailed(err error) bool {
	return r.failed(keyOverview, err, IDOverviewChart)
}

// Stats fills the statistics cards.
func (r *Renderer) Stats(st models.Stats) {
	r.page.SetText(IDStatTotalReadings, r.locale.Count(st.TotalReadings))
	r.page.SetText(IDStatReadings24h, r.locale.Count(st.Readings24h))
	r.page.SetText(IDStatSensorCount, r.locale.Count(len(st.SensorCounts)))
}

// draw replaces the existing instance in place or creates one. It reports
// whether a new instance was created.
func (r *Renderer) draw(id string, cfg surface.ChartConfig) bool {
	if r.page.HasChart(id) {
		r.page.ReplaceChart(id, cfg)
		return false
	}
	r.page.CreateChart(id, cfg)
	return true
}

func (r *Renderer) noData(id string) {
	r.page.ShowPlaceholder(id, surface.Placeholder{Kind: surface.PlaceholderNoData, Message: "No data available"})
}

// failed shows a retry placeholder on ids unless one of them still holds a
// valid chart, in which case the previous render is kept. It reports
// whether the placeholder was shown.
func (r *Renderer) failed(key string, err error, ids ...string) bool {
	for _, id := range ids {
		if r.page.HasChart(id) {
			r.log.Debugw("render_keep_previous", "chart", id, "err", err)
			return false
		}
	}
	for _, id := range ids {
		r.page.ShowPlaceholder(id, surface.Placeholder{
			Kind:    surface.PlaceholderError,
			Message: "Failed to load data: " + err.Error(),
			Retry:   true,
		})
	}
	r.mu.Lock()
	delete(r.last, key)
	r.mu.Unlock()
	r.m.Render(metrics.RenderPlaceholder)
	return true
}

func (r *Renderer) table(id string, cols []string, rows [][]string) {
	r.page.Update(id, func(w *surface.Widget) {
		t := &surface.Table{Columns: cols, Rows: rows}
		if len(rows) == 0 {
			t.Message = "No recent data"
		}
		w.Table = t
	})
}

func (r *Renderer) outcome(o string) string {
	r.m.Render(o)
	return o
}

func unitOf(q Quantity, u format.PressureUnit) string {
	switch q {
	case Temperature:
		return "°C"
	case Pressure:
		return u.Label()
	default:
		return "rpm"
	}
}

// newestFirst returns up to n trailing items in reverse order.
func newestFirst[T any](items []T, n int) []T {
	start := max(0, len(items)-n)
	out := make([]T, 0, len(items)-start)
	for i := len(items) - 1; i >= start; i-- {
		out = append(out, items[i])
	}
	return out
}

func shortMode(mode string) string {
	if mode == models.ModeHardware {
		return "HW"
	}
	return "SIM"
}

func longMode(mode string) string {
	if mode == models.ModeHardware {
		return "Hardware"
	}
	return "Simulation"
}
