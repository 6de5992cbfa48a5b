package render

import (
	"testing"
	"time"

	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/surface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func panelPage() *surface.Page {
	decl := []surface.Widget{
		{ID: IDSystemMode, Kind: surface.KindInput},
		{ID: "temp_min", Kind: surface.KindInput},
		{ID: IDManualControls, Kind: surface.KindGroup},
		{ID: IDHeatingButton, Kind: surface.KindButton},
		{ID: IDManualFan, Kind: surface.KindButton},
		{ID: IDManualDrumFwd, Kind: surface.KindButton},
		{ID: IDManualDrumRev, Kind: surface.KindButton},
		{ID: IDDrumDirIcon, Kind: surface.KindText},
		{ID: IDDrumDirStatus, Kind: surface.KindBadge},
		{ID: IDDrumStatus, Kind: surface.KindBadge},
		{ID: IDConnection, Kind: surface.KindBadge},
	}
	for _, id := range LiveDisplayIDs() {
		decl = append(decl, surface.Widget{ID: id, Kind: surface.KindText})
	}
	for _, a := range StatusActuators {
		decl = append(decl, surface.Widget{ID: StatusID(a), Kind: surface.KindBadge})
	}
	return surface.NewPage("control", decl...)
}

func get(t *testing.T, p *surface.Page, id string) surface.Widget {
	t.Helper()
	w, ok := p.Get(id)
	require.True(t, ok, id)
	return w
}

func TestControlPanel_ManualModeAndDrumForward(t *testing.T) {
	clock := t0
	p := panelPage()
	r := newRenderer(p, &clock)

	st := models.NewViewState()
	st.Settings[models.SettingSystemMode] = models.ModeManual
	st.Settings[models.SettingHeatingStatus] = 1
	st.Settings["temp_min"] = 300
	st.Settings["unknown_setting"] = 5
	st.Values["Temp Forno"] = 351.26
	st.Values["Pressão Gases"] = 29.008
	st.Actuators[models.ActuatorFan] = true
	st.Actuators[models.ActuatorDrumDir] = true
	st.Actuators[models.ActuatorDrumPulse] = true

	r.ControlPanel(st, format.Bar)

	assert.Equal(t, "1", get(t, p, IDSystemMode).Value)
	assert.Equal(t, "300", get(t, p, "temp_min").Value)
	assert.False(t, get(t, p, IDManualControls).Disabled)
	assert.True(t, get(t, p, IDHeatingButton).Active)
	assert.Equal(t, "btn-success", get(t, p, IDHeatingButton).Class)

	fan := get(t, p, IDManualFan)
	assert.True(t, fan.Active)
	assert.Equal(t, "On", fan.Value)
	assert.True(t, get(t, p, IDManualDrumFwd).Active)
	assert.False(t, get(t, p, IDManualDrumRev).Active)

	assert.Equal(t, "351.3 °C", get(t, p, "display_temp_forno").Text)
	assert.Equal(t, "2.000 BAR", get(t, p, "display_pressao_gases").Text)
	assert.Empty(t, get(t, p, "display_temp_tanque").Text)

	assert.Equal(t, "ON", get(t, p, StatusID(models.ActuatorFan)).Text)
	assert.Equal(t, "OFF", get(t, p, StatusID(models.ActuatorHeater)).Text)
	assert.Equal(t, "ON", get(t, p, IDDrumStatus).Text)
	assert.Equal(t, "FORWARD", get(t, p, IDDrumDirStatus).Text)
	assert.Equal(t, "fa-arrow-right", get(t, p, IDDrumDirIcon).Icon)
}

func TestControlPanel_AutomaticDisablesManual(t *testing.T) {
	clock := t0
	p := panelPage()
	r := newRenderer(p, &clock)

	st := models.NewViewState()
	st.Actuators[models.ActuatorDrumPulse] = true // reverse
	r.ControlPanel(st, format.PSI)

	assert.True(t, get(t, p, IDManualControls).Disabled)
	assert.True(t, get(t, p, IDManualFan).Disabled)
	assert.False(t, get(t, p, IDManualDrumRev).Active, "active state only shown in manual mode")
	assert.Equal(t, "REVERSE", get(t, p, IDDrumDirStatus).Text)
	assert.Equal(t, "btn-danger", get(t, p, IDHeatingButton).Class)

	st.Actuators[models.ActuatorDrumPulse] = false
	r.ControlPanel(st, format.PSI)
	assert.Equal(t, "STOPPED", get(t, p, IDDrumDirStatus).Text)
	assert.Equal(t, "OFF", get(t, p, IDDrumStatus).Text)
}

func TestConnection(t *testing.T) {
	clock := t0
	p := panelPage()
	r := newRenderer(p, &clock)
	r.Connection(true)
	assert.Equal(t, "Connected", get(t, p, IDConnection).Text)
	r.Connection(false)
	assert.Equal(t, "badge bg-danger", get(t, p, IDConnection).Class)
}

func consolidatedPage() *surface.Page {
	decl := []surface.Widget{
		{ID: IDAllSensorsChart, Kind: surface.KindChart},
		{ID: IDRecentData, Kind: surface.KindTable},
		{ID: IDLastUpdate, Kind: surface.KindText},
		{ID: IDPressaoCurrent, Kind: surface.KindText},
		{ID: IDVelocityCurrent, Kind: surface.KindText},
		{ID: IDModeCurrent, Kind: surface.KindText},
	}
	for _, f := range temperatureFields {
		decl = append(decl, surface.Widget{ID: f.cur, Kind: surface.KindText})
	}
	return surface.NewPage("all-sensors", decl...)
}

func TestConsolidated_PressureAxis(t *testing.T) {
	clock := t0
	samples := []models.ConsolidatedSample{
		{Timestamp: models.At(t0), TempForno: models.Float(350), PressaoGases: models.Float(29.008), Mode: models.ModeSimulation},
		{Timestamp: models.At(t0.Add(time.Minute)), TempForno: nil, TorreNivel1: models.Float(110), PressaoGases: nil, Velocity: models.Float(600)},
	}

	t.Run("with_pressure_in_bar", func(t *testing.T) {
		p := consolidatedPage()
		r := newRenderer(p, &clock)
		r.Consolidated(samples, format.Bar, true)

		w := get(t, p, IDAllSensorsChart)
		require.NotNil(t, w.Chart)
		ds := w.Chart.Config.Datasets
		require.Len(t, ds, 7)
		assert.Len(t, ds[0].Points, 1, "null forno sample excluded")
		assert.Equal(t, "y1", ds[6].Axis)
		assert.Equal(t, "Pressão Gases (BAR)", ds[6].Label)
		assert.InDelta(t, 2.0, ds[6].Points[0].Y, 1e-9)
		require.Len(t, w.Chart.Config.Axes, 2)
		assert.Equal(t, "right", w.Chart.Config.Axes[1].Position)

		assert.Equal(t, "-", get(t, p, IDPressaoCurrent).Text)
		assert.Equal(t, "600 rpm", get(t, p, IDVelocityCurrent).Text)
		assert.Equal(t, "110.0°C", get(t, p, IDTorre1Current).Text)
		assert.Equal(t, "Simulation", get(t, p, IDModeCurrent).Text)
		assert.Len(t, get(t, p, IDRecentData).Table.Columns, 10)
	})

	t.Run("without_pressure", func(t *testing.T) {
		p := consolidatedPage()
		r := newRenderer(p, &clock)
		r.Consolidated(samples, format.Bar, false)
		w := get(t, p, IDAllSensorsChart)
		assert.Len(t, w.Chart.Config.Datasets, 6)
		assert.Len(t, w.Chart.Config.Axes, 1)
		assert.Len(t, get(t, p, IDRecentData).Table.Columns, 9)
	})
}

func TestOverview_PicksFamilies(t *testing.T) {
	clock := t0
	p := surface.NewPage("overview", surface.Widget{ID: IDOverviewChart, Kind: surface.KindChart})
	r := newRenderer(p, &clock)

	series := []NamedSeries{
		{Name: "Temp Forno", Samples: []models.Sample{sample(0, models.Float(350), nil, nil)}},
		{Name: "Pressão Gases", Samples: []models.Sample{sample(0, nil, models.Float(14.504), nil)}},
		{Name: "Umidade", Samples: []models.Sample{sample(0, models.Float(1), nil, nil)}},
		{Name: "Velocidade", Samples: []models.Sample{sample(0, nil, nil, nil)}},
	}
	r.Overview(series, format.Bar)

	w := get(t, p, IDOverviewChart)
	require.NotNil(t, w.Chart)
	require.Len(t, w.Chart.Config.Datasets, 2)
	assert.Equal(t, "Temp Forno (°C)", w.Chart.Config.Datasets[0].Label)
	assert.Equal(t, "Pressão Gases (BAR)", w.Chart.Config.Datasets[1].Label)
	assert.Equal(t, "#007bff", w.Chart.Config.Datasets[1].Color)

	r.Overview(nil, format.Bar)
	w = get(t, p, IDOverviewChart)
	assert.Nil(t, w.Chart)
	assert.Equal(t, surface.PlaceholderNoData, w.Placeholder.Kind)
}

func TestStatsCards(t *testing.T) {
	clock := t0
	p := surface.NewPage("overview",
		surface.Widget{ID: IDStatTotalReadings, Kind: surface.KindText},
		surface.Widget{ID: IDStatSensorCount, Kind: surface.KindText},
	)
	r := newRenderer(p, &clock)
	r.Stats(models.Stats{TotalReadings: 1234567, SensorCounts: map[string]int{"a": 1, "b": 2}})
	assert.Equal(t, "1.234.567", get(t, p, IDStatTotalReadings).Text)
	assert.Equal(t, "2", get(t, p, IDStatSensorCount).Text)
}
