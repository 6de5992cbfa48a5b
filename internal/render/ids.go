package render

// Widget ids shared by the renderers and the views that declare them.
const (
	IDLastUpdate = "last-update"
	IDRecentData = "recent-data"
	IDDataCount  = "data-count"
	IDDataPeriod = "data-period"

	IDTemperatureChart = "temperature-chart"
	IDPressureChart    = "pressure-chart"
	IDVelocityChart    = "velocity-chart"
	IDTempCurrent      = "temp-current"
	IDPressureCurrent  = "pressure-current"
	IDVelocityCurrent  = "velocity-current"

	IDAllSensorsChart   = "all-sensors-chart"
	IDTempFornoCurrent  = "temp-forno-current"
	IDTorre1Current     = "torre-1-current"
	IDTorre2Current     = "torre-2-current"
	IDTorre3Current     = "torre-3-current"
	IDTempTanqueCurrent = "temp-tanque-current"
	IDTempGasesCurrent  = "temp-gases-current"
	IDPressaoCurrent    = "pressao-current"
	IDModeCurrent       = "mode-current"

	IDOverviewChart     = "overview-chart"
	IDStatTotalReadings = "stat-total-readings"
	IDStatReadings24h   = "stat-readings-24h"
	IDStatSensorCount   = "stat-sensor-count"

	IDManualControls = "manual-controls"
	IDSystemMode     = "system_mode"
	IDHeatingButton  = "heating-status-btn"
	IDDrumDirIcon    = "tambor_direction_icon"
	IDDrumDirStatus  = "status_tambor_dir"
	IDDrumStatus     = "status_tambor"
	IDConnection     = "connection-status"
	IDManualFan      = "manual-fan-btn"
	IDManualScrew    = "manual-screw-btn"
	IDManualHeater   = "manual-heater-btn"
	IDManualCooling  = "manual-cooling-btn"
	IDManualDrumFwd  = "manual-drum-fwd-btn"
	IDManualDrumRev  = "manual-drum-rev-btn"
)

// StatID is the min/avg/max readout id of a quantity, e.g. "temp-avg".
func StatID(q Quantity, stat string) string {
	return q.prefix() + "-" + stat
}

func (q Quantity) prefix() string {
	switch q {
	case Temperature:
		return "temp"
	case Pressure:
		return "pressure"
	default:
		return "velocity"
	}
}

// StatusID is the ON/OFF badge of an actuator.
func StatusID(actuator string) string { return "status_" + actuator }
