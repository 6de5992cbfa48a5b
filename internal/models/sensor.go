package models

// Acquisition modes reported with each sample.
const (
	ModeHardware   = "rpi"
	ModeSimulation = "simulation"
)

// Sample is one point of a per-sensor series.
type Sample struct {
	Timestamp   Timestamp `json:"timestamp"`
	Temperature *float64  `json:"temperature"`
	Pressure    *float64  `json:"pressure"`
	Velocity    *float64  `json:"velocity"`
	Mode        string    `json:"mode,omitempty"`
}

// ConsolidatedSample is one point of the all-sensors series.
type ConsolidatedSample struct {
	Timestamp    Timestamp `json:"timestamp"`
	TempForno    *float64  `json:"temp_forno"`
	TorreNivel1  *float64  `json:"torre_nivel_1"`
	TorreNivel2  *float64  `json:"torre_nivel_2"`
	TorreNivel3  *float64  `json:"torre_nivel_3"`
	TempTanque   *float64  `json:"temp_tanque"`
	TempGases    *float64  `json:"temp_gases"`
	PressaoGases *float64  `json:"pressao_gases"`
	Velocity     *float64  `json:"velocity"`
	Mode         string    `json:"mode,omitempty"`
}

// Reading is one row of the historical readings table.
type Reading struct {
	ID          int64     `json:"id"`
	Timestamp   Timestamp `json:"timestamp"`
	SensorName  string    `json:"sensor_name"`
	Temperature *float64  `json:"temperature"`
	Pressure    *float64  `json:"pressure"`
	Velocity    *float64  `json:"velocity"`
	SensorType  string    `json:"sensor_type"`
	Mode        string    `json:"mode"`
}

// ReadingsPage is one server-side page of readings.
type ReadingsPage struct {
	Items      []Reading `json:"items"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
	Total      int       `json:"total"`
}

// Stats is the backend's reading counters.
type Stats struct {
	TotalReadings int            `json:"total_readings"`
	Readings24h   int            `json:"readings_24h"`
	SensorCounts  map[string]int `json:"sensor_counts"`
}

// ReadingFilter narrows the readings listing and export.
type ReadingFilter struct {
	Sensor string `json:"sensor,omitempty"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
