package models

// Realtime channel events.
const (
	EventRequestInitialData = "request_initial_data"
	EventControl            = "control_event"
	EventUpdate             = "update_from_dashboard"
)

// Control command names carried in a control_event.
const (
	CommandSetSetting    = "SET_SETTING"
	CommandManualControl = "MANUAL_CONTROL"
)

// ControlEvent is the payload of an outbound control_event.
type ControlEvent struct {
	Command string `json:"command"`
	Payload any    `json:"payload"`
}

// SettingPayload sets one backend setting.
type SettingPayload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ManualPayload drives one actuator in manual mode.
type ManualPayload struct {
	Target string `json:"target"`
	State  bool   `json:"state"`
}
