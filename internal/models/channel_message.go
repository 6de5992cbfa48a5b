package models

import "time"

// Message directions for the realtime channel diagnostics log.
const (
	DirectionInbound  = "IN"
	DirectionOutbound = "OUT"
)

// ChannelMessage is a single realtime channel envelope kept for diagnostics.
type ChannelMessage struct {
	MessageID  string    `json:"message_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Direction  string    `json:"direction"` // IN | OUT
	Event      string    `json:"event"`     // request_initial_data | control_event | update_from_dashboard
	Payload    any       `json:"payload,omitempty"`
}
