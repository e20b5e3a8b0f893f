package models

import "time"

// EventKind names what happened inside the hub.
type EventKind string

const (
	EventDeviceSeen     EventKind = "device_seen"
	EventStatusChanged  EventKind = "status_changed"
	EventAlertRaised    EventKind = "alert_raised"
	EventGraceStarted   EventKind = "grace_started"
	EventGraceCancelled EventKind = "grace_cancelled"
	EventAlarmEscalated EventKind = "alarm_escalated"
	EventImageStored    EventKind = "image_stored"
	EventArmedChanged   EventKind = "armed_changed"
	EventDeviceRestart  EventKind = "device_restart_required"
)

// Event is the typed payload delivered to every sink. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind   EventKind     `json:"kind"`
	At     time.Time     `json:"at"`
	Device *Device       `json:"device,omitempty"`
	Status *SensorStatus `json:"status,omitempty"`
	Alert  *Alert        `json:"alert,omitempty"`
	Grace  *GraceStatus  `json:"grace,omitempty"`
	Image  *Image        `json:"image,omitempty"`
	Armed  *bool         `json:"armed,omitempty"`
}
