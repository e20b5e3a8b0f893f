package models

import "time"

// Alert is an alarm-worthy transition recorded in the alert log.
// Only Read and ReadAt change after creation.
type Alert struct {
	ID         int64      `json:"id"`
	DeviceID   string     `json:"device_id"`
	DeviceName string     `json:"device_name"`
	Channel    string     `json:"channel"`
	Value      string     `json:"value"`
	CreatedAt  time.Time  `json:"created_at"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// AlertFilter narrows a ListAlerts query. Zero value lists everything.
type AlertFilter struct {
	UnreadOnly bool
	DeviceID   string
	Limit      int
}

// GraceStatus describes the countdown, if any.
type GraceStatus struct {
	Active           bool       `json:"active"`
	Alert            *Alert     `json:"alert,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	SecondsRemaining int        `json:"seconds_remaining"`
}
