package models

import "time"

// Device is a remote sensor node. Identity is ID, never the address.
type Device struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	LastSeen time.Time `json:"last_seen"`
}

// Sensor channels reported by devices.
const (
	ChannelMotion = "motion"
	ChannelDoor   = "door"
	ChannelWindow = "window"
)

// Sensor values seen on the wire.
const (
	StatusOpen      = "OPEN"
	StatusClosed    = "CLOSED"
	StatusDetected  = "DETECTED"
	StatusClear     = "CLEAR"
	StatusTriggered = "TRIGGERED"
	StatusAlarm     = "ALARM"
)

// SensorStatus is the latest value reported for one (device, channel) pair.
type SensorStatus struct {
	DeviceID  string    `json:"device_id"`
	Channel   string    `json:"channel"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsSensorChannel reports whether channel is one of the physical sensor channels.
func IsSensorChannel(channel string) bool {
	switch channel {
	case ChannelMotion, ChannelDoor, ChannelWindow:
		return true
	}
	return false
}

// DerivedImageStatus is the status implied by an image captured on channel.
func DerivedImageStatus(channel string) string {
	if channel == ChannelMotion {
		return StatusDetected
	}
	return StatusOpen
}
