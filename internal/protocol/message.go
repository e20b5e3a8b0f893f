package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Datagram prefixes.
const (
	PrefixSensor        = "SENSOR"
	PrefixAnnounce      = "SECURITY_DEVICE"
	PrefixDiscover      = "DISCOVER"
	PrefixSystem        = "SECURITY_SYSTEM"
	PrefixConfig        = "CONFIG"
	PrefixConfigUpdated = "GPIO_CONFIG_UPDATED"

	stateOnline = "ONLINE"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnsupported = errors.New("unsupported message")
)

// Kind tells which datagram was parsed.
type Kind int

const (
	KindSensor Kind = iota + 1
	KindAnnounce
	KindDiscover
	KindConfigUpdated
)

// Message is a parsed UDP datagram. Fields not used by Kind are empty.
type Message struct {
	Kind       Kind
	DeviceID   string
	DeviceName string
	Channel    string
	Value      string
	Payload    string
}

// Parse decodes one colon-delimited datagram. Fields cannot contain ':'.
func Parse(raw string) (Message, error) {
	raw = strings.TrimRight(raw, "\r\n\x00 ")
	head, _, _ := strings.Cut(raw, ":")

	switch head {
	case PrefixSensor:
		parts := strings.Split(raw, ":")
		if len(parts) != 5 || parts[1] == "" || parts[3] == "" {
			return Message{}, fmt.Errorf("%w: sensor update with %d fields", ErrMalformed, len(parts))
		}
		return Message{
			Kind:       KindSensor,
			DeviceID:   parts[1],
			DeviceName: parts[2],
			Channel:    parts[3],
			Value:      parts[4],
		}, nil

	case PrefixAnnounce:
		parts := strings.Split(raw, ":")
		if len(parts) != 4 || parts[1] != stateOnline || parts[2] == "" {
			return Message{}, fmt.Errorf("%w: announce with %d fields", ErrMalformed, len(parts))
		}
		return Message{Kind: KindAnnounce, DeviceID: parts[2], DeviceName: parts[3]}, nil

	case PrefixDiscover:
		if !strings.HasPrefix(raw, PrefixDiscover+":") {
			return Message{}, fmt.Errorf("%w: discover without payload", ErrMalformed)
		}
		return Message{Kind: KindDiscover, Payload: strings.TrimPrefix(raw, PrefixDiscover+":")}, nil

	case PrefixConfigUpdated:
		// GPIO_CONFIG_UPDATED:RESTART_REQUIRED:<deviceId>
		parts := strings.Split(raw, ":")
		if len(parts) != 3 || parts[2] == "" {
			return Message{}, fmt.Errorf("%w: config ack with %d fields", ErrMalformed, len(parts))
		}
		return Message{Kind: KindConfigUpdated, Payload: parts[1], DeviceID: parts[2]}, nil
	}

	return Message{}, fmt.Errorf("%w: %q", ErrUnsupported, head)
}

// FormatSensorUpdate renders SENSOR:<id>:<name>:<channel>:<value>.
func FormatSensorUpdate(deviceID, deviceName, channel, value string) string {
	return strings.Join([]string{PrefixSensor, deviceID, deviceName, channel, value}, ":")
}

// FormatAnnounce renders SECURITY_DEVICE:ONLINE:<id>:<name>.
func FormatAnnounce(deviceID, deviceName string) string {
	return strings.Join([]string{PrefixAnnounce, stateOnline, deviceID, deviceName}, ":")
}

// FormatDiscoveryReply renders SECURITY_SYSTEM:ONLINE:<ip>.
func FormatDiscoveryReply(ip string) string {
	return PrefixSystem + ":" + stateOnline + ":" + ip
}

// GPIOPins is the pin layout pushed to a sender.
type GPIOPins struct {
	Motion int `json:"motion_pin"`
	Door   int `json:"door_pin"`
	Window int `json:"window_pin"`
	LED    int `json:"led_pin"`
}

// FormatGPIOConfig renders CONFIG:GPIO:<target>:<motion>:<door>:<window>:<led>.
// target is a device id or "all".
func FormatGPIOConfig(target string, pins GPIOPins) string {
	return fmt.Sprintf("%s:GPIO:%s:%d:%d:%d:%d", PrefixConfig, target, pins.Motion, pins.Door, pins.Window, pins.LED)
}

// ValidField reports whether s can travel inside a colon-delimited message.
func ValidField(s string) bool {
	return s != "" && !strings.ContainsAny(s, ":\r\n")
}
