package network

import (
	"net"

	"security-hub/internal/protocol"
)

// Malformed status datagrams are dropped; only debug logging notes them.
func (m *Manager) handleStatus(_ *net.UDPConn, payload []byte, from *net.UDPAddr) {
	msg, err := protocol.Parse(string(payload))
	if err != nil {
		m.logger.Debugf("Status datagram from %s dropped: %v", from, err)
		return
	}

	ip := from.IP.String()
	switch msg.Kind {
	case protocol.KindSensor:
		m.proc.SensorUpdate(msg, ip)
	case protocol.KindConfigUpdated:
		m.proc.ConfigUpdated(msg.DeviceID, ip)
	case protocol.KindAnnounce:
		m.proc.Announce(msg.DeviceID, msg.DeviceName, ip)
	default:
		m.logger.Debugf("Unexpected datagram on status port from %s", from)
	}
}
