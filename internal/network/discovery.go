package network

import (
	"net"
	"os"

	"security-hub/internal/protocol"
)

func (m *Manager) handleDiscovery(conn *net.UDPConn, payload []byte, from *net.UDPAddr) {
	msg, err := protocol.Parse(string(payload))
	if err != nil {
		m.logger.Debugf("Discovery datagram from %s dropped: %v", from, err)
		return
	}

	switch msg.Kind {
	case protocol.KindAnnounce:
		m.proc.Announce(msg.DeviceID, msg.DeviceName, from.IP.String())
	case protocol.KindDiscover:
		reply := protocol.FormatDiscoveryReply(LocalIP(from.IP))
		if _, err := conn.WriteToUDP([]byte(reply), from); err != nil {
			m.logger.Errorf("Discovery reply to %s failed: %v", from, err)
			return
		}
		m.logger.Debugf("Answered discovery from %s", from)
	default:
		m.logger.Debugf("Unexpected datagram on discovery port from %s", from)
	}
}

// LocalIP is the address the hub advertises to remote. Hostname resolution
// is tried first; a loopback result falls back to the source address the
// kernel picks for a route toward remote.
func LocalIP(remote net.IP) string {
	if ip := hostnameIP(); ip != nil && !ip.IsLoopback() {
		return ip.String()
	}
	if remote == nil {
		return "127.0.0.1"
	}
	// No packet is sent; connecting a UDP socket only selects a route.
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: remote, Port: 1})
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func hostnameIP() net.IP {
	host, err := os.Hostname()
	if err != nil {
		return nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4
		}
	}
	return nil
}
