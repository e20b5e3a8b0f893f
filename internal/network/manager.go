package network

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"security-hub/internal/config"
	"security-hub/internal/logging"
	"security-hub/internal/models"
	"security-hub/internal/protocol"
	"security-hub/internal/store"
	"security-hub/internal/utils"
)

// Manager starts and stops the discovery, status and image listeners together.
type Manager struct {
	cfg    config.Config
	proc   *Processor
	logger *logging.Logger

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	discovery *udpListener
	status    *udpListener
	image     *imageListener
}

func NewManager(cfg config.Config, proc *Processor, logger *logging.Logger) *Manager {
	return &Manager{cfg: cfg, proc: proc, logger: logger}
}

// Start binds all three listeners. It is a no-op when already running.
// Bind failures are retried in the background with the configured backoff.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	n := m.cfg.Network
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.discovery = newUDPListener("Discovery", n.BindHost, m.cfg.Port(config.PortDiscovery), n.RetryBackoff, m.logger, m.handleDiscovery)
	m.status = newUDPListener("Status", n.BindHost, m.cfg.Port(config.PortStatus), n.RetryBackoff, m.logger, m.handleStatus)
	m.image = newImageListener(n.BindHost, m.cfg.Port(config.PortImage), n.RetryBackoff,
		m.cfg.Images.ReadTimeout, m.cfg.Images.MaxBytes, m.logger, m.handleImage)

	for _, l := range []*udpListener{m.discovery, m.status} {
		conn, err := l.bind()
		if err != nil {
			m.logger.Errorf("%s listener bind %s failed, retrying: %v", l.name, l.addr, err)
			conn = nil
		}
		m.wg.Add(1)
		go func(l *udpListener, conn *net.UDPConn) {
			defer m.wg.Done()
			l.run(ctx, conn)
		}(l, conn)
	}

	ln, err := m.image.bind()
	if err != nil {
		m.logger.Errorf("Image listener bind %s failed, retrying: %v", m.image.addr, err)
		ln = nil
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.image.run(ctx, ln)
	}()

	m.running = true
	m.logger.Infof("Network listeners started")
}

// Stop closes every socket and waits for all listener and connection workers.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}

	m.cancel()
	m.discovery.close()
	m.status.close()
	m.image.close()
	m.wg.Wait()

	m.running = false
	m.logger.Infof("Network listeners stopped")
}

func (m *Manager) Restart() {
	m.Stop()
	m.Start()
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Addrs reports the bound listener addresses; nil entries are unbound.
func (m *Manager) Addrs() (discovery, status *net.UDPAddr, image *net.TCPAddr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil, nil, nil
	}
	return m.discovery.Addr(), m.status.Addr(), m.image.Addr()
}

func (m *Manager) handleImage(hdr protocol.ImageHeader, body []byte, ip string) {
	if _, err := m.proc.Image(hdr, body, ip); err != nil {
		m.logger.Errorf("Failed to persist image %s from %s: %v", hdr.Filename, ip, err)
	}
}

// SendGPIOConfig pushes CONFIG:GPIO to one device, or to every known device
// when target is "all". It returns how many devices were sent to.
func (m *Manager) SendGPIOConfig(registry *store.Registry, target string, pins protocol.GPIOPins) (int, error) {
	var devices []models.Device
	if target == "all" {
		devices = registry.List()
	} else {
		d, err := registry.Get(target)
		if err != nil {
			return 0, fmt.Errorf("device %s: %w", target, err)
		}
		devices = []models.Device{d}
	}

	payload := []byte(protocol.FormatGPIOConfig(target, pins))
	port := strconv.Itoa(m.cfg.Port(config.PortStatus))
	sent := 0
	for _, d := range devices {
		if d.Address == "" {
			m.logger.Warnf("Device %s has no known address, GPIO config skipped", d.ID)
			continue
		}
		addr := net.JoinHostPort(d.Address, port)
		err := utils.Retry(m.logger, 3, m.cfg.Network.RetryBackoff, func() error {
			return sendDatagram(addr, payload)
		})
		if err != nil {
			return sent, fmt.Errorf("failed to send GPIO config to %s: %w", d.ID, err)
		}
		m.logger.Infof("GPIO config sent to device %s at %s", d.ID, addr)
		sent++
	}
	return sent, nil
}

func sendDatagram(addr string, payload []byte) error {
	conn, err := net.Dial("udp4", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write(payload)
	return err
}
