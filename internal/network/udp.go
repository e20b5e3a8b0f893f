package network

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"security-hub/internal/logging"
)

const maxDatagram = 4096

type datagramHandler func(conn *net.UDPConn, payload []byte, from *net.UDPAddr)

// udpListener owns one UDP socket and rebinds after transport errors.
type udpListener struct {
	name    string
	addr    string
	backoff time.Duration
	logger  *logging.Logger
	handle  datagramHandler

	mu   sync.Mutex
	conn *net.UDPConn
}

func newUDPListener(name, host string, port int, backoff time.Duration, logger *logging.Logger, h datagramHandler) *udpListener {
	return &udpListener{
		name:    name,
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		backoff: backoff,
		logger:  logger,
		handle:  h,
	}
}

func (l *udpListener) bind() (*net.UDPConn, error) {
	laddr, err := net.ResolveUDPAddr("udp4", l.addr)
	if err != nil {
		return nil, err
	}
	// Linux sockets from ListenUDP can already send to broadcast addresses.
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	return conn, nil
}

// Addr is the bound address, or nil while unbound.
func (l *udpListener) Addr() *net.UDPAddr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr().(*net.UDPAddr)
}

func (l *udpListener) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		_ = l.conn.Close()
		l.conn = nil
	}
}

// run serves until ctx is cancelled. conn may be nil when the first bind failed.
func (l *udpListener) run(ctx context.Context, conn *net.UDPConn) {
	defer l.close()
	for {
		if conn == nil {
			var err error
			conn, err = l.bind()
			if err != nil {
				l.logger.Errorf("%s listener bind %s failed: %v", l.name, l.addr, err)
				if !sleepCtx(ctx, l.backoff) {
					return
				}
				continue
			}
			if ctx.Err() != nil {
				return
			}
		}
		l.logger.Infof("%s listener started on %s", l.name, conn.LocalAddr())
		l.serve(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		l.close()
		conn = nil
	}
}

func (l *udpListener) serve(ctx context.Context, conn *net.UDPConn) {
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Errorf("%s listener receive failed: %v", l.name, err)
			if !sleepCtx(ctx, l.backoff) {
				return
			}
			continue
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		l.handle(conn, payload, from)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
