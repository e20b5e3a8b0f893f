package network

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"security-hub/internal/logging"
	"security-hub/internal/protocol"
)

type imageHandler func(hdr protocol.ImageHeader, body []byte, ip string)

// imageListener accepts framed image uploads, one goroutine per connection.
type imageListener struct {
	addr        string
	backoff     time.Duration
	readTimeout time.Duration
	maxBytes    int64
	logger      *logging.Logger
	handle      imageHandler

	mu    sync.Mutex
	ln    *net.TCPListener
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

func newImageListener(host string, port int, backoff, readTimeout time.Duration, maxBytes int64, logger *logging.Logger, h imageHandler) *imageListener {
	return &imageListener{
		addr:        net.JoinHostPort(host, strconv.Itoa(port)),
		backoff:     backoff,
		readTimeout: readTimeout,
		maxBytes:    maxBytes,
		logger:      logger,
		handle:      h,
		conns:       make(map[net.Conn]struct{}),
	}
}

func (l *imageListener) bind() (*net.TCPListener, error) {
	laddr, err := net.ResolveTCPAddr("tcp4", l.addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP("tcp4", laddr)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	return ln, nil
}

func (l *imageListener) Addr() *net.TCPAddr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr().(*net.TCPAddr)
}

// close stops accepting and aborts in-flight transfers.
func (l *imageListener) close() {
	l.mu.Lock()
	if l.ln != nil {
		_ = l.ln.Close()
		l.ln = nil
	}
	for c := range l.conns {
		_ = c.Close()
	}
	l.mu.Unlock()
}

func (l *imageListener) run(ctx context.Context, ln *net.TCPListener) {
	defer func() {
		l.close()
		l.wg.Wait()
	}()
	for {
		if ln == nil {
			var err error
			ln, err = l.bind()
			if err != nil {
				l.logger.Errorf("Image listener bind %s failed: %v", l.addr, err)
				if !sleepCtx(ctx, l.backoff) {
					return
				}
				continue
			}
			if ctx.Err() != nil {
				return
			}
		}
		l.logger.Infof("Image listener started on %s", ln.Addr())
		l.accept(ctx, ln)
		if ctx.Err() != nil {
			return
		}
		l.mu.Lock()
		if l.ln == ln {
			_ = ln.Close()
			l.ln = nil
		}
		l.mu.Unlock()
		ln = nil
	}
}

func (l *imageListener) accept(ctx context.Context, ln *net.TCPListener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Errorf("Image listener accept failed: %v", err)
			if !sleepCtx(ctx, l.backoff) {
				return
			}
			continue
		}

		l.mu.Lock()
		if ctx.Err() != nil {
			l.mu.Unlock()
			_ = conn.Close()
			return
		}
		l.conns[conn] = struct{}{}
		l.wg.Add(1)
		l.mu.Unlock()

		go func() {
			defer l.wg.Done()
			defer func() {
				l.mu.Lock()
				delete(l.conns, conn)
				l.mu.Unlock()
				_ = conn.Close()
			}()
			l.serveConn(conn)
		}()
	}
}

// serveConn reads one frame. Nothing is handed on unless the whole body arrived.
func (l *imageListener) serveConn(conn net.Conn) {
	peer := conn.RemoteAddr().String()
	ip := peer
	if host, _, err := net.SplitHostPort(peer); err == nil {
		ip = host
	}

	if l.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(l.readTimeout))
	}

	hdr, err := protocol.ReadImageHeader(conn)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			l.logger.Warnf("Image transfer from %s abandoned: %v", peer, err)
			return
		}
		l.logger.Errorf("Image header from %s rejected: %v", peer, err)
		return
	}

	body, err := protocol.ReadImageBody(conn, l.maxBytes)
	if err != nil {
		l.logger.Errorf("Image transfer from %s discarded: file=%s: %v", peer, hdr.Filename, err)
		return
	}
	l.handle(hdr, body, ip)
}
