package uart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// DefaultDialTimeout bounds DialTCP.
const DefaultDialTimeout = 5 * time.Second

// DialTCP connects to a TCP gateway speaking the UART framing and returns a
// PumpStream over the connection. The stream must be started before use.
func DialTCP(ctx context.Context, addr string) (*PumpStream, error) {
	d := net.Dialer{Timeout: DefaultDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("uart: dial %s: %w", addr, err)
	}
	return NewPumpStream(conn, 0), nil
}

// Gateway accepts TCP peers and exposes each one as a Stream. The node
// attaches every accepted stream as its own transport.
type Gateway struct {
	listener net.Listener
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
}

// ListenTCP starts listening on addr.
func ListenTCP(addr string, logger *slog.Logger) (*Gateway, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("uart: listen %s: %w", addr, err)
	}
	return &Gateway{listener: ln, logger: logger}, nil
}

// Addr returns the listening address.
func (g *Gateway) Addr() net.Addr {
	return g.listener.Addr()
}

// Serve accepts connections until ctx is done or the gateway is closed.
// Each connection is wrapped in a started PumpStream and passed to accept.
func (g *Gateway) Serve(ctx context.Context, accept func(*PumpStream, net.Addr)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			g.Close()
		case <-done:
		}
	}()

	for {
		conn, err := g.listener.Accept()
		if err != nil {
			g.mu.Lock()
			closed := g.closed
			g.mu.Unlock()
			if closed || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("uart: accept: %w", err)
		}

		s := NewPumpStream(conn, 0)
		if err := s.Start(); err != nil {
			conn.Close()
			continue
		}
		g.debugLog("peer connected", "remote", conn.RemoteAddr().String())
		accept(s, conn.RemoteAddr())
	}
}

// Close stops accepting connections. Established streams stay open.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	return g.listener.Close()
}

func (g *Gateway) debugLog(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
