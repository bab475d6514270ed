package transport

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const tcpDialTimeout = 2 * time.Second

// TCP is a byte-stream transport over one TCP connection, used for bench
// rigs and the link simulator where the device speaks a socket instead of
// a serial port.
type TCP struct {
	addr        string
	readTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// NewTCP returns a transport dialing addr on Open. readTimeout bounds each
// Read; elapsed timeouts surface as (0, nil).
func NewTCP(addr string, readTimeout time.Duration) *TCP {
	if readTimeout <= 0 {
		readTimeout = 20 * time.Millisecond
	}
	return &TCP{addr: addr, readTimeout: readTimeout}
}

func (t *TCP) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", t.addr, tcpDialTimeout)
	if err != nil {
		return err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	t.conn = conn
	return nil
}

func (t *TCP) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return
	}
	if err := t.conn.Close(); err != nil {
		log.Warn().Err(err).Str("addr", t.addr).Msg("tcp transport close")
	}
	t.conn = nil
}

func (t *TCP) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

func (t *TCP) Read(p []byte) (int, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return 0, ErrNotOpen
	}
	if err := conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return 0, err
	}
	n, err := conn.Read(p)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			// No data inside the window, not a device fault.
			return n, nil
		}
		return n, err
	}
	return n, nil
}

func (t *TCP) Write(p []byte) (int, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return 0, ErrNotOpen
	}
	if err := conn.SetWriteDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return 0, err
	}
	return conn.Write(p)
}
