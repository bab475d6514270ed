//go:build linux

package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

var baudFlags = map[int]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
	1000000: unix.B1000000,
}

// UART is a raw Linux serial port: 8N1, no flow control, non-blocking
// reads (VMIN=0, VTIME=0) so the transceiver poll loop never stalls in a
// syscall.
type UART struct {
	device string
	baud   int

	mu   sync.Mutex
	fd   int
	open bool
}

func NewUART(device string, baud int) *UART {
	return &UART{device: device, baud: baud, fd: -1}
}

func (u *UART) Open() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.open {
		return nil
	}
	speed, ok := baudFlags[u.baud]
	if !ok {
		return fmt.Errorf("transport: unsupported baud rate %d", u.baud)
	}
	fd, err := unix.Open(u.device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", u.device, err)
	}

	tio := unix.Termios{
		Cflag: unix.CS8 | unix.CLOCAL | unix.CREAD | speed,
		Iflag: unix.IGNPAR,
	}
	tio.Cc[unix.VMIN] = 0
	tio.Cc[unix.VTIME] = 0
	tio.Ispeed = speed
	tio.Ospeed = speed
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &tio); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("transport: configure %s: %w", u.device, err)
	}
	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH); err != nil {
		log.Warn().Err(err).Str("device", u.device).Msg("uart flush")
	}

	u.fd = fd
	u.open = true
	return nil
}

func (u *UART) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.open {
		return
	}
	if err := unix.Close(u.fd); err != nil {
		log.Warn().Err(err).Str("device", u.device).Msg("uart close")
	}
	u.fd = -1
	u.open = false
}

func (u *UART) IsOpen() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.open
}

func (u *UART) Read(p []byte) (int, error) {
	u.mu.Lock()
	fd, open := u.fd, u.open
	u.mu.Unlock()
	if !open {
		return 0, ErrNotOpen
	}
	n, err := unix.Read(fd, p)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return 0, nil
		}
		return 0, fmt.Errorf("transport: read %s: %w", u.device, err)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

func (u *UART) Write(p []byte) (int, error) {
	u.mu.Lock()
	fd, open := u.fd, u.open
	u.mu.Unlock()
	if !open {
		return 0, ErrNotOpen
	}
	n, err := unix.Write(fd, p)
	if err != nil {
		return n, fmt.Errorf("transport: write %s: %w", u.device, err)
	}
	return n, nil
}
