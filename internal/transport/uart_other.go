//go:build !linux

package transport

import "errors"

// UART serial support requires Linux termios; on other platforms Open
// fails and the caller falls back to the TCP transport.
type UART struct {
	device string
	baud   int
}

func NewUART(device string, baud int) *UART {
	return &UART{device: device, baud: baud}
}

func (u *UART) Open() error {
	return errors.New("transport: uart is only supported on linux")
}

func (u *UART) Close()                      {}
func (u *UART) IsOpen() bool                { return false }
func (u *UART) Read(p []byte) (int, error)  { return 0, ErrNotOpen }
func (u *UART) Write(p []byte) (int, error) { return 0, ErrNotOpen }
