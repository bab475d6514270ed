package transport

import "errors"

var ErrNotOpen = errors.New("transport: device not open")

// Transport is an abstract byte-stream device. Implementations are safe
// for one reader and one writer goroutine plus open/close from a third.
type Transport interface {
	Open() error
	// Close releases the device. It never fails observably and is safe to
	// call on a device that is not open.
	Close()
	IsOpen() bool
	// Read fills p with at most len(p) bytes. (0, nil) means no data
	// within the device timeout.
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}
