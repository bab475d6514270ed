package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	HeadByte byte = 0xFF
	TailByte byte = 0x0D

	// MinCapacity leaves room for head, check and tail bytes.
	MinCapacity = 3

	// DefaultCapacity matches the smallest link frame deployed in practice.
	DefaultCapacity = 16
)

var (
	ErrNilSource   = errors.New("frame: nil source buffer")
	ErrShortSource = errors.New("frame: source shorter than frame capacity")
)

// Frame is one fixed-capacity link packet. The zero value is unusable;
// construct with New.
type Frame struct {
	buf []byte
}

// New returns a zero-filled frame with sentinels set. Capacity below
// MinCapacity is a programmer error and panics.
func New(capacity int) *Frame {
	if capacity < MinCapacity {
		panic(fmt.Sprintf("frame: capacity %d below minimum %d", capacity, MinCapacity))
	}
	f := &Frame{buf: make([]byte, capacity)}
	f.buf[0] = HeadByte
	f.buf[capacity-1] = TailByte
	return f
}

func (f *Frame) Capacity() int {
	return len(f.buf)
}

// Clear zeroes the interior bytes, including the check byte. Sentinels
// are preserved.
func (f *Frame) Clear() {
	for i := 1; i < len(f.buf)-1; i++ {
		f.buf[i] = 0
	}
}

func (f *Frame) SetCheckByte(b byte) {
	f.buf[len(f.buf)-2] = b
}

func (f *Frame) CheckByte() byte {
	return f.buf[len(f.buf)-2]
}

// CopyFrom raw-copies capacity bytes from src. The caller is responsible
// for the sentinel validity of the source bytes.
func (f *Frame) CopyFrom(src []byte) error {
	if src == nil {
		return ErrNilSource
	}
	if len(src) < len(f.buf) {
		return fmt.Errorf("%w: have %d, need %d", ErrShortSource, len(src), len(f.buf))
	}
	copy(f.buf, src[:len(f.buf)])
	return nil
}

// Clone returns an independent copy of the frame.
func (f *Frame) Clone() *Frame {
	c := &Frame{buf: make([]byte, len(f.buf))}
	copy(c.buf, f.buf)
	return c
}

// Bytes exposes the underlying buffer for transport writes. Mutating the
// sentinel positions through it voids the frame invariants.
func (f *Frame) Bytes() []byte {
	return f.buf
}

// Valid reports whether head and tail sentinels are intact. It does not
// validate the check byte.
func (f *Frame) Valid() bool {
	return f.buf[0] == HeadByte && f.buf[len(f.buf)-1] == TailByte
}

// Put writes a fixed-size value at index. It succeeds only when the value
// fits strictly inside the payload region: index > 0 and
// index+size < capacity-1, so head, check and tail bytes are never
// touched. Values without a fixed wire size are rejected. Little-endian
// byte order is the link convention.
func Put[T any](f *Frame, v T, index int) bool {
	size := binary.Size(v)
	if size < 0 {
		return false
	}
	if index <= 0 || index+size >= len(f.buf)-1 {
		return false
	}
	if _, err := binary.Encode(f.buf[index:index+size], binary.LittleEndian, v); err != nil {
		return false
	}
	return true
}

// Get reads a fixed-size value from index under the same bounds contract
// as Put.
func Get[T any](f *Frame, out *T, index int) bool {
	size := binary.Size(*out)
	if size < 0 {
		return false
	}
	if index <= 0 || index+size >= len(f.buf)-1 {
		return false
	}
	if _, err := binary.Decode(f.buf[index:index+size], binary.LittleEndian, out); err != nil {
		return false
	}
	return true
}
