package transceiver

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/devlink/internal/frame"
	"github.com/danmuck/devlink/internal/observability"
	"github.com/danmuck/devlink/internal/transport"
)

var (
	ErrNilTransport     = errors.New("transceiver: nil transport")
	ErrBadCapacity      = errors.New("transceiver: frame capacity below minimum")
	ErrCapacityMismatch = errors.New("transceiver: frame capacity mismatch")
	ErrSendFailed       = errors.New("transceiver: send failed")
	ErrReadFailed       = errors.New("transceiver: transport read failed")
	ErrIncompleteFrame  = errors.New("transceiver: incomplete frame")
)

// pollInterval is the worker sleep when the queue or link is idle. The
// transports expose no readiness signal, so the workers busy-poll.
const pollInterval = time.Millisecond

// Transceiver exchanges fixed-capacity frames over one Transport.
type Transceiver struct {
	capacity int
	tr       transport.Transport

	// recvMu serializes RecvPacket and guards tmp/carry.
	recvMu sync.Mutex
	tmp    []byte
	carry  []byte

	queue *sendQueue

	realtimeSend atomic.Bool
	sendWG       sync.WaitGroup
	realtimeRead atomic.Bool
	readWG       sync.WaitGroup
	toggleMu     sync.Mutex

	latestMu sync.Mutex
	latest   *frame.Frame
}

// New builds a transceiver for frames of the given capacity. A nil
// transport is the one fatal construction misuse.
func New(capacity int, tr transport.Transport) (*Transceiver, error) {
	if tr == nil {
		return nil, ErrNilTransport
	}
	if capacity < frame.MinCapacity {
		return nil, fmt.Errorf("%w: %d < %d", ErrBadCapacity, capacity, frame.MinCapacity)
	}
	return &Transceiver{
		capacity: capacity,
		tr:       tr,
		tmp:      make([]byte, capacity),
		carry:    make([]byte, 0, capacity*2),
		queue:    newSendQueue(SendFIFO, DefaultQueueLimit),
	}, nil
}

func (t *Transceiver) Capacity() int {
	return t.capacity
}

func (t *Transceiver) IsOpen() bool {
	return t.tr.IsOpen()
}

// SetSendMode switches the outbound queue policy. Already-queued frames
// are trimmed so the new policy's invariant holds immediately.
func (t *Transceiver) SetSendMode(mode SendMode, maxQueue int) {
	t.queue.setMode(mode, maxQueue)
}

// QueueStatus reports the active send mode, its limit and the current
// outbound depth.
func (t *Transceiver) QueueStatus() (SendMode, int, int) {
	return t.queue.snapshot()
}

// SendPacket transmits one frame. With realtime send enabled the frame is
// queued under the active policy and the call succeeds immediately;
// otherwise the write happens synchronously and a transport fault is
// reported after a best-effort reconnect.
func (t *Transceiver) SendPacket(f *frame.Frame) error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrSendFailed)
	}
	if f.Capacity() != t.capacity {
		return fmt.Errorf("%w: frame %d, link %d", ErrCapacityMismatch, f.Capacity(), t.capacity)
	}
	if t.realtimeSend.Load() {
		t.queue.push(f)
		return nil
	}
	return t.simpleSend(f)
}

func (t *Transceiver) simpleSend(f *frame.Frame) error {
	n, err := t.tr.Write(f.Bytes())
	if err == nil && n == t.capacity {
		observability.RecordFrameSent()
		return nil
	}
	log.Warn().Err(err).Int("written", n).Int("capacity", t.capacity).Msg("link write failed, reconnecting")
	t.reconnect()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return fmt.Errorf("%w: short write %d/%d", ErrSendFailed, n, t.capacity)
}

// reconnect closes and reopens the transport best-effort. Failures are
// logged only; the next call retries.
func (t *Transceiver) reconnect() {
	t.tr.Close()
	if err := t.tr.Open(); err != nil {
		log.Warn().Err(err).Msg("link reopen failed")
	}
	observability.RecordLinkReconnect()
}

// RecvPacket reads one frame into out. A full aligned read is accepted
// directly; anything else goes through the carry-over buffer and a window
// scan for valid sentinels. ErrIncompleteFrame means more bytes are
// needed; the carried bytes are kept for the next call.
func (t *Transceiver) RecvPacket(out *frame.Frame) error {
	if out == nil {
		return fmt.Errorf("%w: nil frame", ErrReadFailed)
	}
	if out.Capacity() != t.capacity {
		return fmt.Errorf("%w: frame %d, link %d", ErrCapacityMismatch, out.Capacity(), t.capacity)
	}

	t.recvMu.Lock()
	defer t.recvMu.Unlock()

	n, err := t.tr.Read(t.tmp)
	if err != nil || n <= 0 {
		if err != nil {
			log.Warn().Err(err).Msg("link read failed, reconnecting")
		}
		t.reconnect()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReadFailed, err)
		}
		return ErrReadFailed
	}

	if n == t.capacity && validWindow(t.tmp) {
		if err := out.CopyFrom(t.tmp); err != nil {
			return err
		}
		observability.RecordFrameReceived()
		return nil
	}

	// Fragmented or coalesced read: accumulate and resync.
	if len(t.carry)+n > cap(t.carry) {
		log.Debug().Int("carried", len(t.carry)).Int("incoming", n).Msg("carry buffer overflow, resetting")
		observability.RecordCarryReset()
		t.carry = t.carry[:0]
	}
	t.carry = append(t.carry, t.tmp[:n]...)

	for i := 0; i+t.capacity <= len(t.carry); i++ {
		if !validWindow(t.carry[i : i+t.capacity]) {
			continue
		}
		if err := out.CopyFrom(t.carry[i : i+t.capacity]); err != nil {
			return err
		}
		// Left-compact: discard the consumed prefix, keep the remainder.
		rem := copy(t.carry, t.carry[i+t.capacity:])
		t.carry = t.carry[:rem]
		observability.RecordFrameReceived()
		observability.RecordResync()
		return nil
	}
	return ErrIncompleteFrame
}

// validWindow checks head and tail sentinels. The check byte at
// capacity-2 is reserved in the layout; no checksum algorithm is defined
// for this link.
func validWindow(b []byte) bool {
	return b[0] == frame.HeadByte && b[len(b)-1] == frame.TailByte
}

// EnableRealtimeSend toggles the background send worker. Enabling twice
// is a no-op; disabling joins the worker before returning.
func (t *Transceiver) EnableRealtimeSend(enable bool) {
	t.toggleMu.Lock()
	defer t.toggleMu.Unlock()
	if enable == t.realtimeSend.Load() {
		return
	}
	if enable {
		t.realtimeSend.Store(true)
		t.sendWG.Add(1)
		go t.sendLoop()
		return
	}
	t.realtimeSend.Store(false)
	t.sendWG.Wait()
}

func (t *Transceiver) sendLoop() {
	defer t.sendWG.Done()
	for t.realtimeSend.Load() {
		f, ok := t.queue.popFront()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		if err := t.simpleSend(f); err != nil {
			log.Debug().Err(err).Msg("realtime send")
		}
	}
}

// EnableRealtimeRead toggles the background receive worker, which keeps
// the most recently parsed frame available through LatestPacket.
func (t *Transceiver) EnableRealtimeRead(enable bool) {
	t.toggleMu.Lock()
	defer t.toggleMu.Unlock()
	if enable == t.realtimeRead.Load() {
		return
	}
	if enable {
		t.realtimeRead.Store(true)
		t.readWG.Add(1)
		go t.readLoop()
		return
	}
	t.realtimeRead.Store(false)
	t.readWG.Wait()
}

func (t *Transceiver) readLoop() {
	defer t.readWG.Done()
	buf := frame.New(t.capacity)
	for t.realtimeRead.Load() {
		if err := t.RecvPacket(buf); err != nil {
			time.Sleep(pollInterval)
			continue
		}
		t.latestMu.Lock()
		t.latest = buf.Clone()
		t.latestMu.Unlock()
	}
}

// LatestPacket returns a copy of the most recent frame parsed by the
// realtime-read worker, or ok=false when none has arrived yet.
func (t *Transceiver) LatestPacket() (*frame.Frame, bool) {
	t.latestMu.Lock()
	defer t.latestMu.Unlock()
	if t.latest == nil {
		return nil, false
	}
	return t.latest.Clone(), true
}

// Close forces both realtime workers off. The transport itself stays
// under the caller's ownership.
func (t *Transceiver) Close() {
	t.EnableRealtimeSend(false)
	t.EnableRealtimeRead(false)
}
