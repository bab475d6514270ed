package transceiver

import (
	"sync"

	"github.com/danmuck/devlink/internal/frame"
)

// SendMode selects the outbound queue backpressure policy for
// realtime-send mode.
type SendMode int

const (
	// SendFIFO keeps every queued frame, unbounded.
	SendFIFO SendMode = iota
	// SendLatestOnly keeps only the most recently queued frame.
	SendLatestOnly
	// SendLimitedFIFO keeps at most the configured limit, dropping the
	// oldest frame to admit a new one.
	SendLimitedFIFO
)

// DefaultQueueLimit bounds SendLimitedFIFO when no explicit limit is set.
const DefaultQueueLimit = 100

func (m SendMode) String() string {
	switch m {
	case SendFIFO:
		return "fifo"
	case SendLatestOnly:
		return "latest_only"
	case SendLimitedFIFO:
		return "limited_fifo"
	default:
		return "unknown"
	}
}

// sendQueue is the outbound frame queue shared between SendPacket and the
// realtime-send worker. Frames are stored as copies so callers may reuse
// their buffers after queueing.
type sendQueue struct {
	mu    sync.Mutex
	mode  SendMode
	limit int
	items []*frame.Frame
}

func newSendQueue(mode SendMode, limit int) *sendQueue {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &sendQueue{mode: mode, limit: limit}
}

func (q *sendQueue) push(f *frame.Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch q.mode {
	case SendLatestOnly:
		q.items = q.items[:0]
	case SendLimitedFIFO:
		for len(q.items) >= q.limit {
			q.items = q.items[1:]
		}
	}
	q.items = append(q.items, f.Clone())
}

func (q *sendQueue) popFront() (*frame.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	f := q.items[0]
	q.items = q.items[1:]
	return f, true
}

// setMode switches policy and retroactively trims the queue so the new
// policy's invariant holds for already-queued frames.
func (q *sendQueue) setMode(mode SendMode, limit int) {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.mode = mode
	q.limit = limit

	if mode == SendLatestOnly && len(q.items) > 1 {
		q.items = q.items[len(q.items)-1:]
	}
	if mode == SendLimitedFIFO && len(q.items) > limit {
		q.items = q.items[len(q.items)-limit:]
	}
}

func (q *sendQueue) snapshot() (SendMode, int, int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.mode, q.limit, len(q.items)
}

func (q *sendQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
