package bus

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/danmuck/devlink/internal/observability"
)

// Subscriber is a typed consumer endpoint on one named channel. Delivered
// values queue in a private FIFO of capacity fifoSize (0 = unbounded);
// when the queue is full the oldest value is dropped, so a size of 1
// behaves as keep-newest.
type Subscriber[T any] struct {
	mu       sync.Mutex
	fifo     []T
	fifoSize int

	// signal carries at most one pending wakeup token; receives re-check
	// the predicate on every wake, so stale tokens are harmless.
	signal chan struct{}

	pipe *pipe[T]
	perf perfRing
	clk  clock.Clock
}

// NewSubscriber returns a subscriber bound to the named channel with the
// given queue capacity (0 = unbounded).
func NewSubscriber[T any](name string, fifoSize int) (*Subscriber[T], error) {
	s := &Subscriber[T]{fifoSize: fifoSize}
	if err := s.Bind(name); err != nil {
		return nil, err
	}
	return s, nil
}

// Bind releases any prior binding and joins the named channel.
func (s *Subscriber[T]) Bind(name string) error {
	s.Reset()
	if s.signal == nil {
		s.signal = make(chan struct{}, 1)
	}
	if s.clk == nil {
		s.clk = clock.New()
	}
	pp, err := acquire[T](name)
	if err != nil {
		return err
	}
	s.pipe = pp
	pp.addSub(s)
	return nil
}

// Reset leaves the channel and discards queued values. Safe on an unbound
// endpoint.
func (s *Subscriber[T]) Reset() {
	if s.pipe == nil {
		return
	}
	pp := s.pipe
	s.pipe = nil
	pp.removeSub(s)
	release(pp.name)

	s.mu.Lock()
	s.fifo = nil
	s.mu.Unlock()
}

func (s *Subscriber[T]) Bound() bool {
	return s.pipe != nil
}

// Clone returns an independent subscriber membership on the same channel
// with the same queue capacity. The private queue starts empty.
func (s *Subscriber[T]) Clone() (*Subscriber[T], error) {
	if s.pipe == nil {
		return nil, ErrEmptyEndpoint
	}
	return NewSubscriber[T](s.pipe.name, s.FIFOSize())
}

// SetFIFOSize changes the queue capacity (0 = unbounded). An existing
// backlog above the new capacity drains through the drop-oldest rule on
// the next deliveries.
func (s *Subscriber[T]) SetFIFOSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fifoSize = size
}

func (s *Subscriber[T]) FIFOSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fifoSize
}

// Clear empties the private queue.
func (s *Subscriber[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fifo = s.fifo[:0]
}

// Pop blocks until a value is available or the last publisher leaves the
// channel. A queued value wins over the stop condition.
func (s *Subscriber[T]) Pop() (T, error) {
	var zero T
	if s.pipe == nil {
		return zero, ErrEmptyEndpoint
	}
	for {
		if v, ok, stopped := s.take(); ok {
			return v, nil
		} else if stopped {
			return zero, ErrChannelStopped
		}
		<-s.signal
	}
}

// PopFor is Pop bounded by a duration.
func (s *Subscriber[T]) PopFor(d time.Duration) (T, error) {
	return s.PopUntil(time.Now().Add(d))
}

// PopUntil is Pop bounded by a deadline. ErrChannelTimeout is returned
// when the deadline passes with neither data nor stop observed.
func (s *Subscriber[T]) PopUntil(deadline time.Time) (T, error) {
	var zero T
	if s.pipe == nil {
		return zero, ErrEmptyEndpoint
	}
	for {
		if v, ok, stopped := s.take(); ok {
			return v, nil
		} else if stopped {
			return zero, ErrChannelStopped
		}
		wait := time.Until(deadline)
		if wait <= 0 {
			return zero, ErrChannelTimeout
		}
		timer := time.NewTimer(wait)
		select {
		case <-s.signal:
			timer.Stop()
		case <-timer.C:
			// Final re-check so a delivery racing the deadline wins.
			if v, ok, stopped := s.take(); ok {
				return v, nil
			} else if stopped {
				return zero, ErrChannelStopped
			}
			return zero, ErrChannelTimeout
		}
	}
}

// take dequeues the oldest value if one is present, otherwise reports
// whether the channel is stopped. Data wins when both hold.
func (s *Subscriber[T]) take() (T, bool, bool) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fifo) > 0 {
		v := s.fifo[0]
		s.fifo[0] = zero
		s.fifo = s.fifo[1:]
		if len(s.fifo) > 0 {
			// Re-arm so a second waiter sees the remaining backlog even
			// when two deliveries merged into one wakeup token.
			s.notify()
		}
		return v, true, false
	}
	return zero, false, s.pipe == nil || s.pipe.stopped()
}

// PerformanceStats scans the trailing one-second window of the delivery
// ring: message count (Hz), max and 1st-percentile inter-arrival latency,
// plus the lifetime total.
func (s *Subscriber[T]) PerformanceStats() PerformanceStats {
	clk := s.clk
	if clk == nil {
		clk = clock.New()
	}
	return s.perf.stats(clk.Now())
}

// deliver runs under the channel's subscriber-list lock, held by Push.
func (s *Subscriber[T]) deliver(channel string, v T) {
	s.mu.Lock()
	if s.fifoSize > 0 && len(s.fifo) >= s.fifoSize {
		drop := len(s.fifo) - s.fifoSize + 1
		var zero T
		for i := 0; i < drop; i++ {
			s.fifo[i] = zero
		}
		s.fifo = s.fifo[drop:]
		observability.RecordBusDrop(channel)
	}
	s.fifo = append(s.fifo, v)
	s.mu.Unlock()

	s.notify()
	s.perf.record(s.clk.Now())
}

// notify leaves one wakeup token without blocking. Also used as the stop
// broadcast when the last publisher resets.
func (s *Subscriber[T]) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}
