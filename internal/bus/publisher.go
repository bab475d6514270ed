package bus

import "github.com/danmuck/devlink/internal/observability"

// Publisher is a typed producer endpoint on one named channel. It holds
// only a channel membership; delivered values live in each subscriber's
// private queue.
type Publisher[T any] struct {
	pipe *pipe[T]
}

// NewPublisher returns a publisher bound to the named channel, creating
// the channel on first reference.
func NewPublisher[T any](name string) (*Publisher[T], error) {
	p := &Publisher[T]{}
	if err := p.Bind(name); err != nil {
		return nil, err
	}
	return p, nil
}

// Bind releases any prior binding and joins the named channel.
func (p *Publisher[T]) Bind(name string) error {
	p.Reset()
	pp, err := acquire[T](name)
	if err != nil {
		return err
	}
	p.pipe = pp
	pp.addPub(p)
	return nil
}

// Reset leaves the channel. If this was the last publisher, every blocked
// subscriber is woken with the stop signal. Safe on an unbound endpoint.
func (p *Publisher[T]) Reset() {
	if p.pipe == nil {
		return
	}
	pp := p.pipe
	p.pipe = nil
	pp.removePub(p)
	release(pp.name)
}

func (p *Publisher[T]) Bound() bool {
	return p.pipe != nil
}

// Clone returns an independent publisher membership on the same channel.
func (p *Publisher[T]) Clone() (*Publisher[T], error) {
	if p.pipe == nil {
		return nil, ErrEmptyEndpoint
	}
	return NewPublisher[T](p.pipe.name)
}

// Push fans the value out to every bound subscriber: a copy lands in each
// subscriber's private FIFO (dropping its oldest entry when bounded and
// full), its wait condition is signalled, and a delivery timestamp is
// recorded for its stats ring. Within one publisher, pushes reach a given
// subscriber in call order.
func (p *Publisher[T]) Push(v T) error {
	if p.pipe == nil {
		return ErrEmptyEndpoint
	}
	pp := p.pipe
	pp.subMu.Lock()
	defer pp.subMu.Unlock()
	for _, s := range pp.subs {
		s.deliver(pp.name, v)
	}
	observability.RecordBusPublish(pp.name)
	return nil
}
