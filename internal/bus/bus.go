package bus

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrChannelStopped = errors.New("bus: no publisher on this channel")
	ErrChannelTimeout = errors.New("bus: receive timed out")
	ErrEmptyEndpoint  = errors.New("bus: endpoint not bound")
)

// pipe is the shared state of one named channel: the publisher and
// subscriber membership lists, each behind its own lock. Publisher count
// is mirrored in an atomic so subscribers can evaluate the stop predicate
// without taking the publisher lock.
type pipe[T any] struct {
	name string

	pubMu    sync.Mutex
	pubs     []*Publisher[T]
	pubCount atomic.Int32

	subMu sync.Mutex
	subs  []*Subscriber[T]
}

func newPipe[T any](name string) *pipe[T] {
	return &pipe[T]{name: name}
}

func (p *pipe[T]) addPub(pub *Publisher[T]) {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()
	p.pubs = append(p.pubs, pub)
	p.pubCount.Add(1)
}

// removePub drops one publisher membership. When the last publisher
// leaves, every subscriber is woken so blocked receives observe the stop
// condition. The subscriber-list lock is held for the wakeup sweep.
func (p *pipe[T]) removePub(pub *Publisher[T]) {
	p.pubMu.Lock()
	for i, cur := range p.pubs {
		if cur == pub {
			p.pubs = append(p.pubs[:i], p.pubs[i+1:]...)
			p.pubCount.Add(-1)
			break
		}
	}
	last := p.pubCount.Load() == 0
	p.pubMu.Unlock()

	if last {
		p.subMu.Lock()
		for _, s := range p.subs {
			s.notify()
		}
		p.subMu.Unlock()
	}
}

func (p *pipe[T]) addSub(sub *Subscriber[T]) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subs = append(p.subs, sub)
}

func (p *pipe[T]) removeSub(sub *Subscriber[T]) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for i, cur := range p.subs {
		if cur == sub {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			return
		}
	}
}

func (p *pipe[T]) stopped() bool {
	return p.pubCount.Load() == 0
}
