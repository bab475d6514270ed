package transport

import "sync"

// PipeEnd is one side of an in-memory byte-stream pair. Writes land in the
// peer's inbound buffer; reads drain the local one without blocking, so a
// pipe behaves like a serial device polled faster than it produces.
type PipeEnd struct {
	mu     sync.Mutex
	inbox  []byte
	closed bool
	peer   *PipeEnd
}

// Pipe returns two connected in-memory transports, both open.
func Pipe() (*PipeEnd, *PipeEnd) {
	a := &PipeEnd{}
	b := &PipeEnd{}
	a.peer = b
	b.peer = a
	return a, b
}

func (p *PipeEnd) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = false
	return nil
}

func (p *PipeEnd) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.inbox = nil
}

func (p *PipeEnd) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

func (p *PipeEnd) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrNotOpen
	}
	if len(p.inbox) == 0 {
		return 0, nil
	}
	n := copy(b, p.inbox)
	p.inbox = p.inbox[n:]
	return n, nil
}

func (p *PipeEnd) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrNotOpen
	}
	peer := p.peer
	p.mu.Unlock()

	peer.mu.Lock()
	defer peer.mu.Unlock()
	if peer.closed {
		return 0, ErrNotOpen
	}
	peer.inbox = append(peer.inbox, b...)
	return len(b), nil
}
