package transceiver

import (
	"sync"
)

// scriptTransport feeds canned read chunks and records writes. Once the
// scripted reads are exhausted it serves the replay chunk if one is set,
// otherwise it reports no data the way a drained link would.
type scriptTransport struct {
	mu          sync.Mutex
	open        bool
	opens       int
	closes      int
	reads       [][]byte
	replay      []byte
	writes      [][]byte
	shortWrites int
	writeErr    error
}

func (s *scriptTransport) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.opens++
	return nil
}

func (s *scriptTransport) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		s.open = false
		s.closes++
	}
}

func (s *scriptTransport) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *scriptTransport) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reads) > 0 {
		chunk := s.reads[0]
		s.reads = s.reads[1:]
		return copy(p, chunk), nil
	}
	if s.replay != nil {
		return copy(p, s.replay), nil
	}
	return 0, nil
}

func (s *scriptTransport) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	buf := append([]byte(nil), p...)
	s.writes = append(s.writes, buf)
	if s.shortWrites > 0 {
		s.shortWrites--
		return len(p) - 1, nil
	}
	return len(p), nil
}

func (s *scriptTransport) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

func (s *scriptTransport) reopenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}
