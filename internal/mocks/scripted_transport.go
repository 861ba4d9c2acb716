package mocks

import (
	"strings"
	"sync"
)

// Exchange is one scripted step: when a write starts with Expect, Reply is
// queued for reading.
type Exchange struct {
	Expect string
	Reply  string
}

// ScriptedTransport is a fake modem. It answers writes that match the next
// scripted exchange and records everything written to it. Writes that do not
// match get no answer, which the engine observes as a timeout.
type ScriptedTransport struct {
	mu        sync.Mutex
	exchanges []Exchange
	pending   []byte
	writes    []string
	closed    bool

	// ReadChunk caps the bytes returned by a single Read; zero means no cap.
	ReadChunk int
}

// NewScriptedTransport creates a fake modem that plays exchanges in order.
func NewScriptedTransport(exchanges ...Exchange) *ScriptedTransport {
	return &ScriptedTransport{exchanges: exchanges}
}

func (s *ScriptedTransport) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := string(p)
	s.writes = append(s.writes, data)
	if len(s.exchanges) > 0 && strings.HasPrefix(data, s.exchanges[0].Expect) {
		s.pending = append(s.pending, s.exchanges[0].Reply...)
		s.exchanges = s.exchanges[1:]
	}
	return len(p), nil
}

func (s *ScriptedTransport) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := len(s.pending)
	if s.ReadChunk > 0 && limit > s.ReadChunk {
		limit = s.ReadChunk
	}
	n := copy(p, s.pending[:limit])
	s.pending = s.pending[n:]
	return n, nil
}

func (s *ScriptedTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Inject queues unsolicited modem output.
func (s *ScriptedTransport) Inject(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, data...)
}

// Writes returns everything written so far, one entry per Write call.
func (s *ScriptedTransport) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

// Remaining returns the number of exchanges not yet played.
func (s *ScriptedTransport) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.exchanges)
}

// Closed reports whether Close was called.
func (s *ScriptedTransport) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
