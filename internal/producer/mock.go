package producer

import (
	"context"
	"io"
	"sync"
)

const MockName = "mock"

// MockProducer is a scripted Producer for testing. Each Generate call
// consumes the next script in order; when scripts run out the last one
// repeats. Errors configured for a call index are returned instead of a
// stream.
type MockProducer struct {
	mu sync.Mutex

	// Scripts holds the fragments yielded per call, in call order.
	Scripts [][]Fragment

	// Errs maps a call index to an error returned instead of a stream.
	Errs map[int]error

	// Requests records every request received, in order.
	Requests []*Request

	calls int
}

// NewMockProducer creates a mock that yields the given fragments on
// every call.
func NewMockProducer(fragments ...Fragment) *MockProducer {
	return &MockProducer{Scripts: [][]Fragment{fragments}}
}

// Name returns the client identifier.
func (m *MockProducer) Name() string { return MockName }

// Generate returns the next scripted stream.
func (m *MockProducer) Generate(ctx context.Context, req *Request) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.calls
	m.calls++
	m.Requests = append(m.Requests, req)

	if err, ok := m.Errs[call]; ok {
		return nil, err
	}

	if len(m.Scripts) == 0 {
		return &sliceStream{}, nil
	}
	script := m.Scripts[min(call, len(m.Scripts)-1)]
	return &sliceStream{fragments: script}, nil
}

// Calls returns how many times Generate was invoked.
func (m *MockProducer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// sliceStream yields a fixed fragment slice then io.EOF.
type sliceStream struct {
	fragments []Fragment
	next      int
}

func (s *sliceStream) Recv() (Fragment, error) {
	if s.next >= len(s.fragments) {
		return Fragment{}, io.EOF
	}
	f := s.fragments[s.next]
	s.next++
	return f, nil
}

func (s *sliceStream) Close() error { return nil }

// Narration is a convenience constructor for narration fragments.
func Narration(text string) Fragment {
	return Fragment{Kind: KindNarration, Text: text}
}

// Reasoning is a convenience constructor for reasoning fragments.
func Reasoning(text string) Fragment {
	return Fragment{Kind: KindReasoning, Text: text}
}

// WithProvenance is a convenience constructor for provenance fragments.
func WithProvenance(p *Provenance) Fragment {
	return Fragment{Kind: KindProvenance, Provenance: p}
}
