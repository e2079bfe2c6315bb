package mocks

import (
	"context"
	"sync"

	"github.com/seu-repo/ai-playground/internal/domain"
)

// MockAudioCapture holds the completion callback of the active recording
// until the test calls Finish.
type MockAudioCapture struct {
	mu        sync.Mutex
	StartFunc func(ctx context.Context) error
	Starts    int
	Stops     int
	pending   func(domain.AudioPayload, error)
	stopped   func(domain.AudioPayload, error)

	// AutoPayload, when set, is delivered synchronously from Stop.
	AutoPayload *domain.AudioPayload
}

func (m *MockAudioCapture) Start(ctx context.Context, onDone func(domain.AudioPayload, error)) error {
	m.mu.Lock()
	m.Starts++
	m.mu.Unlock()
	if m.StartFunc != nil {
		if err := m.StartFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.pending = onDone
	m.mu.Unlock()
	return nil
}

func (m *MockAudioCapture) Stop() {
	m.mu.Lock()
	m.Stops++
	cb := m.pending
	m.pending = nil
	if cb != nil {
		m.stopped = cb
	}
	auto := m.AutoPayload
	m.mu.Unlock()

	if cb != nil && auto != nil {
		m.mu.Lock()
		m.stopped = nil
		m.mu.Unlock()
		cb(*auto, nil)
	}
}

// Finish delivers the payload of the last stopped recording, as the real
// adapter does once the device is released. It reports whether a
// callback was waiting.
func (m *MockAudioCapture) Finish(payload domain.AudioPayload, err error) bool {
	m.mu.Lock()
	cb := m.stopped
	m.stopped = nil
	m.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(payload, err)
	return true
}

// Recording reports whether Start succeeded without a matching Stop.
func (m *MockAudioCapture) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

func (m *MockAudioCapture) Counts() (starts, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Starts, m.Stops
}

// MockAudioPlayer keeps the completion callback until End is called.
type MockAudioPlayer struct {
	mu       sync.Mutex
	PlayFunc func(ctx context.Context, ref string) error
	Played   []string
	Stops    int
	onEnd    func()
	last     func()
}

func (m *MockAudioPlayer) Play(ctx context.Context, ref string, onEnd func()) error {
	if m.PlayFunc != nil {
		if err := m.PlayFunc(ctx, ref); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Played = append(m.Played, ref)
	m.onEnd = onEnd
	m.last = onEnd
	return nil
}

func (m *MockAudioPlayer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stops++
	m.onEnd = nil
}

// End simulates playback finishing on its own.
func (m *MockAudioPlayer) End() bool {
	m.mu.Lock()
	cb := m.onEnd
	m.onEnd = nil
	m.mu.Unlock()
	if cb == nil {
		return false
	}
	cb()
	return true
}

// FireLast invokes the most recent completion callback even if Stop was
// called, simulating an end event racing with Stop.
func (m *MockAudioPlayer) FireLast() {
	m.mu.Lock()
	cb := m.last
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (m *MockAudioPlayer) PlayedRefs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Played...)
}
