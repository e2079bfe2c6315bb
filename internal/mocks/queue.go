package mocks

import "sync"

// MockMessageQueue records published messages and keeps subscribers so
// tests can deliver messages by hand.
type MockMessageQueue struct {
	mu                sync.Mutex
	PublishedMessages map[string][][]byte
	Subscribers       map[string][]func([]byte) error
	PublishFunc       func(topic string, data []byte) error
	SubscribeFunc     func(topic string, handler func([]byte) error) error
	CloseFunc         func() error
}

func NewMockMessageQueue() *MockMessageQueue {
	return &MockMessageQueue{
		PublishedMessages: make(map[string][][]byte),
		Subscribers:       make(map[string][]func([]byte) error),
	}
}

func (m *MockMessageQueue) Publish(topic string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(topic, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedMessages[topic] = append(m.PublishedMessages[topic], data)
	return nil
}

func (m *MockMessageQueue) Subscribe(topic string, handler func([]byte) error) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(topic, handler)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Subscribers[topic] = append(m.Subscribers[topic], handler)
	return nil
}

func (m *MockMessageQueue) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Deliver invokes every subscriber of topic with data.
func (m *MockMessageQueue) Deliver(topic string, data []byte) []error {
	m.mu.Lock()
	handlers := append([]func([]byte) error(nil), m.Subscribers[topic]...)
	m.mu.Unlock()

	var errs []error
	for _, h := range handlers {
		if err := h(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// GetPublishedMessages returns all messages published to a topic
func (m *MockMessageQueue) GetPublishedMessages(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PublishedMessages[topic]
}

// ClearMessages clears all published messages
func (m *MockMessageQueue) ClearMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedMessages = make(map[string][][]byte)
}
