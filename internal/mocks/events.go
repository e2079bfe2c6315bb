package mocks

import (
	"context"
	"sync"

	"github.com/seu-repo/ai-playground/internal/domain"
)

type MockNotifier struct {
	mu       sync.Mutex
	Messages []string
}

func (m *MockNotifier) Notify(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, message)
}

func (m *MockNotifier) All() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Messages...)
}

type MockEventPublisher struct {
	mu              sync.Mutex
	Events          []domain.TurnEvent
	PublishTurnFunc func(ctx context.Context, ev domain.TurnEvent) error
}

func (m *MockEventPublisher) PublishTurn(ctx context.Context, ev domain.TurnEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, ev)
	m.mu.Unlock()
	if m.PublishTurnFunc != nil {
		return m.PublishTurnFunc(ctx, ev)
	}
	return nil
}

func (m *MockEventPublisher) Published() []domain.TurnEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TurnEvent(nil), m.Events...)
}
