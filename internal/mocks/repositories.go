package mocks

import (
	"context"

	"github.com/seu-repo/ai-playground/internal/domain"
)

// MockHistoryStore is a mock implementation of ports.HistoryStore
type MockHistoryStore struct {
	ListCalls         int
	Deleted           []int64
	ListHistoryFunc   func(ctx context.Context, capability domain.Capability) ([]domain.HistoryEntry, error)
	DeleteHistoryFunc func(ctx context.Context, capability domain.Capability, id int64) error
}

func (m *MockHistoryStore) ListHistory(ctx context.Context, capability domain.Capability) ([]domain.HistoryEntry, error) {
	m.ListCalls++
	if m.ListHistoryFunc != nil {
		return m.ListHistoryFunc(ctx, capability)
	}
	return []domain.HistoryEntry{}, nil
}

func (m *MockHistoryStore) DeleteHistory(ctx context.Context, capability domain.Capability, id int64) error {
	m.Deleted = append(m.Deleted, id)
	if m.DeleteHistoryFunc != nil {
		return m.DeleteHistoryFunc(ctx, capability, id)
	}
	return nil
}
