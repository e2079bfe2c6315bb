package ports

import (
	"context"
	"time"

	"github.com/seu-repo/ai-playground/internal/domain"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}

// HistoryStore is the single data-access interface for every capability's
// history list.
type HistoryStore interface {
	ListHistory(ctx context.Context, capability domain.Capability) ([]domain.HistoryEntry, error)
	DeleteHistory(ctx context.Context, capability domain.Capability, id int64) error
}
