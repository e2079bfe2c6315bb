// Package history lists and deletes stored items for every capability
// through one cached store.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/observability/telemetry"
	"github.com/seu-repo/ai-playground/internal/ports"
)

const DefaultTTL = 30 * time.Second

type Service struct {
	store ports.HistoryStore
	voice ports.VoiceBackend
	chat  ports.ChatBackend
	cache ports.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewService(
	store ports.HistoryStore,
	voice ports.VoiceBackend,
	chat ports.ChatBackend,
	cache ports.Cache,
	ttl time.Duration,
	log *zap.Logger,
) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, voice: voice, chat: chat, cache: cache, ttl: ttl, log: log}
}

func cacheKey(c domain.Capability) string {
	return "history:" + string(c)
}

// List returns the capability's history, newest first as the backend
// orders it. Results are cached for the configured TTL.
func (s *Service) List(ctx context.Context, c domain.Capability) ([]domain.HistoryEntry, error) {
	key := cacheKey(c)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var entries []domain.HistoryEntry
		if err := json.Unmarshal([]byte(cached), &entries); err == nil {
			telemetry.CacheLookupsTotal.WithLabelValues("hit").Inc()
			return entries, nil
		}
		s.log.Warn("Discarding unreadable cached history", zap.String("key", key))
	}
	telemetry.CacheLookupsTotal.WithLabelValues("miss").Inc()

	entries, err := s.store.ListHistory(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("list %s history: %w", c, err)
	}
	if err := s.cache.Set(ctx, key, entries, s.ttl); err != nil {
		s.log.Warn("Failed to cache history", zap.String("key", key), zap.Error(err))
	}
	return entries, nil
}

// Delete removes one item and invalidates the cached list.
func (s *Service) Delete(ctx context.Context, c domain.Capability, id int64) error {
	if err := s.store.DeleteHistory(ctx, c, id); err != nil {
		return fmt.Errorf("delete %s history %d: %w", c, id, err)
	}
	s.Invalidate(ctx, c)
	s.log.Info("History item deleted", zap.String("capability", string(c)), zap.Int64("id", id))
	return nil
}

// Invalidate drops the cached list for c, e.g. after a new voice turn.
func (s *Service) Invalidate(ctx context.Context, c domain.Capability) {
	if err := s.cache.Delete(ctx, cacheKey(c)); err != nil {
		s.log.Warn("Failed to invalidate history cache", zap.String("capability", string(c)), zap.Error(err))
	}
}

// RefreshOnTurn returns a publisher that drops the cached voice list for
// every completed turn before handing the event to next (which may be nil).
func (s *Service) RefreshOnTurn(next ports.EventPublisher) ports.EventPublisher {
	return &turnRefresher{history: s, next: next}
}

type turnRefresher struct {
	history *Service
	next    ports.EventPublisher
}

func (r *turnRefresher) PublishTurn(ctx context.Context, ev domain.TurnEvent) error {
	r.history.Invalidate(ctx, domain.CapabilityVoice)
	if r.next == nil {
		return nil
	}
	return r.next.PublishTurn(ctx, ev)
}

func (s *Service) LoadVoiceSession(ctx context.Context, id int64) (*domain.VoiceSession, error) {
	session, err := s.voice.GetVoiceSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load voice session %d: %w", id, err)
	}
	return session, nil
}

func (s *Service) LoadChatSession(ctx context.Context, id int64) (*domain.ChatHistory, error) {
	history, err := s.chat.GetChatSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load chat session %d: %w", id, err)
	}
	return history, nil
}
