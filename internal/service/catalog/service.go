// Package catalog serves the model and voice lists shown in pickers.
package catalog

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

const (
	modelsKey = "catalog:models"
	voicesKey = "catalog:voices"
)

// DefaultVoices is used when the backend cannot list its voices.
var DefaultVoices = []string{"af_sarah", "af_bella", "af_nicole", "af_sky", "am_adam", "am_michael"}

type Service struct {
	chat   ports.ChatBackend
	speech ports.SpeechBackend
	cache  ports.Cache
	ttl    time.Duration
	log    *zap.Logger
}

func NewService(chat ports.ChatBackend, speech ports.SpeechBackend, cache ports.Cache, ttl time.Duration, log *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{chat: chat, speech: speech, cache: cache, ttl: ttl, log: log}
}

func (s *Service) Models(ctx context.Context) ([]domain.Model, error) {
	var models []domain.Model
	if s.cached(ctx, modelsKey, &models) {
		return models, nil
	}
	models, err := s.chat.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	s.store(ctx, modelsKey, models)
	return models, nil
}

// Voices lists TTS personas, falling back to DefaultVoices when the
// backend returns none.
func (s *Service) Voices(ctx context.Context) ([]string, error) {
	var voices []string
	if s.cached(ctx, voicesKey, &voices) {
		return voices, nil
	}
	voices, err := s.speech.Voices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	if len(voices) == 0 {
		return DefaultVoices, nil
	}
	s.store(ctx, voicesKey, voices)
	return voices, nil
}

func (s *Service) cached(ctx context.Context, key string, out interface{}) bool {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		telemetry.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		telemetry.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return false
	}
	telemetry.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return true
}

func (s *Service) store(ctx context.Context, key string, v interface{}) {
	if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
		s.log.Warn("Failed to cache catalog", zap.String("key", key), zap.Error(err))
	}
}
