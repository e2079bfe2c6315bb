package translate

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/ports"
)

var ErrEmptyText = errors.New("text is required")

type Service struct {
	backend    ports.TranslateBackend
	model      string
	targetLang string
	log        *zap.Logger
}

// NewService builds a translator. targetLang is used when a call leaves
// the target language empty.
func NewService(backend ports.TranslateBackend, model, targetLang string, log *zap.Logger) *Service {
	return &Service{backend: backend, model: model, targetLang: targetLang, log: log}
}

// Translate returns the translated text. Backend failures return the
// "Error: <detail>" fallback alongside the error.
func (s *Service) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if targetLang == "" {
		targetLang = s.targetLang
	}

	out, err := s.backend.Translate(ctx, domain.TranslateRequest{Text: text, TargetLang: targetLang, Model: s.model})
	if err != nil {
		if domain.IsCancelled(err) {
			return "", err
		}
		s.log.Error("Translation failed", zap.String("target_lang", targetLang), zap.Error(err))
		return "Error: " + domain.Describe(err), err
	}
	return out, nil
}
