package vision

import (
	"context"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/ports"
)

const DefaultPrompt = "Describe this image"

type Service struct {
	backend ports.VisionBackend
	model   string
	prompt  string
	log     *zap.Logger
}

func NewService(backend ports.VisionBackend, model, prompt string, log *zap.Logger) *Service {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &Service{backend: backend, model: model, prompt: prompt, log: log}
}

// Describe captions an image file. Unsupported file types are rejected
// before any request; backend failures return the "Error: <detail>"
// fallback alongside the error.
func (s *Service) Describe(ctx context.Context, path, prompt string) (string, error) {
	if err := domain.CheckExtension(path, domain.ImageExtensions); err != nil {
		return "", err
	}
	if prompt == "" {
		prompt = s.prompt
	}

	out, err := s.backend.Describe(ctx, domain.VisionRequest{FilePath: path, Prompt: prompt, Model: s.model})
	if err != nil {
		if domain.IsCancelled(err) {
			return "", err
		}
		s.log.Error("Image description failed", zap.String("file", path), zap.Error(err))
		return "Error: " + domain.Describe(err), err
	}
	return out, nil
}
