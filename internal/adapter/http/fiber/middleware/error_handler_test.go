package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/service/voice"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"fiber error", fiber.ErrUpgradeRequired, fiber.StatusUpgradeRequired},
		{"unsupported file", &domain.UnsupportedFileError{Name: "a.exe", Ext: ".exe"}, 400},
		{"busy", fmt.Errorf("open: %w", domain.ErrBusy), 409},
		{"not open", voice.ErrNotOpen, 409},
		{"permission", domain.ErrPermissionDenied, 503},
		{"network", &domain.NetworkError{Op: "GET", URL: "/health", Err: context.DeadlineExceeded}, 502},
		{"upstream 404", &domain.UpstreamError{StatusCode: 404}, 404},
		{"upstream 500", &domain.UpstreamError{StatusCode: 500}, 502},
		{"cancelled", domain.ErrCancelled, 499},
		{"other", errors.New("boom"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
