package vision

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/mocks"
)

func TestDescribe_DefaultPrompt(t *testing.T) {
	// Arrange
	var got domain.VisionRequest
	backend := &mocks.MockVisionBackend{
		DescribeFunc: func(ctx context.Context, req domain.VisionRequest) (string, error) {
			got = req
			return "A cat on a sofa", nil
		},
	}
	svc := NewService(backend, "llava", "", zap.NewNop())

	// Act
	out, err := svc.Describe(context.Background(), "/tmp/cat.JPG", "")

	// Assert
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if out != "A cat on a sofa" {
		t.Errorf("got %q", out)
	}
	if got.Prompt != DefaultPrompt || got.Model != "llava" || got.FilePath != "/tmp/cat.JPG" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestDescribe_RejectsNonImage(t *testing.T) {
	// Arrange
	backend := &mocks.MockVisionBackend{}
	svc := NewService(backend, "llava", "", zap.NewNop())

	// Act
	_, err := svc.Describe(context.Background(), "report.pdf", "")

	// Assert
	var unsupported *domain.UnsupportedFileError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFileError, got %v", err)
	}
	if backend.Calls != 0 {
		t.Error("no request should be sent")
	}
}

func TestDescribe_FailureBecomesFallback(t *testing.T) {
	backend := &mocks.MockVisionBackend{
		DescribeFunc: func(ctx context.Context, req domain.VisionRequest) (string, error) {
			return "", &domain.NetworkError{Op: "POST", URL: "http://localhost:8000/api/vision", Err: errors.New("connection refused")}
		},
	}
	svc := NewService(backend, "llava", "What is this?", zap.NewNop())

	out, err := svc.Describe(context.Background(), "cat.png", "")

	if err == nil {
		t.Fatal("expected error")
	}
	if out != "Error: network error during POST http://localhost:8000/api/vision: connection refused" {
		t.Errorf("got %q", out)
	}
}
