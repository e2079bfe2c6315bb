// Package speech runs the single-shot speech capabilities: transcription
// of a file or a microphone recording, and text-to-speech.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/ports"
)

var ErrEmptyText = errors.New("text is required")

type Service struct {
	backend ports.SpeechBackend
	capture ports.AudioCapture
	player  ports.AudioPlayer
	outDir  string
	log     *zap.Logger
}

func NewService(backend ports.SpeechBackend, capture ports.AudioCapture, player ports.AudioPlayer, outDir string, log *zap.Logger) *Service {
	if outDir == "" {
		outDir = os.TempDir()
	}
	return &Service{backend: backend, capture: capture, player: player, outDir: outDir, log: log}
}

// Transcribe uploads an audio file. Backend failures are returned together
// with a transcription whose text is the "Error: <detail>" fallback.
func (s *Service) Transcribe(ctx context.Context, path string) (*domain.Transcription, error) {
	if err := domain.CheckExtension(path, domain.AudioExtensions); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	return s.transcribe(name, func() (*domain.Transcription, error) {
		return s.backend.Transcribe(ctx, name, f)
	})
}

// Record captures from the microphone until stop is closed, then
// transcribes the recording. Cancelling ctx discards the recording.
func (s *Service) Record(ctx context.Context, stop <-chan struct{}) (*domain.Transcription, error) {
	type result struct {
		payload domain.AudioPayload
		err     error
	}
	done := make(chan result, 1)
	if err := s.capture.Start(ctx, func(p domain.AudioPayload, err error) {
		done <- result{p, err}
	}); err != nil {
		return nil, err
	}

	select {
	case <-stop:
	case <-ctx.Done():
		s.capture.Stop()
		return nil, domain.ErrCancelled
	}
	s.capture.Stop()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, domain.ErrCancelled
	}
	if res.err != nil {
		return nil, res.err
	}

	name := res.payload.FileName
	return s.transcribe(name, func() (*domain.Transcription, error) {
		return s.backend.Transcribe(ctx, name, bytes.NewReader(res.payload.Data))
	})
}

func (s *Service) transcribe(name string, call func() (*domain.Transcription, error)) (*domain.Transcription, error) {
	t, err := call()
	if err != nil {
		if domain.IsCancelled(err) {
			return nil, err
		}
		s.log.Error("Transcription failed", zap.String("file", name), zap.Error(err))
		return &domain.Transcription{Text: "Error: " + domain.Describe(err)}, err
	}
	s.log.Info("Transcription completed",
		zap.String("file", name),
		zap.String("language", t.Language),
		zap.Float64("language_probability", t.LanguageProbability),
	)
	return t, nil
}

// Synthesize converts text to speech and writes the audio under the
// output directory, returning the file path.
func (s *Service) Synthesize(ctx context.Context, req domain.SpeechRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", ErrEmptyText
	}
	if req.Speed <= 0 {
		req.Speed = 1.0
	}

	audio, err := s.backend.Synthesize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}

	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.outDir, "tts-"+uuid.NewString()+".wav")
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	s.log.Info("Speech synthesized", zap.String("voice", req.Voice), zap.Int("bytes", len(audio)), zap.String("path", path))
	return path, nil
}

// Play starts playback of a synthesized file. onEnd fires when it
// finishes on its own.
func (s *Service) Play(ctx context.Context, path string, onEnd func()) error {
	if err := s.player.Play(ctx, path, onEnd); err != nil {
		return fmt.Errorf("play %s: %w", path, err)
	}
	return nil
}

// StopPlayback stops a playback started by Play.
func (s *Service) StopPlayback() {
	s.player.Stop()
}

func (s *Service) Voices(ctx context.Context) ([]string, error) {
	return s.backend.Voices(ctx)
}
