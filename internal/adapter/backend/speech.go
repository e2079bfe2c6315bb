package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/seu-repo/ai-playground/internal/domain"
)

// Transcribe runs speech-to-text on an audio stream.
func (c *Client) Transcribe(ctx context.Context, fileName string, audio io.Reader) (*domain.Transcription, error) {
	form := newMultipartForm()
	form.file("file", fileName, audio)
	body, contentType, err := form.finish()
	if err != nil {
		return nil, fmt.Errorf("build stt form: %w", err)
	}

	resp, err := c.do(ctx, "stt", http.MethodPost, "/api/stt", body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out domain.Transcription
	if err := decodeJSON(resp, &out); err != nil {
		return nil, c.bodyError(ctx, "stt", err)
	}
	return &out, nil
}

// Synthesize returns the encoded audio for req.Text.
func (c *Client) Synthesize(ctx context.Context, req domain.SpeechRequest) ([]byte, error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, fmt.Errorf("encode tts request: %w", err)
	}
	resp, err := c.do(ctx, "tts", http.MethodPost, "/api/tts", body, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.bodyError(ctx, "tts", err)
	}
	return audio, nil
}

func (c *Client) Voices(ctx context.Context) ([]string, error) {
	var out struct {
		Voices []string `json:"voices"`
	}
	if err := c.doJSON(ctx, "tts_voices", http.MethodGet, "/api/tts/voices", nil, &out); err != nil {
		return nil, err
	}
	return out.Voices, nil
}

func (c *Client) Translate(ctx context.Context, req domain.TranslateRequest) (string, error) {
	var out assistantEnvelope
	if err := c.doJSON(ctx, "translate", http.MethodPost, "/api/translate", req, &out); err != nil {
		return "", err
	}
	return out.Message.Content, nil
}

// Describe captions a local image file.
func (c *Client) Describe(ctx context.Context, req domain.VisionRequest) (string, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	form := newMultipartForm()
	form.file("file", filepath.Base(req.FilePath), f)
	form.field("prompt", req.Prompt)
	form.field("model", req.Model)
	body, contentType, err := form.finish()
	if err != nil {
		return "", fmt.Errorf("build vision form: %w", err)
	}

	resp, err := c.do(ctx, "vision", http.MethodPost, "/api/vision", body, contentType)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out assistantEnvelope
	if err := decodeJSON(resp, &out); err != nil {
		return "", c.bodyError(ctx, "vision", err)
	}
	return out.Message.Content, nil
}
