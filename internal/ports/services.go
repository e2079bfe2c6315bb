package ports

import (
	"context"
	"io"

	"github.com/seu-repo/ai-playground/internal/domain"
)

// VoiceBackend runs one voice turn: transcribe, respond, synthesize.
type VoiceBackend interface {
	VoiceChat(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceReply, error)
	GetVoiceSession(ctx context.Context, id int64) (*domain.VoiceSession, error)
	// AudioURL resolves a backend audio path such as /static/x.wav.
	AudioURL(ref string) string
}

// ChatStream is an incrementally delivered chat response. Chunks are
// returned in arrival order; Next returns io.EOF when the body is drained.
type ChatStream interface {
	// SessionID is the id announced out of band (response header), if any.
	SessionID() *int64
	Next() ([]byte, error)
	io.Closer
}

type ChatBackend interface {
	Chat(ctx context.Context, req domain.ChatRequest) (ChatStream, error)
	GetChatSession(ctx context.Context, id int64) (*domain.ChatHistory, error)
	Models(ctx context.Context) ([]domain.Model, error)
}

// DocumentBackend serves document chat (RAG).
type DocumentBackend interface {
	UploadDocument(ctx context.Context, path, name string) (*domain.UploadedDocument, error)
	DocumentChat(ctx context.Context, message, docID, model string) (string, error)
	ListDocuments(ctx context.Context) ([]domain.UploadedDocument, error)
	DeleteDocument(ctx context.Context, docID string) error
}

type SpeechBackend interface {
	Transcribe(ctx context.Context, fileName string, audio io.Reader) (*domain.Transcription, error)
	Synthesize(ctx context.Context, req domain.SpeechRequest) ([]byte, error)
	Voices(ctx context.Context) ([]string, error)
}

type TranslateBackend interface {
	Translate(ctx context.Context, req domain.TranslateRequest) (string, error)
}

type VisionBackend interface {
	Describe(ctx context.Context, req domain.VisionRequest) (string, error)
}

// Notifier surfaces blocking notices to the user.
type Notifier interface {
	Notify(message string)
}

// EventPublisher fans completed voice turns out to observers.
type EventPublisher interface {
	PublishTurn(ctx context.Context, ev domain.TurnEvent) error
}
