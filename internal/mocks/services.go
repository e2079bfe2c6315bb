package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/ports"
)

// MockVoiceBackend records every request it receives.
type MockVoiceBackend struct {
	mu                  sync.Mutex
	Requests            []domain.VoiceRequest
	VoiceChatFunc       func(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceReply, error)
	GetVoiceSessionFunc func(ctx context.Context, id int64) (*domain.VoiceSession, error)
}

func (m *MockVoiceBackend) VoiceChat(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceReply, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.VoiceChatFunc != nil {
		return m.VoiceChatFunc(ctx, req)
	}
	return &domain.VoiceReply{}, nil
}

func (m *MockVoiceBackend) GetVoiceSession(ctx context.Context, id int64) (*domain.VoiceSession, error) {
	if m.GetVoiceSessionFunc != nil {
		return m.GetVoiceSessionFunc(ctx, id)
	}
	return &domain.VoiceSession{ID: id}, nil
}

func (m *MockVoiceBackend) AudioURL(ref string) string {
	return "http://backend.test" + ref
}

// Calls returns a copy of the recorded requests.
func (m *MockVoiceBackend) Calls() []domain.VoiceRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.VoiceRequest(nil), m.Requests...)
}

// MockChatStream yields Chunks in order, then Err (io.EOF when nil).
type MockChatStream struct {
	ID     *int64
	Chunks []string
	Err    error
	Closed bool
	next   int
}

func (s *MockChatStream) SessionID() *int64 { return s.ID }

func (s *MockChatStream) Next() ([]byte, error) {
	if s.next < len(s.Chunks) {
		c := s.Chunks[s.next]
		s.next++
		return []byte(c), nil
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return nil, io.EOF
}

func (s *MockChatStream) Close() error {
	s.Closed = true
	return nil
}

type MockChatBackend struct {
	Requests           []domain.ChatRequest
	ChatFunc           func(ctx context.Context, req domain.ChatRequest) (ports.ChatStream, error)
	GetChatSessionFunc func(ctx context.Context, id int64) (*domain.ChatHistory, error)
	ModelsFunc         func(ctx context.Context) ([]domain.Model, error)
	ModelCalls         int
}

func (m *MockChatBackend) Chat(ctx context.Context, req domain.ChatRequest) (ports.ChatStream, error) {
	m.Requests = append(m.Requests, req)
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	return &MockChatStream{}, nil
}

func (m *MockChatBackend) GetChatSession(ctx context.Context, id int64) (*domain.ChatHistory, error) {
	if m.GetChatSessionFunc != nil {
		return m.GetChatSessionFunc(ctx, id)
	}
	return &domain.ChatHistory{Session: domain.ChatSession{ID: id}}, nil
}

func (m *MockChatBackend) Models(ctx context.Context) ([]domain.Model, error) {
	m.ModelCalls++
	if m.ModelsFunc != nil {
		return m.ModelsFunc(ctx)
	}
	return nil, nil
}

type MockDocumentBackend struct {
	Uploads            []string
	ChatCalls          int
	UploadDocumentFunc func(ctx context.Context, path, name string) (*domain.UploadedDocument, error)
	DocumentChatFunc   func(ctx context.Context, message, docID, model string) (string, error)
	ListDocumentsFunc  func(ctx context.Context) ([]domain.UploadedDocument, error)
	DeleteDocumentFunc func(ctx context.Context, docID string) error
}

func (m *MockDocumentBackend) UploadDocument(ctx context.Context, path, name string) (*domain.UploadedDocument, error) {
	m.Uploads = append(m.Uploads, path)
	if m.UploadDocumentFunc != nil {
		return m.UploadDocumentFunc(ctx, path, name)
	}
	return &domain.UploadedDocument{ID: "doc-1", DisplayName: name}, nil
}

func (m *MockDocumentBackend) DocumentChat(ctx context.Context, message, docID, model string) (string, error) {
	m.ChatCalls++
	if m.DocumentChatFunc != nil {
		return m.DocumentChatFunc(ctx, message, docID, model)
	}
	return "", nil
}

func (m *MockDocumentBackend) ListDocuments(ctx context.Context) ([]domain.UploadedDocument, error) {
	if m.ListDocumentsFunc != nil {
		return m.ListDocumentsFunc(ctx)
	}
	return nil, nil
}

func (m *MockDocumentBackend) DeleteDocument(ctx context.Context, docID string) error {
	if m.DeleteDocumentFunc != nil {
		return m.DeleteDocumentFunc(ctx, docID)
	}
	return nil
}

type MockSpeechBackend struct {
	TranscribeCalls int
	TranscribeFunc  func(ctx context.Context, fileName string, audio io.Reader) (*domain.Transcription, error)
	SynthesizeFunc  func(ctx context.Context, req domain.SpeechRequest) ([]byte, error)
	VoicesFunc      func(ctx context.Context) ([]string, error)
	VoiceCalls      int
}

func (m *MockSpeechBackend) Transcribe(ctx context.Context, fileName string, audio io.Reader) (*domain.Transcription, error) {
	m.TranscribeCalls++
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, fileName, audio)
	}
	return &domain.Transcription{}, nil
}

func (m *MockSpeechBackend) Synthesize(ctx context.Context, req domain.SpeechRequest) ([]byte, error) {
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockSpeechBackend) Voices(ctx context.Context) ([]string, error) {
	m.VoiceCalls++
	if m.VoicesFunc != nil {
		return m.VoicesFunc(ctx)
	}
	return nil, nil
}

type MockTranslateBackend struct {
	TranslateFunc func(ctx context.Context, req domain.TranslateRequest) (string, error)
}

func (m *MockTranslateBackend) Translate(ctx context.Context, req domain.TranslateRequest) (string, error) {
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, req)
	}
	return "", nil
}

type MockVisionBackend struct {
	Calls        int
	DescribeFunc func(ctx context.Context, req domain.VisionRequest) (string, error)
}

func (m *MockVisionBackend) Describe(ctx context.Context, req domain.VisionRequest) (string, error) {
	m.Calls++
	if m.DescribeFunc != nil {
		return m.DescribeFunc(ctx, req)
	}
	return "", nil
}
