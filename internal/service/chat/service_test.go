package chat

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/mocks"
	"github.com/seu-repo/ai-playground/internal/ports"
)

func newTestService() (*Service, *mocks.MockChatBackend, *mocks.MockDocumentBackend) {
	chatBackend := &mocks.MockChatBackend{}
	docs := &mocks.MockDocumentBackend{}
	return NewService(chatBackend, docs, "llama3.2", zap.NewNop()), chatBackend, docs
}

func TestSend_StreamsAndAdoptsInBandSession(t *testing.T) {
	// Arrange
	svc, backend, _ := newTestService()
	backend.ChatFunc = func(ctx context.Context, req domain.ChatRequest) (ports.ChatStream, error) {
		return &mocks.MockChatStream{Chunks: []string{`{"session_id":7}` + "\nHel", "lo wo", "rld"}}, nil
	}
	var renders []string

	// Act
	reply, err := svc.Send(context.Background(), "hi", func(s string) { renders = append(renders, s) })

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply.Content != "Hello world" || reply.Role != domain.RoleAssistant {
		t.Errorf("unexpected reply %+v", reply)
	}
	want := []string{"Hel", "Hello wo", "Hello world"}
	if len(renders) != len(want) {
		t.Fatalf("expected %d renders, got %v", len(want), renders)
	}
	for i := range want {
		if renders[i] != want[i] {
			t.Errorf("render %d = %q, want %q", i, renders[i], want[i])
		}
	}
	if id := svc.SessionID(); id == nil || *id != 7 {
		t.Errorf("expected session 7, got %v", id)
	}
}

func TestSend_SecondRequestCarriesSessionAndSkipsHeaderParsing(t *testing.T) {
	// Arrange
	svc, backend, _ := newTestService()
	responses := [][]string{
		{`{"session_id":7}` + "\nfirst"},
		{`{"session_id":9}` + "\nsecond"},
	}
	call := 0
	backend.ChatFunc = func(ctx context.Context, req domain.ChatRequest) (ports.ChatStream, error) {
		s := &mocks.MockChatStream{Chunks: responses[call]}
		call++
		return s, nil
	}

	// Act
	_, _ = svc.Send(context.Background(), "one", nil)
	reply, _ := svc.Send(context.Background(), "two", nil)

	// Assert
	if backend.Requests[0].SessionID != nil {
		t.Error("first request must not carry a session id")
	}
	if id := backend.Requests[1].SessionID; id == nil || *id != 7 {
		t.Errorf("expected session 7 on second request, got %v", id)
	}
	if len(backend.Requests[1].Messages) != 3 {
		t.Errorf("expected full history on second request, got %d messages", len(backend.Requests[1].Messages))
	}
	if reply.Content != `{"session_id":9}`+"\nsecond" {
		t.Errorf("unexpected content %q", reply.Content)
	}
	if id := svc.SessionID(); *id != 7 {
		t.Errorf("session id must not change, got %d", *id)
	}
}

func TestSend_PrefersHeaderSessionID(t *testing.T) {
	// Arrange
	svc, backend, _ := newTestService()
	headerID := int64(3)
	backend.ChatFunc = func(ctx context.Context, req domain.ChatRequest) (ports.ChatStream, error) {
		return &mocks.MockChatStream{ID: &headerID, Chunks: []string{`{"session_id":8}` + "\nx"}}, nil
	}

	// Act
	reply, _ := svc.Send(context.Background(), "hi", nil)

	// Assert
	if id := svc.SessionID(); id == nil || *id != 3 {
		t.Errorf("expected header session 3, got %v", id)
	}
	if reply.Content != `{"session_id":8}`+"\nx" {
		t.Errorf("in-band parsing must be off when the header is present, got %q", reply.Content)
	}
}

func TestSend_FailureBecomesFallbackMessage(t *testing.T) {
	// Arrange
	svc, backend, _ := newTestService()
	backend.ChatFunc = func(ctx context.Context, req domain.ChatRequest) (ports.ChatStream, error) {
		return nil, &domain.UpstreamError{StatusCode: 500, Detail: "model not found"}
	}

	// Act
	reply, err := svc.Send(context.Background(), "hi", nil)

	// Assert
	var up *domain.UpstreamError
	if !errors.As(err, &up) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if reply.Content != "Error: model not found" {
		t.Errorf("unexpected fallback %q", reply.Content)
	}
	msgs := svc.Messages()
	if len(msgs) != 2 || msgs[1].Content != "Error: model not found" {
		t.Errorf("fallback must be kept in history, got %+v", msgs)
	}
}

func TestSend_CancelledStreamKeepsPartialWithoutFallback(t *testing.T) {
	// Arrange
	svc, backend, _ := newTestService()
	backend.ChatFunc = func(ctx context.Context, req domain.ChatRequest) (ports.ChatStream, error) {
		return &mocks.MockChatStream{Chunks: []string{"partial"}, Err: domain.ErrCancelled}, nil
	}

	// Act
	reply, err := svc.Send(context.Background(), "hi", nil)

	// Assert
	if !domain.IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if reply.Content != "partial" {
		t.Errorf("expected partial content, got %q", reply.Content)
	}
}

func TestAttach_RejectsUnsupportedFileWithoutRequest(t *testing.T) {
	// Arrange
	svc, _, docs := newTestService()

	// Act
	_, err := svc.Attach(context.Background(), "/tmp/notes.exe")

	// Assert
	var unsupported *domain.UnsupportedFileError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFileError, got %v", err)
	}
	if len(docs.Uploads) != 0 {
		t.Error("no upload expected for an unsupported file")
	}
	if svc.Document() != nil {
		t.Error("no document should be attached")
	}
}

func TestAttach_RoutesToDocumentChatUntilDetached(t *testing.T) {
	// Arrange
	svc, backend, docs := newTestService()
	docs.UploadDocumentFunc = func(ctx context.Context, path, name string) (*domain.UploadedDocument, error) {
		return &domain.UploadedDocument{ID: "doc-9", DisplayName: "notes.pdf"}, nil
	}
	var gotDocID, gotModel string
	docs.DocumentChatFunc = func(ctx context.Context, message, docID, model string) (string, error) {
		gotDocID, gotModel = docID, model
		return "From the notes: 42", nil
	}
	backend.ChatFunc = func(ctx context.Context, req domain.ChatRequest) (ports.ChatStream, error) {
		return &mocks.MockChatStream{Chunks: []string{"plain"}}, nil
	}

	// Act
	doc, err := svc.Attach(context.Background(), "/tmp/notes.pdf")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	ragReply, _ := svc.Send(context.Background(), "what is the answer?", nil)
	svc.Detach()
	plainReply, _ := svc.Send(context.Background(), "and now?", nil)

	// Assert
	if doc.ID != "doc-9" {
		t.Errorf("unexpected document %+v", doc)
	}
	if ragReply.Content != "From the notes: 42" || gotDocID != "doc-9" || gotModel != "llama3.2" {
		t.Errorf("expected document chat, got %q (doc %q, model %q)", ragReply.Content, gotDocID, gotModel)
	}
	if docs.ChatCalls != 1 {
		t.Errorf("expected 1 document chat call, got %d", docs.ChatCalls)
	}
	if plainReply.Content != "plain" || len(backend.Requests) != 1 {
		t.Errorf("expected plain chat after detach, got %q with %d chat calls", plainReply.Content, len(backend.Requests))
	}
}

func TestResume_ContinuesStoredSession(t *testing.T) {
	// Arrange
	svc, backend, _ := newTestService()
	backend.GetChatSessionFunc = func(ctx context.Context, id int64) (*domain.ChatHistory, error) {
		return &domain.ChatHistory{
			Session:  domain.ChatSession{ID: id},
			Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "old"}, {Role: domain.RoleAssistant, Content: "reply"}},
		}, nil
	}
	backend.ChatFunc = func(ctx context.Context, req domain.ChatRequest) (ports.ChatStream, error) {
		return &mocks.MockChatStream{Chunks: []string{"new"}}, nil
	}

	// Act
	if _, err := svc.Resume(context.Background(), 21); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	_, _ = svc.Send(context.Background(), "next", nil)

	// Assert
	req := backend.Requests[0]
	if req.SessionID == nil || *req.SessionID != 21 {
		t.Errorf("expected session 21, got %v", req.SessionID)
	}
	if len(req.Messages) != 3 {
		t.Errorf("expected stored history plus the new message, got %d", len(req.Messages))
	}
}

func TestSend_NotifiesEachNewSessionOnce(t *testing.T) {
	// Arrange
	svc, backend, _ := newTestService()
	ids := []int64{7, 7, 12}
	call := 0
	backend.ChatFunc = func(ctx context.Context, req domain.ChatRequest) (ports.ChatStream, error) {
		id := ids[call]
		call++
		return &mocks.MockChatStream{ID: &id, Chunks: []string{"ok"}}, nil
	}
	var notified []int64
	svc.OnSession(func(id int64) { notified = append(notified, id) })

	// Act
	_, _ = svc.Send(context.Background(), "one", nil)
	_, _ = svc.Send(context.Background(), "two", nil)
	svc.Reset()
	_, _ = svc.Send(context.Background(), "three", nil)

	// Assert
	if len(notified) != 2 || notified[0] != 7 || notified[1] != 12 {
		t.Errorf("expected notifications for sessions 7 and 12, got %v", notified)
	}
}
