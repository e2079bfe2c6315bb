// Package chat holds the text chat conversation, including document chat
// (RAG) routing while a document is attached.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/ports"
)

// UpdateFunc receives the full assistant text after every visible chunk.
type UpdateFunc func(content string)

// Service is one chat conversation.
type Service struct {
	chat  ports.ChatBackend
	docs  ports.DocumentBackend
	model string
	log   *zap.Logger

	mu        sync.Mutex
	messages  []domain.ChatMessage
	sessionID *int64
	doc       *domain.UploadedDocument
	onSession func(id int64)
}

func NewService(chat ports.ChatBackend, docs ports.DocumentBackend, model string, log *zap.Logger) *Service {
	return &Service{chat: chat, docs: docs, model: model, log: log}
}

// Send appends the user message, asks the backend and appends the
// assistant reply. Backend failures become an assistant message of the
// form "Error: <detail>" and are also returned. A cancelled request
// keeps whatever text arrived and returns domain.ErrCancelled.
func (s *Service) Send(ctx context.Context, text string, onUpdate UpdateFunc) (domain.ChatMessage, error) {
	if onUpdate == nil {
		onUpdate = func(string) {}
	}

	s.mu.Lock()
	s.messages = append(s.messages, domain.ChatMessage{Role: domain.RoleUser, Content: text})
	history := append([]domain.ChatMessage(nil), s.messages...)
	sessionID := copyID(s.sessionID)
	doc := s.doc
	model := s.model
	s.mu.Unlock()

	var (
		content string
		err     error
	)
	if doc != nil {
		content, err = s.docs.DocumentChat(ctx, text, doc.ID, model)
		if err == nil {
			onUpdate(content)
		}
	} else {
		content, err = s.stream(ctx, domain.ChatRequest{Model: model, Messages: history, SessionID: sessionID}, onUpdate)
	}

	if err != nil && !domain.IsCancelled(err) {
		s.log.Error("Chat request failed", zap.Bool("document", doc != nil), zap.Error(err))
		content = "Error: " + domain.Describe(err)
		onUpdate(content)
	}

	reply := domain.ChatMessage{Role: domain.RoleAssistant, Content: content}
	s.mu.Lock()
	s.messages = append(s.messages, reply)
	s.mu.Unlock()
	return reply, err
}

func (s *Service) stream(ctx context.Context, req domain.ChatRequest, onUpdate UpdateFunc) (string, error) {
	st, err := s.chat.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	defer st.Close()

	if id := st.SessionID(); id != nil {
		s.adopt(*id)
	}
	asm := NewAssembler(req.SessionID == nil && st.SessionID() == nil)

	for {
		chunk, err := st.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			asm.Flush()
			return asm.Content(), err
		}
		if visible := asm.Push(chunk); visible != "" {
			onUpdate(asm.Content())
		}
	}

	if visible := asm.Flush(); visible != "" {
		onUpdate(asm.Content())
	}
	if id := asm.SessionID(); id != nil {
		s.adopt(*id)
	}
	return asm.Content(), nil
}

// adopt records the first session id the backend assigns; later ones
// are ignored.
func (s *Service) adopt(id int64) {
	s.mu.Lock()
	if s.sessionID != nil {
		s.mu.Unlock()
		return
	}
	s.sessionID = &id
	fn := s.onSession
	s.mu.Unlock()

	s.log.Debug("Chat session assigned", zap.Int64("session_id", id))
	if fn != nil {
		fn(id)
	}
}

// OnSession registers fn to run once per session the backend assigns,
// including after Reset.
func (s *Service) OnSession(fn func(id int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSession = fn
}

// Attach uploads a document and routes later messages to document chat.
// Unsupported file types are rejected before any request is made.
func (s *Service) Attach(ctx context.Context, path string) (*domain.UploadedDocument, error) {
	if err := domain.CheckExtension(path, domain.DocumentExtensions); err != nil {
		return nil, err
	}
	doc, err := s.docs.UploadDocument(ctx, path, "")
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	s.log.Info("Document attached", zap.String("doc_id", doc.ID), zap.String("filename", doc.DisplayName))
	return doc, nil
}

// Detach routes later messages back to plain chat.
func (s *Service) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = nil
}

func (s *Service) Document() *domain.UploadedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Resume loads a stored session so later messages continue it.
func (s *Service) Resume(ctx context.Context, id int64) (*domain.ChatHistory, error) {
	history, err := s.chat.GetChatSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load chat session %d: %w", id, err)
	}

	s.mu.Lock()
	s.messages = append([]domain.ChatMessage(nil), history.Messages...)
	s.sessionID = &id
	s.mu.Unlock()
	return history, nil
}

// Reset starts a new conversation.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.sessionID = nil
	s.doc = nil
}

func (s *Service) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
}

func (s *Service) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatMessage(nil), s.messages...)
}

func (s *Service) SessionID() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyID(s.sessionID)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
