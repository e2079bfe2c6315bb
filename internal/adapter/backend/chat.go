package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/observability/telemetry"
	"github.com/seu-repo/ai-playground/internal/ports"
)

// SessionHeader carries the chat session id out of band.
const SessionHeader = "X-Session-ID"

const streamBufferSize = 4096

// Chat posts the conversation and returns the response as a stream of
// chunks. The caller must Close the stream.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (ports.ChatStream, error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	resp, err := c.do(ctx, "chat", http.MethodPost, "/api/chat", body, "application/json")
	if err != nil {
		return nil, err
	}

	sessionID := headerSessionID(resp.Header)

	if isJSON(resp.Header.Get("Content-Type")) {
		defer resp.Body.Close()
		var env assistantEnvelope
		if err := decodeJSON(resp, &env); err != nil {
			return nil, c.bodyError(ctx, "chat", err)
		}
		if sessionID == nil {
			sessionID = env.SessionID
		}
		return &singleStream{sessionID: sessionID, chunk: []byte(env.Message.Content)}, nil
	}

	return &bodyStream{
		ctx:       ctx,
		body:      resp.Body,
		sessionID: sessionID,
		url:       c.url("/api/chat"),
		buf:       make([]byte, streamBufferSize),
	}, nil
}

// GetChatSession loads a stored chat session with its messages.
func (c *Client) GetChatSession(ctx context.Context, id int64) (*domain.ChatHistory, error) {
	var w chatSessionWire
	path := "/api/chat/sessions/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, "chat_session", http.MethodGet, path, nil, &w); err != nil {
		return nil, err
	}

	meta := w.sessionWire
	if w.Session != nil {
		meta = *w.Session
	}
	if meta.ID == 0 {
		meta.ID = id
	}

	history := &domain.ChatHistory{
		Session: domain.ChatSession{
			ID:        meta.ID,
			Title:     meta.Title,
			CreatedAt: meta.CreatedAt.Time,
		},
		Messages: make([]domain.ChatMessage, 0, len(w.Messages)),
	}
	for _, m := range w.Messages {
		history.Messages = append(history.Messages, domain.ChatMessage{
			Role:    domain.Role(m.Role),
			Content: m.Content,
		})
	}
	return history, nil
}

// Models lists the models installed on the backend.
func (c *Client) Models(ctx context.Context) ([]domain.Model, error) {
	var payload struct {
		Models []modelWire `json:"models"`
	}
	if err := c.doJSON(ctx, "models", http.MethodGet, "/api/models", nil, &payload); err != nil {
		return nil, err
	}

	models := make([]domain.Model, 0, len(payload.Models))
	for _, m := range payload.Models {
		name := m.Model
		if name == "" {
			name = m.Name
		}
		if name == "" {
			continue
		}
		models = append(models, domain.Model{Name: name, Size: m.Size})
	}
	return models, nil
}

// bodyStream hands out the raw response body in arrival order.
type bodyStream struct {
	ctx       context.Context
	body      io.ReadCloser
	sessionID *int64
	url       string
	buf       []byte
	err       error
}

func (s *bodyStream) SessionID() *int64 { return s.sessionID }

func (s *bodyStream) Next() ([]byte, error) {
	for s.err == nil {
		n, err := s.body.Read(s.buf)
		if err != nil {
			s.err = s.classify(err)
		}
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			telemetry.ChatStreamChunksTotal.Inc()
			return chunk, nil
		}
	}
	return nil, s.err
}

func (s *bodyStream) classify(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
		return fmt.Errorf("read chat stream: %w", domain.ErrCancelled)
	}
	return &domain.NetworkError{Op: "read", URL: s.url, Err: err}
}

func (s *bodyStream) Close() error {
	return s.body.Close()
}

// singleStream wraps a non-streamed JSON reply as one chunk.
type singleStream struct {
	sessionID *int64
	chunk     []byte
	done      bool
}

func (s *singleStream) SessionID() *int64 { return s.sessionID }

func (s *singleStream) Next() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	if len(s.chunk) == 0 {
		return nil, io.EOF
	}
	return s.chunk, nil
}

func (s *singleStream) Close() error { return nil }

func headerSessionID(h http.Header) *int64 {
	raw := strings.TrimSpace(h.Get(SessionHeader))
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
