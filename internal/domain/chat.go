package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type ChatSession struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatHistory is a stored chat session with its messages.
type ChatHistory struct {
	Session  ChatSession   `json:"session"`
	Messages []ChatMessage `json:"messages"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	SessionID *int64        `json:"session_id,omitempty"`
}

// UploadedDocument is a document attached for document chat (RAG).
type UploadedDocument struct {
	ID          string `json:"doc_id"`
	DisplayName string `json:"filename"`
	Chunks      int    `json:"chunks_created,omitempty"`
}

// Model is one entry of the backend model list.
type Model struct {
	Name string `json:"model"`
	Size int64  `json:"size,omitempty"`
}
