package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
)

// UploadDocument sends a local file for indexing. name overrides the
// display name; when empty the file's base name is used.
func (c *Client) UploadDocument(ctx context.Context, path, name string) (*domain.UploadedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	base := filepath.Base(path)
	if name == "" {
		name = base
	}

	form := newMultipartForm()
	form.file("file", base, f)
	form.field("name", name)
	body, contentType, err := form.finish()
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	resp, err := c.do(ctx, "rag_upload", http.MethodPost, "/api/rag/upload", body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var doc domain.UploadedDocument
	if err := decodeJSON(resp, &doc); err != nil {
		return nil, c.bodyError(ctx, "rag_upload", err)
	}
	if doc.DisplayName == "" {
		doc.DisplayName = name
	}

	c.log.Info("Document uploaded",
		zap.String("doc_id", doc.ID),
		zap.String("filename", doc.DisplayName),
		zap.Int("chunks", doc.Chunks),
	)
	return &doc, nil
}

// DocumentChat asks a question grounded on an uploaded document.
func (c *Client) DocumentChat(ctx context.Context, message, docID, model string) (string, error) {
	in := struct {
		Message string `json:"message"`
		DocID   string `json:"doc_id"`
		Model   string `json:"model"`
	}{message, docID, model}

	var out struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, "rag_chat", http.MethodPost, "/api/rag/chat", in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]domain.UploadedDocument, error) {
	var out struct {
		Documents map[string]struct {
			Filename string `json:"filename"`
			Chunks   int    `json:"chunks"`
		} `json:"documents"`
	}
	if err := c.doJSON(ctx, "rag_documents", http.MethodGet, "/api/rag/documents", nil, &out); err != nil {
		return nil, err
	}

	docs := make([]domain.UploadedDocument, 0, len(out.Documents))
	for id, d := range out.Documents {
		docs = append(docs, domain.UploadedDocument{ID: id, DisplayName: d.Filename, Chunks: d.Chunks})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].DisplayName < docs[j].DisplayName })
	return docs, nil
}

func (c *Client) DeleteDocument(ctx context.Context, docID string) error {
	return c.doJSON(ctx, "rag_delete", http.MethodDelete, "/api/rag/documents/"+url.PathEscape(docID), nil, nil)
}
