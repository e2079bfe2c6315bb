package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/seu-repo/ai-playground/internal/domain"
)

const (
	maxTitleRunes = 50
	untitled      = "Untitled"
)

// titleKeys are tried in order when a record has no usable title.
var titleKeys = []string{"title", "text", "transcript", "source_text", "prompt"}

// HistoryPath returns the list endpoint for a capability.
func HistoryPath(capability domain.Capability) (string, error) {
	switch capability {
	case domain.CapabilityChat:
		return "/api/chat/sessions", nil
	case domain.CapabilityVoice:
		return "/api/voice/sessions", nil
	case domain.CapabilityTTS, domain.CapabilitySTT, domain.CapabilityTranslate, domain.CapabilityVision:
		return "/api/" + string(capability) + "/history", nil
	default:
		return "", fmt.Errorf("unknown capability %q", capability)
	}
}

func (c *Client) ListHistory(ctx context.Context, capability domain.Capability) ([]domain.HistoryEntry, error) {
	path, err := HistoryPath(capability)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.doJSON(ctx, "history_list", http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	items, err := historyItems(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s history: %w", capability, err)
	}

	entries := make([]domain.HistoryEntry, 0, len(items))
	for _, item := range items {
		id, ok := item.int("id")
		if !ok {
			continue
		}
		entries = append(entries, domain.HistoryEntry{
			ID:         id,
			Capability: capability,
			Title:      entryTitle(item),
			CreatedAt:  parseTime(item.str("created_at")),
		})
	}
	return entries, nil
}

func (c *Client) DeleteHistory(ctx context.Context, capability domain.Capability, id int64) error {
	path, err := HistoryPath(capability)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, "history_delete", http.MethodDelete, path+"/"+strconv.FormatInt(id, 10), nil, nil)
}

// historyItems accepts a bare array or an object wrapping one
// ({"sessions": [...]}, {"history": [...]}).
func historyItems(raw json.RawMessage) ([]rawObject, error) {
	var items []rawObject
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range []string{"sessions", "history", "items", "data"} {
		if v, ok := wrapper[key]; ok {
			if err := json.Unmarshal(v, &items); err != nil {
				return nil, err
			}
			return items, nil
		}
	}
	return nil, nil
}

func entryTitle(item rawObject) string {
	for _, key := range titleKeys {
		if s := strings.TrimSpace(item.str(key)); s != "" {
			return truncate(s, maxTitleRunes)
		}
	}
	return untitled
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
