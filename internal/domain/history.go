package domain

import (
	"fmt"
	"strings"
	"time"
)

// Capability names one backend feature that keeps its own history.
type Capability string

const (
	CapabilityChat      Capability = "chat"
	CapabilityVoice     Capability = "voice"
	CapabilityTTS       Capability = "tts"
	CapabilitySTT       Capability = "stt"
	CapabilityTranslate Capability = "translate"
	CapabilityVision    Capability = "vision"
)

var Capabilities = []Capability{
	CapabilityChat,
	CapabilityVoice,
	CapabilityTTS,
	CapabilitySTT,
	CapabilityTranslate,
	CapabilityVision,
}

func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Capabilities {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown capability %q", s)
}

// HistoryEntry is the normalized shape of a history list item.
type HistoryEntry struct {
	ID         int64      `json:"id"`
	Capability Capability `json:"capability"`
	Title      string     `json:"title"`
	CreatedAt  time.Time  `json:"created_at"`
}
