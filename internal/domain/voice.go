package domain

import (
	"fmt"
	"time"
)

// VoiceState is the phase of the voice-mode loop.
type VoiceState int

const (
	VoiceStateIdle VoiceState = iota
	VoiceStateListening
	VoiceStateProcessing
	VoiceStateSpeaking
)

func (s VoiceState) String() string {
	switch s {
	case VoiceStateIdle:
		return "idle"
	case VoiceStateListening:
		return "listening"
	case VoiceStateProcessing:
		return "processing"
	case VoiceStateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

func (s VoiceState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *VoiceState) UnmarshalText(b []byte) error {
	for _, v := range []VoiceState{VoiceStateIdle, VoiceStateListening, VoiceStateProcessing, VoiceStateSpeaking} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown voice state %q", b)
}

// VoiceTurn is one user utterance paired with the assistant response.
type VoiceTurn struct {
	ID                 int64     `json:"id"`
	UserAudioRef       string    `json:"user_audio_path"`
	UserText           string    `json:"user_text"`
	AIText             string    `json:"ai_text"`
	AIAudioRef         string    `json:"ai_audio_path"`
	Language           string    `json:"language"`
	LanguageConfidence float64   `json:"language_probability"`
	CreatedAt          time.Time `json:"created_at"`
}

// VoiceSession groups the turns of one continuous voice loop. The ID is
// assigned by the backend on the first turn.
type VoiceSession struct {
	ID        int64       `json:"id"`
	Title     string      `json:"title"`
	CreatedAt time.Time   `json:"created_at"`
	Turns     []VoiceTurn `json:"messages"`
}

// VoiceRequest is one recorded utterance submitted to the backend.
// SessionID is nil on the first turn of a new loop.
type VoiceRequest struct {
	Audio     AudioPayload
	SessionID *int64
	Voice     string
	Model     string
	Speed     float64
}

// VoiceReply is what the backend returns for a VoiceRequest.
type VoiceReply struct {
	SessionID           int64   `json:"session_id"`
	MessageID           int64   `json:"message_id"`
	UserText            string  `json:"user_text"`
	AIText              string  `json:"ai_text"`
	AudioURL            string  `json:"audio_url"`
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
}

// VoiceSnapshot is the observable view state of the voice overlay.
type VoiceSnapshot struct {
	State     VoiceState `json:"state"`
	Open      bool       `json:"open"`
	SessionID *int64     `json:"session_id"`
	UserText  string     `json:"user_text"`
	AIText    string     `json:"ai_text"`
	Notice    string     `json:"notice,omitempty"`
}

// TurnEvent is published once per completed voice turn.
type TurnEvent struct {
	SessionID int64         `json:"session_id"`
	MessageID int64         `json:"message_id"`
	UserText  string        `json:"user_text"`
	AIText    string        `json:"ai_text"`
	AudioURL  string        `json:"audio_url"`
	Language  string        `json:"language"`
	Latency   time.Duration `json:"latency_ns"`
	At        time.Time     `json:"at"`
}

// AudioPayload is a finished recording ready for upload.
type AudioPayload struct {
	Data     []byte
	MIMEType string
	FileName string
}
