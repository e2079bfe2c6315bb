package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// apiTime accepts the timestamp layouts the backend emits. Python's
// isoformat() omits the zone and may carry microseconds.
type apiTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *apiTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	t.Time = parseTime(s)
	return nil
}

// parseTime returns the zero time for unrecognized input.
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// assistantEnvelope is the ollama-style {"message": {"content": ...}} body
// returned by chat, translate and vision.
type assistantEnvelope struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	SessionID *int64 `json:"session_id,omitempty"`
}

type voiceTurnWire struct {
	ID                  int64   `json:"id"`
	UserAudioPath       string  `json:"user_audio_path"`
	UserText            string  `json:"user_text"`
	AIText              string  `json:"ai_text"`
	AIAudioPath         string  `json:"ai_audio_path"`
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
	CreatedAt           apiTime `json:"created_at"`
}

type sessionWire struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	CreatedAt apiTime `json:"created_at"`
}

type voiceSessionWire struct {
	sessionWire
	Messages []voiceTurnWire `json:"messages"`
}

type chatMessageWire struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatSessionWire struct {
	Session  *sessionWire      `json:"session"`
	Messages []chatMessageWire `json:"messages"`
	// Some backend versions flatten the session fields into the root.
	sessionWire
}

type modelWire struct {
	Model string `json:"model"`
	Name  string `json:"name"`
	Size  int64  `json:"size"`
}

// rawObject is a history list item decoded without a fixed schema.
type rawObject map[string]json.RawMessage

func (o rawObject) str(key string) string {
	raw, ok := o[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (o rawObject) int(key string) (int64, bool) {
	raw, ok := o[key]
	if !ok {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return v, true
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
