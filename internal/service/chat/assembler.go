package chat

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Assembler grows one assistant message from streamed chunks. When the
// session id is expected in band, the first line may be a JSON header
// {"session_id": N}; it is stripped and never becomes visible.
type Assembler struct {
	expectHeader bool
	resolved     bool
	pending      []byte
	content      strings.Builder
	sessionID    *int64
}

func NewAssembler(expectHeader bool) *Assembler {
	return &Assembler{expectHeader: expectHeader, resolved: !expectHeader}
}

// Push consumes one chunk and returns the text it made visible, which
// may be empty while a possible header is still incomplete.
func (a *Assembler) Push(chunk []byte) string {
	if a.resolved {
		a.content.Write(chunk)
		return string(chunk)
	}

	a.pending = append(a.pending, chunk...)
	trimmed := bytes.TrimLeft(a.pending, " \t\r\n")
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] != '{' {
		return a.release(a.pending)
	}

	nl := bytes.IndexByte(a.pending, '\n')
	if nl < 0 {
		return ""
	}
	if id, ok := parseHeader(a.pending[:nl]); ok {
		a.sessionID = &id
		return a.release(a.pending[nl+1:])
	}
	return a.release(a.pending)
}

// Flush ends the stream. A held prefix that is a complete header is
// consumed; anything else becomes content.
func (a *Assembler) Flush() string {
	if a.resolved {
		return ""
	}
	if id, ok := parseHeader(a.pending); ok {
		a.sessionID = &id
		return a.release(nil)
	}
	return a.release(a.pending)
}

func (a *Assembler) release(visible []byte) string {
	a.resolved = true
	a.pending = nil
	a.content.Write(visible)
	return string(visible)
}

// SessionID is the id read from the in-band header, if any.
func (a *Assembler) SessionID() *int64 {
	return a.sessionID
}

func (a *Assembler) Content() string {
	return a.content.String()
}

// parseHeader accepts a JSON object whose session_id is an integer or a
// string of digits. Objects without one are content, not headers.
func parseHeader(line []byte) (int64, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return 0, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(line, &obj); err != nil {
		return 0, false
	}
	raw, ok := obj["session_id"]
	if !ok {
		return 0, false
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if id, err := n.Int64(); err == nil {
			return id, true
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}
