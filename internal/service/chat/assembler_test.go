package chat

import "testing"

func TestAssembler(t *testing.T) {
	tests := []struct {
		name         string
		expectHeader bool
		chunks       []string
		wantContent  string
		wantID       int64
		wantNoID     bool
	}{
		{
			name:         "header stripped from first chunk",
			expectHeader: true,
			chunks:       []string{`{"session_id":7}` + "\nHel", "lo wo", "rld"},
			wantContent:  "Hello world",
			wantID:       7,
		},
		{
			name:         "header split across chunks",
			expectHeader: true,
			chunks:       []string{`{"sess`, `ion_id": 12}`, "\nHi", " there"},
			wantContent:  "Hi there",
			wantID:       12,
		},
		{
			name:         "string session id",
			expectHeader: true,
			chunks:       []string{`{"session_id":"31"}` + "\n", "ok"},
			wantContent:  "ok",
			wantID:       31,
		},
		{
			name:         "plain text first line is content",
			expectHeader: true,
			chunks:       []string{"Hello\nworld"},
			wantContent:  "Hello\nworld",
			wantNoID:     true,
		},
		{
			name:         "json without session id is kept whole",
			expectHeader: true,
			chunks:       []string{`{"answer":1}` + "\nrest"},
			wantContent:  `{"answer":1}` + "\nrest",
			wantNoID:     true,
		},
		{
			name:         "unterminated brace flushed at end",
			expectHeader: true,
			chunks:       []string{`{not json`},
			wantContent:  `{not json`,
			wantNoID:     true,
		},
		{
			name:         "header only without newline",
			expectHeader: true,
			chunks:       []string{`{"session_id":4}`},
			wantContent:  "",
			wantID:       4,
		},
		{
			name:         "header ignored when not expected",
			expectHeader: false,
			chunks:       []string{`{"session_id":7}` + "\nHi"},
			wantContent:  `{"session_id":7}` + "\nHi",
			wantNoID:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssembler(tt.expectHeader)
			for _, c := range tt.chunks {
				a.Push([]byte(c))
			}
			a.Flush()

			if got := a.Content(); got != tt.wantContent {
				t.Errorf("content = %q, want %q", got, tt.wantContent)
			}
			id := a.SessionID()
			if tt.wantNoID {
				if id != nil {
					t.Errorf("expected no session id, got %d", *id)
				}
				return
			}
			if id == nil || *id != tt.wantID {
				t.Errorf("session id = %v, want %d", id, tt.wantID)
			}
		})
	}
}

func TestAssembler_HeaderNeverVisible(t *testing.T) {
	a := NewAssembler(true)
	var seen []string
	for _, c := range []string{`{"session_id":7}`, "\nHel", "lo"} {
		if v := a.Push([]byte(c)); v != "" {
			seen = append(seen, a.Content())
		}
	}

	for _, s := range seen {
		if len(s) > 0 && s[0] == '{' {
			t.Errorf("header leaked into rendered text %q", s)
		}
	}
	if len(seen) != 2 || seen[0] != "Hel" || seen[1] != "Hello" {
		t.Errorf("unexpected renders %v", seen)
	}
}
