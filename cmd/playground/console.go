package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/seu-repo/ai-playground/internal/domain"
)

// readLines feeds r line by line into the returned channel, which is
// closed at EOF.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// consoleNotifier shows blocking notices on the terminal.
type consoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func (n *consoleNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "\n! %s\n", message)
}

// streamPrinter writes the growing assistant text incrementally.
type streamPrinter struct {
	w    io.Writer
	last string
}

func (p *streamPrinter) update(content string) {
	if strings.HasPrefix(content, p.last) {
		fmt.Fprint(p.w, content[len(p.last):])
	} else {
		// The text was replaced, e.g. by an error fallback.
		fmt.Fprint(p.w, "\n"+content)
	}
	p.last = content
}

func (p *streamPrinter) done() {
	if p.last != "" {
		fmt.Fprintln(p.w)
	}
	p.last = ""
}

// snapshotPrinter renders voice snapshots, printing only what changed.
type snapshotPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	prev domain.VoiceSnapshot
}

func (p *snapshotPrinter) print(s domain.VoiceSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.State != p.prev.State || s.Open != p.prev.Open {
		fmt.Fprintf(p.w, "[%s]%s\n", stateLabel(s), sessionSuffix(s.SessionID))
	}
	if s.UserText != "" && s.UserText != p.prev.UserText {
		fmt.Fprintf(p.w, "you: %s\n", s.UserText)
	}
	if s.AIText != "" && s.AIText != p.prev.AIText {
		fmt.Fprintf(p.w, "ai:  %s\n", s.AIText)
	}
	p.prev = s
}

func stateLabel(s domain.VoiceSnapshot) string {
	if !s.Open {
		return "closed"
	}
	switch s.State {
	case domain.VoiceStateListening:
		return "listening, press Enter when done"
	case domain.VoiceStateProcessing:
		return "thinking"
	case domain.VoiceStateSpeaking:
		return "speaking, press Enter to interrupt"
	default:
		return "idle, press Enter to talk"
	}
}

func sessionSuffix(id *int64) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf(" session %d", *id)
}
