package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/adapter/backend"
	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/service/chat"
)

func startSimulator(t *testing.T, config *SimulatorConfig) (*Simulator, *backend.Client) {
	t.Helper()

	sim := NewSimulator(config, zap.NewNop())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = sim.Listen(ln) }()
	t.Cleanup(func() { _ = sim.Stop() })

	client, err := backend.NewClient("http://"+ln.Addr().String(), nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return sim, client
}

func TestSimulator_ChatStreamsAndAdoptsSession(t *testing.T) {
	t.Parallel()

	for _, headerSession := range []bool{false, true} {
		_, client := startSimulator(t, &SimulatorConfig{HeaderSession: headerSession})
		svc := chat.NewService(client, client, "llama3.2", zap.NewNop())

		reply, err := svc.Send(context.Background(), "hello there", nil)
		if err != nil {
			t.Fatalf("header=%v: Send: %v", headerSession, err)
		}
		if reply.Content != "Echo: hello there" {
			t.Fatalf("header=%v: reply = %q", headerSession, reply.Content)
		}
		if id := svc.SessionID(); id == nil || *id != 1 {
			t.Fatalf("header=%v: session id = %v, want 1", headerSession, id)
		}

		if _, err := svc.Send(context.Background(), "again", nil); err != nil {
			t.Fatalf("header=%v: second Send: %v", headerSession, err)
		}
		history, err := client.GetChatSession(context.Background(), 1)
		if err != nil {
			t.Fatalf("header=%v: GetChatSession: %v", headerSession, err)
		}
		if len(history.Messages) != 4 {
			t.Fatalf("header=%v: stored %d messages, want 4", headerSession, len(history.Messages))
		}
	}
}

func TestSimulator_VoiceSessionKeepsTurns(t *testing.T) {
	t.Parallel()
	_, client := startSimulator(t, &SimulatorConfig{})
	ctx := context.Background()

	first, err := client.VoiceChat(ctx, domain.VoiceRequest{Audio: domain.AudioPayload{Data: []byte("RIFF....")}, Voice: "af_bella"})
	if err != nil {
		t.Fatalf("VoiceChat: %v", err)
	}
	if _, err := client.VoiceChat(ctx, domain.VoiceRequest{Audio: domain.AudioPayload{Data: []byte("RIFF")}, SessionID: &first.SessionID}); err != nil {
		t.Fatalf("second VoiceChat: %v", err)
	}

	session, err := client.GetVoiceSession(ctx, first.SessionID)
	if err != nil {
		t.Fatalf("GetVoiceSession: %v", err)
	}
	if len(session.Turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(session.Turns))
	}

	entries, err := client.ListHistory(ctx, domain.CapabilityVoice)
	if err != nil || len(entries) != 1 {
		t.Fatalf("ListHistory = %v, %v", entries, err)
	}
}

func TestSimulator_HistoryDelete(t *testing.T) {
	t.Parallel()
	_, client := startSimulator(t, &SimulatorConfig{})
	ctx := context.Background()

	audio, err := client.Synthesize(ctx, domain.SpeechRequest{Text: "hi", Voice: "af_sarah", Speed: 1})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.HasPrefix(audio, []byte("RIFF")) {
		t.Fatalf("expected a WAV body")
	}

	entries, err := client.ListHistory(ctx, domain.CapabilityTTS)
	if err != nil || len(entries) != 1 || entries[0].Title != "hi" {
		t.Fatalf("ListHistory = %+v, %v", entries, err)
	}

	if err := client.DeleteHistory(ctx, domain.CapabilityTTS, entries[0].ID); err != nil {
		t.Fatalf("DeleteHistory: %v", err)
	}
	err = client.DeleteHistory(ctx, domain.CapabilityTTS, entries[0].ID)
	var up *domain.UpstreamError
	if !errors.As(err, &up) || up.StatusCode != 404 {
		t.Fatalf("second delete err = %v, want 404", err)
	}
}

func TestSimulator_DocumentChat(t *testing.T) {
	t.Parallel()
	_, client := startSimulator(t, &SimulatorConfig{})

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("the sky is green"), 0o600); err != nil {
		t.Fatal(err)
	}

	svc := chat.NewService(client, client, "llama3.2", zap.NewNop())
	doc, err := svc.Attach(context.Background(), path)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if doc.DisplayName != "notes.txt" {
		t.Fatalf("display name = %q", doc.DisplayName)
	}

	reply, err := svc.Send(context.Background(), "what color?", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Content != "According to notes.txt: what color?" {
		t.Fatalf("reply = %q", reply.Content)
	}
}

func TestSimulator_InjectedFailure(t *testing.T) {
	t.Parallel()
	sim, client := startSimulator(t, &SimulatorConfig{})
	sim.SetFailing("translate", true)

	_, err := client.Translate(context.Background(), domain.TranslateRequest{Text: "hola", TargetLang: "English"})
	var up *domain.UpstreamError
	if !errors.As(err, &up) || up.StatusCode != 500 {
		t.Fatalf("err = %v, want upstream 500", err)
	}
	if domain.Describe(err) != "Simulated translate failure" {
		t.Fatalf("detail = %q", domain.Describe(err))
	}

	sim.SetFailing("translate", false)
	got, err := client.Translate(context.Background(), domain.TranslateRequest{Text: "hola", TargetLang: "English"})
	if err != nil || got != "[English] hola" {
		t.Fatalf("Translate = %q, %v", got, err)
	}
}
