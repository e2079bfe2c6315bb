package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	wsAdapter "github.com/seu-repo/ai-playground/internal/adapter/websocket"
	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/service/voice"
	"github.com/seu-repo/ai-playground/pkg/config"
)

func TestRun_NoCommandPrintsUsage(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	err := run(nil, &bytes.Buffer{}, &stderr)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("err=%v, want flag.ErrHelp", err)
	}
	for _, name := range []string{"chat", "voice", "serve", "watch"} {
		if !strings.Contains(stderr.String(), name) {
			t.Fatalf("usage missing %q:\n%s", name, stderr.String())
		}
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Parallel()

	err := run([]string{"dance"}, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), `unknown command "dance"`) {
		t.Fatalf("err=%v", err)
	}
}

func TestStreamPrinter_WritesDeltas(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := &streamPrinter{w: &out}
	for _, s := range []string{"Hel", "Hello wo", "Hello world"} {
		p.update(s)
	}
	p.done()

	if out.String() != "Hello world\n" {
		t.Fatalf("out=%q", out.String())
	}
}

func TestStreamPrinter_ReplacedText(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := &streamPrinter{w: &out}
	p.update("Partial")
	p.update("Error: backend down")
	p.done()

	if out.String() != "Partial\nError: backend down\n" {
		t.Fatalf("out=%q", out.String())
	}
}

func TestSnapshotPrinter_PrintsChangesOnly(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := &snapshotPrinter{w: &out}
	id := int64(7)
	p.print(domain.VoiceSnapshot{Open: true, State: domain.VoiceStateListening})
	p.print(domain.VoiceSnapshot{Open: true, State: domain.VoiceStateProcessing})
	p.print(domain.VoiceSnapshot{Open: true, State: domain.VoiceStateSpeaking, SessionID: &id, UserText: "hi", AIText: "hello"})
	p.print(domain.VoiceSnapshot{Open: true, State: domain.VoiceStateSpeaking, SessionID: &id, UserText: "hi", AIText: "hello"})

	want := "[listening, press Enter when done]\n" +
		"[thinking]\n" +
		"[speaking, press Enter to interrupt] session 7\n" +
		"you: hi\n" +
		"ai:  hello\n"
	if out.String() != want {
		t.Fatalf("out=%q\nwant=%q", out.String(), want)
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	if id, err := parseID("42"); err != nil || id != 42 {
		t.Fatalf("parseID(42)=%d, %v", id, err)
	}
	for _, bad := range []string{"", "abc", "0", "-3"} {
		if _, err := parseID(bad); err == nil {
			t.Fatalf("parseID(%q) should fail", bad)
		}
	}
}

func TestWatchSnapshots_PrintsUntilClose(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, s := range []domain.VoiceSnapshot{
			{Open: true, State: domain.VoiceStateListening},
			{Open: false, State: domain.VoiceStateIdle},
		} {
			data, _ := json.Marshal(s)
			conn.WriteMessage(websocket.TextMessage, data)
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := watchSnapshots(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), &snapshotPrinter{w: &out}, zap.NewNop())
	if err != nil {
		t.Fatalf("watchSnapshots: %v", err)
	}
	if out.String() != "[listening, press Enter when done]\n[closed]\n" {
		t.Fatalf("out=%q", out.String())
	}
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		App:        config.AppConfig{Name: "ai-playground", Version: "test"},
		Backend:    config.BackendConfig{BaseURL: backendURL},
		Voice:      config.VoiceConfig{Persona: "af_sarah", Speed: 1.0},
		Audio:      config.AudioConfig{FFmpegPath: "ffmpeg", FFplayPath: "ffplay"},
		Cache:      config.CacheConfig{Driver: "local"},
		Events:     config.EventsConfig{Driver: "none"},
		Prometheus: config.PrometheusConfig{Enabled: true, Path: "/metrics"},
	}
}

func TestNewGateway_Routes(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"ok"}`))
		case "/api/tts/history":
			w.Write([]byte(`[{"id":1,"text":"Hello there"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer backend.Close()

	a, err := newApp(testConfig(backend.URL), zap.NewNop(), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	ctrl := a.voiceController(gatewayNotifier{log: a.log})
	defer ctrl.Close()
	gw := newGateway(a, voice.NewLauncher(ctrl, a.log), wsAdapter.NewHub(a.log))

	for _, tc := range []struct {
		path string
		want int
		body string
	}{
		{"/health/live", 200, `"status":"healthy"`},
		{"/ui/voice", 200, `"state":"idle"`},
		{"/ui/history/tts", 200, `"title":"Hello there"`},
		{"/metrics", 200, "playground_"},
		{"/ws/voice", 426, ""},
	} {
		resp, err := gw.Test(httptest.NewRequest("GET", tc.path, nil), 5000)
		if err != nil {
			t.Fatalf("GET %s: %v", tc.path, err)
		}
		var body bytes.Buffer
		body.ReadFrom(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("GET %s status=%d, want %d (%s)", tc.path, resp.StatusCode, tc.want, body.String())
		}
		if !strings.Contains(body.String(), tc.body) {
			t.Fatalf("GET %s body=%s, want %q", tc.path, body.String(), tc.body)
		}
	}
}

func TestApp_NewChatSessionRefreshesHistory(t *testing.T) {
	t.Parallel()

	var sessions atomic.Int64
	sessions.Store(1)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			id := sessions.Add(1)
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprintf(w, "{\"session_id\":%d}\nhello", id)
		case "/api/chat/sessions":
			var items []string
			for i := int64(1); i <= sessions.Load(); i++ {
				items = append(items, fmt.Sprintf(`{"id":%d,"title":"Chat %d"}`, i, i))
			}
			fmt.Fprintf(w, `{"sessions":[%s]}`, strings.Join(items, ","))
		default:
			http.NotFound(w, r)
		}
	}))
	defer backend.Close()

	a, err := newApp(testConfig(backend.URL), zap.NewNop(), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()
	ctx := context.Background()

	before, err := a.historyService().List(ctx, domain.CapabilityChat)
	if err != nil || len(before) != 1 {
		t.Fatalf("List before = %v, %v", before, err)
	}
	if _, err := a.chatService().Send(ctx, "hi", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	after, err := a.historyService().List(ctx, domain.CapabilityChat)
	if err != nil {
		t.Fatalf("List after: %v", err)
	}
	if len(after) != 2 {
		t.Fatalf("entries after new chat session: %d, want 2", len(after))
	}
}
