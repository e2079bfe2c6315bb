package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/adapter/audio"
	"github.com/seu-repo/ai-playground/internal/domain"
)

// SimulatorConfig holds the simulator configuration
type SimulatorConfig struct {
	Addr string
	// HeaderSession announces new chat sessions with X-Session-ID instead
	// of the in-band {"session_id":N} first line.
	HeaderSession bool
	ChunkDelay    time.Duration
	Latency       time.Duration
}

var simulatedVoices = []string{"af_sarah", "af_bella", "af_nicole", "am_adam", "am_michael", "bf_emma"}

// Simulator is an in-memory stand-in for the AI Playground backend. It
// speaks the same HTTP API with canned answers, and can be told to fail
// or slow down individual capabilities.
type Simulator struct {
	config *SimulatorConfig
	log    *zap.Logger
	app    *fiber.App

	mu       sync.Mutex
	nextID   int64
	voice    map[int64]*domain.VoiceSession
	chats    map[int64]*domain.ChatHistory
	docs     map[string]domain.UploadedDocument
	history  map[domain.Capability][]fiber.Map
	failing  map[string]bool
	latency  time.Duration
	requests int
}

func NewSimulator(config *SimulatorConfig, log *zap.Logger) *Simulator {
	s := &Simulator{
		config:  config,
		log:     log,
		voice:   make(map[int64]*domain.VoiceSession),
		chats:   make(map[int64]*domain.ChatHistory),
		docs:    make(map[string]domain.UploadedDocument),
		history: make(map[domain.Capability][]fiber.Map),
		failing: make(map[string]bool),
		latency: config.Latency,
	}
	s.app = s.routes()
	return s
}

func (s *Simulator) routes() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "playground-simulator",
		DisableStartupMessage: true,
		BodyLimit:             64 << 20,
	})
	app.Use(s.faults)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/static/:name", s.handleStatic)

	app.Post("/api/voice/chat", s.handleVoiceChat)
	app.Get("/api/voice/sessions", s.handleListVoiceSessions)
	app.Get("/api/voice/sessions/:id", s.handleGetVoiceSession)
	app.Delete("/api/voice/sessions/:id", s.handleDeleteVoiceSession)

	app.Post("/api/chat", s.handleChat)
	app.Get("/api/chat/sessions", s.handleListChatSessions)
	app.Get("/api/chat/sessions/:id", s.handleGetChatSession)
	app.Delete("/api/chat/sessions/:id", s.handleDeleteChatSession)
	app.Get("/api/models", s.handleModels)

	app.Post("/api/rag/upload", s.handleUpload)
	app.Post("/api/rag/chat", s.handleDocumentChat)
	app.Get("/api/rag/documents", s.handleListDocuments)
	app.Delete("/api/rag/documents/:id", s.handleDeleteDocument)

	app.Post("/api/stt", s.handleSTT)
	app.Post("/api/tts", s.handleTTS)
	app.Get("/api/tts/voices", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"voices": simulatedVoices})
	})
	app.Post("/api/translate", s.handleTranslate)
	app.Post("/api/vision", s.handleVision)

	app.Get("/api/:capability/history", s.handleListHistory)
	app.Delete("/api/:capability/history/:id", s.handleDeleteHistory)
	return app
}

func (s *Simulator) Listen(ln net.Listener) error {
	return s.app.Listener(ln)
}

func (s *Simulator) Stop() error {
	return s.app.Shutdown()
}

// faults applies injected latency and failures. The capability is the
// path segment after /api/.
func (s *Simulator) faults(c *fiber.Ctx) error {
	capability := "other"
	if rest, ok := strings.CutPrefix(c.Path(), "/api/"); ok {
		capability, _, _ = strings.Cut(rest, "/")
	}

	s.mu.Lock()
	s.requests++
	fail := s.failing[capability] || s.failing["all"]
	latency := s.latency
	s.mu.Unlock()

	if latency > 0 {
		time.Sleep(latency)
	}
	if fail {
		s.log.Info("Injected failure", zap.String("path", c.Path()))
		return detail(c, fiber.StatusInternalServerError, "Simulated "+capability+" failure")
	}
	return c.Next()
}

// SetFailing toggles injected failures for a capability ("voice", "chat",
// "stt", ... or "all").
func (s *Simulator) SetFailing(capability string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.failing[capability] = true
	} else {
		delete(s.failing, capability)
	}
}

func (s *Simulator) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

func (s *Simulator) id() int64 {
	s.nextID++
	return s.nextID
}

func detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"detail": msg})
}

func pathID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Voice

func (s *Simulator) handleVoiceChat(c *fiber.Ctx) error {
	fh, err := c.FormFile("audio_file")
	if err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "audio_file is required")
	}
	data, err := readUpload(fh)
	if err != nil {
		return detail(c, fiber.StatusBadRequest, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var session *domain.VoiceSession
	if raw := c.FormValue("session_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return detail(c, fiber.StatusUnprocessableEntity, "session_id must be an integer")
		}
		if session = s.voice[id]; session == nil {
			return detail(c, fiber.StatusNotFound, "Session not found")
		}
	} else {
		id := s.id()
		session = &domain.VoiceSession{ID: id, Title: fmt.Sprintf("Voice session %d", id), CreatedAt: time.Now().UTC()}
		s.voice[id] = session
	}

	turn := domain.VoiceTurn{
		ID:                 s.id(),
		UserAudioRef:       "/static/" + fh.Filename,
		UserText:           fmt.Sprintf("I recorded %d bytes of audio", len(data)),
		Language:           "en",
		LanguageConfidence: 0.98,
		CreatedAt:          time.Now().UTC(),
	}
	turn.AIText = fmt.Sprintf("This is simulated reply %d, spoken by %s.", len(session.Turns)+1, c.FormValue("voice", "af_sarah"))
	turn.AIAudioRef = fmt.Sprintf("/static/reply-%d.wav", turn.ID)
	session.Turns = append(session.Turns, turn)

	return c.JSON(domain.VoiceReply{
		SessionID:           session.ID,
		MessageID:           turn.ID,
		UserText:            turn.UserText,
		AIText:              turn.AIText,
		AudioURL:            turn.AIAudioRef,
		Language:            turn.Language,
		LanguageProbability: turn.LanguageConfidence,
	})
}

func (s *Simulator) handleListVoiceSessions(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]fiber.Map, 0, len(s.voice))
	for _, v := range s.voice {
		out = append(out, fiber.Map{"id": v.ID, "title": v.Title, "created_at": v.CreatedAt.Format(time.RFC3339)})
	}
	sortByID(out)
	return c.JSON(out)
}

func (s *Simulator) handleGetVoiceSession(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "invalid id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.voice[id]
	if !ok {
		return detail(c, fiber.StatusNotFound, "Session not found")
	}
	return c.JSON(session)
}

func (s *Simulator) handleDeleteVoiceSession(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "invalid id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.voice[id]; !ok {
		return detail(c, fiber.StatusNotFound, "Session not found")
	}
	delete(s.voice, id)
	return c.JSON(fiber.Map{"status": "deleted"})
}

// Chat

func (s *Simulator) handleChat(c *fiber.Ctx) error {
	var req domain.ChatRequest
	if err := c.BodyParser(&req); err != nil || len(req.Messages) == 0 {
		return detail(c, fiber.StatusUnprocessableEntity, "messages are required")
	}
	last := req.Messages[len(req.Messages)-1].Content
	reply := "Echo: " + last

	s.mu.Lock()
	announce := req.SessionID == nil
	var session *domain.ChatHistory
	if announce {
		id := s.id()
		session = &domain.ChatHistory{Session: domain.ChatSession{ID: id, Title: title(last), CreatedAt: time.Now().UTC()}}
		s.chats[id] = session
	} else if session = s.chats[*req.SessionID]; session == nil {
		s.mu.Unlock()
		return detail(c, fiber.StatusNotFound, "Session not found")
	}
	session.Messages = append(session.Messages,
		domain.ChatMessage{Role: domain.RoleUser, Content: last},
		domain.ChatMessage{Role: domain.RoleAssistant, Content: reply},
	)
	id := session.Session.ID
	s.mu.Unlock()

	inBand := announce && !s.config.HeaderSession
	if announce && s.config.HeaderSession {
		c.Set("X-Session-ID", strconv.FormatInt(id, 10))
	}
	delay := s.config.ChunkDelay

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		if inBand {
			fmt.Fprintf(w, "{\"session_id\":%d}\n", id)
		}
		for i, word := range strings.Fields(reply) {
			if i > 0 {
				w.WriteString(" ")
			}
			w.WriteString(word)
			if err := w.Flush(); err != nil {
				return
			}
			if delay > 0 {
				time.Sleep(delay)
			}
		}
	})
	return nil
}

func title(text string) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) > 30 {
		return string(r[:30])
	}
	return string(r)
}

func (s *Simulator) handleListChatSessions(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]fiber.Map, 0, len(s.chats))
	for _, h := range s.chats {
		out = append(out, fiber.Map{"id": h.Session.ID, "title": h.Session.Title, "created_at": h.Session.CreatedAt.Format(time.RFC3339)})
	}
	sortByID(out)
	return c.JSON(fiber.Map{"sessions": out})
}

func (s *Simulator) handleGetChatSession(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "invalid id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.chats[id]
	if !ok {
		return detail(c, fiber.StatusNotFound, "Session not found")
	}
	return c.JSON(h)
}

func (s *Simulator) handleDeleteChatSession(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "invalid id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return detail(c, fiber.StatusNotFound, "Session not found")
	}
	delete(s.chats, id)
	return c.JSON(fiber.Map{"status": "deleted"})
}

func (s *Simulator) handleModels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"models": []fiber.Map{
		{"model": "llama3.2", "size": 2019393189},
		{"model": "llama3.2-vision:latest", "size": 7901829417},
		{"name": "qwen2.5:7b", "size": 4683087332},
	}})
}

// Documents

func (s *Simulator) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "file is required")
	}
	data, err := readUpload(fh)
	if err != nil {
		return detail(c, fiber.StatusBadRequest, err.Error())
	}

	doc := domain.UploadedDocument{
		ID:          uuid.NewString(),
		DisplayName: c.FormValue("name", fh.Filename),
		Chunks:      len(data)/500 + 1,
	}
	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()
	return c.JSON(doc)
}

func (s *Simulator) handleDocumentChat(c *fiber.Ctx) error {
	var req struct {
		Message string `json:"message"`
		DocID   string `json:"doc_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "invalid body")
	}
	s.mu.Lock()
	doc, ok := s.docs[req.DocID]
	s.mu.Unlock()
	if !ok {
		return detail(c, fiber.StatusNotFound, "Document not found")
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("According to %s: %s", doc.DisplayName, req.Message)})
}

func (s *Simulator) handleListDocuments(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(fiber.Map, len(s.docs))
	for id, d := range s.docs {
		out[id] = fiber.Map{"filename": d.DisplayName, "chunks": d.Chunks}
	}
	return c.JSON(fiber.Map{"documents": out})
}

func (s *Simulator) handleDeleteDocument(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[c.Params("id")]; !ok {
		return detail(c, fiber.StatusNotFound, "Document not found")
	}
	delete(s.docs, c.Params("id"))
	return c.JSON(fiber.Map{"status": "deleted"})
}

// Single-shot capabilities

func (s *Simulator) handleSTT(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "file is required")
	}
	text := "Simulated transcript of " + fh.Filename
	s.record(domain.CapabilitySTT, "transcript", text)
	return c.JSON(domain.Transcription{Text: text, Language: "en", LanguageProbability: 0.97})
}

func (s *Simulator) handleTTS(c *fiber.Ctx) error {
	var req domain.SpeechRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return detail(c, fiber.StatusUnprocessableEntity, "text is required")
	}
	s.record(domain.CapabilityTTS, "text", req.Text)

	c.Set(fiber.HeaderContentType, "audio/wav")
	return c.Send(tone(len(req.Text)))
}

func (s *Simulator) handleTranslate(c *fiber.Ctx) error {
	var req domain.TranslateRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return detail(c, fiber.StatusUnprocessableEntity, "text is required")
	}
	s.record(domain.CapabilityTranslate, "source_text", req.Text)
	return c.JSON(fiber.Map{"message": fiber.Map{
		"role":    "assistant",
		"content": fmt.Sprintf("[%s] %s", req.TargetLang, req.Text),
	}})
}

func (s *Simulator) handleVision(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "file is required")
	}
	prompt := c.FormValue("prompt", "Describe this image")
	s.record(domain.CapabilityVision, "prompt", prompt)
	return c.JSON(fiber.Map{"message": fiber.Map{
		"role":    "assistant",
		"content": fmt.Sprintf("A simulated answer to %q about %s", prompt, fh.Filename),
	}})
}

// History for tts, stt, translate and vision

func (s *Simulator) record(capability domain.Capability, field, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[capability] = append(s.history[capability], fiber.Map{
		"id":         s.id(),
		field:        text,
		"created_at": now(),
	})
}

func (s *Simulator) handleListHistory(c *fiber.Ctx) error {
	capability, err := domain.ParseCapability(c.Params("capability"))
	if err != nil {
		return detail(c, fiber.StatusNotFound, "Not Found")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := append([]fiber.Map{}, s.history[capability]...)
	return c.JSON(fiber.Map{"history": items})
}

func (s *Simulator) handleDeleteHistory(c *fiber.Ctx) error {
	capability, err := domain.ParseCapability(c.Params("capability"))
	if err != nil {
		return detail(c, fiber.StatusNotFound, "Not Found")
	}
	id, err := pathID(c)
	if err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "invalid id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.history[capability]
	for i, item := range items {
		if item["id"] == id {
			s.history[capability] = append(items[:i], items[i+1:]...)
			return c.JSON(fiber.Map{"status": "deleted"})
		}
	}
	return detail(c, fiber.StatusNotFound, "Entry not found")
}

func sortByID(items []fiber.Map) {
	sort.Slice(items, func(i, j int) bool {
		return items[i]["id"].(int64) < items[j]["id"].(int64)
	})
}

// Audio

func (s *Simulator) handleStatic(c *fiber.Ctx) error {
	if !strings.HasSuffix(c.Params("name"), ".wav") {
		return detail(c, fiber.StatusNotFound, "Not Found")
	}
	c.Set(fiber.HeaderContentType, "audio/wav")
	return c.Send(tone(20))
}

// tone renders a short 440 Hz beep whose length grows with n.
func tone(n int) []byte {
	const rate = audio.DefaultSampleRate
	ms := 300 + 10*n
	if ms > 3000 {
		ms = 3000
	}
	samples := rate * ms / 1000
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(0.3 * math.MaxInt16 * math.Sin(2*math.Pi*440*float64(i)/rate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return audio.EncodeWAV(pcm, rate, 1)
}

// RunInteractive reads operator commands from stdin until quit.
func (s *Simulator) RunInteractive() {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")

	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			fmt.Print("> ")
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "fail":
			if len(args) < 1 {
				fmt.Println("Usage: fail <capability|all> [off]")
				break
			}
			on := len(args) < 2 || args[1] != "off"
			s.SetFailing(args[0], on)
			fmt.Printf("Failures for %s: %v\n", args[0], on)

		case "slow":
			d := time.Duration(0)
			if len(args) > 0 {
				var err error
				if d, err = time.ParseDuration(args[0]); err != nil {
					fmt.Println("Usage: slow <duration>")
					break
				}
			}
			s.SetLatency(d)
			fmt.Printf("Latency set to %s\n", d)

		case "stats":
			s.mu.Lock()
			fmt.Printf("requests=%d voice_sessions=%d chat_sessions=%d documents=%d\n",
				s.requests, len(s.voice), len(s.chats), len(s.docs))
			s.mu.Unlock()

		case "quit", "exit":
			fmt.Println("Goodbye!")
			return

		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}

		fmt.Print("> ")
	}
}
