package voice

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/mocks"
)

type fakeTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

// fakeClock collects resume timers so tests decide when they fire.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) FireAll() {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fixture struct {
	ctrl     *Controller
	backend  *mocks.MockVoiceBackend
	capture  *mocks.MockAudioCapture
	player   *mocks.MockAudioPlayer
	notifier *mocks.MockNotifier
	events   *mocks.MockEventPublisher
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend:  &mocks.MockVoiceBackend{},
		capture:  &mocks.MockAudioCapture{},
		player:   &mocks.MockAudioPlayer{},
		notifier: &mocks.MockNotifier{},
		events:   &mocks.MockEventPublisher{},
		clock:    &fakeClock{},
	}
	f.ctrl = NewController(f.backend, f.capture, f.player, f.notifier, f.events, Options{
		Voice:       "af_sarah",
		Model:       "llama3.2-vision:latest",
		Speed:       1.0,
		ResumeDelay: DefaultResumeDelay,
	}, zap.NewNop())
	f.ctrl.afterFunc = f.clock.AfterFunc
	t.Cleanup(f.ctrl.Close)
	return f
}

var testPayload = domain.AudioPayload{Data: []byte("RIFF"), MIMEType: "audio/wav", FileName: "recording.wav"}

// finishUtterance stops the recording and delivers the captured audio.
func (f *fixture) finishUtterance(t *testing.T) {
	t.Helper()
	if err := f.ctrl.StopRecording(); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if !f.capture.Finish(testPayload, nil) {
		t.Fatal("expected a pending capture callback")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (f *fixture) waitPlayed(t *testing.T, n int) {
	t.Helper()
	waitFor(t, "playback", func() bool { return len(f.player.PlayedRefs()) == n })
}

func TestController_ReusesFirstSessionID(t *testing.T) {
	// Arrange
	f := newFixture(t)
	ids := []int64{42, 99}
	var mu sync.Mutex
	call := 0
	f.backend.VoiceChatFunc = func(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceReply, error) {
		mu.Lock()
		defer mu.Unlock()
		id := ids[call]
		call++
		return &domain.VoiceReply{SessionID: id, UserText: "hi", AIText: "hello", AudioURL: "/static/r.wav"}, nil
	}

	// Act
	if err := f.ctrl.Open(context.Background(), nil); err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.finishUtterance(t)
	f.waitPlayed(t, 1)

	if !f.player.End() {
		t.Fatal("expected playback callback")
	}
	if f.ctrl.Snapshot().State != domain.VoiceStateSpeaking {
		t.Errorf("expected speaking during resume delay, got %s", f.ctrl.Snapshot().State)
	}
	f.clock.FireAll()
	if f.ctrl.Snapshot().State != domain.VoiceStateListening {
		t.Fatalf("expected listening after resume, got %s", f.ctrl.Snapshot().State)
	}

	f.finishUtterance(t)
	f.waitPlayed(t, 2)

	// Assert
	calls := f.backend.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 backend calls, got %d", len(calls))
	}
	if calls[0].SessionID != nil {
		t.Errorf("first request must not carry a session id, got %d", *calls[0].SessionID)
	}
	if calls[1].SessionID == nil || *calls[1].SessionID != 42 {
		t.Errorf("second request must reuse session 42, got %v", calls[1].SessionID)
	}
	snap := f.ctrl.Snapshot()
	if snap.SessionID == nil || *snap.SessionID != 42 {
		t.Errorf("session id must not be overwritten, got %v", snap.SessionID)
	}
	if calls[0].Voice != "af_sarah" || calls[0].Speed != 1.0 {
		t.Errorf("unexpected request options %+v", calls[0])
	}
	if refs := f.player.PlayedRefs(); refs[0] != "http://backend.test/static/r.wav" {
		t.Errorf("expected resolved audio url, got %q", refs[0])
	}
	if evs := f.events.Published(); len(evs) != 2 || evs[1].SessionID != 42 {
		t.Errorf("expected 2 turn events for session 42, got %+v", evs)
	}
}

func TestController_OpenWithSessionSeedsFirstRequest(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.backend.VoiceChatFunc = func(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceReply, error) {
		return &domain.VoiceReply{SessionID: 8, AudioURL: "/static/r.wav"}, nil
	}
	existing := int64(7)

	// Act
	_ = f.ctrl.Open(context.Background(), &existing)
	existing = 1000
	f.finishUtterance(t)
	f.waitPlayed(t, 1)

	// Assert
	calls := f.backend.Calls()
	if calls[0].SessionID == nil || *calls[0].SessionID != 7 {
		t.Errorf("expected seeded session 7, got %v", calls[0].SessionID)
	}
	if id := f.ctrl.Snapshot().SessionID; id == nil || *id != 7 {
		t.Errorf("expected session 7 to be kept, got %v", id)
	}
}

func TestController_CloseDuringRequestDropsReply(t *testing.T) {
	// Arrange
	f := newFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	returned := make(chan struct{})
	var reqCtx context.Context
	f.backend.VoiceChatFunc = func(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceReply, error) {
		defer close(returned)
		reqCtx = ctx
		close(started)
		<-release
		return &domain.VoiceReply{SessionID: 5, UserText: "late", AIText: "late reply", AudioURL: "/static/late.wav"}, nil
	}
	var snaps []domain.VoiceSnapshot
	var mu sync.Mutex
	f.ctrl.Subscribe(func(s domain.VoiceSnapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	_ = f.ctrl.Open(context.Background(), nil)
	f.finishUtterance(t)
	<-started

	// Act
	f.ctrl.Close()
	mu.Lock()
	closedAt := len(snaps)
	mu.Unlock()
	close(release)
	<-returned
	time.Sleep(50 * time.Millisecond)

	// Assert
	if reqCtx.Err() == nil {
		t.Error("expected the in-flight request to be cancelled")
	}
	snap := f.ctrl.Snapshot()
	if snap.Open || snap.State != domain.VoiceStateIdle || snap.SessionID != nil || snap.AIText != "" {
		t.Errorf("expected a cleared idle snapshot, got %+v", snap)
	}
	mu.Lock()
	if len(snaps) != closedAt {
		t.Errorf("expected no updates after close, got %+v", snaps[closedAt:])
	}
	mu.Unlock()
	if len(f.player.PlayedRefs()) != 0 {
		t.Error("late reply must not be played")
	}
	if len(f.notifier.All()) != 0 {
		t.Errorf("cancellation must not notify, got %v", f.notifier.All())
	}
	if len(f.events.Published()) != 0 {
		t.Error("late reply must not be published")
	}
}

func TestController_CloseDiscardsPendingCapture(t *testing.T) {
	// Arrange
	f := newFixture(t)
	_ = f.ctrl.Open(context.Background(), nil)
	_ = f.ctrl.StopRecording()

	// Act
	f.ctrl.Close()
	f.capture.Finish(testPayload, nil)
	time.Sleep(20 * time.Millisecond)

	// Assert
	if len(f.backend.Calls()) != 0 {
		t.Error("a payload delivered after close must not reach the backend")
	}
}

func TestController_NoRecordingWhileProcessingOrSpeaking(t *testing.T) {
	// Arrange
	f := newFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	f.backend.VoiceChatFunc = func(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceReply, error) {
		close(started)
		<-release
		return &domain.VoiceReply{SessionID: 1, AudioURL: "/static/r.wav"}, nil
	}
	_ = f.ctrl.Open(context.Background(), nil)
	f.finishUtterance(t)
	<-started

	// Act / Assert: processing
	if err := f.ctrl.Start(); err != domain.ErrBusy {
		t.Errorf("expected ErrBusy while processing, got %v", err)
	}
	if err := f.ctrl.Open(context.Background(), nil); err != domain.ErrBusy {
		t.Errorf("expected ErrBusy from Open while processing, got %v", err)
	}

	// Act / Assert: speaking
	close(release)
	f.waitPlayed(t, 1)
	if err := f.ctrl.Start(); err != domain.ErrBusy {
		t.Errorf("expected ErrBusy while speaking, got %v", err)
	}

	if starts, _ := f.capture.Counts(); starts != 1 {
		t.Errorf("expected a single capture start, got %d", starts)
	}
}

func TestController_ManualStopDoesNotResume(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.backend.VoiceChatFunc = func(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceReply, error) {
		return &domain.VoiceReply{SessionID: 1, AudioURL: "/static/r.wav"}, nil
	}
	_ = f.ctrl.Open(context.Background(), nil)
	f.finishUtterance(t)
	f.waitPlayed(t, 1)

	// Act
	f.ctrl.StopPlayback()
	f.player.FireLast()
	f.clock.FireAll()

	// Assert
	if f.clock.Pending() != 0 || len(f.clock.timers) != 0 {
		t.Error("manual stop must not schedule a resume")
	}
	if st := f.ctrl.Snapshot().State; st != domain.VoiceStateIdle {
		t.Errorf("expected idle, got %s", st)
	}
	if starts, _ := f.capture.Counts(); starts != 1 {
		t.Errorf("expected no new recording, got %d starts", starts)
	}
	if f.player.Stops == 0 {
		t.Error("expected playback to be stopped")
	}
}

func TestController_CloseCancelsResumeTimer(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.backend.VoiceChatFunc = func(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceReply, error) {
		return &domain.VoiceReply{SessionID: 1, AudioURL: "/static/r.wav"}, nil
	}
	_ = f.ctrl.Open(context.Background(), nil)
	f.finishUtterance(t)
	f.waitPlayed(t, 1)
	f.player.End()

	// Act
	f.ctrl.Close()
	f.clock.FireAll()

	// Assert
	if starts, _ := f.capture.Counts(); starts != 1 {
		t.Errorf("expected no resume after close, got %d starts", starts)
	}
}

func TestController_PermissionDenied(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.capture.StartFunc = func(context.Context) error { return domain.ErrPermissionDenied }

	// Act
	err := f.ctrl.Open(context.Background(), nil)

	// Assert
	if err == nil {
		t.Fatal("expected an error")
	}
	snap := f.ctrl.Snapshot()
	if snap.State != domain.VoiceStateIdle {
		t.Errorf("expected idle, got %s", snap.State)
	}
	notices := f.notifier.All()
	if len(notices) != 1 || notices[0] != "Could not access microphone. Please check permissions." {
		t.Errorf("unexpected notices %v", notices)
	}
	if len(f.backend.Calls()) != 0 {
		t.Error("no backend call expected")
	}
	if err := f.ctrl.StopRecording(); err != nil {
		t.Errorf("stop from idle should be a no-op, got %v", err)
	}
	if len(f.backend.Calls()) != 0 {
		t.Error("no backend call expected after stop from idle")
	}
}

func TestController_BackendFailureGoesIdleWithNotice(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.backend.VoiceChatFunc = func(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceReply, error) {
		return nil, &domain.UpstreamError{StatusCode: 500, Detail: "Voice chat failed: no speech detected"}
	}
	_ = f.ctrl.Open(context.Background(), nil)

	// Act
	f.finishUtterance(t)
	waitFor(t, "idle", func() bool { return f.ctrl.Snapshot().State == domain.VoiceStateIdle })

	// Assert
	snap := f.ctrl.Snapshot()
	if snap.Notice != "Voice chat failed: no speech detected" {
		t.Errorf("unexpected notice %q", snap.Notice)
	}
	if !snap.Open {
		t.Error("overlay should stay open after a failed turn")
	}
	if err := f.ctrl.Start(); err != nil {
		t.Errorf("expected to record again from idle, got %v", err)
	}
}

func TestController_ReplyWithoutAudioResumes(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.backend.VoiceChatFunc = func(ctx context.Context, req domain.VoiceRequest) (*domain.VoiceReply, error) {
		return &domain.VoiceReply{SessionID: 3, AIText: "text only"}, nil
	}
	_ = f.ctrl.Open(context.Background(), nil)

	// Act
	f.finishUtterance(t)
	waitFor(t, "resume timer", func() bool { return f.clock.Pending() == 1 })
	f.clock.FireAll()

	// Assert
	if st := f.ctrl.Snapshot().State; st != domain.VoiceStateListening {
		t.Errorf("expected listening, got %s", st)
	}
}

func TestLauncher_Toggle(t *testing.T) {
	// Arrange
	f := newFixture(t)
	launcher := NewLauncher(f.ctrl, zap.NewNop())
	id := int64(11)

	// Act
	opened, err := launcher.Toggle(context.Background(), ToggleRequest{SessionID: &id})
	if err != nil {
		t.Fatalf("Toggle on: %v", err)
	}
	closed, err := launcher.Toggle(context.Background(), ToggleRequest{})

	// Assert
	if err != nil {
		t.Fatalf("Toggle off: %v", err)
	}
	if !opened.Open || opened.State != domain.VoiceStateListening || opened.SessionID == nil || *opened.SessionID != 11 {
		t.Errorf("unexpected snapshot after open: %+v", opened)
	}
	if closed.Open || closed.SessionID != nil {
		t.Errorf("unexpected snapshot after close: %+v", closed)
	}
	if _, stops := f.capture.Counts(); stops != 1 {
		t.Errorf("expected the microphone to be released, got %d stops", stops)
	}
}
