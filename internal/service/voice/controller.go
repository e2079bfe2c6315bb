// Package voice runs the voice-mode loop: listen, send the utterance to
// the backend, speak the reply, listen again.
package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/observability/telemetry"
	"github.com/seu-repo/ai-playground/internal/ports"
)

// ErrNotOpen is returned by recording controls while the overlay is closed.
var ErrNotOpen = errors.New("voice mode is not open")

const DefaultResumeDelay = 500 * time.Millisecond

type Options struct {
	Voice       string
	Model       string
	Speed       float64
	ResumeDelay time.Duration
}

type timer interface {
	Stop() bool
}

// Controller owns the microphone, the in-flight backend call and playback
// for one voice overlay. Every asynchronous completion carries the epoch
// it was started under; completions from an older epoch are dropped.
type Controller struct {
	backend  ports.VoiceBackend
	capture  ports.AudioCapture
	player   ports.AudioPlayer
	notifier ports.Notifier
	events   ports.EventPublisher
	opts     Options
	log      *zap.Logger

	afterFunc func(time.Duration, func()) timer

	// devMu serializes calls into the capture and playback adapters.
	devMu sync.Mutex

	mu         sync.Mutex
	open       bool
	state      domain.VoiceState
	epoch      uint64
	turn       uint64
	sessionID  *int64
	userText   string
	aiText     string
	notice     string
	loopCtx    context.Context
	loopCancel context.CancelFunc
	cancel     context.CancelFunc
	resume     timer
	turnStart  time.Time

	emitMu    sync.Mutex
	observers map[int]func(domain.VoiceSnapshot)
	nextObs   int
}

func NewController(
	backend ports.VoiceBackend,
	capture ports.AudioCapture,
	player ports.AudioPlayer,
	notifier ports.Notifier,
	events ports.EventPublisher,
	opts Options,
	log *zap.Logger,
) *Controller {
	if opts.ResumeDelay < 0 {
		opts.ResumeDelay = DefaultResumeDelay
	}
	if opts.Speed <= 0 {
		opts.Speed = 1.0
	}
	return &Controller{
		backend:   backend,
		capture:   capture,
		player:    player,
		notifier:  notifier,
		events:    events,
		opts:      opts,
		log:       log,
		afterFunc: func(d time.Duration, f func()) timer { return time.AfterFunc(d, f) },
		observers: make(map[int]func(domain.VoiceSnapshot)),
	}
}

// Subscribe registers fn for every state change. Observers run on the
// goroutine that caused the change and must not call back into the
// controller synchronously.
func (c *Controller) Subscribe(fn func(domain.VoiceSnapshot)) (unsubscribe func()) {
	c.emitMu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.emitMu.Unlock()

	return func() {
		c.emitMu.Lock()
		delete(c.observers, id)
		c.emitMu.Unlock()
	}
}

func (c *Controller) Snapshot() domain.VoiceSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Open shows the overlay and starts listening. sessionID, when non-nil,
// continues a stored session instead of letting the backend create one.
func (c *Controller) Open(ctx context.Context, sessionID *int64) error {
	c.mu.Lock()
	if c.open {
		state := c.state
		c.mu.Unlock()
		switch state {
		case domain.VoiceStateIdle:
			return c.Start()
		case domain.VoiceStateListening:
			return nil
		default:
			return domain.ErrBusy
		}
	}

	c.open = true
	c.epoch++
	c.state = domain.VoiceStateIdle
	c.sessionID = copyID(sessionID)
	c.userText, c.aiText, c.notice = "", "", ""
	c.loopCtx, c.loopCancel = context.WithCancel(context.WithoutCancel(ctx))
	epoch := c.epoch
	c.mu.Unlock()

	c.log.Info("Voice mode opened", zap.Uint64("epoch", epoch), zap.Any("session_id", sessionID))
	c.emit()
	return c.Start()
}

// Start begins a recording. It is only reachable from idle; while the
// loop is processing or speaking it fails with domain.ErrBusy.
func (c *Controller) Start() error {
	c.devMu.Lock()
	defer c.devMu.Unlock()

	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return ErrNotOpen
	}
	switch c.state {
	case domain.VoiceStateIdle:
	case domain.VoiceStateListening:
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		return domain.ErrBusy
	}
	c.state = domain.VoiceStateListening
	c.notice = ""
	c.turn++
	epoch, ctx := c.epoch, c.loopCtx
	c.mu.Unlock()

	return c.startCaptureDevLocked(ctx, epoch)
}

// startCaptureDevLocked acquires the microphone. c.devMu must be held and
// c.mu must not be.
func (c *Controller) startCaptureDevLocked(ctx context.Context, epoch uint64) error {
	err := c.capture.Start(ctx, func(p domain.AudioPayload, err error) {
		c.onCaptured(epoch, p, err)
	})

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		if err == nil {
			c.capture.Stop()
		}
		return nil
	}
	if err != nil {
		c.state = domain.VoiceStateIdle
		c.notice = domain.Describe(err)
		notice := c.notice
		c.mu.Unlock()

		telemetry.VoiceTurnsTotal.WithLabelValues("device_error").Inc()
		c.log.Warn("Microphone unavailable", zap.Error(err))
		c.notifier.Notify(notice)
		c.emit()
		return err
	}
	c.mu.Unlock()

	c.emit()
	return nil
}

// StopRecording ends the current utterance and submits it.
func (c *Controller) StopRecording() error {
	c.devMu.Lock()
	defer c.devMu.Unlock()

	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return ErrNotOpen
	}
	if c.state != domain.VoiceStateListening {
		c.mu.Unlock()
		return nil
	}
	c.state = domain.VoiceStateProcessing
	c.turnStart = time.Now()
	c.mu.Unlock()

	c.emit()
	c.capture.Stop()
	return nil
}

func (c *Controller) onCaptured(epoch uint64, payload domain.AudioPayload, err error) {
	c.mu.Lock()
	if c.epoch != epoch || c.state != domain.VoiceStateProcessing {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.state = domain.VoiceStateIdle
		c.notice = domain.Describe(err)
		notice := c.notice
		c.mu.Unlock()

		telemetry.VoiceTurnsTotal.WithLabelValues("device_error").Inc()
		c.log.Warn("Recording failed", zap.Error(err))
		c.notifier.Notify(notice)
		c.emit()
		return
	}

	ctx, cancel := context.WithCancel(c.loopCtx)
	c.cancel = cancel
	sessionID := copyID(c.sessionID)
	c.mu.Unlock()

	go c.submit(ctx, cancel, epoch, payload, sessionID)
}

// submit sends one utterance. sessionID is the id held when the turn
// started; the reply may only seed it, never replace it.
func (c *Controller) submit(ctx context.Context, cancel context.CancelFunc, epoch uint64, payload domain.AudioPayload, sessionID *int64) {
	defer cancel()

	reply, err := c.backend.VoiceChat(ctx, domain.VoiceRequest{
		Audio:     payload,
		SessionID: sessionID,
		Voice:     c.opts.Voice,
		Model:     c.opts.Model,
		Speed:     c.opts.Speed,
	})

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		telemetry.VoiceTurnsTotal.WithLabelValues("cancelled").Inc()
		c.log.Debug("Dropping voice reply from a closed session", zap.Uint64("epoch", epoch))
		return
	}
	c.cancel = nil
	latency := time.Since(c.turnStart)

	if err != nil {
		c.state = domain.VoiceStateIdle
		if domain.IsCancelled(err) {
			c.mu.Unlock()
			telemetry.VoiceTurnsTotal.WithLabelValues("cancelled").Inc()
			c.emit()
			return
		}
		c.notice = domain.Describe(err)
		notice := c.notice
		c.mu.Unlock()

		telemetry.VoiceTurnsTotal.WithLabelValues("error").Inc()
		c.log.Error("Voice turn failed", zap.Error(err))
		c.notifier.Notify(notice)
		c.emit()
		return
	}

	c.userText, c.aiText = reply.UserText, reply.AIText
	if c.sessionID == nil && reply.SessionID != 0 {
		id := reply.SessionID
		c.sessionID = &id
	}
	c.state = domain.VoiceStateSpeaking
	turn := c.turn
	var activeID int64
	if c.sessionID != nil {
		activeID = *c.sessionID
	}
	c.mu.Unlock()

	telemetry.VoiceTurnsTotal.WithLabelValues("ok").Inc()
	telemetry.VoiceTurnLatency.Observe(latency.Seconds())
	c.log.Info("Voice turn completed",
		zap.Int64("session_id", activeID),
		zap.Int64("message_id", reply.MessageID),
		zap.Duration("latency", latency),
	)
	c.emit()
	c.publish(domain.TurnEvent{
		SessionID: activeID,
		MessageID: reply.MessageID,
		UserText:  reply.UserText,
		AIText:    reply.AIText,
		AudioURL:  reply.AudioURL,
		Language:  reply.Language,
		Latency:   latency,
		At:        time.Now(),
	})

	c.play(epoch, turn, reply.AudioURL)
}

func (c *Controller) play(epoch, turn uint64, ref string) {
	if ref == "" {
		c.onPlaybackEnd(epoch, turn)
		return
	}

	c.devMu.Lock()
	c.mu.Lock()
	if c.epoch != epoch || c.turn != turn || c.state != domain.VoiceStateSpeaking {
		c.mu.Unlock()
		c.devMu.Unlock()
		return
	}
	ctx := c.loopCtx
	c.mu.Unlock()

	err := c.player.Play(ctx, c.backend.AudioURL(ref), func() { c.onPlaybackEnd(epoch, turn) })
	c.devMu.Unlock()
	if err == nil {
		return
	}

	c.mu.Lock()
	if c.epoch != epoch || c.turn != turn {
		c.mu.Unlock()
		return
	}
	c.state = domain.VoiceStateIdle
	c.notice = "Could not play the response audio"
	notice := c.notice
	c.mu.Unlock()

	c.log.Warn("Playback failed", zap.String("ref", ref), zap.Error(err))
	c.notifier.Notify(notice)
	c.emit()
}

// onPlaybackEnd schedules the next recording after a natural end.
func (c *Controller) onPlaybackEnd(epoch, turn uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.turn != turn || c.state != domain.VoiceStateSpeaking {
		return
	}
	c.resume = c.afterFunc(c.opts.ResumeDelay, func() { c.resumeListening(epoch, turn) })
}

func (c *Controller) resumeListening(epoch, turn uint64) {
	c.devMu.Lock()
	defer c.devMu.Unlock()

	c.mu.Lock()
	if !c.open || c.epoch != epoch || c.turn != turn || c.state != domain.VoiceStateSpeaking {
		c.mu.Unlock()
		return
	}
	c.resume = nil
	c.state = domain.VoiceStateListening
	c.turn++
	ctx := c.loopCtx
	c.mu.Unlock()

	_ = c.startCaptureDevLocked(ctx, epoch)
}

// StopPlayback interrupts the spoken reply. The loop goes idle and does
// not resume on its own.
func (c *Controller) StopPlayback() {
	c.devMu.Lock()
	defer c.devMu.Unlock()

	c.mu.Lock()
	if c.state != domain.VoiceStateSpeaking {
		c.mu.Unlock()
		return
	}
	if c.resume != nil {
		c.resume.Stop()
		c.resume = nil
	}
	c.state = domain.VoiceStateIdle
	c.turn++
	c.mu.Unlock()

	c.player.Stop()
	c.emit()
}

// Close cancels everything in flight and forgets the session. Results
// that arrive afterwards are discarded.
func (c *Controller) Close() {
	c.devMu.Lock()

	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		c.devMu.Unlock()
		return
	}
	prev := c.state
	c.open = false
	c.epoch++
	c.turn++
	c.state = domain.VoiceStateIdle
	c.sessionID = nil
	c.userText, c.aiText, c.notice = "", "", ""
	cancel := c.cancel
	c.cancel = nil
	if c.resume != nil {
		c.resume.Stop()
		c.resume = nil
	}
	loopCancel := c.loopCancel
	c.loopCancel = nil
	c.mu.Unlock()

	c.capture.Stop()
	if cancel != nil {
		cancel()
	}
	c.player.Stop()
	if loopCancel != nil {
		loopCancel()
	}
	c.devMu.Unlock()

	c.log.Info("Voice mode closed", zap.Stringer("from_state", prev))
	c.emit()
}

func (c *Controller) publish(ev domain.TurnEvent) {
	if c.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.events.PublishTurn(ctx, ev); err != nil {
		c.log.Warn("Failed to publish turn event", zap.Error(err))
	}
}

func (c *Controller) emit() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	snap := c.Snapshot()
	telemetry.VoiceState.Set(float64(snap.State))
	for _, fn := range c.observers {
		fn(snap)
	}
}

func (c *Controller) snapshotLocked() domain.VoiceSnapshot {
	return domain.VoiceSnapshot{
		State:     c.state,
		Open:      c.open,
		SessionID: copyID(c.sessionID),
		UserText:  c.userText,
		AIText:    c.aiText,
		Notice:    c.notice,
	}
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
