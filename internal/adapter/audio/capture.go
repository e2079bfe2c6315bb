// Package audio adapts the host's ffmpeg/ffplay binaries to the
// microphone and speaker ports.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
)

const (
	DefaultSampleRate   = 16000
	defaultStartupGrace = 250 * time.Millisecond
	maxStderr           = 4 << 10
)

type CaptureOptions struct {
	FFmpegPath  string
	InputFormat string // pulse, alsa, avfoundation; empty picks one for GOOS
	InputDevice string
	SampleRate  int
	// StartupGrace is how long Start waits to see ffmpeg fail to open the device.
	StartupGrace time.Duration
	GOOS         string
}

// FFmpegCapture records mono 16-bit PCM from the default input device.
type FFmpegCapture struct {
	opts CaptureOptions
	log  *zap.Logger

	mu  sync.Mutex
	rec *recording
}

type recording struct {
	cmd     *exec.Cmd
	pcm     *lockedBuffer
	stderr  *lockedBuffer
	drained chan struct{}
	onDone  func(domain.AudioPayload, error)
	started time.Time
}

func NewFFmpegCapture(opts CaptureOptions, log *zap.Logger) *FFmpegCapture {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.StartupGrace <= 0 {
		opts.StartupGrace = defaultStartupGrace
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	return &FFmpegCapture{opts: opts, log: log}
}

// Start opens the microphone. A recording already in progress is
// discarded without calling its callback.
func (c *FFmpegCapture) Start(ctx context.Context, onDone func(domain.AudioPayload, error)) error {
	args, err := ffmpegArgs(c.opts)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}
	bin, err := exec.LookPath(c.opts.FFmpegPath)
	if err != nil {
		return fmt.Errorf("%w: ffmpeg not found: %v", domain.ErrDeviceUnavailable, err)
	}

	c.mu.Lock()
	prev := c.rec
	c.rec = nil
	c.mu.Unlock()
	if prev != nil {
		prev.kill()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	rec := &recording{
		cmd:     cmd,
		pcm:     &lockedBuffer{},
		stderr:  &lockedBuffer{limit: maxStderr},
		drained: make(chan struct{}),
		onDone:  onDone,
		started: time.Now(),
	}
	cmd.Stderr = rec.stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %v", domain.ErrDeviceUnavailable, err)
	}

	go func() {
		defer close(rec.drained)
		_, _ = io.Copy(rec.pcm, stdout)
	}()

	select {
	case <-rec.drained:
		// ffmpeg quit before the grace period: the device could not be opened.
		_ = cmd.Wait()
		return classifyStartError(rec.stderr.String())
	case <-time.After(c.opts.StartupGrace):
	}

	c.mu.Lock()
	c.rec = rec
	c.mu.Unlock()

	c.log.Debug("Microphone capture started",
		zap.Strings("args", args),
		zap.Int("sample_rate", c.opts.SampleRate),
	)
	return nil
}

// Stop releases the microphone and delivers the WAV payload to the
// callback given to Start, on its own goroutine. Stop without a running
// recording is a no-op.
func (c *FFmpegCapture) Stop() {
	c.mu.Lock()
	rec := c.rec
	c.rec = nil
	c.mu.Unlock()
	if rec == nil {
		return
	}

	rec.kill()
	pcm := rec.pcm.Bytes()

	c.log.Debug("Microphone capture stopped",
		zap.Int("bytes", len(pcm)),
		zap.Int64("duration_ms", PCMDuration(len(pcm), c.opts.SampleRate, 1)),
	)

	if rec.onDone == nil {
		return
	}
	if len(pcm) == 0 {
		go rec.onDone(domain.AudioPayload{}, fmt.Errorf("%w: no audio captured", domain.ErrDeviceUnavailable))
		return
	}
	payload := domain.AudioPayload{
		Data:     EncodeWAV(pcm, c.opts.SampleRate, 1),
		MIMEType: "audio/wav",
		FileName: "recording-" + uuid.NewString() + ".wav",
	}
	go rec.onDone(payload, nil)
}

func (r *recording) kill() {
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	<-r.drained
	_ = r.cmd.Wait()
}

func ffmpegArgs(opts CaptureOptions) ([]string, error) {
	format, device := opts.InputFormat, opts.InputDevice
	if format == "" {
		switch opts.GOOS {
		case "darwin":
			format = "avfoundation"
		case "linux":
			format = "pulse"
		default:
			return nil, fmt.Errorf("microphone capture is not implemented for %s; supported platforms: darwin, linux", opts.GOOS)
		}
	}
	if device == "" {
		device = "default"
		if format == "avfoundation" {
			device = ":0"
		}
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", format, "-i", device,
		"-ac", "1", "-ar", strconv.Itoa(opts.SampleRate),
		"-f", "s16le", "-",
	}, nil
}

func classifyStartError(stderr string) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "not authorized") {
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, msg)
	}
	if msg == "" {
		msg = "ffmpeg exited before recording"
	}
	return fmt.Errorf("%w: %s", domain.ErrDeviceUnavailable, msg)
}

// lockedBuffer is written by the pipe reader and read by Stop.
type lockedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit > 0 && b.buf.Len()+len(p) > b.limit {
		room := b.limit - b.buf.Len()
		if room > 0 {
			b.buf.Write(p[:room])
		}
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

func (b *lockedBuffer) String() string {
	return string(b.Bytes())
}
