package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
)

// FFplayPlayer plays a URL or local file through ffplay. Only one
// resource plays at a time.
type FFplayPlayer struct {
	path string
	log  *zap.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
	gen uint64
}

func NewFFplayPlayer(path string, log *zap.Logger) *FFplayPlayer {
	if path == "" {
		path = "ffplay"
	}
	return &FFplayPlayer{path: path, log: log}
}

// Play starts ref and calls onEnd once when it finishes on its own.
// onEnd is not called after Stop or when a later Play displaces ref.
func (p *FFplayPlayer) Play(ctx context.Context, ref string, onEnd func()) error {
	bin, err := exec.LookPath(p.path)
	if err != nil {
		return fmt.Errorf("%w: ffplay not found: %v", domain.ErrDeviceUnavailable, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	cmd := exec.CommandContext(ctx, bin, playArgs(ref)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffplay: %v", domain.ErrDeviceUnavailable, err)
	}
	p.cmd = cmd
	gen := p.gen

	go func() {
		waitErr := cmd.Wait()

		p.mu.Lock()
		natural := p.gen == gen && p.cmd == cmd
		if natural {
			p.cmd = nil
		}
		p.mu.Unlock()

		if !natural {
			return
		}
		if waitErr != nil {
			p.log.Warn("Playback ended with error", zap.String("ref", ref), zap.Error(waitErr))
		}
		if onEnd != nil {
			onEnd()
		}
	}()
	return nil
}

// Stop halts playback immediately and suppresses the completion callback.
func (p *FFplayPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *FFplayPlayer) stopLocked() {
	p.gen++
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.cmd = nil
}

func playArgs(ref string) []string {
	return []string{"-nodisp", "-autoexit", "-loglevel", "error", ref}
}
