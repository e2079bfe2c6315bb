package voice

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
)

// ToggleRequest opens voice mode, optionally continuing a stored session.
type ToggleRequest struct {
	SessionID *int64 `json:"session_id,omitempty"`
}

// Launcher is handed to every place that can open or close voice mode
// (CLI, UI gateway, history list).
type Launcher struct {
	mu   sync.Mutex
	ctrl *Controller
	log  *zap.Logger
}

func NewLauncher(ctrl *Controller, log *zap.Logger) *Launcher {
	return &Launcher{ctrl: ctrl, log: log}
}

// Toggle closes the overlay when it is open and opens it otherwise.
func (l *Launcher) Toggle(ctx context.Context, req ToggleRequest) (domain.VoiceSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ctrl.IsOpen() {
		l.log.Debug("Voice mode toggled off")
		l.ctrl.Close()
		return l.ctrl.Snapshot(), nil
	}

	l.log.Debug("Voice mode toggled on", zap.Bool("resume_session", req.SessionID != nil))
	err := l.ctrl.Open(ctx, req.SessionID)
	return l.ctrl.Snapshot(), err
}

func (l *Launcher) Controller() *Controller {
	return l.ctrl
}
