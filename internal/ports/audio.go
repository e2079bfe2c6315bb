package ports

import (
	"context"

	"github.com/seu-repo/ai-playground/internal/domain"
)

// AudioCapture records from the microphone. Start fails with
// domain.ErrPermissionDenied or domain.ErrDeviceUnavailable. Stop finalizes
// the recording, releases the device and calls onDone exactly once per
// successful Start. Stop without a successful Start is a no-op.
type AudioCapture interface {
	Start(ctx context.Context, onDone func(domain.AudioPayload, error)) error
	Stop()
}

// AudioPlayer plays one resource at a time. onEnd fires once when playback
// finishes naturally and never after Stop. Play stops any previous playback.
type AudioPlayer interface {
	Play(ctx context.Context, ref string, onEnd func()) error
	Stop()
}
