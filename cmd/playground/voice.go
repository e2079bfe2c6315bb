package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/service/voice"
)

func runVoice(ctx context.Context, a *app, args []string) error {
	fs := newFlags("voice", a.out)
	session := fs.Int64("session", 0, "continue a stored voice session")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var id *int64
	if *session > 0 {
		id = session
	}
	launcher := voice.NewLauncher(a.voiceController(&consoleNotifier{w: a.out}), a.log)
	return voiceLoop(ctx, a, launcher, id)
}

// voiceLoop opens voice mode and drives it from the keyboard until the
// user leaves. Enter ends an utterance, interrupts a reply, or starts
// listening again after an interruption.
func voiceLoop(ctx context.Context, a *app, launcher *voice.Launcher, sessionID *int64) error {
	ctrl := launcher.Controller()
	p := &snapshotPrinter{w: a.out}
	unsubscribe := ctrl.Subscribe(p.print)
	defer unsubscribe()

	fmt.Fprintln(a.out, "voice mode: Enter to stop or start talking, q to leave")
	if _, err := launcher.Toggle(ctx, voice.ToggleRequest{SessionID: sessionID}); err != nil && !domain.IsDeviceError(err) {
		return err
	}
	defer func() {
		if ctrl.IsOpen() {
			launcher.Toggle(ctx, voice.ToggleRequest{})
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-a.in:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "q", "quit", "/quit", "/voice":
				return nil
			}

			switch ctrl.Snapshot().State {
			case domain.VoiceStateListening:
				if err := ctrl.StopRecording(); err != nil {
					fmt.Fprintln(a.out, "!", domain.Describe(err))
				}
			case domain.VoiceStateSpeaking:
				ctrl.StopPlayback()
			case domain.VoiceStateIdle:
				// Device failures are already reported by the notifier.
				if err := ctrl.Start(); err != nil && !domain.IsDeviceError(err) {
					fmt.Fprintln(a.out, "!", domain.Describe(err))
				}
			default:
				fmt.Fprintln(a.out, "still thinking...")
			}
		}
	}
}
