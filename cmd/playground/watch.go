package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/adapter/queue"
	"github.com/seu-repo/ai-playground/internal/domain"
)

func runWatch(ctx context.Context, a *app, args []string) error {
	fs := newFlags("watch", a.out)
	url := fs.String("url", fmt.Sprintf("ws://localhost:%d/ws/voice", a.cfg.UI.Port), "gateway voice socket")
	turns := fs.Bool("turns", false, "also print completed turns from the event broker")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *turns {
		if a.mq == nil {
			return errors.New("-turns needs events.driver set to nats or rabbitmq")
		}
		err := queue.SubscribeTurns(a.mq, a.cfg.Events.TurnSubject, func(ev domain.TurnEvent) {
			fmt.Fprintf(a.out, "turn %d in session %d (%s, %s)\n", ev.MessageID, ev.SessionID, ev.Language, ev.Latency.Round(time.Millisecond))
		})
		if err != nil {
			return fmt.Errorf("subscribe turns: %w", err)
		}
	}

	return watchSnapshots(ctx, *url, &snapshotPrinter{w: a.out}, a.log)
}

// watchSnapshots prints snapshots pushed by the gateway until ctx is done
// or the gateway goes away.
func watchSnapshots(ctx context.Context, url string, p *snapshotPrinter, log *zap.Logger) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer conn.Close()
	log.Debug("Watching voice mode", zap.String("url", url))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return fmt.Errorf("read snapshot: %w", err)
		}

		var snap domain.VoiceSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Warn("Skipping malformed snapshot", zap.Error(err))
			continue
		}
		p.print(snap)
	}
}
