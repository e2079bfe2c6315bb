package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/ports"
)

// TurnPublisher implements ports.EventPublisher on a MessageQueue.
type TurnPublisher struct {
	mq      MessageQueue
	subject string
	log     *zap.Logger
}

// NewTurnPublisher returns a publisher that drops events when mq is nil.
func NewTurnPublisher(mq MessageQueue, subject string, log *zap.Logger) *TurnPublisher {
	return &TurnPublisher{mq: mq, subject: subject, log: log}
}

func (p *TurnPublisher) PublishTurn(ctx context.Context, ev domain.TurnEvent) error {
	if p.mq == nil {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode turn event: %w", err)
	}
	if err := p.mq.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish turn event: %w", err)
	}
	p.log.Debug("Turn event published",
		zap.String("subject", p.subject),
		zap.Int64("session_id", ev.SessionID),
		zap.Int64("message_id", ev.MessageID),
	)
	return nil
}

// SubscribeTurns decodes turn events from subject and hands them to fn.
func SubscribeTurns(mq MessageQueue, subject string, fn func(domain.TurnEvent)) error {
	return mq.Subscribe(subject, func(data []byte) error {
		var ev domain.TurnEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode turn event: %w", err)
		}
		fn(ev)
		return nil
	})
}

var _ ports.EventPublisher = (*TurnPublisher)(nil)
