// Package queue fans completed voice turns out to a message broker so
// other tools (playground watch --turns, dashboards) can follow a session.
package queue

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/pkg/config"
)

// MessageQueue is the broker surface shared by the NATS and RabbitMQ drivers.
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

// New connects to the broker named by cfg.Driver. It returns nil for the
// "none" driver.
func New(cfg config.EventsConfig, log *zap.Logger) (MessageQueue, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "nats":
		q, err := NewNATSQueue(cfg.URL, log)
		if err != nil {
			return nil, err
		}
		return q, nil
	case "rabbitmq":
		q, err := NewRabbitMQQueue(cfg.URL, log)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}
