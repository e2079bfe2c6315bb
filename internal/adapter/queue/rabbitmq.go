package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	reconnectDelay = 5 * time.Second
	publishTimeout = 5 * time.Second
)

// RabbitMQQueue carries turn events over one fanout exchange per subject.
// Every subscriber gets its own exclusive queue, and subscriptions are
// bound again after a reconnect so a running watch keeps receiving turns.
type RabbitMQQueue struct {
	url string
	log *zap.Logger

	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	declared map[string]bool
	subs     map[string][]func(data []byte) error
	closed   bool
}

func NewRabbitMQQueue(url string, log *zap.Logger) (*RabbitMQQueue, error) {
	conn, ch, err := dialRabbitMQ(url)
	if err != nil {
		return nil, err
	}

	q := &RabbitMQQueue{
		url:      url,
		log:      log,
		conn:     conn,
		channel:  ch,
		declared: make(map[string]bool),
		subs:     make(map[string][]func(data []byte) error),
	}
	go q.watchConnection(conn)

	log.Info("Connected to RabbitMQ for turn events")
	return q, nil
}

func dialRabbitMQ(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	return conn, ch, nil
}

// declare must be called with q.mu held.
func (q *RabbitMQQueue) declare(subject string) error {
	if q.declared[subject] {
		return nil
	}
	if err := q.channel.ExchangeDeclare(subject, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange %s: %w", subject, err)
	}
	q.declared[subject] = true
	return nil
}

func (q *RabbitMQQueue) Publish(subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}
	if err := q.declare(subject); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err := q.channel.PublishWithContext(ctx, subject, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		MessageId:    uuid.NewString(),
		Type:         "voice.turn",
		Timestamp:    time.Now(),
		Body:         data,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: publish to %s: %w", subject, err)
	}
	return nil
}

func (q *RabbitMQQueue) Subscribe(subject string, handler func(data []byte) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}
	if err := q.bind(subject, handler); err != nil {
		return err
	}
	q.subs[subject] = append(q.subs[subject], handler)

	q.log.Info("Subscribed to turn events", zap.String("exchange", subject))
	return nil
}

// bind must be called with q.mu held.
func (q *RabbitMQQueue) bind(subject string, handler func(data []byte) error) error {
	if err := q.declare(subject); err != nil {
		return err
	}
	queue, err := q.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: declare queue: %w", err)
	}
	if err := q.channel.QueueBind(queue.Name, "", subject, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: bind queue: %w", err)
	}
	deliveries, err := q.channel.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume: %w", err)
	}

	go func() {
		for d := range deliveries {
			if err := handler(d.Body); err != nil {
				q.log.Error("Failed to handle turn event",
					zap.String("exchange", subject),
					zap.String("message_id", d.MessageId),
					zap.Error(err),
				)
			}
		}
	}()
	return nil
}

func (q *RabbitMQQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	if q.channel != nil {
		q.channel.Close()
		q.channel = nil
	}
	if q.conn != nil {
		err := q.conn.Close()
		q.conn = nil
		return err
	}
	return nil
}

func (q *RabbitMQQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// watchConnection redials after an unexpected close and restores every
// subscription on the new channel.
func (q *RabbitMQQueue) watchConnection(conn *amqp.Connection) {
	for {
		reason, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
		if !ok || reason == nil {
			return
		}
		q.log.Warn("RabbitMQ connection lost, reconnecting", zap.String("reason", reason.Reason))

		for {
			time.Sleep(reconnectDelay)
			if q.isClosed() {
				return
			}
			next, ch, err := dialRabbitMQ(q.url)
			if err != nil {
				q.log.Error("Failed to reconnect to RabbitMQ", zap.Error(err))
				continue
			}
			if q.restore(next, ch) {
				conn = next
				break
			}
			return
		}
	}
}

// restore installs a fresh connection. It reports false when the queue
// was closed meanwhile.
func (q *RabbitMQQueue) restore(conn *amqp.Connection, ch *amqp.Channel) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		ch.Close()
		conn.Close()
		return false
	}
	q.conn = conn
	q.channel = ch
	q.declared = make(map[string]bool)

	for subject, handlers := range q.subs {
		for _, h := range handlers {
			if err := q.bind(subject, h); err != nil {
				q.log.Error("Failed to restore turn subscription", zap.String("exchange", subject), zap.Error(err))
			}
		}
	}
	q.log.Info("Reconnected to RabbitMQ", zap.Int("subscriptions", len(q.subs)))
	return true
}
