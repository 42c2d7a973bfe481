package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/config"
)

// rabbitClient publishes through the default exchange, so a topic is simply the
// name of a durable queue.
type rabbitClient struct {
	conn     *amqp.Connection
	pub      *amqp.Channel
	mu       sync.Mutex
	topic    string
	prefetch int
	logger   *zap.Logger
}

func (r *rabbitClient) Publish(ctx context.Context, topic string, key []byte, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pub.PublishWithContext(ctx, "", topic, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    string(key),
		Timestamp:    time.Now().UTC(),
		Body:         value,
	})
}

// Consume opens a dedicated channel so several workers can consume at once.
func (r *rabbitClient) Consume(ctx context.Context, handler Handler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(r.prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, r.topic, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", r.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			msg := Message{
				Topic: r.topic,
				Key:   []byte(d.MessageId),
				Value: d.Body,
				Time:  d.Timestamp,
			}
			if len(d.Headers) > 0 {
				msg.Headers = make(map[string]string, len(d.Headers))
				for k, v := range d.Headers {
					msg.Headers[k] = fmt.Sprint(v)
				}
			}

			err := handler(ctx, msg)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, ErrPoison):
				r.logger.Error("dropping poison message", zap.Error(err))
				_ = d.Nack(false, false)
			default:
				r.logger.Error("message handler failed", zap.Error(err))
				_ = d.Nack(false, true)
			}
		}
	}
}

func (r *rabbitClient) Topic() string { return r.topic }

func newRabbitClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	conn, err := amqp.Dial(cfg.Messaging.RabbitMQ.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	for _, queue := range []string{cfg.Messaging.Topics.Status, cfg.Messaging.Topics.Intake} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", queue, err)
		}
	}

	client := &rabbitClient{
		conn:     conn,
		pub:      ch,
		topic:    cfg.Messaging.Topics.Intake,
		prefetch: cfg.Messaging.RabbitMQ.Prefetch,
		logger:   logger,
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing rabbitmq client")

			_ = ch.Close()
			return conn.Close()
		},
	})

	return client, nil
}
