package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/pkg/logger"
	"github.com/heritage-trails/admin-api/pkg/metrics"
)

// Queue topology shared with the notification workers.
const (
	Exchange        = "notification.internal"
	EmailRoutingKey = "email.send"
	PushRoutingKey  = "push.send"
)

// Publisher publishes a message body under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key, messageID string, body []byte) error
	Close() error
}

// AMQPPublisher publishes to a durable topic exchange with publisher
// confirms enabled.
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string
}

// NewAMQPPublisher dials url and declares exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPPublisher{conn: conn, exchange: exchange}, nil
}

// Publish sends body as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, key, messageID string, body []byte) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Close closes the broker connection.
func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}

// QueueSender hands notifications to the workers through the broker. A
// successful Result means the message was accepted by the broker.
type QueueSender struct {
	pub    Publisher
	logger *logger.Logger
}

// NewQueueSender creates a queue-backed sender.
func NewQueueSender(pub Publisher, log *logger.Logger) *QueueSender {
	return &QueueSender{pub: pub, logger: log.Named("notify")}
}

// SendEmail enqueues msg for the email worker.
func (s *QueueSender) SendEmail(ctx context.Context, msg EmailMessage) Result {
	res := s.enqueue(ctx, EmailRoutingKey, msg)
	metrics.RecordNotification(ChannelEmail, res.Success)
	return res
}

// SendPush enqueues msg for the push worker.
func (s *QueueSender) SendPush(ctx context.Context, msg PushMessage) Result {
	res := s.enqueue(ctx, PushRoutingKey, msg)
	metrics.RecordNotification(ChannelPush, res.Success)
	return res
}

func (s *QueueSender) enqueue(ctx context.Context, key string, payload any) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return Failed(fmt.Errorf("failed to encode payload: %w", err))
	}

	id := uuid.NewString()
	if err := s.pub.Publish(ctx, key, id, body); err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("key", key), zap.Error(err))
		return Failed(err)
	}

	s.logger.Debug("notification enqueued", zap.String("key", key), zap.String("message_id", id))
	return Result{Success: true, MessageID: id}
}
