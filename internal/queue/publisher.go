package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-reservation/internal/logger"
)

// Publisher publishes booking events to RabbitMQ.  Each publish opens its
// own connection; confirmations are rare compared with holds, and this keeps
// a broker restart from wedging a long-lived channel.
type Publisher struct {
	url   string
	queue string
}

// NewPublisher returns a publisher for the booking.confirmed queue at url.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, queue: BookingConfirmedQueue}
}

// PublishBookingConfirmed publishes ev as a persistent JSON message.  Errors
// are logged and returned so the caller can decide to ignore them.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	log := logger.With(zap.String("reservation_id", ev.ReservationID))

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Warn("rabbitmq: dial failed", zap.Error(err))
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return fmt.Errorf("channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return fmt.Errorf("queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ReservationID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		log.Warn("rabbitmq: publish failed", zap.Error(err))
		return fmt.Errorf("publish: %w", err)
	}
	log.Debug("booking confirmed event published")
	return nil
}
