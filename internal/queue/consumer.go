package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-reservation/internal/logger"
	"github.com/iliyamo/seat-hold-reservation/internal/notify"
)

// StartNotificationConsumer consumes booking.confirmed and hands each event
// to the notifier.  It reconnects with exponential backoff until ctx is
// cancelled, and then returns nil.  Malformed messages are rejected without
// requeue; a failed notification is logged and acknowledged, since delivery
// is best effort.
func StartNotificationConsumer(ctx context.Context, url string, n notify.Notifier) error {
	log := logger.With(zap.String("component", "booking-consumer"))
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, n)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return nil
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, n notify.Notifier) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("booking-consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(BookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(ctx, d.Body, n); err != nil {
				logger.Warn("booking-consumer: rejecting message", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one booking.confirmed body and notifies the
// customer.  Only a malformed body is an error.
func HandleMessage(ctx context.Context, body []byte, n notify.Notifier) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ReservationID == "" {
		return errors.New("event without reservation id")
	}
	if ev.CustomerPhone == "" {
		logger.Debug("booking-consumer: no phone on reservation, skipping", zap.String("reservation_id", ev.ReservationID))
		return nil
	}
	args := map[string]string{
		"reservation_id": ev.ReservationID,
		"event":          ev.EventName,
		"seats":          strings.Join(ev.SeatIDs, ","),
		"total_cents":    fmt.Sprintf("%d", ev.TotalCents),
		"name":           ev.CustomerName,
	}
	if !n.Notify(ctx, ev.CustomerPhone, args) {
		logger.Warn("booking-consumer: notification failed", zap.String("reservation_id", ev.ReservationID))
	}
	return nil
}
