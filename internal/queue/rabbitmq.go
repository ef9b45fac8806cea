package queue

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// CaptureUpdate is the message the payment gateway publishes when a capture
// changes state. Delivery is at-least-once and unordered across offers.
// OfferID echoes the id sent with the capture request; it correlates the
// update when the reference was never stored on our side.
type CaptureUpdate struct {
	GatewayReference string `json:"gateway_reference"`
	OfferID          string `json:"offer_id"`
	Status           string `json:"status"` // processing/completed/failed
}

type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   *zap.Logger
}

func NewConsumer(url, queue string, log *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Info("amqp consumer connected", zap.String("queue", queue))
	return &Consumer{conn: conn, ch: ch, queue: queue, log: log}, nil
}

// Consume delivers capture updates to handler until ctx is cancelled.
// A handler error leaves the message unacked for redelivery; the offer
// service tolerates duplicates, so redelivery is safe.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, CaptureUpdate) error) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}

			var update CaptureUpdate
			if err := json.Unmarshal(d.Body, &update); err != nil {
				c.log.Error("malformed capture update", zap.Error(err))
				_ = d.Nack(false, false) // unparseable, do not requeue
				continue
			}

			if err := handler(ctx, update); err != nil {
				c.log.Warn("capture update not applied, requeueing",
					zap.String("gateway_reference", update.GatewayReference),
					zap.Error(err),
				)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) Close() {
	_ = c.ch.Close()
	_ = c.conn.Close()
}
