// Package amqp connects the report engine to the transaction exchange:
// one topic exchange, three durable queues (created / updated / deleted),
// manual acks.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"reportsvc/internal/core"
)

// Queues names the three lifecycle queues this consumer reads from.
type Queues struct {
	Created string
	Updated string
	Deleted string
}

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queues       Queues
}

func NewClient(url, exchangeName string, queues Queues) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queues:       queues,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	bindings := []struct {
		queue      string
		routingKey core.EventKind
	}{
		{c.queues.Created, core.EventCreated},
		{c.queues.Updated, core.EventUpdated},
		{c.queues.Deleted, core.EventDeleted},
	}

	for _, b := range bindings {
		_, err = c.channel.QueueDeclare(
			b.queue, // name
			true,    // durable
			false,   // delete when unused
			false,   // exclusive
			false,   // no-wait
			nil,     // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", b.queue, err)
		}

		err = c.channel.QueueBind(
			b.queue,
			string(b.routingKey),
			c.exchangeName,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", b.queue, err)
		}
	}

	return nil
}

// QueueFor maps an event kind to its queue name.
func (c *Client) QueueFor(kind core.EventKind) string {
	switch kind {
	case core.EventCreated:
		return c.queues.Created
	case core.EventUpdated:
		return c.queues.Updated
	default:
		return c.queues.Deleted
	}
}

// Publish sends a transaction event to the exchange under the routing key
// of the given kind. A fresh message id is minted when the message does
// not carry one; consumers key their idempotency ledger on it.
func (c *Client) Publish(ctx context.Context, kind core.EventKind, msg *TransactionMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		string(kind), // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.MessageID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published transaction event",
		"routing_key", string(kind),
		"message_id", msg.MessageID,
		"transaction_id", msg.TransactionID)

	return nil
}

// Handler processes one decoded transaction message from a queue.
type Handler func(ctx context.Context, kind core.EventKind, msg *TransactionMessage) error

// Consume reads the queue for the given kind until ctx is cancelled.
// Malformed payloads are rejected without requeue. A handler error nacks
// with requeue; the handler itself is expected to swallow everything it
// already dead-lettered, so a returned error means the event was never
// admitted and redelivery is safe.
func (c *Client) Consume(ctx context.Context, kind core.EventKind, handler Handler) error {
	queue := c.QueueFor(kind)

	deliveries, err := c.channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming %s: %w", queue, err)
	}

	slog.InfoContext(ctx, "Started consuming transaction events", "queue", queue, "routing_key", string(kind))

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "queue", queue, "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("message channel closed for queue %s", queue)
			}

			msg, err := TransactionMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "queue", queue, "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			// The broker-level message id wins over nothing; the body
			// field wins over the header when both are present.
			if msg.MessageID == "" {
				msg.MessageID = delivery.MessageId
			}

			if err := handler(ctx, kind, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"queue", queue,
					"message_id", msg.MessageID,
					"transaction_id", msg.TransactionID,
					"error", err)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
