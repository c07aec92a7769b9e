package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// ErrUnprocessable marks a delivery that can never succeed. A handler error wrapping it
// drops the message instead of requeueing it.
var ErrUnprocessable = errors.New("unprocessable message")

// Handler processes one delivery. Returning nil acks it.
type Handler func(msg amqp.Delivery) error

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
	log     logrus.FieldLogger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
	// Queues are declared durable when the client connects.
	Queues []string
}

// NewClient creates a new RabbitMQ client.
// It connects to RabbitMQ, sets up a channel and declares the configured queues.
func NewClient(cfg Config, log logrus.FieldLogger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c := &Client{conn: conn, channel: ch, log: log}
	for _, q := range cfg.Queues {
		if err := c.declare(q); err != nil {
			c.Close()
			return nil, err
		}
	}

	log.WithField("queues", cfg.Queues).Info("RabbitMQ client connected")
	return c, nil
}

func (c *Client) declare(queue string) error {
	_, err := c.channel.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Publish sends a persistent JSON message to the named queue through the default exchange.
func (c *Client) Publish(queue string, body []byte) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.Publish(
		"",    // exchange: default exchange
		queue, // routing key: the queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", queue, err)
	}

	c.log.WithFields(logrus.Fields{"queue": queue, "bytes": len(body)}).Debug("message published")
	return nil
}

// Consume registers a consumer on queue and processes deliveries in a goroutine until
// ctx is cancelled or the channel closes.
func (c *Client) Consume(ctx context.Context, queue string, handler Handler) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	c.mu.Lock()
	if err := c.declare(queue); err != nil {
		c.mu.Unlock()
		return err
	}
	msgs, err := c.channel.Consume(
		queue, // queue
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", queue, err)
	}

	log := c.log.WithField("queue", queue)
	log.Info("waiting for messages")

	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Info("consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Warn("delivery channel closed")
					return
				}
				Settle(msg, handler(msg), log)
			}
		}
	}()

	return nil
}

// Acknowledger is the part of amqp.Delivery used to settle a message.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Settle acks on success, drops unprocessable messages and requeues everything else.
func Settle(msg Acknowledger, handlerErr error, log logrus.FieldLogger) {
	switch {
	case handlerErr == nil:
		if err := msg.Ack(false); err != nil {
			log.WithError(err).Error("failed to ack message")
		}
	case errors.Is(handlerErr, ErrUnprocessable):
		log.WithError(handlerErr).Warn("dropping unprocessable message")
		if err := msg.Nack(false, false); err != nil {
			log.WithError(err).Error("failed to nack message")
		}
	default:
		log.WithError(handlerErr).Error("error processing message, requeueing")
		if err := msg.Nack(false, true); err != nil {
			log.WithError(err).Error("failed to nack message")
		}
	}
}
