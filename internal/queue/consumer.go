package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shortlet-booking/internal/logger"
)

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// JSON adapts a typed handler to a Handler.
func JSON[T any](fn func(ctx context.Context, ev T) error) Handler {
	return func(ctx context.Context, body []byte) error {
		var ev T
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return fn(ctx, ev)
	}
}

// Consumer reads the event queues and dispatches each message to its
// handler.  Failed messages are rejected without requeue so one bad
// payload cannot spin the worker.
type Consumer struct {
	url      string
	prefetch int
	handlers map[string]Handler
}

// NewConsumer returns a consumer for the broker at url.
func NewConsumer(url string) *Consumer {
	return &Consumer{url: url, prefetch: 50, handlers: map[string]Handler{}}
}

// Handle registers h for queue.
func (c *Consumer) Handle(queue string, h Handler) {
	c.handlers[queue] = h
}

// Handles reports whether a handler is registered for queue.
func (c *Consumer) Handles(queue string) bool {
	_, ok := c.handlers[queue]
	return ok
}

// Run consumes until ctx is cancelled, re-dialling with exponential
// backoff whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return errors.New("consumer: no handlers registered")
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			logger.Log.WithError(err).WithField("retry_in", backoff).Warn("consumer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Log.WithError(err).Warn("consumer: loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		logger.Log.WithError(err).Warn("consumer: set QoS failed")
	}

	type delivery struct {
		queue string
		amqp.Delivery
	}
	merged := make(chan delivery)
	closed := make(chan string, len(c.handlers))
	done := make(chan struct{})
	defer close(done)
	for queue := range c.handlers {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", queue, err)
		}
		msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", queue, err)
		}
		go func(queue string, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case merged <- delivery{queue: queue, Delivery: d}:
				case <-done:
					return
				}
			}
			closed <- queue
		}(queue, msgs)
	}
	logger.Log.WithField("queues", len(c.handlers)).Info("consumer: listening")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case q := <-closed:
			return fmt.Errorf("deliveries for %s closed", q)
		case d := <-merged:
			c.dispatch(ctx, d.queue, d.Delivery)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, queue string, d amqp.Delivery) {
	entry := logger.Log.WithFields(logrus.Fields{"queue": queue, "delivery_tag": d.DeliveryTag})
	if err := c.handle(ctx, queue, d.Body); err != nil {
		entry.WithError(err).Error("consumer: handle message failed")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) handle(ctx context.Context, queue string, body []byte) error {
	h, ok := c.handlers[queue]
	if !ok {
		return fmt.Errorf("no handler for %s", queue)
	}
	return h(ctx, body)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
