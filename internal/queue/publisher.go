package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shortlet-booking/internal/logger"
	"github.com/iliyamo/shortlet-booking/internal/model"
	"github.com/iliyamo/shortlet-booking/internal/refund"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

const (
	dialTimeout = 2 * time.Second
	dialBackoff = 10 * time.Second
)

// ErrBrokerUnavailable is returned without dialling while the publisher
// is backing off after a failed connection attempt.
var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

// Publisher implements reservation.Notifier and reservation.Housekeeping
// by publishing persistent JSON messages.  The connection is opened
// lazily and re-dialled after any failure, so a broker outage only loses
// the events raised while it lasts.  A failed dial starts a backoff window
// in which publishes fail immediately instead of queueing on mu.
type Publisher struct {
	url     string
	now     func() time.Time
	send    func(ctx context.Context, queue string, body []byte) error
	connect func(ctx context.Context) (*amqp.Connection, error)

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string) *Publisher {
	p := &Publisher{url: url, now: time.Now}
	p.send = p.publishAMQP
	p.connect = p.dial
	return p
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func (p *Publisher) BookingConfirmed(ctx context.Context, bc reservation.BookingContext) error {
	return p.publish(ctx, BookingConfirmedQueue, BookingConfirmedEvent{
		BookingEvent:    NewBookingEvent(bc, p.now()),
		ArrivalTime:     deref(bc.Booking.ArrivalTime),
		SpecialRequests: deref(bc.Booking.SpecialRequests),
	})
}

func (p *Publisher) PaymentReceived(ctx context.Context, bc reservation.BookingContext, t model.Transaction) error {
	return p.publish(ctx, PaymentReceivedQueue, PaymentReceivedEvent{
		BookingEvent:  NewBookingEvent(bc, p.now()),
		TransactionID: t.ID,
		Amount:        t.Amount,
		Reference:     deref(t.ProviderReference),
		Method:        deref(t.PaymentMethod),
	})
}

func (p *Publisher) BookingCancelled(ctx context.Context, bc reservation.BookingContext, d refund.Decision) error {
	return p.publish(ctx, BookingCancelledQueue, newCancelledEvent(bc, d, p.now()))
}

func (p *Publisher) CheckoutOccurred(ctx context.Context, bc reservation.BookingContext) error {
	ev := CheckoutEvent{BookingEvent: NewBookingEvent(bc, p.now())}
	if bc.Booking.CompletedAt != nil {
		ev.CompletedAt = bc.Booking.CompletedAt.UTC().Format(time.RFC3339)
	}
	return p.publish(ctx, CheckoutQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", queue, err)
	}
	if err := p.send(ctx, queue, body); err != nil {
		logger.Log.WithError(err).WithField("queue", queue).Warn("rabbitmq: publish failed")
		return err
	}
	logger.Log.WithFields(logrus.Fields{"queue": queue, "bytes": len(body)}).Debug("rabbitmq: event published")
	return nil
}

func (p *Publisher) publishAMQP(ctx context.Context, queue string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	// Durable queue, idempotent declare.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.reset()
		return fmt.Errorf("queue declare: %w", err)
	}
	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    p.now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// channel returns the open channel, dialling if needed.  Callers hold mu.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if p.now().Before(p.retryAt) {
		return nil, ErrBrokerUnavailable
	}
	conn, err := p.connect(ctx)
	if err != nil {
		p.retryAt = p.now().Add(dialBackoff)
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.retryAt = p.now().Add(dialBackoff)
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.retryAt = time.Time{}
	return ch, nil
}

// dial opens a connection bounded by dialTimeout and the caller's context.
// The deadline also covers the AMQP handshake; the client clears it once
// the connection is open.
func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	deadline, _ := ctx.Deadline()
	return amqp.DialConfig(p.url, amqp.Config{
		Dial: func(network, addr string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

var (
	_ reservation.Notifier     = (*Publisher)(nil)
	_ reservation.Housekeeping = (*Publisher)(nil)
)
