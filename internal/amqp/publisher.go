// Package amqp publishes ledger change events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"ledger/internal/ledger"
	"ledger/internal/log"
)

const (
	maxFailures        = 5
	openTimeout        = 30 * time.Second
	publishTimeout     = 5 * time.Second
	dialTimeout        = 2 * time.Second
	heartbeat          = 10 * time.Second
	maxConnectAttempts = 5
	maxBackoff         = 30 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Publisher implements ledger.Notifier. The connection is established lazily
// and re-established after connection errors. Publishing goes through a
// circuit breaker so a dead broker costs one fast failure per change.
type Publisher struct {
	url          string
	exchangeName string
	routingKey   string
	logger       *log.Logger
	cb           *gobreaker.CircuitBreaker

	// dialTimeout bounds the TCP dial plus the AMQP handshake. Publishes run
	// on the request path, so a silent broker must fail fast.
	dialTimeout time.Duration

	// send delivers one message; replaced in tests.
	send func(ctx context.Context, msg amqp091.Publishing) error

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

var _ ledger.Notifier = (*Publisher)(nil)

func NewPublisher(url, exchangeName, routingKey string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Discard()
	}
	p := &Publisher{
		url:          url,
		exchangeName: exchangeName,
		routingKey:   routingKey,
		logger:       logger.WithComponent(log.ComponentAMQP),
		dialTimeout:  dialTimeout,
	}
	p.send = p.publish
	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "amqp-" + exchangeName,
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})
	return p
}

// Connect dials the broker, retrying with exponential backoff until it
// succeeds, the attempts run out or ctx is done.
func (p *Publisher) Connect(ctx context.Context) error {
	var err error
	for attempt := 0; attempt < maxConnectAttempts; attempt++ {
		if _, err = p.ensureChannel(); err == nil {
			p.logger.InfoContext(ctx, "Connected to AMQP broker",
				"exchange", p.exchangeName,
				"routing_key", p.routingKey)
			return nil
		}
		wait := exponentialBackoff(attempt)
		p.logger.WarnContext(ctx, "AMQP connection failed, retrying",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeNetwork,
			"attempt", attempt+1,
			"backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("connect after %d attempts: %w", maxConnectAttempts, err)
}

func (p *Publisher) ensureChannel() (*amqp091.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}
	p.closeLocked()

	conn, err := amqp091.DialConfig(p.url, amqp091.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		p.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = channel
	return channel, nil
}

// Notify publishes c as a persistent JSON message.
func (p *Publisher) Notify(ctx context.Context, c ledger.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := NewChangeEvent(c, time.Now()).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Type:         string(c.Kind),
		Body:         body,
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("publish %s event: %w", c.Kind, ErrCircuitOpen)
	}
	if err != nil {
		return fmt.Errorf("publish %s event: %w", c.Kind, err)
	}

	p.logger.DebugContext(ctx, "Published change event",
		"kind", c.Kind,
		log.FieldCount, c.Count,
		"exchange", p.exchangeName)
	return nil
}

func (p *Publisher) publish(ctx context.Context, msg amqp091.Publishing) error {
	channel, err := p.ensureChannel()
	if err != nil {
		return err
	}
	err = channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		p.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		msg,
	)
	if err != nil && isConnectionError(err) {
		p.mu.Lock()
		p.closeLocked()
		p.mu.Unlock()
	}
	return err
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (p *Publisher) closeLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}
