// Package messaging publishes security and audit events to RabbitMQ.
// Publish errors are logged and returned so callers can ignore them without
// interrupting the request.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aquora-api/internal/config"
	"aquora-api/internal/core/domain"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers domain events and releases its resources on Close
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}

// NewPublisher returns an AMQP publisher when AMQP_URL is set and reachable,
// otherwise a publisher that only logs.
func NewPublisher(cfg config.AMQPConfig, logger *slog.Logger) Publisher {
	if cfg.URL == "" {
		return NewLogPublisher(logger)
	}

	p, err := NewAMQPPublisher(cfg, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable, events will only be logged", "error", err)
		return NewLogPublisher(logger)
	}
	return p
}

// ErrBrokerUnavailable is returned while a failed reconnect is backing off
var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

// redialBackoff is the minimum gap between reconnect attempts
const redialBackoff = 5 * time.Second

// AMQPPublisher publishes events to a durable topic exchange, routed by event name
type AMQPPublisher struct {
	url          string
	exchange     string
	dialTimeout  time.Duration
	retryBackoff time.Duration
	logger       *slog.Logger

	mu         sync.Mutex
	conn       *amqp.Connection
	ch         *amqp.Channel
	lastFailed time.Time
}

// defaultDialTimeout applies when the config leaves DialTimeout unset
const defaultDialTimeout = 3 * time.Second

func newAMQPPublisher(cfg config.AMQPConfig, logger *slog.Logger) *AMQPPublisher {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &AMQPPublisher{
		url:          cfg.URL,
		exchange:     cfg.Exchange,
		dialTimeout:  dialTimeout,
		retryBackoff: redialBackoff,
		logger:       logger,
	}
}

// NewAMQPPublisher dials the broker and declares the exchange
func NewAMQPPublisher(cfg config.AMQPConfig, logger *slog.Logger) (*AMQPPublisher, error) {
	p := newAMQPPublisher(cfg, logger)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect must be called with mu held. The dial is bounded by dialTimeout
// since it runs on the request path.
func (p *AMQPPublisher) connect() error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Locale: "en_US",
		Dial:   amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}

	// Durable so the exchange survives broker restarts.
	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: exchange declare failed: %w", err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

// Publish sends the event as persistent JSON. A closed channel is redialed
// at most once per retryBackoff; in between it fails fast.
func (p *AMQPPublisher) Publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "rabbitmq: marshal event failed", "event", event.Name, "error", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if !p.lastFailed.IsZero() && time.Since(p.lastFailed) < p.retryBackoff {
			return ErrBrokerUnavailable
		}
		if err := p.connect(); err != nil {
			p.lastFailed = time.Now()
			p.logger.ErrorContext(ctx, "rabbitmq: reconnect failed", "event", event.Name, "error", err)
			return err
		}
		p.lastFailed = time.Time{}
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         event.Name,
		Timestamp:    event.OccurredAt,
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		event.Name, // routing key
		false,      // mandatory
		false,      // immediate
		pub,
	); err != nil {
		p.logger.ErrorContext(ctx, "rabbitmq: publish failed", "event", event.Name, "error", err)
		return err
	}
	return nil
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// LogPublisher writes events to the structured log
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a log-only publisher
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	attrs := []any{"event", event.Name, "occurred_at", event.OccurredAt}
	if event.UserID != "" {
		attrs = append(attrs, "user_id", event.UserID)
	}
	if event.SocietyID != "" {
		attrs = append(attrs, "society_id", event.SocietyID)
	}
	if event.ActorID != nil {
		attrs = append(attrs, "actor_id", *event.ActorID)
	}
	if len(event.Data) > 0 {
		attrs = append(attrs, "data", event.Data)
	}
	p.logger.InfoContext(ctx, "domain event", attrs...)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
