package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	defaultExchange   = "rosterhub.mail"
	defaultRoutingKey = "mail.outbound"
)

// AMQPSender publishes emails as JSON messages to a topic exchange; a
// separate mail worker consumes and delivers them. The connection is
// opened lazily and re-opened after it closes.
type AMQPSender struct {
	url        string
	exchange   string
	routingKey string
	from       string
	fromName   string
	log        *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// outboundMessage is the wire format consumed by the mail worker.
type outboundMessage struct {
	Email
	From     string    `json:"from"`
	FromName string    `json:"from_name,omitempty"`
	QueuedAt time.Time `json:"queued_at"`
}

func NewAMQPSender(cfg Config, log *zap.Logger) *AMQPSender {
	if log == nil {
		log = zap.NewNop()
	}
	ex := cfg.AMQPExchange
	if ex == "" {
		ex = defaultExchange
	}
	rk := cfg.AMQPRoutingKey
	if rk == "" {
		rk = defaultRoutingKey
	}
	return &AMQPSender{
		url:        cfg.AMQPURL,
		exchange:   ex,
		routingKey: rk,
		from:       cfg.From,
		fromName:   cfg.FromName,
		log:        log,
	}
}

func (s *AMQPSender) Send(ctx context.Context, e Email) error {
	body, err := json.Marshal(outboundMessage{
		Email:    e,
		From:     s.from,
		FromName: s.fromName,
		QueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode mail message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureChannel(); err != nil {
		return err
	}

	confirm, err := s.ch.PublishWithDeferredConfirmWithContext(ctx, s.exchange, s.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		s.reset()
		return fmt.Errorf("publish mail message: %w", err)
	}
	if confirm != nil {
		ok, err := confirm.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("await publish confirm: %w", err)
		}
		if !ok {
			return errors.New("broker rejected mail message")
		}
	}
	return nil
}

// ensureChannel must be called with s.mu held.
func (s *AMQPSender) ensureChannel() error {
	if s.conn != nil && !s.conn.IsClosed() && s.ch != nil && !s.ch.IsClosed() {
		return nil
	}
	s.reset()

	conn, err := amqp.Dial(s.url)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return fmt.Errorf("enable confirms: %w", err)
	}
	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", s.exchange, err)
	}

	s.conn, s.ch = conn, ch
	s.log.Info("mail publisher connected", zap.String("exchange", s.exchange))
	return nil
}

func (s *AMQPSender) reset() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.ch, s.conn = nil, nil
}

// Close releases the broker connection.
func (s *AMQPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}
