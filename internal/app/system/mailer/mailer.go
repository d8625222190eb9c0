// Package mailer delivers outbound email through a pluggable Sender.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/rosterhub/internal/app/system/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Email is one outbound message. ID is assigned by the Notifier when empty.
type Email struct {
	ID       string `json:"id"`
	To       string `json:"to"`
	ToName   string `json:"to_name,omitempty"`
	Subject  string `json:"subject"`
	TextBody string `json:"text_body"`
	HTMLBody string `json:"html_body,omitempty"`
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Transport names accepted by NewSender.
const (
	TransportSMTP = "smtp"
	TransportAMQP = "amqp"
	TransportLog  = "log"
)

// ErrUnknownTransport is returned for a transport name NewSender does not know.
var ErrUnknownTransport = errors.New(`mail transport must be "smtp"|"amqp"|"log"`)

var errSenderPanic = errors.New("mail sender panicked")

// Config selects and configures a transport.
type Config struct {
	Transport string

	From     string
	FromName string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

// NewSender builds the Sender named by cfg.Transport.
func NewSender(cfg Config, log *zap.Logger) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Transport)) {
	case TransportSMTP:
		return NewSMTPSender(cfg), nil
	case TransportAMQP:
		return NewAMQPSender(cfg, log), nil
	case TransportLog, "":
		return NewLogSender(log), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
}

// Notifier sends email in the background. Callers never wait for, or see
// the result of, a delivery.
type Notifier struct {
	sender    Sender
	transport string
	timeout   time.Duration
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewNotifier(sender Sender, transport string, log *zap.Logger, m *metrics.Metrics) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{sender: sender, transport: transport, timeout: 30 * time.Second, log: log, metrics: m}
}

// Dispatch starts delivery of e and returns its delivery id immediately.
func (n *Notifier) Dispatch(e Email) string {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	go n.deliver(e)
	return e.ID
}

func (n *Notifier) deliver(e Email) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	err := n.send(ctx, e)
	n.metrics.MailDelivered(n.transport, err)
	if err != nil {
		n.log.Warn("email delivery failed",
			zap.String("delivery_id", e.ID),
			zap.String("to", e.To),
			zap.String("transport", n.transport),
			zap.Error(err))
		return
	}
	n.log.Info("email delivered",
		zap.String("delivery_id", e.ID),
		zap.String("to", e.To),
		zap.String("transport", n.transport))
}

// send calls the sender, reporting a panic as a failed delivery.
func (n *Notifier) send(ctx context.Context, e Email) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n.log.Error("mail sender panicked",
				zap.String("delivery_id", e.ID),
				zap.String("transport", n.transport),
				zap.Any("panic", rec),
				zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", errSenderPanic, rec)
		}
	}()
	return n.sender.Send(ctx, e)
}

// LogSender writes emails to the log instead of delivering them.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, e Email) error {
	s.log.Info("email (log transport)",
		zap.String("delivery_id", e.ID),
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.String("body", e.TextBody))
	return nil
}
