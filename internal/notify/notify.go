// Package notify delivers outbound messages (OTP codes, roommate notices) by email.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/roomledger/roomledger/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

type Message struct {
	Subject string
	Body    string
	From    string
	To      []string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPNotifier sends plain-text mail through an authenticated SMTP relay,
// upgrading to STARTTLS when the server offers it.
type SMTPNotifier struct {
	host string
	opts []mail.Option
	from string
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTPNotifier(cfg *config.MailConfig) *SMTPNotifier {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	n := &SMTPNotifier{
		host: cfg.Host,
		opts: opts,
		from: cfg.From,
	}
	n.send = n.dialAndSend
	return n
}

func (n *SMTPNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(n.host, n.opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("notify: no recipients")
	}
	from := msg.From
	if from == "" {
		from = n.from
	}
	m, err := compose(from, msg)
	if err != nil {
		return err
	}
	if err := n.send(ctx, m); err != nil {
		return fmt.Errorf("notify: send mail: %w", err)
	}
	return nil
}

// compose builds the message. Headers are RFC 2047 encoded as needed and
// carry a Date and Message-ID.
func compose(from string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("notify: invalid sender %q: %w", from, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("notify: invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

// LogNotifier writes messages to the log instead of sending them. For development.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.WithFields(logrus.Fields{
		"to":      strings.Join(msg.To, ","),
		"subject": msg.Subject,
		"body":    msg.Body,
	}).Info("Mail delivery disabled, message logged (development)")
	return nil
}

// New picks the SMTP notifier when mail is enabled.
func New(cfg *config.MailConfig, logger *logrus.Logger) Notifier {
	if cfg.Enabled {
		return NewSMTPNotifier(cfg)
	}
	return NewLogNotifier(logger)
}
