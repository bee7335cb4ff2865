package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-otp-auth/internal/config"
	"github.com/wneessen/go-mail"
)

// Mailer delivers plain-text email through an SMTP relay.
type Mailer struct {
	host      string
	port      int
	from      string
	username  string
	password  string
	tlsPolicy mail.TLSPolicy
	timeout   time.Duration
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		from:      cfg.SMTPFrom,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		tlsPolicy: tlsPolicy(cfg.SMTPTLS),
		timeout:   cfg.SMTPTimeout,
	}
}

func tlsPolicy(mode string) mail.TLSPolicy {
	switch mode {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

// Send delivers a single message. It does not retry.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	msg, err := m.buildMessage(to, subject, body)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTLSPolicy(m.tlsPolicy),
	}
	if m.timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.timeout))
	}
	if m.username != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(m.username), mail.WithPassword(m.password))
	}

	c, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client init: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	slog.Debug("email sent", "host", m.host, "subject", subject)
	return nil
}

func (m *Mailer) buildMessage(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
