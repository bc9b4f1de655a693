package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	netmail "net/mail"
	"net/url"

	"github.com/dajohi/goemail"
	"github.com/dmitrijs2005/userhub/internal/logging"
)

type sender interface {
	Send(msg *goemail.Message) error
}

// SMTPMailer sends email from a preset address. It is disabled, logging and
// dropping every message, when no SMTP credentials are configured.
type SMTPMailer struct {
	client      sender
	mailName    string
	mailAddress string
	disabled    bool
	logger      logging.Logger
}

// newSMTPClient is a seam for testing goemail.NewSMTP.
var newSMTPClient = func(rawURL string, tlsConfig *tls.Config) (sender, error) {
	return goemail.NewSMTP(rawURL, tlsConfig)
}

// NewSMTPMailer returns a mailer for host authenticated as user. from is a
// RFC 5322 address such as "userhub <noreply@example.com>".
func NewSMTPMailer(host, user, password, from string, skipVerify bool, l logging.Logger) (*SMTPMailer, error) {
	logger := l.With("module", "mailer")

	a, err := netmail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("parse from address: %w", err)
	}

	if host == "" || user == "" || password == "" {
		return &SMTPMailer{
			mailName:    a.Name,
			mailAddress: a.Address,
			disabled:    true,
			logger:      logger,
		}, nil
	}

	u := &url.URL{Scheme: "smtps", User: url.UserPassword(user, password), Host: host}

	tlsConfig := &tls.Config{}
	if skipVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	client, err := newSMTPClient(u.String(), tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &SMTPMailer{
		client:      client,
		mailName:    a.Name,
		mailAddress: a.Address,
		logger:      logger,
	}, nil
}

// IsEnabled reports whether messages are actually delivered.
func (m *SMTPMailer) IsEnabled() bool {
	return !m.disabled
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.disabled {
		m.logger.Warn(ctx, "Email is disabled, dropping message", "to", msg.To, "subject", msg.Subject)
		return nil
	}

	from := m.mailAddress
	if msg.From != "" {
		from = msg.From
	}

	em := goemail.NewMessage(from, msg.Subject, msg.Body)
	em.SetName(m.mailName)
	em.AddTo(msg.To)

	if err := m.client.Send(em); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	m.logger.Debug(ctx, "Email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}
