package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
)

// SMTPTransport sends summaries through an SMTP relay using STARTTLS and
// LOGIN-style plain auth.
type SMTPTransport struct {
	Host     string
	Port     int
	Username string
	Password string
}

// NewSMTPTransport builds an SMTP transport. Connections are established
// per send.
func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	return &SMTPTransport{Host: host, Port: port, Username: username, Password: password}
}

func (t *SMTPTransport) addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

func (t *SMTPTransport) auth() smtp.Auth {
	return smtp.PlainAuth("", t.Username, t.Password, t.Host)
}

// Send delivers a single-part plain-text message. smtp.SendMail upgrades
// the connection with STARTTLS when the server offers it.
func (t *SMTPTransport) Send(ctx context.Context, msg Summary) error {
	payload := buildMessage(t.Username, msg)
	if err := smtp.SendMail(t.addr(), t.auth(), t.Username, []string{msg.Recipient}, []byte(payload)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.Recipient, err)
	}
	return nil
}

// Ping connects, upgrades to TLS, and authenticates without sending.
func (t *SMTPTransport) Ping(ctx context.Context) error {
	client, err := smtp.Dial(t.addr())
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", t.addr(), err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: t.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if err := client.Auth(t.auth()); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	return client.Quit()
}

var _ Transport = (*SMTPTransport)(nil)
