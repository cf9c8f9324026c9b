package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"alertiq/internal/mail"
)

const gmailUser = "me"

// GmailTransport sends summaries through the Gmail API as raw RFC 5322
// messages.
type GmailTransport struct {
	svc  *gmailapi.Service
	from string
}

// NewGmailTransport builds a transport from an OAuth refresh-token triple.
// from is the sending address placed in the From header.
func NewGmailTransport(ctx context.Context, creds mail.Credentials, from string) (*GmailTransport, error) {
	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(creds.HTTPClient(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail send service: %w", err)
	}
	return &GmailTransport{svc: svc, from: from}, nil
}

// Send encodes a single-part plain-text message and submits it.
func (t *GmailTransport) Send(ctx context.Context, msg Summary) error {
	raw := base64.URLEncoding.EncodeToString([]byte(buildMessage(t.from, msg)))
	_, err := gmailapi.NewUsersMessagesService(t.svc).
		Send(gmailUser, &gmailapi.Message{Raw: raw}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail send to %s: %w", msg.Recipient, err)
	}
	return nil
}

// Ping checks connectivity by fetching the account profile.
func (t *GmailTransport) Ping(ctx context.Context) error {
	_, err := gmailapi.NewUsersService(t.svc).GetProfile(gmailUser).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail profile lookup failed: %w", err)
	}
	return nil
}

// buildMessage assembles the RFC 5322 text for a summary. Single part,
// text/plain, CRLF line endings in the header block.
func buildMessage(from string, msg Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String()
}

var _ Transport = (*GmailTransport)(nil)
