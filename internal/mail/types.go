package mail

import (
	"context"
	"time"
)

// EmailData holds the content of one fetched alert email. It is immutable
// once fetched and passed by value downstream.
type EmailData struct {
	MessageID    string
	Subject      string
	Sender       string
	Body         string
	ReceivedDate time.Time
	Labels       []string
}

// Reader fetches unread alert emails from a mailbox provider.
type Reader interface {
	// FetchUnread returns up to max unread messages. Transient provider
	// errors are retried internally; the error is returned once retries
	// are exhausted.
	FetchUnread(ctx context.Context, max int) ([]EmailData, error)

	// MarkAsRead flags a message as read. Best effort: callers log the
	// error and continue.
	MarkAsRead(ctx context.Context, messageID string) error

	// Ping verifies connectivity to the provider.
	Ping(ctx context.Context) error
}
