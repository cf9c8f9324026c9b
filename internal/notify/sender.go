package notify

import (
	"context"

	"alertiq/internal/mail"
	"alertiq/internal/shared/retry"
	"alertiq/internal/shared/telemetry"
)

// Transport delivers one rendered summary as a single-part plain-text
// message. Implementations: Gmail API send and SMTP.
type Transport interface {
	Send(ctx context.Context, msg Summary) error
	Ping(ctx context.Context) error
}

// Sender wraps a Transport with retry and the error-notification path.
type Sender struct {
	transport Transport
	router    Router
	retry     retry.Policy
}

// NewSender constructs a Sender over the given transport.
func NewSender(transport Transport, router Router, policy retry.Policy) *Sender {
	return &Sender{transport: transport, router: router, retry: policy}
}

// SendSummary delivers a summary, retrying transient transport failures
// with bounded backoff.
func (s *Sender) SendSummary(ctx context.Context, msg Summary) error {
	err := s.retry.Do(ctx, func() error {
		return s.transport.Send(ctx, msg)
	})
	if err != nil {
		telemetry.Error("notify.send_failed", map[string]any{
			"recipient": msg.Recipient,
			"subject":   msg.Subject,
			"error":     err.Error(),
		})
		return err
	}
	telemetry.Info("notify.sent", map[string]any{
		"recipient": msg.Recipient,
		"action":    string(msg.Action),
	})
	return nil
}

// SendErrorNotification tells the fallback team that an alert could not be
// processed. Best effort: its own failure is logged, never propagated.
func (s *Sender) SendErrorNotification(ctx context.Context, email mail.EmailData, errMsg string) {
	msg := NewErrorNotification(email, errMsg, s.router.Fallback())
	if err := s.SendSummary(ctx, msg); err != nil {
		telemetry.Error("notify.error_notification_failed", map[string]any{
			"message_id": email.MessageID,
			"error":      err.Error(),
		})
		return
	}
	telemetry.Info("notify.error_notification_sent", map[string]any{"message_id": email.MessageID})
}

// Ping verifies connectivity of the underlying transport.
func (s *Sender) Ping(ctx context.Context) error {
	return s.transport.Ping(ctx)
}
