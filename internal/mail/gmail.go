package mail

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"alertiq/internal/shared/retry"
	"alertiq/internal/shared/telemetry"
)

const (
	gmailUser   = "me"
	unreadQuery = "is:unread in:inbox"

	// See https://developers.google.com/gmail/api/v1/reference/quota
	quotaUnitsMessagesGet     = 5
	quotaUnitsPerMessagesList = 1
	quotaUnitsPerModify       = 5
	quotaUnitsPerGetProfile   = 2

	quotaUnitsPerSecond = 250
	rateLimitPerSecond  = quotaUnitsPerSecond * 0.8
	rateLimitBurst      = quotaUnitsPerSecond
)

// Credentials is the OAuth refresh-token triple for a Gmail account.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// HTTPClient builds an authorized HTTP client that refreshes its access
// token from the stored refresh token.
func (c Credentials) HTTPClient(ctx context.Context) *http.Client {
	cfg := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailapi.GmailModifyScope, gmailapi.GmailSendScope},
	}
	return cfg.Client(ctx, &oauth2.Token{RefreshToken: c.RefreshToken})
}

// GmailReader reads alert emails through the Gmail API.
type GmailReader struct {
	svc     *gmailapi.Service
	limiter *rate.Limiter
	retry   retry.Policy
}

// NewGmailReader constructs a reader from an OAuth refresh-token triple.
func NewGmailReader(ctx context.Context, creds Credentials, policy retry.Policy) (*GmailReader, error) {
	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(creds.HTTPClient(ctx)))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create Gmail service")
	}
	return &GmailReader{
		svc:     svc,
		limiter: rate.NewLimiter(rateLimitPerSecond, rateLimitBurst),
		retry:   policy,
	}, nil
}

// NewGmailReaderWithService wraps an existing Gmail service. Used by the
// sender side to share one authorized client.
func NewGmailReaderWithService(svc *gmailapi.Service, policy retry.Policy) *GmailReader {
	return &GmailReader{
		svc:     svc,
		limiter: rate.NewLimiter(rateLimitPerSecond, rateLimitBurst),
		retry:   policy,
	}
}

// FetchUnread lists unread inbox messages and fetches their full content.
// The list call is retried with bounded backoff; a message that fails to
// fetch or decode is logged and omitted rather than failing the batch.
func (r *GmailReader) FetchUnread(ctx context.Context, max int) ([]EmailData, error) {
	if max <= 0 {
		max = 10
	}

	var listed *gmailapi.ListMessagesResponse
	err := r.retry.Do(ctx, func() error {
		if err := r.limiter.WaitN(ctx, quotaUnitsPerMessagesList); err != nil {
			return err
		}
		resp, err := gmailapi.NewUsersMessagesService(r.svc).
			List(gmailUser).Q(unreadQuery).MaxResults(int64(max)).Context(ctx).Do()
		if err != nil {
			return err
		}
		listed = resp
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to list unread messages")
	}

	telemetry.Info("mail.unread_listed", map[string]any{"count": len(listed.Messages)})

	emails := make([]EmailData, 0, len(listed.Messages))
	for _, msg := range listed.Messages {
		email, err := r.getMessage(ctx, msg.Id)
		if err != nil {
			telemetry.Error("mail.fetch_failed", map[string]any{"message_id": msg.Id, "error": err.Error()})
			continue
		}
		emails = append(emails, email)
	}
	return emails, nil
}

func (r *GmailReader) getMessage(ctx context.Context, id string) (EmailData, error) {
	for {
		if err := r.limiter.WaitN(ctx, quotaUnitsMessagesGet); err != nil {
			return EmailData{}, err
		}
		msg, err := gmailapi.NewUsersMessagesService(r.svc).
			Get(gmailUser, id).Format("full").Context(ctx).Do()
		if err != nil {
			if isRateLimited(err) {
				continue
			}
			return EmailData{}, errors.Wrapf(err, "getting message %v from gmail", id)
		}
		return parseMessage(msg), nil
	}
}

func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	return false
}

func parseMessage(msg *gmailapi.Message) EmailData {
	email := EmailData{
		MessageID: msg.Id,
		Subject:   "No Subject",
		Sender:    "Unknown Sender",
		Labels:    msg.LabelIds,
	}
	if msg.Payload == nil {
		return email
	}
	if subject := headerValue(msg.Payload.Headers, "Subject"); subject != "" {
		email.Subject = subject
	}
	if sender := headerValue(msg.Payload.Headers, "From"); sender != "" {
		email.Sender = sender
	}
	email.ReceivedDate = parseDate(headerValue(msg.Payload.Headers, "Date"))
	email.Body = extractBody(msg.Payload)
	return email
}

// MarkAsRead removes the UNREAD label from a message.
func (r *GmailReader) MarkAsRead(ctx context.Context, messageID string) error {
	if err := r.limiter.WaitN(ctx, quotaUnitsPerModify); err != nil {
		return err
	}
	_, err := gmailapi.NewUsersMessagesService(r.svc).
		Modify(gmailUser, messageID, &gmailapi.ModifyMessageRequest{
			RemoveLabelIds: []string{"UNREAD"},
		}).Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "marking message %v as read", messageID)
	}
	return nil
}

// Ping checks Gmail connectivity by fetching the account profile.
func (r *GmailReader) Ping(ctx context.Context) error {
	if err := r.limiter.WaitN(ctx, quotaUnitsPerGetProfile); err != nil {
		return err
	}
	_, err := gmailapi.NewUsersService(r.svc).GetProfile(gmailUser).Context(ctx).Do()
	return errors.Wrap(err, "gmail profile lookup failed")
}
