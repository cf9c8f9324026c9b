package mail

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	gomail "github.com/emersion/go-message/mail"

	"alertiq/internal/shared/telemetry"
)

// IMAPReader is an alternative Reader for non-Gmail providers. Message IDs
// are IMAP UIDs rendered as decimal strings.
type IMAPReader struct {
	host     string
	port     int
	username string
	password string
}

// NewIMAPReader creates an IMAP reader configuration. Connections are
// established per call.
func NewIMAPReader(host string, port int, username, password string) *IMAPReader {
	return &IMAPReader{host: host, port: port, username: username, password: password}
}

func (r *IMAPReader) connect() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", r.host, r.port)
	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	if err := client.Login(r.username, r.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("IMAP login for %s: %w", r.username, err)
	}
	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}
	return client, nil
}

// FetchUnread searches for unseen messages and fetches their bodies.
func (r *IMAPReader) FetchUnread(ctx context.Context, max int) ([]EmailData, error) {
	client, err := r.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	criteria := &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagSeen}}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if max > 0 && len(uids) > max {
		uids = uids[:max]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var emails []EmailData
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			telemetry.Error("mail.imap_collect_failed", map[string]any{"error": err.Error()})
			continue
		}
		email := EmailData{
			MessageID:    strconv.FormatUint(uint64(buf.UID), 10),
			Subject:      "No Subject",
			Sender:       "Unknown Sender",
			ReceivedDate: time.Now(),
		}
		if env := buf.Envelope; env != nil {
			if env.Subject != "" {
				email.Subject = env.Subject
			}
			if len(env.From) > 0 {
				email.Sender = env.From[0].Addr()
			}
			if !env.Date.IsZero() {
				email.ReceivedDate = env.Date
			}
		}
		if raw := buf.FindBodySection(bodySection); raw != nil {
			email.Body = extractIMAPBody(raw)
		}
		emails = append(emails, email)
	}
	if err := fetchCmd.Close(); err != nil {
		return emails, fmt.Errorf("fetching messages: %w", err)
	}
	return emails, nil
}

// extractIMAPBody walks the MIME structure and returns the first
// text/plain part, falling back to tag-stripped HTML.
func extractIMAPBody(raw []byte) string {
	mr, err := gomail.CreateReader(strings.NewReader(string(raw)))
	if err != nil {
		return ""
	}

	var htmlFallback string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		header, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := header.ContentType()
		if err != nil {
			continue
		}
		switch contentType {
		case "text/plain":
			data, err := io.ReadAll(part.Body)
			if err == nil && len(data) > 0 {
				return strings.TrimSpace(string(data))
			}
		case "text/html":
			if htmlFallback == "" {
				if data, err := io.ReadAll(part.Body); err == nil {
					htmlFallback = string(data)
				}
			}
		}
	}
	return strings.TrimSpace(stripTags(htmlFallback))
}

// MarkAsRead adds the \Seen flag to a message.
func (r *IMAPReader) MarkAsRead(ctx context.Context, messageID string) error {
	uid, err := strconv.ParseUint(messageID, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid IMAP message id %q: %w", messageID, err)
	}

	client, err := r.connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	storeCmd := client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	return storeCmd.Close()
}

// Ping verifies the server accepts our credentials.
func (r *IMAPReader) Ping(ctx context.Context) error {
	client, err := r.connect()
	if err != nil {
		return err
	}
	return client.Logout().Wait()
}

var _ Reader = (*IMAPReader)(nil)
var _ Reader = (*GmailReader)(nil)
