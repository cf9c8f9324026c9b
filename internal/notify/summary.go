// Package notify renders alert summaries and delivers them to team
// mailboxes.
package notify

import (
	"fmt"
	"strings"
	"time"

	"alertiq/internal/classify"
	"alertiq/internal/mail"
)

const bodyExcerptLimit = 1000

// Summary is one rendered notification email. It is derived
// deterministically from the original alert and its analysis and is never
// persisted.
type Summary struct {
	Subject         string
	Body            string
	Recipient       string
	Action          classify.Action
	OriginalSubject string
}

// NewSummary renders the notification for an analyzed alert.
func NewSummary(email mail.EmailData, analysis classify.Analysis, recipient string) Summary {
	var b strings.Builder
	fmt.Fprintf(&b, "An alert email has been analyzed and requires your team's attention.\n\n")
	fmt.Fprintf(&b, "ORIGINAL ALERT:\n")
	fmt.Fprintf(&b, "Subject: %s\n", email.Subject)
	fmt.Fprintf(&b, "Sender: %s\n", email.Sender)
	fmt.Fprintf(&b, "Received: %s\n\n", email.ReceivedDate.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "RECOMMENDED ACTION: %s\n", analysis.Action)
	fmt.Fprintf(&b, "Confidence: %.2f\n\n", analysis.Confidence)
	fmt.Fprintf(&b, "ANALYSIS:\n%s\n\n", analysis.Reason)
	fmt.Fprintf(&b, "ALERT CONTENT:\n%s\n", excerpt(email.Body))
	fmt.Fprintf(&b, "\n---\nThis summary was automatically generated by AlertIQ.\n")

	return Summary{
		Subject:         fmt.Sprintf("Alert Analysis - Action Required: %s", analysis.Action),
		Body:            b.String(),
		Recipient:       recipient,
		Action:          analysis.Action,
		OriginalSubject: email.Subject,
	}
}

// NewErrorNotification renders the notification sent to the fallback team
// when processing an alert fails.
func NewErrorNotification(email mail.EmailData, errMsg, recipient string) Summary {
	var b strings.Builder
	fmt.Fprintf(&b, "An error occurred while processing the following alert email:\n\n")
	fmt.Fprintf(&b, "Original Alert Subject: %s\n", email.Subject)
	fmt.Fprintf(&b, "Original Sender: %s\n", email.Sender)
	fmt.Fprintf(&b, "Received: %s\n", email.ReceivedDate.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message ID: %s\n\n", email.MessageID)
	fmt.Fprintf(&b, "Error Details:\n%s\n\n", errMsg)
	fmt.Fprintf(&b, "Please review the alert manually and take appropriate action.\n")
	fmt.Fprintf(&b, "\n---\nThis error notification was automatically generated by AlertIQ.\n")

	return Summary{
		Subject:         fmt.Sprintf("Alert Processing Error - %s", email.Subject),
		Body:            b.String(),
		Recipient:       recipient,
		Action:          classify.ActionBackend,
		OriginalSubject: email.Subject,
	}
}

func excerpt(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= bodyExcerptLimit {
		return body
	}
	return body[:bodyExcerptLimit] + "\n[truncated]"
}
