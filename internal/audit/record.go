// Package audit persists one row per processed alert email in an
// append-only CSV file.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Record is the audit row for one processing attempt. Rows are append-only
// and never mutated; the age-based cleanup is the only path that removes
// them.
type Record struct {
	ID                string
	OriginalMessageID string
	OriginalSubject   string
	OriginalSender    string
	ProcessedAt       time.Time
	ActionTaken       string
	Reason            string
	SentToTeam        string
	Success           bool
	ErrorMessage      string
}

// NewRecord builds a record with a generated ID and the current timestamp.
func NewRecord(messageID, subject, sender, action, reason, team string, success bool, errMsg string) Record {
	return Record{
		ID:                uuid.NewString(),
		OriginalMessageID: messageID,
		OriginalSubject:   subject,
		OriginalSender:    sender,
		ProcessedAt:       time.Now(),
		ActionTaken:       action,
		Reason:            reason,
		SentToTeam:        team,
		Success:           success,
		ErrorMessage:      errMsg,
	}
}

// Stats aggregates the audit log.
type Stats struct {
	TotalProcessed   int            `json:"total_processed"`
	Successful       int            `json:"successful"`
	Failed           int            `json:"failed"`
	SuccessRate      float64        `json:"success_rate"`
	ActionBreakdown  map[string]int `json:"action_breakdown"`
	TeamDistribution map[string]int `json:"team_distribution"`
	Recent24h        int            `json:"recent_24h"`
}

// Filter narrows a List call. Zero values mean "no constraint"; Limit
// keeps the last N (most recent) matching rows.
type Filter struct {
	Action string
	From   time.Time
	To     time.Time
	Limit  int
}
