// Package processor orchestrates one processing cycle: fetch unread
// alerts, classify each one, route and send a summary, and record the
// outcome in the audit log.
package processor

import (
	"context"
	"fmt"
	"time"

	"alertiq/internal/audit"
	"alertiq/internal/classify"
	"alertiq/internal/mail"
	"alertiq/internal/notify"
	"alertiq/internal/shared/metrics"
	"alertiq/internal/shared/telemetry"
)

// Store is the audit-log surface the processor needs.
type Store interface {
	Append(rec audit.Record) error
	CheckDuplicate(messageID string) bool
	Stats() audit.Stats
}

// Notifier delivers summaries and error notifications.
type Notifier interface {
	SendSummary(ctx context.Context, msg notify.Summary) error
	SendErrorNotification(ctx context.Context, email mail.EmailData, errMsg string)
	Ping(ctx context.Context) error
}

// Processor runs the alert pipeline. All fields are required.
type Processor struct {
	Reader     mail.Reader
	Classifier classify.Classifier
	Notifier   Notifier
	Store      Store
	Router     notify.Router
	BatchSize  int
}

// CycleResult aggregates the counters for one processing cycle.
type CycleResult struct {
	Processed  int
	Successful int
	Failed     int
	Skipped    int
	StartedAt  time.Time
	FinishedAt time.Time
	Errors     []string
}

// Duration is the wall-clock time the cycle took.
func (r CycleResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunCycle processes one batch of unread alerts. A single item failing
// never aborts the cycle; only a fetch-stage failure does, and that error
// is returned alongside the partial result.
func (p *Processor) RunCycle(ctx context.Context) (CycleResult, error) {
	result := CycleResult{StartedAt: time.Now()}

	telemetry.Info("cycle.start", nil)

	emails, err := p.Reader.FetchUnread(ctx, p.BatchSize)
	if err != nil {
		msg := fmt.Sprintf("fetching unread emails: %v", err)
		result.Errors = append(result.Errors, msg)
		result.FinishedAt = time.Now()
		telemetry.Error("cycle.fetch_failed", map[string]any{"error": err.Error()})
		metrics.IncCycleErrors()
		return result, fmt.Errorf("fetching unread emails: %w", err)
	}

	for _, email := range emails {
		if p.Store.CheckDuplicate(email.MessageID) {
			result.Skipped++
			telemetry.Info("cycle.skip_duplicate", map[string]any{
				"message_id": email.MessageID,
				"subject":    email.Subject,
			})
			continue
		}

		result.Processed++
		if p.processEmail(ctx, email) {
			result.Successful++
		} else {
			result.Failed++
		}
	}

	result.FinishedAt = time.Now()
	p.recordCycleMetrics(result)
	telemetry.Info("cycle.complete", map[string]any{
		"processed":   result.Processed,
		"successful":  result.Successful,
		"failed":      result.Failed,
		"skipped":     result.Skipped,
		"duration_ms": float64(result.Duration().Microseconds()) / 1000.0,
	})
	return result, nil
}

// processEmail classifies one email, sends the routed summary, and
// records the outcome.
// Returns true when the summary was delivered and the record saved as a
// success. Failed attempts still produce an audit record, so the message
// is treated as processed by later cycles.
func (p *Processor) processEmail(ctx context.Context, email mail.EmailData) bool {
	telemetry.Info("cycle.process", map[string]any{
		"message_id": email.MessageID,
		"subject":    email.Subject,
	})

	analysis, err := p.Classifier.Analyze(ctx, email)
	if err != nil {
		errMsg := "LLM analysis failed"
		telemetry.Error("cycle.classification_failed", map[string]any{
			"message_id": email.MessageID,
			"error":      err.Error(),
		})

		p.Notifier.SendErrorNotification(ctx, email, errMsg)
		p.saveRecord(audit.NewRecord(
			email.MessageID, email.Subject, email.Sender,
			string(classify.ActionBackend), errMsg, p.Router.Fallback(),
			false, errMsg,
		))
		return false
	}

	recipient := p.Router.Recipient(analysis.Action)
	summary := notify.NewSummary(email, *analysis, recipient)

	if err := p.Notifier.SendSummary(ctx, summary); err != nil {
		errMsg := "failed to send summary email"
		metrics.IncNotificationErrors()
		p.saveRecord(audit.NewRecord(
			email.MessageID, email.Subject, email.Sender,
			string(analysis.Action), analysis.Reason, recipient,
			false, errMsg,
		))
		return false
	}
	metrics.IncNotificationsSent()

	p.saveRecord(audit.NewRecord(
		email.MessageID, email.Subject, email.Sender,
		string(analysis.Action), analysis.Reason, recipient,
		true, "",
	))

	if err := p.Reader.MarkAsRead(ctx, email.MessageID); err != nil {
		telemetry.Warn("cycle.mark_read_failed", map[string]any{
			"message_id": email.MessageID,
			"error":      err.Error(),
		})
	}

	telemetry.Info("cycle.processed", map[string]any{
		"message_id": email.MessageID,
		"action":     string(analysis.Action),
	})
	return true
}

// saveRecord appends to the audit log, logging persistence failures
// without propagating them.
func (p *Processor) saveRecord(rec audit.Record) {
	if err := p.Store.Append(rec); err != nil {
		telemetry.Error("cycle.record_failed", map[string]any{
			"message_id": rec.OriginalMessageID,
			"error":      err.Error(),
		})
	}
}

func (p *Processor) recordCycleMetrics(result CycleResult) {
	metrics.IncCycles()
	metrics.AddEmailsProcessed(result.Processed)
	metrics.AddEmailsSucceeded(result.Successful)
	metrics.AddEmailsFailed(result.Failed)
	metrics.AddEmailsSkipped(result.Skipped)
	metrics.ObserveCycleDurationMs(float64(result.Duration().Microseconds()) / 1000.0)
}

// TestConnections probes each external dependency and reports per
// component whether it is reachable.
func (p *Processor) TestConnections(ctx context.Context) map[string]bool {
	results := map[string]bool{
		"email_reader": false,
		"classifier":   false,
		"email_sender": false,
		"audit_store":  false,
	}

	if err := p.Reader.Ping(ctx); err != nil {
		telemetry.Error("health.reader_failed", map[string]any{"error": err.Error()})
	} else {
		results["email_reader"] = true
	}

	if err := p.Classifier.Ping(ctx); err != nil {
		telemetry.Error("health.classifier_failed", map[string]any{"error": err.Error()})
	} else {
		results["classifier"] = true
	}

	if err := p.Notifier.Ping(ctx); err != nil {
		telemetry.Error("health.sender_failed", map[string]any{"error": err.Error()})
	} else {
		results["email_sender"] = true
	}

	// The store degrades rather than erroring; reading stats exercises
	// the full read path.
	p.Store.Stats()
	results["audit_store"] = true

	return results
}

// HealthCheck reports whether every dependency is reachable.
func (p *Processor) HealthCheck(ctx context.Context) bool {
	for component, ok := range p.TestConnections(ctx) {
		if !ok {
			telemetry.Error("health.check_failed", map[string]any{"component": component})
			return false
		}
	}
	return true
}
