package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"alertiq/internal/audit"
	"alertiq/internal/classify"
	"alertiq/internal/mail"
	"alertiq/internal/notify"
)

type fakeReader struct {
	emails   []mail.EmailData
	fetchErr error
	pingErr  error
	marked   []string
	markErr  error
}

func (r *fakeReader) FetchUnread(ctx context.Context, max int) ([]mail.EmailData, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if max > 0 && len(r.emails) > max {
		return r.emails[:max], nil
	}
	return r.emails, nil
}

func (r *fakeReader) MarkAsRead(ctx context.Context, messageID string) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.marked = append(r.marked, messageID)
	return nil
}

func (r *fakeReader) Ping(ctx context.Context) error { return r.pingErr }

type fakeClassifier struct {
	analysis *classify.Analysis
	err      error
	pingErr  error
}

func (c *fakeClassifier) Analyze(ctx context.Context, email mail.EmailData) (*classify.Analysis, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.analysis, nil
}

func (c *fakeClassifier) Ping(ctx context.Context) error { return c.pingErr }

type fakeNotifier struct {
	sent       []notify.Summary
	sendErr    error
	errorNotes []string
	pingErr    error
}

func (n *fakeNotifier) SendSummary(ctx context.Context, msg notify.Summary) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) SendErrorNotification(ctx context.Context, email mail.EmailData, errMsg string) {
	n.errorNotes = append(n.errorNotes, email.MessageID)
}

func (n *fakeNotifier) Ping(ctx context.Context) error { return n.pingErr }

type fakeStore struct {
	records []audit.Record
}

func (s *fakeStore) Append(rec audit.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeStore) CheckDuplicate(messageID string) bool {
	for _, rec := range s.records {
		if rec.OriginalMessageID == messageID {
			return true
		}
	}
	return false
}

func (s *fakeStore) Stats() audit.Stats { return audit.Stats{TotalProcessed: len(s.records)} }

func alertEmail(id string) mail.EmailData {
	return mail.EmailData{
		MessageID:    id,
		Subject:      "ALERT: job failed",
		Sender:       "monitor@example.com",
		Body:         "database connection refused",
		ReceivedDate: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func testRouter() notify.Router {
	return notify.Router{
		BackendTeam: "backend@example.com",
		CodeTeam:    "code@example.com",
		RehitTeam:   "ops@example.com",
	}
}

func newProcessor(reader *fakeReader, classifier *fakeClassifier, notifier *fakeNotifier, store *fakeStore) *Processor {
	return &Processor{
		Reader:     reader,
		Classifier: classifier,
		Notifier:   notifier,
		Store:      store,
		Router:     testRouter(),
		BatchSize:  10,
	}
}

func TestRunCycleSuccess(t *testing.T) {
	reader := &fakeReader{emails: []mail.EmailData{alertEmail("msg-1")}}
	classifier := &fakeClassifier{analysis: &classify.Analysis{
		Action:     classify.ActionBackend,
		Reason:     "database connection refused upstream",
		Confidence: 0.9,
	}}
	notifier := &fakeNotifier{}
	store := &fakeStore{}

	result, err := newProcessor(reader, classifier, notifier, store).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error: %v", err)
	}
	if result.Processed != 1 || result.Successful != 1 || result.Failed != 0 || result.Skipped != 0 {
		t.Fatalf("counters = %+v", result)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("sent %d summaries, want 1", len(notifier.sent))
	}
	if notifier.sent[0].Recipient != "backend@example.com" {
		t.Fatalf("summary recipient = %q, want backend team", notifier.sent[0].Recipient)
	}

	if len(store.records) != 1 {
		t.Fatalf("saved %d records, want 1", len(store.records))
	}
	rec := store.records[0]
	if !rec.Success || rec.ActionTaken != "Backend" || rec.SentToTeam != "backend@example.com" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.ErrorMessage != "" {
		t.Fatalf("success record has error message %q", rec.ErrorMessage)
	}

	if len(reader.marked) != 1 || reader.marked[0] != "msg-1" {
		t.Fatalf("marked as read = %v, want [msg-1]", reader.marked)
	}
}

func TestRunCycleClassificationFailure(t *testing.T) {
	reader := &fakeReader{emails: []mail.EmailData{alertEmail("msg-1")}}
	classifier := &fakeClassifier{err: classify.ErrBadResponse}
	notifier := &fakeNotifier{}
	store := &fakeStore{}

	result, err := newProcessor(reader, classifier, notifier, store).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error: %v", err)
	}
	if result.Processed != 1 || result.Successful != 0 || result.Failed != 1 {
		t.Fatalf("counters = %+v", result)
	}

	if len(notifier.errorNotes) != 1 || notifier.errorNotes[0] != "msg-1" {
		t.Fatalf("error notifications = %v, want [msg-1]", notifier.errorNotes)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("sent %d summaries, want none", len(notifier.sent))
	}

	if len(store.records) != 1 {
		t.Fatalf("saved %d records, want 1", len(store.records))
	}
	rec := store.records[0]
	if rec.Success {
		t.Fatal("failed classification recorded as success")
	}
	if rec.ActionTaken != "Backend" || rec.Reason != "LLM analysis failed" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.ErrorMessage == "" {
		t.Fatal("failure record has empty error message")
	}

	if len(reader.marked) != 0 {
		t.Fatalf("message marked as read after a failure: %v", reader.marked)
	}
}

func TestRunCycleSendFailure(t *testing.T) {
	reader := &fakeReader{emails: []mail.EmailData{alertEmail("msg-1")}}
	classifier := &fakeClassifier{analysis: &classify.Analysis{
		Action:     classify.ActionCode,
		Reason:     "stack trace in handler",
		Confidence: 0.85,
	}}
	notifier := &fakeNotifier{sendErr: errors.New("smtp down")}
	store := &fakeStore{}

	result, err := newProcessor(reader, classifier, notifier, store).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error: %v", err)
	}
	if result.Failed != 1 || result.Successful != 0 {
		t.Fatalf("counters = %+v", result)
	}

	rec := store.records[0]
	if rec.Success {
		t.Fatal("failed send recorded as success")
	}
	// The verdict is kept even though delivery failed.
	if rec.ActionTaken != "Code" || rec.Reason != "stack trace in handler" {
		t.Fatalf("record = %+v", rec)
	}
	if len(reader.marked) != 0 {
		t.Fatalf("message marked as read after a send failure: %v", reader.marked)
	}
}

func TestRunCycleSkipsDuplicates(t *testing.T) {
	reader := &fakeReader{emails: []mail.EmailData{alertEmail("msg-1"), alertEmail("msg-2")}}
	classifier := &fakeClassifier{analysis: &classify.Analysis{
		Action:     classify.ActionRehit,
		Reason:     "transient timeout",
		Confidence: 0.8,
	}}
	notifier := &fakeNotifier{}
	store := &fakeStore{records: []audit.Record{{OriginalMessageID: "msg-1"}}}

	result, err := newProcessor(reader, classifier, notifier, store).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error: %v", err)
	}
	if result.Skipped != 1 || result.Processed != 1 || result.Successful != 1 {
		t.Fatalf("counters = %+v", result)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Recipient != "ops@example.com" {
		t.Fatalf("sent = %+v, want one summary to the re-hit team", notifier.sent)
	}
}

func TestRunCycleFetchFailure(t *testing.T) {
	reader := &fakeReader{fetchErr: errors.New("gmail unavailable")}
	proc := newProcessor(reader, &fakeClassifier{}, &fakeNotifier{}, &fakeStore{})

	result, err := proc.RunCycle(context.Background())
	if err == nil {
		t.Fatal("RunCycle() succeeded with a failing reader")
	}
	if result.Processed != 0 {
		t.Fatalf("counters = %+v, want nothing processed", result)
	}
	if len(result.Errors) == 0 {
		t.Fatal("cycle result carries no error detail")
	}
}

func TestTestConnections(t *testing.T) {
	proc := newProcessor(
		&fakeReader{pingErr: errors.New("no gmail")},
		&fakeClassifier{},
		&fakeNotifier{},
		&fakeStore{},
	)

	results := proc.TestConnections(context.Background())
	if results["email_reader"] {
		t.Fatal("email_reader reported healthy with a failing ping")
	}
	for _, component := range []string{"classifier", "email_sender", "audit_store"} {
		if !results[component] {
			t.Fatalf("%s reported unhealthy", component)
		}
	}
	if proc.HealthCheck(context.Background()) {
		t.Fatal("HealthCheck() = true with a failing component")
	}

	proc.Reader = &fakeReader{}
	if !proc.HealthCheck(context.Background()) {
		t.Fatal("HealthCheck() = false with all components healthy")
	}
}
