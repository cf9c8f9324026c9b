package metrics

import (
	"strings"
	"testing"
)

func TestRenderIncludesEveryMetric(t *testing.T) {
	IncCycles()
	AddEmailsProcessed(3)
	AddEmailsSucceeded(2)
	AddEmailsFailed(1)
	IncNotificationsSent()
	ObserveCycleDurationMs(420)

	out := Render()
	for _, name := range []string{
		"alertiq_cycles_total",
		"alertiq_cycle_errors_total",
		"alertiq_emails_processed_total",
		"alertiq_emails_succeeded_total",
		"alertiq_emails_failed_total",
		"alertiq_emails_skipped_total",
		"alertiq_notifications_sent_total",
		"alertiq_notification_errors_total",
		"alertiq_cycle_duration_ms_bucket",
		"alertiq_cycle_duration_ms_sum",
		"alertiq_cycle_duration_ms_count",
	} {
		if !strings.Contains(out, name) {
			t.Errorf("Render() missing %s", name)
		}
	}
	if !strings.Contains(out, `le="+Inf"`) {
		t.Error("Render() missing +Inf bucket")
	}
}

func TestHistogramCumulativeBuckets(t *testing.T) {
	h := newHistogram([]float64{10, 100, 1000})
	h.Observe(5)
	h.Observe(50)
	h.Observe(50)
	h.Observe(5000)

	snap := h.Snapshot()
	if snap.count != 4 {
		t.Fatalf("count = %d, want 4", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 2 || snap.counts[2] != 0 {
		t.Fatalf("bucket counts = %v", snap.counts)
	}
	if snap.sum != 5105 {
		t.Fatalf("sum = %v, want 5105", snap.sum)
	}
}
