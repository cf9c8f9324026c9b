package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	cyclesTotal         atomic.Uint64
	cycleErrorsTotal    atomic.Uint64
	emailsProcessed     atomic.Uint64
	emailsSucceeded     atomic.Uint64
	emailsFailed        atomic.Uint64
	emailsSkipped       atomic.Uint64
	notificationsSent   atomic.Uint64
	notificationsErrors atomic.Uint64

	cycleDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 300000})
)

// IncCycles increments the completed-cycles counter.
func IncCycles() {
	cyclesTotal.Add(1)
}

// IncCycleErrors increments the cycle-level critical error counter.
func IncCycleErrors() {
	cycleErrorsTotal.Add(1)
}

// AddEmailsProcessed adds to the processed-emails counter.
func AddEmailsProcessed(n int) {
	emailsProcessed.Add(uint64(n))
}

// AddEmailsSucceeded adds to the succeeded-emails counter.
func AddEmailsSucceeded(n int) {
	emailsSucceeded.Add(uint64(n))
}

// AddEmailsFailed adds to the failed-emails counter.
func AddEmailsFailed(n int) {
	emailsFailed.Add(uint64(n))
}

// AddEmailsSkipped adds to the skipped-duplicates counter.
func AddEmailsSkipped(n int) {
	emailsSkipped.Add(uint64(n))
}

// IncNotificationsSent increments the delivered-notification counter.
func IncNotificationsSent() {
	notificationsSent.Add(1)
}

// IncNotificationErrors increments the failed-notification counter.
func IncNotificationErrors() {
	notificationsErrors.Add(1)
}

// ObserveCycleDurationMs records a processing cycle duration in milliseconds.
func ObserveCycleDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	cycleDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "alertiq_cycles_total", "Total processing cycles completed", cyclesTotal.Load())
	writeCounter(&buf, "alertiq_cycle_errors_total", "Total cycles aborted by a critical error", cycleErrorsTotal.Load())
	writeCounter(&buf, "alertiq_emails_processed_total", "Total alert emails processed", emailsProcessed.Load())
	writeCounter(&buf, "alertiq_emails_succeeded_total", "Total alert emails processed successfully", emailsSucceeded.Load())
	writeCounter(&buf, "alertiq_emails_failed_total", "Total alert emails that failed processing", emailsFailed.Load())
	writeCounter(&buf, "alertiq_emails_skipped_total", "Total alert emails skipped as duplicates", emailsSkipped.Load())
	writeCounter(&buf, "alertiq_notifications_sent_total", "Total summary notifications delivered", notificationsSent.Load())
	writeCounter(&buf, "alertiq_notification_errors_total", "Total summary notifications that failed delivery", notificationsErrors.Load())
	writeHistogram(&buf, "alertiq_cycle_duration_ms", "Processing cycle duration in milliseconds", cycleDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
