package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"alertiq/internal/shared/telemetry"
)

var header = []string{
	"id", "original_message_id", "original_subject", "original_sender",
	"processed_at", "action_taken", "reason", "sent_to_team",
	"success", "error_message",
}

// Store is a CSV-backed audit log. Appends are row-at-a-time; reads load
// the whole file; cleanup rewrites it. Read failures degrade to empty
// results rather than failing a processing cycle. Not safe for multiple
// processes sharing one file.
type Store struct {
	path string
}

// NewStore opens the store, creating the file with its header if missing.
// Creation failures are fatal.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit directory %s: %w", dir, err)
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create audit file %s: %w", path, err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write audit header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write audit header: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("close audit file: %w", err)
		}
		telemetry.Info("audit.store_created", map[string]any{"path": path})
	}
	return &Store{path: path}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Append writes one record to the end of the log.
func (s *Store) Append(rec Record) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(recordToRow(rec)); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	telemetry.Debug("audit.record_saved", map[string]any{"id": rec.ID, "message_id": rec.OriginalMessageID})
	return nil
}

// List returns records matching the filter, oldest first. A Limit keeps
// only the last N rows after the other filters are applied.
func (s *Store) List(f Filter) []Record {
	records := s.readAll()

	out := records[:0:0]
	for _, rec := range records {
		if f.Action != "" && rec.ActionTaken != f.Action {
			continue
		}
		if !f.From.IsZero() && rec.ProcessedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && rec.ProcessedAt.After(f.To) {
			continue
		}
		out = append(out, rec)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

// Stats aggregates the full log.
func (s *Store) Stats() Stats {
	records := s.readAll()

	stats := Stats{
		ActionBreakdown:  map[string]int{},
		TeamDistribution: map[string]int{},
	}
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, rec := range records {
		stats.TotalProcessed++
		if rec.Success {
			stats.Successful++
		} else {
			stats.Failed++
		}
		stats.ActionBreakdown[rec.ActionTaken]++
		stats.TeamDistribution[rec.SentToTeam]++
		if !rec.ProcessedAt.Before(cutoff) {
			stats.Recent24h++
		}
	}
	if stats.TotalProcessed > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.TotalProcessed) * 100
	}
	return stats
}

// CheckDuplicate reports whether any record exists for the message ID,
// regardless of its success value.
func (s *Store) CheckDuplicate(messageID string) bool {
	for _, rec := range s.readAll() {
		if rec.OriginalMessageID == messageID {
			return true
		}
	}
	return false
}

// Cleanup removes records older than the retention window and rewrites
// the file. It returns the number of rows removed; failures degrade to 0.
func (s *Store) Cleanup(retentionDays int) int {
	records := s.readAll()
	if len(records) == 0 {
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	kept := records[:0:0]
	for _, rec := range records {
		if !rec.ProcessedAt.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	removed := len(records) - len(kept)
	if removed == 0 {
		return 0
	}

	if err := s.rewrite(kept); err != nil {
		telemetry.Error("audit.cleanup_failed", map[string]any{"error": err.Error()})
		return 0
	}
	telemetry.Info("audit.cleanup_complete", map[string]any{"removed": removed, "retention_days": retentionDays})
	return removed
}

// Export copies every row into another CSV file, header included.
func (s *Store) Export(path string) error {
	records := s.readAll()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(recordToRow(rec)); err != nil {
			return fmt.Errorf("write export row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// readAll loads every row, skipping ones that fail to parse. Any I/O
// failure degrades to an empty slice.
func (s *Store) readAll() []Record {
	f, err := os.Open(s.path)
	if err != nil {
		telemetry.Error("audit.read_failed", map[string]any{"error": err.Error()})
		return nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		telemetry.Error("audit.read_failed", map[string]any{"error": err.Error()})
		return nil
	}
	if len(rows) <= 1 {
		return nil
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec, err := rowToRecord(row)
		if err != nil {
			telemetry.Warn("audit.row_skipped", map[string]any{"error": err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (s *Store) rewrite(records []Record) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(recordToRow(rec)); err != nil {
			f.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func recordToRow(rec Record) []string {
	return []string{
		rec.ID,
		rec.OriginalMessageID,
		rec.OriginalSubject,
		rec.OriginalSender,
		rec.ProcessedAt.Format(time.RFC3339),
		rec.ActionTaken,
		rec.Reason,
		rec.SentToTeam,
		strconv.FormatBool(rec.Success),
		rec.ErrorMessage,
	}
}

func rowToRecord(row []string) (Record, error) {
	if len(row) < len(header) {
		return Record{}, fmt.Errorf("short row: %d fields", len(row))
	}
	processedAt, err := time.Parse(time.RFC3339, row[4])
	if err != nil {
		return Record{}, fmt.Errorf("bad processed_at %q: %w", row[4], err)
	}
	success, err := strconv.ParseBool(row[8])
	if err != nil {
		return Record{}, fmt.Errorf("bad success %q: %w", row[8], err)
	}
	return Record{
		ID:                row[0],
		OriginalMessageID: row[1],
		OriginalSubject:   row[2],
		OriginalSender:    row[3],
		ProcessedAt:       processedAt,
		ActionTaken:       row[5],
		Reason:            row[6],
		SentToTeam:        row[7],
		Success:           success,
		ErrorMessage:      row[9],
	}, nil
}
