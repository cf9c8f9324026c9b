package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

var (
	mu       sync.Mutex
	minLevel = levelInfo
	out      io.Writer = os.Stdout
	logFile  *os.File
)

// Init configures the minimum log level and an optional log file. Entries
// always go to stdout; when path is non-empty they are duplicated into the
// file (append mode).
func Init(level, path string) error {
	mu.Lock()
	defer mu.Unlock()

	minLevel = parseLevel(level)

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
		out = os.Stdout
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", path, err)
		}
		logFile = f
		out = io.MultiWriter(os.Stdout, f)
	}
	return nil
}

func parseLevel(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return levelDebug
	case "WARN", "WARNING":
		return levelWarn
	case "ERROR":
		return levelError
	default:
		return levelInfo
	}
}

// Debug writes a debug-level log line with the given fields.
func Debug(msg string, fields map[string]any) {
	write(levelDebug, "debug", msg, fields)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(levelInfo, "info", msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write(levelWarn, "warn", msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write(levelError, "error", msg, fields)
}

func write(level int, name, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}

	entry := make(map[string]any, len(fields)+3)
	entry["ts"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = name
	entry["msg"] = msg
	for k, v := range fields {
		entry[k] = v
	}
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(out, `{"ts":"%s","level":"error","msg":"logger marshal failed","err":%q}`+"\n", time.Now().UTC().Format(time.RFC3339), err.Error())
		return
	}
	fmt.Fprintln(out, string(data))
}
