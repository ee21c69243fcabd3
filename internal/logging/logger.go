// Package logging provides leveled logging and a findings trace for lelir.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A FindingsLogger for structured JSONL analysis findings (findings.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level every
// per-event decision of an analysis is logged.
const LevelTrace = slog.LevelDebug - 4

// FindingsFile is the name of the findings trace inside its directory.
const FindingsFile = "findings.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Finding is one analysis result written to the findings trace.
type Finding struct {
	Time         time.Time `json:"time"`
	ExperimentID string    `json:"experiment_id"`

	// Kind is comparison, implication, confounder or convergence.
	Kind   string `json:"kind"`
	Detail any    `json:"detail"`
}

// FindingsLogger appends findings to a JSONL file. It is safe for
// concurrent use, and a nil FindingsLogger is a no-op.
type FindingsLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewFindingsLogger opens dir/findings.jsonl for append at "debug" or
// "trace" level. At "info" level, or when the file cannot be opened, it
// returns nil.
func NewFindingsLogger(dir string, level string) *FindingsLogger {
	if ParseLevel(level) == slog.LevelInfo || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, FindingsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &FindingsLogger{file: f}
}

// Log writes f as a single JSONL line, stamping the time when unset.
func (fl *FindingsLogger) Log(f Finding) {
	if fl == nil {
		return
	}
	if f.Time.IsZero() {
		f.Time = time.Now().UTC()
	}
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	data = append(data, '\n')

	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.file == nil {
		return
	}
	_, _ = fl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (fl *FindingsLogger) Close() {
	if fl == nil {
		return
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.file != nil {
		fl.file.Close()
		fl.file = nil
	}
}
