package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]slog.Level{
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"Trace":   LevelTrace,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	} {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
	if LevelTrace >= slog.LevelDebug {
		t.Errorf("LevelTrace = %d, want below LevelDebug", LevelTrace)
	}
}

func TestNewLogger_Filtering(t *testing.T) {
	tests := []struct {
		level string
		// visible[i] reports whether trace, debug and info records are written.
		visible [3]bool
	}{
		{"info", [3]bool{false, false, true}},
		{"debug", [3]bool{false, true, true}},
		{"trace", [3]bool{true, true, true}},
	}
	levels := [3]slog.Level{LevelTrace, slog.LevelDebug, slog.LevelInfo}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			for i, lvl := range levels {
				var buf bytes.Buffer
				NewLogger(tt.level, &buf).Log(context.Background(), lvl, "stage done")
				if got := buf.Len() > 0; got != tt.visible[i] {
					t.Errorf("record at %v written = %v, want %v", lvl, got, tt.visible[i])
				}
			}
		})
	}
}

func readFindings(t *testing.T, dir string) []Finding {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, FindingsFile))
	if err != nil {
		t.Fatalf("failed to read %s: %v", FindingsFile, err)
	}
	var out []Finding
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var f Finding
		if err := json.Unmarshal([]byte(line), &f); err != nil {
			t.Fatalf("failed to parse JSONL entry %q: %v", line, err)
		}
		out = append(out, f)
	}
	return out
}

func TestNewFindingsLogger_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	fl := NewFindingsLogger(dir, "info")
	if fl != nil {
		t.Error("expected nil FindingsLogger at info level")
	}

	fl.Log(Finding{Kind: "confounder"})

	if _, err := os.Stat(filepath.Join(dir, FindingsFile)); err == nil {
		t.Errorf("%s should not exist at info level", FindingsFile)
	}
}

func TestNewFindingsLogger_EmptyDir(t *testing.T) {
	if fl := NewFindingsLogger("", "debug"); fl != nil {
		t.Error("expected nil FindingsLogger without a directory")
	}
}

func TestFindingsLogger_Writes(t *testing.T) {
	for _, level := range []string{"debug", "trace"} {
		t.Run(level, func(t *testing.T) {
			dir := t.TempDir()
			fl := NewFindingsLogger(dir, level)
			defer fl.Close()

			fl.Log(Finding{ExperimentID: "exp-1", Kind: "confounder", Detail: map[string]any{"dag_node": "temperature"}})
			fl.Log(Finding{ExperimentID: "exp-1", Kind: "convergence", Detail: "oscillating"})

			got := readFindings(t, dir)
			if len(got) != 2 {
				t.Fatalf("expected 2 lines, got %d", len(got))
			}
			if got[0].Kind != "confounder" || got[1].Kind != "convergence" {
				t.Errorf("kinds = %s, %s, want confounder, convergence", got[0].Kind, got[1].Kind)
			}
			if got[0].Time.IsZero() {
				t.Error("expected time to be stamped")
			}
			detail, ok := got[0].Detail.(map[string]any)
			if !ok || detail["dag_node"] != "temperature" {
				t.Errorf("detail = %v, want dag_node temperature", got[0].Detail)
			}
		})
	}
}

func TestFindingsLogger_KeepsExplicitTime(t *testing.T) {
	dir := t.TempDir()
	fl := NewFindingsLogger(dir, "debug")
	defer fl.Close()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fl.Log(Finding{Time: at, Kind: "comparison"})

	if got := readFindings(t, dir); !got[0].Time.Equal(at) {
		t.Errorf("time = %v, want %v", got[0].Time, at)
	}
}

func TestFindingsLogger_NilSafety(t *testing.T) {
	var fl *FindingsLogger
	fl.Log(Finding{Kind: "should_not_panic"})
	fl.Close()
}

func TestFindingsLogger_LogAfterClose(t *testing.T) {
	dir := t.TempDir()
	fl := NewFindingsLogger(dir, "debug")

	fl.Log(Finding{Kind: "before_close"})
	fl.Close()
	fl.Log(Finding{Kind: "after_close"})

	if got := readFindings(t, dir); len(got) != 1 {
		t.Errorf("expected 1 line after close, got %d", len(got))
	}
}

func TestNewFindingsLogger_CreatesDir(t *testing.T) {
	nestedDir := filepath.Join(t.TempDir(), "sub", "dir")
	fl := NewFindingsLogger(nestedDir, "debug")
	if fl == nil {
		t.Fatal("expected non-nil FindingsLogger when dir needs creation")
	}
	defer fl.Close()

	fl.Log(Finding{Kind: "dir_create_test"})

	info, err := os.Stat(filepath.Join(nestedDir, FindingsFile))
	if err != nil {
		t.Fatalf("%s should exist after dir creation: %v", FindingsFile, err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)
	logger.Log(context.Background(), LevelTrace, "per-event decision", "event_id", 7)
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("output = %q, want level=TRACE", buf.String())
	}
}
