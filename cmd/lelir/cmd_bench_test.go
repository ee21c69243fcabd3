package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nvandessel/trace-semantics/internal/bench"
)

func TestBenchCmd_JSON(t *testing.T) {
	out, err := execute(t, newBenchCmd(), "bench", "--scales", "100,250", "--parallel", "2", "--json")
	if err != nil {
		t.Fatalf("bench error = %v", err)
	}
	var results []bench.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(results) != 2 || results[0].Events != 100 || results[1].Events != 250 {
		t.Fatalf("results = %+v, want scales 100 and 250 in order", results)
	}
	if results[1].Entities != 250 {
		t.Errorf("entities = %d, want 250", results[1].Entities)
	}
}

func TestBenchCmd_Table(t *testing.T) {
	out, err := execute(t, newBenchCmd(), "bench", "--scales", "50", "--seed", "42")
	if err != nil {
		t.Fatalf("bench error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "events") {
		t.Errorf("output = %q, want header and one row", out)
	}
}

func TestBenchCmd_Errors(t *testing.T) {
	if _, err := execute(t, newBenchCmd(), "bench", "--seed", "not-a-number"); err == nil {
		t.Error("expected error for invalid seed")
	}
	if _, err := execute(t, newBenchCmd(), "bench", "--scales=-5"); err == nil {
		t.Error("expected error for negative scale")
	}
}
