package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/trace-semantics/internal/codec"
)

func TestConvertCmd_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	trace := writeTrace(t, tmpDir, "md.log", energyTrace)
	jsonPath := filepath.Join(tmpDir, "run.json")
	yamlPath := filepath.Join(tmpDir, "run.yml")

	out, err := execute(t, newConvertCmd(), "convert", "--adapter", "energy", "--experiment", "exp-1", trace, jsonPath)
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if !strings.Contains(out, "Wrote 10 events to "+jsonPath) {
		t.Errorf("output = %q", out)
	}

	if _, err := execute(t, newConvertCmd(), "convert", "--no-overlay", jsonPath, yamlPath); err != nil {
		t.Fatalf("convert json->yaml error = %v", err)
	}

	fromJSON, err := codec.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("ReadFile(json) error = %v", err)
	}
	fromYAML, err := codec.ReadFile(yamlPath)
	if err != nil {
		t.Fatalf("ReadFile(yaml) error = %v", err)
	}
	if fromJSON.Overlay == nil {
		t.Error("JSON document should carry the overlay")
	}
	if fromYAML.Overlay != nil {
		t.Error("--no-overlay document should not carry the overlay")
	}
	if fromYAML.ExperimentRef.ExperimentID != "exp-1" || fromYAML.Log().Len() != fromJSON.Log().Len() {
		t.Errorf("yaml document = %s/%d events, want exp-1/%d",
			fromYAML.ExperimentRef.ExperimentID, fromYAML.Log().Len(), fromJSON.Log().Len())
	}
}

func TestConvertCmd_JSONOutput(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	trace := writeTrace(t, tmpDir, "OSZICAR", oszicarTrace)
	outPath := filepath.Join(tmpDir, "vasp.yaml")

	out, err := execute(t, newConvertCmd(), "convert", "--json", "--adapter", "oszicar", "--experiment", "vasp-1", trace, outPath)
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["status"] != "written" || got["experiment"] != "vasp-1" || got["events"] != float64(4) {
		t.Errorf("output = %v", got)
	}
}

func TestConvertCmd_BadOutputExtension(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	trace := writeTrace(t, tmpDir, "md.log", energyTrace)

	_, err := execute(t, newConvertCmd(), "convert", "--adapter", "energy", trace, filepath.Join(tmpDir, "run.txt"))
	if err == nil || !strings.Contains(err.Error(), "unsupported document format") {
		t.Errorf("error = %v, want unsupported document format", err)
	}
}
