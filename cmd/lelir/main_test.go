package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

const energyTrace = `# step  total_energy
0 -50000.0
1000 -50000.2
2000 -50000.1
3000 -50000.15
4000 -50000.12
`

const oszicarTrace = `DAV:   1    -0.425E+02   -0.425E+02   -0.3E+03   960   0.1E+02
DAV:   2    -0.430E+02   -0.1E-04   -0.1E+01   960   0.1E+01
   1 F= -.10000000E+02 E0= -.10000100E+02  d E =-.100000E+02
`

// newTestRootCmd creates a root command with persistent flags for testing subcommands
func newTestRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "lelir",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file")
	return rootCmd
}

// isolateHome sets HOME to a temp directory to avoid touching real ~/.lelir/
// MUST be called for any test that loads or saves configuration
func isolateHome(t *testing.T, tmpDir string) {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
	for _, key := range []string{
		"LELIR_CONVERGENCE_WINDOW", "LELIR_REL_DELTA_THRESHOLD", "LELIR_LOG_LEVEL",
		"LELIR_FINDINGS_DIR", "LELIR_TELEMETRY_ENABLED", "LELIR_FRAMEWORK",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// writeTrace writes content to name inside dir and returns its path.
func writeTrace(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write trace: %v", err)
	}
	return path
}

// execute runs sub under a fresh test root and returns its stdout.
func execute(t *testing.T, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()
	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(sub)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, newVersionCmd(), "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "lelir version "+version) {
		t.Errorf("output = %q, want version line", out)
	}

	out, err = execute(t, newVersionCmd(), "version", "--json")
	if err != nil {
		t.Fatalf("version --json error = %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}
