package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeTestConfig creates a config file rooted in temp directories and
// returns its path together with the output directory.
func writeTestConfig(t *testing.T) (configPath, outputDir string) {
	t.Helper()
	base := t.TempDir()
	outputDir = filepath.Join(base, "output")
	content := fmt.Sprintf(`[paths]
output_dir = %q
staging_dir = %q
log_dir = %q

[ffmpeg]
binary = %q

[export]
min_free_mib = 0
`, outputDir, filepath.Join(base, "staging"), filepath.Join(base, "logs"), stubFFmpeg(t))

	configPath = filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, outputDir
}

// stubFFmpeg writes a shell script that fills its final argument with a
// placeholder payload, standing in for a successful remux.
func stubFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stubbed binaries require a POSIX shell")
	}
	stub := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nfor last; do :; done\nprintf remuxed > \"$last\"\nexit 0\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	return stub
}

// runCommand executes the CLI with args and returns combined output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
