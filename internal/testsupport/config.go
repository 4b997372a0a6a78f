package testsupport

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"bilicache/internal/config"
)

// ConfigOption adjusts the test configuration.
type ConfigOption func(*testing.T, *config.Config)

// WithStubbedBinaries points the ffmpeg binary at a tiny shell script that
// writes a placeholder payload to its last argument and exits successfully,
// so export paths can run without a real ffmpeg.
func WithStubbedBinaries() ConfigOption {
	return func(t *testing.T, cfg *config.Config) {
		t.Helper()
		if runtime.GOOS == "windows" {
			t.Skip("stubbed binaries require a POSIX shell")
		}
		binDir := t.TempDir()
		stub := filepath.Join(binDir, "ffmpeg")
		script := "#!/bin/sh\nfor last; do :; done\nprintf remuxed > \"$last\"\nexit 0\n"
		if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
			t.Fatalf("write ffmpeg stub: %v", err)
		}
		cfg.FFmpeg.Binary = stub
	}
}

// WithFailingBinaries stubs ffmpeg with a script that prints an error and
// exits non-zero.
func WithFailingBinaries() ConfigOption {
	return func(t *testing.T, cfg *config.Config) {
		t.Helper()
		if runtime.GOOS == "windows" {
			t.Skip("stubbed binaries require a POSIX shell")
		}
		binDir := t.TempDir()
		stub := filepath.Join(binDir, "ffmpeg")
		script := "#!/bin/sh\necho 'Invalid data found when processing input' >&2\nexit 1\n"
		if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
			t.Fatalf("write ffmpeg stub: %v", err)
		}
		cfg.FFmpeg.Binary = stub
	}
}

// NewConfig returns a validated configuration rooted in temporary
// directories.
func NewConfig(t *testing.T, opts ...ConfigOption) *config.Config {
	t.Helper()
	base := t.TempDir()
	defaults := config.Default()
	cfg := &defaults
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	for _, opt := range opts {
		opt(t, cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	return cfg
}
