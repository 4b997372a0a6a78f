package preflight_test

import (
	"testing"

	"bilicache/internal/preflight"
	"bilicache/internal/testsupport"
)

func TestRunPassesWithStubbedEnvironment(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Export.MinFreeMiB = 0

	results, ok := preflight.Run(cfg, 1024)
	if !ok {
		t.Fatalf("expected all checks to pass: %+v", results)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(results))
	}
}

func TestRunFailsWhenFFmpegMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.FFmpeg.Binary = "/nonexistent/ffmpeg-binary"
	cfg.Export.MinFreeMiB = 0

	results, ok := preflight.Run(cfg, 0)
	if ok {
		t.Fatal("expected preflight failure")
	}
	var ffmpegFailed bool
	for _, r := range results {
		if r.Name == "ffmpeg" && !r.Passed {
			ffmpegFailed = true
		}
	}
	if !ffmpegFailed {
		t.Fatalf("expected ffmpeg check to fail: %+v", results)
	}
}
