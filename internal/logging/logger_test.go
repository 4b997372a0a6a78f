package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"bilicache/internal/logging"
	"bilicache/internal/services"
)

func TestConsoleHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	component := logging.NewComponentLogger(logger, "scanner")
	component.Info("scan finished", logging.Int("entries", 3), logging.String("root", "/mnt/sd card"))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " INFO scanner: scan finished") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, "entries=3") {
		t.Fatalf("expected attr rendered, got %q", line)
	}
	if !strings.Contains(line, `root="/mnt/sd card"`) {
		t.Fatalf("expected value with spaces quoted, got %q", line)
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("batch finished", logging.Int("completed", 2))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if record["msg"] != "batch finished" {
		t.Fatalf("unexpected record %v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestWithContextAttachesAnnotations(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := services.WithRequestID(context.Background(), "batch-1")
	ctx = services.WithJobID(ctx, 7)
	ctx = services.WithEntryID(ctx, "/cache/500")
	ctx = services.WithStage(ctx, "remux")
	logging.WithContext(ctx, logger).Info("job started")

	line := buf.String()
	for _, want := range []string{"job_id=7", "entry_id=/cache/500", "stage=remux", "correlation_id=batch-1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %q", want, line)
		}
	}
}

func TestUnknownFormatRejected(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected format error")
	}
}
