package export_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bilicache/internal/export"
	"bilicache/internal/queue"
	"bilicache/internal/services"
	"bilicache/internal/services/ffmpeg"
	"bilicache/internal/testsupport"
)

// fakeMuxer writes the destination file or fails, per script.
type fakeMuxer struct {
	mu          sync.Mutex
	failFor     map[string]error
	payload     string
	emptyOutput bool
	runCount    int
}

func (f *fakeMuxer) Remux(ctx context.Context, in ffmpeg.Input, destPath string, progress func(ffmpeg.ProgressUpdate)) error {
	f.mu.Lock()
	f.runCount++
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.failFor != nil {
		for fragment, err := range f.failFor {
			if strings.Contains(in.VideoPath, fragment) || strings.Contains(in.AudioPath, fragment) {
				return err
			}
		}
	}
	if f.emptyOutput {
		return os.WriteFile(destPath, nil, 0o644)
	}
	payload := f.payload
	if payload == "" {
		payload = "remuxed"
	}
	return os.WriteFile(destPath, []byte(payload), 0o644)
}

func newJob(t *testing.T, outputDir, name string) *queue.Job {
	t.Helper()
	src := t.TempDir()
	video := filepath.Join(src, name+"-video.m4s")
	audio := filepath.Join(src, name+"-audio.m4s")
	for _, p := range []string{video, audio} {
		if err := os.WriteFile(p, []byte("segment"), 0o644); err != nil {
			t.Fatalf("write segment: %v", err)
		}
	}
	return &queue.Job{
		BatchID:   "batch",
		EntryDir:  src,
		Title:     name,
		VideoPath: video,
		AudioPath: audio,
		DestPath:  filepath.Join(outputDir, name+".mp4"),
		Status:    queue.StatusPending,
	}
}

func TestExportPublishesAtomically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remuxer := export.NewRemuxer(cfg, &fakeMuxer{}, nil)
	job := newJob(t, cfg.Paths.OutputDir, "Published")

	if err := remuxer.Export(context.Background(), job); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := os.Stat(job.DestPath); err != nil {
		t.Fatalf("expected destination file: %v", err)
	}
	assertNoLeftovers(t, cfg.Paths.OutputDir)
}

func TestExportFailureLeavesNoDestination(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	muxer := &fakeMuxer{failFor: map[string]error{"Failing": errors.New("moov atom not found")}}
	remuxer := export.NewRemuxer(cfg, muxer, nil)
	job := newJob(t, cfg.Paths.OutputDir, "Failing")

	err := remuxer.Export(context.Background(), job)
	if err == nil {
		t.Fatal("expected export failure")
	}
	if got := export.FailureReason(err); got != export.ReasonExternalTool {
		t.Fatalf("expected %s, got %s", export.ReasonExternalTool, got)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if _, statErr := os.Stat(job.DestPath); !os.IsNotExist(statErr) {
		t.Fatalf("destination must not exist after failure: %v", statErr)
	}
	assertNoLeftovers(t, cfg.Paths.OutputDir)
}

func TestExportRejectsEmptyOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remuxer := export.NewRemuxer(cfg, &fakeMuxer{emptyOutput: true}, nil)
	job := newJob(t, cfg.Paths.OutputDir, "Empty")

	err := remuxer.Export(context.Background(), job)
	if err == nil {
		t.Fatal("expected export failure for empty output")
	}
	if got := export.FailureReason(err); got != export.ReasonExternalTool {
		t.Fatalf("expected %s, got %s (%v)", export.ReasonExternalTool, got, err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if _, statErr := os.Stat(job.DestPath); !os.IsNotExist(statErr) {
		t.Fatalf("empty output must not be published: %v", statErr)
	}
	assertNoLeftovers(t, cfg.Paths.OutputDir)
}

func TestExportTimeoutClassified(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	muxer := &fakeMuxer{failFor: map[string]error{"Slow": context.DeadlineExceeded}}
	remuxer := export.NewRemuxer(cfg, muxer, nil)
	job := newJob(t, cfg.Paths.OutputDir, "Slow")

	err := remuxer.Export(context.Background(), job)
	if got := export.FailureReason(err); got != export.ReasonTimeout {
		t.Fatalf("expected %s, got %s (%v)", export.ReasonTimeout, got, err)
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestExportCopiesCover(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	remuxer := export.NewRemuxer(cfg, &fakeMuxer{}, nil)
	job := newJob(t, cfg.Paths.OutputDir, "Covered")
	cover := filepath.Join(t.TempDir(), "cover.jpg")
	if err := os.WriteFile(cover, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write cover: %v", err)
	}
	job.CoverPath = cover

	if err := remuxer.Export(context.Background(), job); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "Covered.jpg")); err != nil {
		t.Fatalf("expected exported cover: %v", err)
	}
}

func assertNoLeftovers(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".bilicache") {
			t.Fatalf("temporary file leaked: %s", entry.Name())
		}
	}
}
