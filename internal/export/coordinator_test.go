package export_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"bilicache/internal/export"
	"bilicache/internal/queue"
	"bilicache/internal/testsupport"
)

func runBatch(t *testing.T, muxer *fakeMuxer, names []string, failNames map[string]error) (export.Summary, []*queue.Job, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	muxer.failFor = failNames

	plan := &export.Plan{BatchID: "11111111-1111-1111-1111-111111111111"}
	for _, name := range names {
		plan.Jobs = append(plan.Jobs, newJob(t, cfg.Paths.OutputDir, name))
		plan.Jobs[len(plan.Jobs)-1].BatchID = plan.BatchID
	}

	coordinator := export.NewCoordinator(cfg, store, export.NewRemuxer(cfg, muxer, nil), nil)
	summary, err := coordinator.Run(context.Background(), plan, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	jobs, err := store.ListBatch(context.Background(), plan.BatchID)
	if err != nil {
		t.Fatalf("ListBatch: %v", err)
	}
	return summary, jobs, store
}

func TestRunCompletesBatch(t *testing.T) {
	summary, jobs, _ := runBatch(t, &fakeMuxer{}, []string{"A", "B", "C"}, nil)
	if summary.Completed != 3 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, job := range jobs {
		if job.Status != queue.StatusCompleted {
			t.Fatalf("expected completed job, got %s", job.Status)
		}
		if _, err := os.Stat(job.DestPath); err != nil {
			t.Fatalf("expected output for %s: %v", job.Title, err)
		}
	}
}

func TestRunContinuesPastFailure(t *testing.T) {
	failures := map[string]error{"B-video": errors.New("Invalid data found")}
	summary, jobs, _ := runBatch(t, &fakeMuxer{}, []string{"A", "B", "C"}, failures)

	if summary.Completed != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, job := range jobs {
		switch job.Title {
		case "B":
			if job.Status != queue.StatusFailed {
				t.Fatalf("expected B failed, got %s", job.Status)
			}
			if job.ErrorReason != export.ReasonExternalTool {
				t.Fatalf("expected reason persisted, got %q", job.ErrorReason)
			}
			if job.ErrorDetail == "" {
				t.Fatal("expected failure detail persisted")
			}
		default:
			if job.Status != queue.StatusCompleted {
				t.Fatalf("expected %s completed, got %s", job.Title, job.Status)
			}
		}
	}
}

func TestRunEmitsResultsIncrementally(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	plan := &export.Plan{BatchID: "22222222-2222-2222-2222-222222222222"}
	for _, name := range []string{"A", "B"} {
		job := newJob(t, cfg.Paths.OutputDir, name)
		job.BatchID = plan.BatchID
		plan.Jobs = append(plan.Jobs, job)
	}

	var seen []string
	coordinator := export.NewCoordinator(cfg, store, export.NewRemuxer(cfg, &fakeMuxer{}, nil), nil)
	summary, err := coordinator.Run(context.Background(), plan, func(result export.Result) {
		seen = append(seen, result.Job.Title)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != summary.Total {
		t.Fatalf("expected %d results, got %v", summary.Total, seen)
	}
}

func TestRunCancellationSkipsQueuedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	plan := &export.Plan{BatchID: "33333333-3333-3333-3333-333333333333"}
	for _, name := range []string{"A", "B", "C", "D"} {
		job := newJob(t, cfg.Paths.OutputDir, name)
		job.BatchID = plan.BatchID
		plan.Jobs = append(plan.Jobs, job)
	}

	ctx, cancel := context.WithCancel(context.Background())
	coordinator := export.NewCoordinator(cfg, store, export.NewRemuxer(cfg, &fakeMuxer{}, nil), nil)
	summary, err := coordinator.Run(ctx, plan, func(export.Result) {
		cancel()
	})
	if err == nil {
		t.Fatal("expected context error after cancellation")
	}
	if summary.Skipped == 0 {
		t.Fatalf("expected skipped jobs, got %+v", summary)
	}

	jobs, listErr := store.ListBatch(context.Background(), plan.BatchID)
	if listErr != nil {
		t.Fatalf("ListBatch: %v", listErr)
	}
	for _, job := range jobs {
		if job.Status == queue.StatusRunning {
			t.Fatalf("job left running: %+v", job)
		}
	}
}

func TestRunStatsReflectBatch(t *testing.T) {
	_, _, store := runBatch(t, &fakeMuxer{}, []string{"A", "B"}, map[string]error{"A-video": errors.New("boom")})
	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Completed != 1 || stats.Failed != 1 || stats.Total() != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
