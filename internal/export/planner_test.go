package export_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bilicache/internal/cache"
	"bilicache/internal/export"
	"bilicache/internal/testsupport"
)

func scanEntries(t *testing.T, root string) []*cache.Entry {
	t.Helper()
	inv, err := cache.NewScanner([]string{root}, 8, nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return inv.Entries
}

func TestBuildPlanResolvesNamesAndStreams(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	testsupport.WriteCacheEntry(t, root, testsupport.CacheEntry{
		Title: "Algorithms", Part: "Sorting", BVID: "BV1aa", AVID: 1, Completed: true, Cover: true,
		Variants: []testsupport.CacheVariant{{QualityID: 80, VideoBytes: 2048, AudioBytes: 512}},
	})
	testsupport.WriteCacheEntry(t, root, testsupport.CacheEntry{
		// Same display title forces a dedupe suffix.
		DirName: "dup", Title: "Algorithms", Part: "Sorting", BVID: "BV1bb", AVID: 2, Completed: true,
		Variants: []testsupport.CacheVariant{{QualityID: 64, VideoBytes: 1024, AudioBytes: 256}},
	})
	entries := scanEntries(t, root)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	var selections []export.Selection
	for _, e := range entries {
		selections = append(selections, export.Selection{Entry: e})
	}
	plan, err := export.NewPlanner(cfg).Build(selections)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if plan.BatchID == "" {
		t.Fatal("expected batch identifier")
	}
	if len(plan.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(plan.Jobs))
	}
	first, second := plan.Jobs[0], plan.Jobs[1]
	if filepath.Base(first.DestPath) != "Algorithms - Sorting.mp4" {
		t.Fatalf("unexpected first destination %q", first.DestPath)
	}
	if filepath.Base(second.DestPath) != "Algorithms - Sorting_1.mp4" {
		t.Fatalf("expected dedupe suffix, got %q", second.DestPath)
	}
	if first.VideoPath == "" || first.AudioPath == "" {
		t.Fatalf("expected both streams resolved: %+v", first)
	}
	if first.CoverPath == "" {
		t.Fatal("expected cover carried into job")
	}
	if plan.EstimatedBytes != 2048+512+1024+256 {
		t.Fatalf("unexpected estimate %d", plan.EstimatedBytes)
	}
}

func TestBuildPlanIsDeterministic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	for i, title := range []string{"One", "Two", "Three"} {
		testsupport.WriteCacheEntry(t, root, testsupport.CacheEntry{
			DirName: title, Title: title, AVID: int64(i + 1), Completed: true,
			Variants: []testsupport.CacheVariant{{QualityID: 64, VideoBytes: 64, AudioBytes: 64}},
		})
	}
	entries := scanEntries(t, root)
	var selections []export.Selection
	for _, e := range entries {
		selections = append(selections, export.Selection{Entry: e})
	}

	planner := export.NewPlanner(cfg)
	first, err := planner.Build(selections)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := planner.Build(selections)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := range first.Jobs {
		if first.Jobs[i].DestPath != second.Jobs[i].DestPath {
			t.Fatalf("plan order changed: %q vs %q", first.Jobs[i].DestPath, second.Jobs[i].DestPath)
		}
	}
}

func TestBuildPlanRejectsUnwritableDestination(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not bind root")
	}
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	testsupport.WriteCacheEntry(t, root, testsupport.CacheEntry{
		Title: "Locked out", AVID: 8, Completed: true,
		Variants: []testsupport.CacheVariant{{QualityID: 64, VideoBytes: 64, AudioBytes: 64}},
	})
	entries := scanEntries(t, root)

	parent := t.TempDir()
	if err := os.Chmod(parent, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(parent, 0o755) })
	cfg.Paths.OutputDir = filepath.Join(parent, "out")

	_, err := export.NewPlanner(cfg).Build([]export.Selection{{Entry: entries[0]}})
	if err == nil {
		t.Fatal("expected plan failure for unwritable destination")
	}
}

func TestBuildPlanRejectsUnexportableSelection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	testsupport.WriteCacheEntry(t, root, testsupport.CacheEntry{
		Title: "Broken", AVID: 9, Completed: true,
		Variants: []testsupport.CacheVariant{{QualityID: 80, VideoBytes: 0, AudioBytes: 64}},
	})
	entries := scanEntries(t, root)

	_, err := export.NewPlanner(cfg).Build([]export.Selection{{Entry: entries[0]}})
	if err == nil {
		t.Fatal("expected plan failure for corrupt-only entry")
	}
}
