package cache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bilicache/internal/cache"
	"bilicache/internal/testsupport"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func scanOne(t *testing.T, root string) *cache.Entry {
	t.Helper()
	inv, err := cache.NewScanner([]string{root}, 8, nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(inv.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d (failures %v)", len(inv.Entries), inv.Failures)
	}
	return inv.Entries[0]
}

func TestEmptySegmentMarksVariantCorrupt(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteCacheEntry(t, root, testsupport.CacheEntry{
		Title: "Short clip", AVID: 400, Completed: true,
		Variants: []testsupport.CacheVariant{
			{QualityID: 80, VideoBytes: 0, AudioBytes: 512},
		},
	})

	entry := scanOne(t, root)
	if entry.State != cache.StateCorrupt {
		t.Fatalf("expected corrupt entry, got %s", entry.State)
	}
	v := entry.Variants[0]
	if v.State != cache.StateCorrupt || v.StateReason != cache.ReasonEmptySegment {
		t.Fatalf("unexpected variant state %s/%s", v.State, v.StateReason)
	}
	if entry.BestVariant() != nil {
		t.Fatal("corrupt variant must not be exportable")
	}
}

func TestDownloadMarkerMarksVariantIncomplete(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteCacheEntry(t, root, testsupport.CacheEntry{
		Title: "Mid download", AVID: 401, Completed: true,
		Variants: []testsupport.CacheVariant{
			{QualityID: 64, VideoBytes: 128, AudioBytes: 128, Downloading: true},
		},
	})

	entry := scanOne(t, root)
	v := entry.Variants[0]
	if v.State != cache.StateIncomplete || v.StateReason != cache.ReasonStillDownloading {
		t.Fatalf("unexpected variant state %s/%s", v.State, v.StateReason)
	}
}

func TestByteCountersMarkEntryIncomplete(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteCacheEntry(t, root, testsupport.CacheEntry{
		Title: "Partial", AVID: 402, Completed: false,
		TotalBytes: 1000, DownloadedBytes: 400,
		Variants: []testsupport.CacheVariant{
			{QualityID: 64, VideoBytes: 400, AudioBytes: 100},
		},
	})

	entry := scanOne(t, root)
	if entry.State != cache.StateIncomplete {
		t.Fatalf("expected incomplete entry, got %s", entry.State)
	}
}

func TestCorruptVariantDoesNotHideCompleteOne(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteCacheEntry(t, root, testsupport.CacheEntry{
		Title: "Two variants", AVID: 403, Completed: true,
		Variants: []testsupport.CacheVariant{
			{QualityID: 80, VideoBytes: 0, AudioBytes: 128},
			{QualityID: 64, VideoBytes: 256, AudioBytes: 128},
		},
	})

	entry := scanOne(t, root)
	if entry.State != cache.StateComplete {
		t.Fatalf("expected complete entry, got %s", entry.State)
	}
	if len(entry.Variants) != 2 {
		t.Fatalf("expected both variants visible, got %d", len(entry.Variants))
	}
	best := entry.BestVariant()
	if best == nil || best.QualityID != 64 {
		t.Fatalf("expected 64 as best exportable variant, got %+v", best)
	}
}

func TestBestVariantPrefersPairedStreams(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteCacheEntry(t, root, testsupport.CacheEntry{
		Title: "Audio missing at top quality", AVID: 404, Completed: true,
		Variants: []testsupport.CacheVariant{
			{QualityID: 112, VideoBytes: 4096, AudioBytes: -1},
			{QualityID: 64, VideoBytes: 1024, AudioBytes: 512},
		},
	})

	entry := scanOne(t, root)
	best := entry.BestVariant()
	if best == nil || best.QualityID != 64 {
		t.Fatalf("expected paired 64 variant preferred, got %+v", best)
	}
}

func TestDeclaredAudioWithoutSegmentMarksVariantCorrupt(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteCacheEntry(t, root, testsupport.CacheEntry{
		Title: "Lost audio segment", AVID: 406, Completed: true,
		Variants: []testsupport.CacheVariant{
			{QualityID: 112, VideoBytes: 4096, AudioBytes: -1, DeclareAudio: true},
			{QualityID: 80, VideoBytes: 2048, AudioBytes: 512},
		},
	})

	entry := scanOne(t, root)
	if entry.State != cache.StateComplete {
		t.Fatalf("expected complete entry, got %s", entry.State)
	}
	if len(entry.Variants) != 2 {
		t.Fatalf("expected both variants visible, got %d", len(entry.Variants))
	}
	v := entry.Variants[0]
	if v.QualityID != 112 || v.State != cache.StateCorrupt || v.StateReason != cache.ReasonMissingSegment {
		t.Fatalf("unexpected variant state %d %s/%s", v.QualityID, v.State, v.StateReason)
	}
	best := entry.BestVariant()
	if best == nil || best.QualityID != 80 {
		t.Fatalf("expected 80 as best exportable variant, got %+v", best)
	}
}

func TestQualityFallsBackToDirName(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteCacheEntry(t, root, testsupport.CacheEntry{
		Title: "No manifest", AVID: 405, Completed: true,
		Variants: []testsupport.CacheVariant{
			{QualityID: 116, VideoBytes: 64, AudioBytes: 64, NoIndex: true},
		},
	})

	entry := scanOne(t, root)
	v := entry.Variants[0]
	if v.QualityID != 116 || v.QualityLabel != "1080P60" {
		t.Fatalf("unexpected quality %d/%s", v.QualityID, v.QualityLabel)
	}
}

func TestQualityFallsBackToEntryMetadata(t *testing.T) {
	root := t.TempDir()
	entryDir := filepath.Join(root, "500")
	variantDir := filepath.Join(entryDir, "lowres")
	if err := os.MkdirAll(variantDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(entryDir, "entry.json"),
		`{"title":"Meta quality","is_completed":true,"total_bytes":1,"downloaded_bytes":1,`+
			`"avid":500,"quality":64,"prefered_video_quality":80}`)
	writeFile(t, filepath.Join(variantDir, "video.m4s"), "segment")
	writeFile(t, filepath.Join(variantDir, "audio.m4s"), "segment")

	entry := scanOne(t, root)
	v := entry.Variants[0]
	if v.QualityID != 64 || v.QualityLabel != "720P" {
		t.Fatalf("expected quality key to win over preference, got %d/%s", v.QualityID, v.QualityLabel)
	}
}

func TestQualityLabelFallback(t *testing.T) {
	if got := cache.QualityLabel(999); got != "999P" {
		t.Fatalf("expected synthesized label, got %q", got)
	}
	if got := cache.QualityLabel(126); got != "Dolby Vision" {
		t.Fatalf("expected table label, got %q", got)
	}
}

func TestFormatSize(t *testing.T) {
	if got := cache.FormatSize(1_500_000); got != "1.50 MB" {
		t.Fatalf("got %q", got)
	}
	if got := cache.FormatSize(2_250_000_000); got != "2.25 GB" {
		t.Fatalf("got %q", got)
	}
}
