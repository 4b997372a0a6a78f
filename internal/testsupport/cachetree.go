package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// CacheEntry describes one fixture download written by WriteCacheEntry.
type CacheEntry struct {
	// DirName names the entry directory; defaults to the avid.
	DirName         string
	Title           string
	Part            string
	BVID            string
	AVID            int64
	CID             int64
	Completed       bool
	TotalBytes      int64
	DownloadedBytes int64
	Cover           bool
	Variants        []CacheVariant
}

// CacheVariant describes one quality directory with its segments.
type CacheVariant struct {
	QualityID int
	Width     int
	Height    int
	FrameRate string
	// VideoBytes/AudioBytes control segment sizes; -1 omits the segment.
	VideoBytes int
	AudioBytes int
	// DeclareAudio lists an audio representation in index.json even when
	// AudioBytes omits the segment file.
	DeclareAudio bool
	// Downloading leaves a video.m4s.tmp marker beside the segments.
	Downloading bool
	// NoIndex omits index.json so quality falls back to the directory name.
	NoIndex bool
}

// WriteCacheEntry materialises a cache entry under root and returns the
// entry directory.
func WriteCacheEntry(t *testing.T, root string, entry CacheEntry) string {
	t.Helper()

	dirName := entry.DirName
	if dirName == "" {
		dirName = fmt.Sprintf("%d", entry.AVID)
	}
	entryDir := filepath.Join(root, dirName)
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		t.Fatalf("create entry dir: %v", err)
	}

	completed := entry.Completed
	total := entry.TotalBytes
	downloaded := entry.DownloadedBytes
	if total == 0 {
		total = 1
		downloaded = 1
	}
	meta := map[string]any{
		"media_type":             2,
		"title":                  entry.Title,
		"is_completed":           completed,
		"total_bytes":            total,
		"downloaded_bytes":       downloaded,
		"avid":                   entry.AVID,
		"bvid":                   entry.BVID,
		"prefered_video_quality": 80,
		"page_data": map[string]any{
			"cid":  entry.CID,
			"page": 1,
			"part": entry.Part,
		},
	}
	writeJSON(t, filepath.Join(entryDir, "entry.json"), meta)

	if entry.Cover {
		if err := os.WriteFile(filepath.Join(entryDir, "cover.jpg"), []byte("jpeg"), 0o644); err != nil {
			t.Fatalf("write cover: %v", err)
		}
	}

	for _, variant := range entry.Variants {
		variantDir := filepath.Join(entryDir, fmt.Sprintf("%d", variant.QualityID))
		if err := os.MkdirAll(variantDir, 0o755); err != nil {
			t.Fatalf("create variant dir: %v", err)
		}
		if !variant.NoIndex {
			index := map[string]any{
				"video": []map[string]any{{
					"id":         variant.QualityID,
					"width":      variant.Width,
					"height":     variant.Height,
					"frame_rate": variant.FrameRate,
				}},
			}
			if variant.DeclareAudio {
				index["audio"] = []map[string]any{{"id": 30280}}
			}
			writeJSON(t, filepath.Join(variantDir, "index.json"), index)
		}
		writeSegment(t, filepath.Join(variantDir, "video.m4s"), variant.VideoBytes)
		writeSegment(t, filepath.Join(variantDir, "audio.m4s"), variant.AudioBytes)
		if variant.Downloading {
			if err := os.WriteFile(filepath.Join(variantDir, "video.m4s.tmp"), nil, 0o644); err != nil {
				t.Fatalf("write download marker: %v", err)
			}
		}
	}
	return entryDir
}

// WriteOrphanSegments writes a segment directory with no entry.json
// anywhere above it inside root.
func WriteOrphanSegments(t *testing.T, root, dirName string) string {
	t.Helper()
	dir := filepath.Join(root, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create orphan dir: %v", err)
	}
	writeSegment(t, filepath.Join(dir, "video.m4s"), 64)
	writeSegment(t, filepath.Join(dir, "audio.m4s"), 64)
	return dir
}

func writeSegment(t *testing.T, path string, size int) {
	t.Helper()
	if size < 0 {
		return
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write segment %s: %v", path, err)
	}
}

func writeJSON(t *testing.T, path string, value any) {
	t.Helper()
	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
