package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// entryMetadata mirrors the fields of entry.json this tool relies on. The
// file carries many more; unknown fields are ignored so client-side schema
// drift does not break parsing.
type entryMetadata struct {
	Title           string    `json:"title"`
	TypeTag         string    `json:"type_tag"`
	Cover           string    `json:"cover"`
	Quality         int       `json:"quality"`
	PreferedQuality int       `json:"prefered_video_quality"`
	IsCompleted     bool      `json:"is_completed"`
	TotalBytes      int64     `json:"total_bytes"`
	DownloadedBytes int64     `json:"downloaded_bytes"`
	AVID            int64     `json:"avid"`
	BVID            string    `json:"bvid"`
	OwnerID         int64     `json:"owner_id"`
	PageData        *pageData `json:"page_data"`
}

type pageData struct {
	CID  int64  `json:"cid"`
	Page int    `json:"page"`
	Part string `json:"part"`
}

// indexMetadata mirrors the DASH manifest beside the segments. Only the
// first video representation matters; the cached segment corresponds to it.
// The audio list is read solely to tell "stream never cached" apart from
// "stream declared but its segment file is gone".
type indexMetadata struct {
	Video []struct {
		ID        int    `json:"id"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		FrameRate string `json:"frame_rate"`
	} `json:"video"`
	Audio []struct {
		ID int `json:"id"`
	} `json:"audio"`
}

// buildEntry assembles one entry from its metadata file and the segment
// directories grouped under it.
func buildEntry(entryPath string, segmentDirs []string) (*Entry, error) {
	meta, err := parseEntryFile(entryPath)
	if err != nil {
		return nil, err
	}

	entryDir := filepath.Dir(entryPath)
	entry := &Entry{
		ID:         entryDir,
		Dir:        entryDir,
		Title:      strings.TrimSpace(meta.Title),
		BVID:       meta.BVID,
		AVID:       meta.AVID,
		OwnerID:    meta.OwnerID,
		Completed:  meta.IsCompleted,
		TotalBytes: meta.TotalBytes,
		DownBytes:  meta.DownloadedBytes,
	}
	if meta.PageData != nil {
		entry.PartTitle = strings.TrimSpace(meta.PageData.Part)
		entry.CID = meta.PageData.CID
		entry.Page = meta.PageData.Page
	}
	if entry.Title == "" {
		// Some app versions omit the title; the directory name is the next
		// best stable identifier.
		entry.Title = filepath.Base(entryDir)
	}
	if cover := filepath.Join(entryDir, coverFileName); fileExists(cover) {
		entry.CoverPath = cover
	}

	sort.Strings(segmentDirs)
	for _, dir := range segmentDirs {
		entry.Variants = append(entry.Variants, resolveVariant(dir, meta))
	}
	// Highest quality first; discovery order breaks ties.
	sort.SliceStable(entry.Variants, func(i, j int) bool {
		return qualityRank(entry.Variants[i].QualityID) > qualityRank(entry.Variants[j].QualityID)
	})
	entry.State = combinedState(entry.Variants)
	return entry, nil
}

func parseEntryFile(path string) (*entryMetadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entry metadata: %w", err)
	}
	var meta entryMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode entry metadata: %w", err)
	}
	return &meta, nil
}

// parseIndexFile reads the DASH manifest in a segment directory. A missing
// or unreadable manifest is not fatal; quality then falls back to the
// directory name.
func parseIndexFile(dir string) (*indexMetadata, bool) {
	raw, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, false
	}
	var meta indexMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, false
	}
	return &meta, true
}

// qualityFromDir extracts the quality identifier from a segment directory
// name. The client names these directories after the type tag, e.g. "64" or
// "c_64".
func qualityFromDir(dir string) (int, bool) {
	name := filepath.Base(dir)
	name = strings.TrimPrefix(name, "c_")
	id, err := strconv.Atoi(name)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func combinedState(variants []*Variant) EntryState {
	state := StateUnknown
	for _, v := range variants {
		switch v.State {
		case StateComplete:
			return StateComplete
		case StateIncomplete:
			state = StateIncomplete
		case StateCorrupt:
			if state != StateIncomplete {
				state = StateCorrupt
			}
		}
	}
	return state
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
