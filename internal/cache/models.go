package cache

import (
	"fmt"
	"time"
)

// EntryState classifies how usable a cached download is.
type EntryState string

const (
	StateUnknown    EntryState = "unknown"
	StateIncomplete EntryState = "incomplete"
	StateComplete   EntryState = "complete"
	StateCorrupt    EntryState = "corrupt"
)

// Failure reason codes surfaced to callers and persisted with jobs.
const (
	ReasonNoMetadata       = "NO_METADATA"
	ReasonMalformed        = "MALFORMED_METADATA"
	ReasonMissingSegment   = "MISSING_SEGMENT"
	ReasonEmptySegment     = "EMPTY_SEGMENT"
	ReasonStillDownloading = "STILL_DOWNLOADING"
)

// SegmentRef points at one cached elementary stream file.
type SegmentRef struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Variant is one cached rendition of an entry, keyed by quality.
type Variant struct {
	QualityID    int
	QualityLabel string
	Width        int
	Height       int
	FrameRate    string
	Dir          string
	Video        *SegmentRef
	Audio        *SegmentRef
	State        EntryState
	StateReason  string
}

// HasVideo reports whether the variant carries a video stream.
func (v *Variant) HasVideo() bool { return v.Video != nil }

// HasAudio reports whether the variant carries an audio stream.
func (v *Variant) HasAudio() bool { return v.Audio != nil }

// TotalBytes sums the segment sizes of the variant.
func (v *Variant) TotalBytes() int64 {
	var total int64
	if v.Video != nil {
		total += v.Video.Size
	}
	if v.Audio != nil {
		total += v.Audio.Size
	}
	return total
}

// Entry is one cached download: a video page with one or more quality
// variants, all sharing the same metadata directory.
type Entry struct {
	ID         string
	Dir        string
	Title      string
	PartTitle  string
	BVID       string
	AVID       int64
	CID        int64
	Page       int
	OwnerID    int64
	CoverPath  string
	Completed  bool
	TotalBytes int64
	DownBytes  int64
	Variants   []*Variant
	State      EntryState
}

// DisplayTitle combines the work title with the page title when they differ.
func (e *Entry) DisplayTitle() string {
	if e.PartTitle != "" && e.PartTitle != e.Title {
		return e.Title + " - " + e.PartTitle
	}
	return e.Title
}

// BestVariant returns the preferred variant for export: the highest quality
// complete variant, preferring paired video+audio over single streams. It
// returns nil when no variant is exportable.
func (e *Entry) BestVariant() *Variant {
	var best *Variant
	for _, v := range e.Variants {
		if v.State != StateComplete {
			continue
		}
		if best == nil || variantLess(best, v) {
			best = v
		}
	}
	return best
}

// variantLess reports whether b outranks a.
func variantLess(a, b *Variant) bool {
	aPaired := a.HasVideo() && a.HasAudio()
	bPaired := b.HasVideo() && b.HasAudio()
	if aPaired != bPaired {
		return bPaired
	}
	if a.QualityID != b.QualityID {
		return qualityRank(b.QualityID) > qualityRank(a.QualityID)
	}
	return b.TotalBytes() > a.TotalBytes()
}

// ParseFailure records a candidate directory that could not be turned into an
// entry, with a stable reason code.
type ParseFailure struct {
	Dir    string
	Reason string
	Detail string
}

func (f ParseFailure) String() string {
	if f.Detail == "" {
		return fmt.Sprintf("%s: %s", f.Dir, f.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", f.Dir, f.Reason, f.Detail)
}

// ScanWarning records a non-fatal problem encountered while walking a root.
type ScanWarning struct {
	Path   string
	Detail string
}

// Inventory is the result of one scan pass.
type Inventory struct {
	Roots    []string
	Entries  []*Entry
	Failures []ParseFailure
	Warnings []ScanWarning
}

// CompleteEntries filters the inventory to entries with at least one
// exportable variant.
func (inv *Inventory) CompleteEntries() []*Entry {
	var out []*Entry
	for _, e := range inv.Entries {
		if e.BestVariant() != nil {
			out = append(out, e)
		}
	}
	return out
}
