package cache

import (
	"os"
	"path/filepath"
	"strconv"
)

// inProgressMarkers are sidecar suffixes the client leaves beside segments
// while a download is still running.
var inProgressMarkers = []string{".tmp", ".download"}

// resolveVariant inspects one segment directory and classifies it. The
// precedence is: still-downloading evidence wins over corruption, since a
// partial segment is expected to be short while the download runs.
func resolveVariant(dir string, meta *entryMetadata) *Variant {
	v := &Variant{Dir: dir}

	idx, hasIndex := parseIndexFile(dir)
	if hasIndex && len(idx.Video) > 0 {
		rep := idx.Video[0]
		v.QualityID = rep.ID
		v.Width = rep.Width
		v.Height = rep.Height
		v.FrameRate = rep.FrameRate
	}
	if v.QualityID == 0 {
		if id, ok := qualityFromDir(dir); ok {
			v.QualityID = id
		} else if meta.Quality > 0 {
			v.QualityID = meta.Quality
		} else if meta.PreferedQuality > 0 {
			v.QualityID = meta.PreferedQuality
		}
	}
	v.QualityLabel = QualityLabel(v.QualityID)

	v.Video = statSegment(filepath.Join(dir, videoSegmentName))
	v.Audio = statSegment(filepath.Join(dir, audioSegmentName))

	switch {
	case downloadInProgress(dir, meta):
		v.State = StateIncomplete
		v.StateReason = ReasonStillDownloading
	case v.Video == nil && v.Audio == nil:
		v.State = StateCorrupt
		v.StateReason = ReasonMissingSegment
	case hasIndex && missingDeclaredSegment(idx, v):
		v.State = StateCorrupt
		v.StateReason = ReasonMissingSegment
	case hasEmptySegment(v):
		v.State = StateCorrupt
		v.StateReason = ReasonEmptySegment
	default:
		v.State = StateComplete
	}
	return v
}

// missingDeclaredSegment reports whether the manifest declares a stream
// whose segment file is gone. A stream absent from the manifest is a
// legitimate single-stream cache, not corruption.
func missingDeclaredSegment(idx *indexMetadata, v *Variant) bool {
	if len(idx.Video) > 0 && v.Video == nil {
		return true
	}
	if len(idx.Audio) > 0 && v.Audio == nil {
		return true
	}
	return false
}

func statSegment(path string) *SegmentRef {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	return &SegmentRef{Path: path, Size: info.Size(), ModTime: info.ModTime()}
}

func hasEmptySegment(v *Variant) bool {
	if v.Video != nil && v.Video.Size == 0 {
		return true
	}
	if v.Audio != nil && v.Audio.Size == 0 {
		return true
	}
	return false
}

// downloadInProgress gathers the still-downloading evidence: the client's
// completion flag, its byte counters, and sidecar marker files beside the
// segments.
func downloadInProgress(dir string, meta *entryMetadata) bool {
	if meta != nil {
		if !meta.IsCompleted && meta.TotalBytes > 0 {
			return true
		}
		if meta.TotalBytes > 0 && meta.DownloadedBytes < meta.TotalBytes {
			return true
		}
	}
	for _, base := range []string{videoSegmentName, audioSegmentName} {
		for _, marker := range inProgressMarkers {
			if fileExists(filepath.Join(dir, base+marker)) {
				return true
			}
		}
	}
	return false
}

// FormatSize renders a byte count the way the device UI does, in MB below a
// gigabyte and GB above.
func FormatSize(bytes int64) string {
	const (
		mb = 1000 * 1000
		gb = 1000 * mb
	)
	if bytes >= gb {
		return strconv.FormatFloat(float64(bytes)/float64(gb), 'f', 2, 64) + " GB"
	}
	return strconv.FormatFloat(float64(bytes)/float64(mb), 'f', 2, 64) + " MB"
}
