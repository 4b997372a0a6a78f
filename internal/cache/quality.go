package cache

import "fmt"

// qualityLabels maps Bilibili quality identifiers to their display names.
var qualityLabels = map[int]string{
	127: "8K",
	126: "Dolby Vision",
	125: "HDR",
	120: "4K",
	116: "1080P60",
	112: "1080P+",
	80:  "1080P",
	74:  "720P60",
	64:  "720P",
	32:  "480P",
	16:  "360P",
}

// QualityLabel returns the display name for a quality identifier, falling
// back to "<id>P" for identifiers the table does not know.
func QualityLabel(id int) string {
	if label, ok := qualityLabels[id]; ok {
		return label
	}
	return fmt.Sprintf("%dP", id)
}

// qualityRank orders quality identifiers for variant selection. Known
// identifiers rank by position in the quality ladder; unknown ones rank by
// raw value below the known ladder.
func qualityRank(id int) int {
	if _, ok := qualityLabels[id]; ok {
		return 1_000_000 + id
	}
	return id
}
