package cache

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	videoSegmentName = "video.m4s"
	audioSegmentName = "audio.m4s"
	entryFileName    = "entry.json"
	indexFileName    = "index.json"
	coverFileName    = "cover.jpg"

	// entrySearchLevels bounds the upward walk from a segment directory to
	// its entry.json.
	entrySearchLevels = 5
)

// Scanner walks download roots and assembles the cache inventory.
type Scanner struct {
	roots    []string
	maxDepth int
	logger   *slog.Logger
}

// NewScanner builds a scanner over the given roots. maxDepth bounds descent
// below each root; values below one fall back to a safe default.
func NewScanner(roots []string, maxDepth int, logger *slog.Logger) *Scanner {
	if maxDepth < 1 {
		maxDepth = 8
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scanner{roots: roots, maxDepth: maxDepth, logger: logger}
}

// Scan walks every root, groups segment directories by their entry metadata
// and resolves per-variant states. Unreadable directories become warnings,
// metadata problems become failures; neither aborts the scan. The walk stops
// promptly when ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context) (*Inventory, error) {
	inv := &Inventory{Roots: append([]string(nil), s.roots...)}
	groups := make(map[string][]string) // entry.json path -> segment dirs

	for _, root := range s.roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		segDirs, warnings, err := s.findSegmentDirs(ctx, root)
		if err != nil {
			return nil, err
		}
		inv.Warnings = append(inv.Warnings, warnings...)

		for _, dir := range segDirs {
			entryPath, found := findEntryFile(dir)
			if !found {
				inv.Failures = append(inv.Failures, ParseFailure{
					Dir:    dir,
					Reason: ReasonNoMetadata,
					Detail: "no entry.json within " + strconv.Itoa(entrySearchLevels) + " parent levels",
				})
				continue
			}
			groups[entryPath] = append(groups[entryPath], dir)
		}
	}

	// Deterministic entry order regardless of walk interleaving.
	entryPaths := make([]string, 0, len(groups))
	for p := range groups {
		entryPaths = append(entryPaths, p)
	}
	sort.Strings(entryPaths)

	for _, entryPath := range entryPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := buildEntry(entryPath, groups[entryPath])
		if err != nil {
			inv.Failures = append(inv.Failures, ParseFailure{
				Dir:    filepath.Dir(entryPath),
				Reason: ReasonMalformed,
				Detail: err.Error(),
			})
			continue
		}
		inv.Entries = append(inv.Entries, entry)
	}

	s.logger.Info("scan finished",
		slog.Int("roots", len(s.roots)),
		slog.Int("entries", len(inv.Entries)),
		slog.Int("failures", len(inv.Failures)),
		slog.Int("warnings", len(inv.Warnings)))
	return inv, nil
}

// findSegmentDirs locates directories holding cached segment files, bounded
// by maxDepth below root.
func (s *Scanner) findSegmentDirs(ctx context.Context, root string) ([]string, []ScanWarning, error) {
	var dirs []string
	var warnings []ScanWarning

	rootDepth := strings.Count(filepath.Clean(root), string(os.PathSeparator))
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if walkErr != nil {
			warnings = append(warnings, ScanWarning{Path: path, Detail: walkErr.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		depth := strings.Count(filepath.Clean(path), string(os.PathSeparator)) - rootDepth
		if depth > s.maxDepth {
			return filepath.SkipDir
		}
		if hasSegmentFiles(path) {
			dirs = append(dirs, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(dirs)
	return dirs, warnings, nil
}

func hasSegmentFiles(dir string) bool {
	for _, name := range []string{videoSegmentName, audioSegmentName} {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// findEntryFile walks upward from a segment directory looking for
// entry.json, up to entrySearchLevels parent directories.
func findEntryFile(segmentDir string) (string, bool) {
	dir := segmentDir
	for level := 0; level <= entrySearchLevels; level++ {
		candidate := filepath.Join(dir, entryFileName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}
