package export

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxFileNameRunes caps generated names well below common filesystem limits,
// leaving headroom for the extension and dedupe suffix.
const maxFileNameRunes = 180

// invalidFileNameChars are rejected by at least one target filesystem.
const invalidFileNameChars = `<>:"/\|?*`

// sanitizeFileName turns a display title into a safe file name: Unicode is
// normalised to NFC, reserved characters become underscores, control
// characters are dropped and overly long names are truncated.
func sanitizeFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20:
			// drop
		case strings.ContainsRune(invalidFileNameChars, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Trim(b.String(), " .")
	if runes := []rune(cleaned); len(runes) > maxFileNameRunes {
		cleaned = strings.Trim(string(runes[:maxFileNameRunes]), " .")
	}
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

// destNamer hands out collision-free destination paths within one plan,
// also avoiding files already on disk unless overwriting is enabled.
type destNamer struct {
	dir       string
	ext       string
	overwrite bool
	taken     map[string]struct{}
}

func newDestNamer(dir, ext string, overwrite bool) *destNamer {
	return &destNamer{dir: dir, ext: ext, overwrite: overwrite, taken: make(map[string]struct{})}
}

func (n *destNamer) next(base string) string {
	base = sanitizeFileName(base)
	for i := 0; ; i++ {
		candidate := base
		if i > 0 {
			candidate = base + "_" + strconv.Itoa(i)
		}
		path := filepath.Join(n.dir, candidate+n.ext)
		if _, planned := n.taken[path]; planned {
			continue
		}
		if !n.overwrite {
			if _, err := os.Stat(path); err == nil {
				continue
			}
		}
		n.taken[path] = struct{}{}
		return path
	}
}
