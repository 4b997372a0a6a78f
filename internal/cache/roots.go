package cache

import (
	"os"
	"path/filepath"
)

// storageBases are the mount locations checked for Android storage trees.
var storageBases = []string{
	"/storage/emulated/0",
	"/sdcard",
	"/run/media",
	"/media",
	"/mnt",
}

// DiscoverRoots locates Bilibili download roots. For every storage base it
// probes Android/data/<pkg>/download one and two levels deep, which covers
// both direct mounts and per-user mount directories like /run/media/<user>.
// Explicit extra roots are included verbatim when they exist.
func DiscoverRoots(packages, extraRoots []string) []string {
	seen := make(map[string]struct{})
	var roots []string
	add := func(dir string) {
		if dir == "" {
			return
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return
		}
		resolved, err := filepath.Abs(dir)
		if err != nil {
			resolved = dir
		}
		if _, ok := seen[resolved]; ok {
			return
		}
		seen[resolved] = struct{}{}
		roots = append(roots, resolved)
	}

	for _, root := range extraRoots {
		add(root)
	}
	for _, base := range storageBases {
		for _, pkg := range packages {
			add(downloadDir(base, pkg))
		}
		// One nesting level for mount managers that add a user or label dir.
		children, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, child := range children {
			if !child.IsDir() {
				continue
			}
			for _, pkg := range packages {
				add(downloadDir(filepath.Join(base, child.Name()), pkg))
			}
		}
	}
	return roots
}

func downloadDir(base, pkg string) string {
	return filepath.Join(base, "Android", "data", pkg, "download")
}
