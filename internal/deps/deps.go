// Package deps verifies the external binaries the export pipeline shells
// out to.
package deps

import (
	"os/exec"
	"strings"

	"bilicache/internal/config"
)

// Requirement describes one external binary dependency.
type Requirement struct {
	Name     string
	Binary   string
	Required bool
	Purpose  string
}

// Status is the resolution result for one requirement.
type Status struct {
	Requirement Requirement
	Found       bool
	Path        string
}

// Requirements lists the binaries this tool can use. Only ffmpeg is
// mandatory; adb enables pulling caches off a connected device first.
func Requirements(cfg *config.Config) []Requirement {
	ffmpegBinary := "ffmpeg"
	if cfg != nil && strings.TrimSpace(cfg.FFmpeg.Binary) != "" {
		ffmpegBinary = cfg.FFmpeg.Binary
	}
	return []Requirement{
		{Name: "ffmpeg", Binary: ffmpegBinary, Required: true, Purpose: "remux cached segments into playable containers"},
		{Name: "adb", Binary: "adb", Required: false, Purpose: "copy caches from a USB-connected device"},
	}
}

// Check resolves every requirement against PATH (or its absolute path) and
// reports per-binary status plus whether all required binaries were found.
func Check(cfg *config.Config) ([]Status, bool) {
	requirements := Requirements(cfg)
	statuses := make([]Status, 0, len(requirements))
	ok := true
	for _, req := range requirements {
		path, err := exec.LookPath(req.Binary)
		status := Status{Requirement: req, Found: err == nil, Path: path}
		if !status.Found && req.Required {
			ok = false
		}
		statuses = append(statuses, status)
	}
	return statuses, ok
}

// FindFFmpeg resolves the ffmpeg binary honoring the configured override.
func FindFFmpeg(cfg *config.Config) (string, error) {
	binary := "ffmpeg"
	if cfg != nil && strings.TrimSpace(cfg.FFmpeg.Binary) != "" {
		binary = cfg.FFmpeg.Binary
	}
	return exec.LookPath(binary)
}
