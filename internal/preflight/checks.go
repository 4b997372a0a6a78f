// Package preflight runs environment checks before an export batch starts,
// so predictable failures surface before any job runs.
package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"bilicache/internal/config"
	"bilicache/internal/deps"
)

// Result is the outcome of one preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Run executes all checks for an export writing estimatedBytes into the
// configured output directory. It returns every result plus an overall
// verdict.
func Run(cfg *config.Config, estimatedBytes int64) ([]Result, bool) {
	results := []Result{
		checkFFmpeg(cfg),
		checkWritable("output directory", cfg.Paths.OutputDir),
		checkWritable("staging directory", cfg.Paths.StagingDir),
		checkFreeSpace(cfg, estimatedBytes),
	}
	ok := true
	for _, r := range results {
		if !r.Passed {
			ok = false
		}
	}
	return results, ok
}

func checkFFmpeg(cfg *config.Config) Result {
	path, err := deps.FindFFmpeg(cfg)
	if err != nil {
		return Result{Name: "ffmpeg", Detail: "ffmpeg not found; install it or set ffmpeg.binary"}
	}
	return Result{Name: "ffmpeg", Passed: true, Detail: path}
}

func checkWritable(name, dir string) Result {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	return Result{Name: name, Passed: true, Detail: dir}
}

// checkFreeSpace compares available space in the output directory against
// the estimated batch size plus the configured floor.
func checkFreeSpace(cfg *config.Config, estimatedBytes int64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(cfg.Paths.OutputDir, &stat); err != nil {
		return Result{Name: "free space", Detail: fmt.Sprintf("statfs %s: %v", cfg.Paths.OutputDir, err)}
	}
	available := int64(stat.Bavail) * int64(stat.Bsize) //nolint:unconvert
	required := estimatedBytes + int64(cfg.Export.MinFreeMiB)*1024*1024
	if available < required {
		return Result{
			Name:   "free space",
			Detail: fmt.Sprintf("need %d MiB, %d MiB available", required/(1024*1024), available/(1024*1024)),
		}
	}
	return Result{Name: "free space", Passed: true,
		Detail: fmt.Sprintf("%d MiB available", available/(1024*1024))}
}
