package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"bilicache/internal/cache"
	"bilicache/internal/config"
	"bilicache/internal/queue"
)

// Selection names one entry to export, optionally pinning a variant. A nil
// Variant means the best complete variant.
type Selection struct {
	Entry   *cache.Entry
	Variant *cache.Variant
}

// Plan is a fully resolved batch: jobs in execution order plus the batch
// identifier they share.
type Plan struct {
	BatchID        string
	Jobs           []*queue.Job
	EstimatedBytes int64
}

// Planner turns entry selections into export jobs. Planning is pure name
// and path resolution; nothing is written yet.
type Planner struct {
	cfg *config.Config
}

// NewPlanner builds a planner over the configuration.
func NewPlanner(cfg *config.Config) *Planner {
	return &Planner{cfg: cfg}
}

// Build resolves every selection into a job. The same selections against
// the same destination state always produce the same names in the same
// order. A selection without an exportable variant fails the whole plan so
// a batch never silently shrinks.
func (p *Planner) Build(selections []Selection) (*Plan, error) {
	if len(selections) == 0 {
		return nil, fmt.Errorf("nothing selected for export")
	}
	if err := checkDestWritable(p.cfg.Paths.OutputDir); err != nil {
		return nil, err
	}

	ext := "." + p.cfg.FFmpeg.Container
	namer := newDestNamer(p.cfg.Paths.OutputDir, ext, p.cfg.Export.OverwriteExisting)
	plan := &Plan{BatchID: uuid.NewString()}

	for _, sel := range selections {
		if sel.Entry == nil {
			return nil, fmt.Errorf("selection without entry")
		}
		variant := sel.Variant
		if variant == nil {
			variant = sel.Entry.BestVariant()
		}
		if variant == nil {
			return nil, fmt.Errorf("%s: no exportable variant", sel.Entry.DisplayTitle())
		}
		if variant.State != cache.StateComplete {
			return nil, fmt.Errorf("%s: variant %s is %s (%s)",
				sel.Entry.DisplayTitle(), variant.QualityLabel, variant.State, variant.StateReason)
		}

		job := &queue.Job{
			BatchID:      plan.BatchID,
			EntryDir:     sel.Entry.Dir,
			Title:        sel.Entry.DisplayTitle(),
			BVID:         sel.Entry.BVID,
			QualityID:    variant.QualityID,
			QualityLabel: variant.QualityLabel,
			DestPath:     namer.next(sel.Entry.DisplayTitle()),
			Status:       queue.StatusPending,
		}
		if variant.Video != nil {
			job.VideoPath = variant.Video.Path
		}
		if variant.Audio != nil {
			job.AudioPath = variant.Audio.Path
		}
		if p.cfg.Export.Covers && sel.Entry.CoverPath != "" {
			job.CoverPath = sel.Entry.CoverPath
		}
		plan.Jobs = append(plan.Jobs, job)
		plan.EstimatedBytes += variant.TotalBytes()
	}
	return plan, nil
}

// checkDestWritable probes the nearest existing ancestor of the output
// directory, so a plan against an unwritable destination fails before any
// job is created. The directory itself may not exist yet; the export
// creates it.
func checkDestWritable(dir string) error {
	probe := dir
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}
	if err := unix.Access(probe, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	return nil
}
