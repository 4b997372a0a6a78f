package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"bilicache/internal/config"
	"bilicache/internal/fileutil"
	"bilicache/internal/logging"
	"bilicache/internal/queue"
	"bilicache/internal/services"
	"bilicache/internal/services/ffmpeg"
)

// Failure reason codes persisted with failed jobs.
const (
	ReasonTimeout      = "TIMEOUT"
	ReasonExternalTool = "EXTERNAL_TOOL_ERROR"
	ReasonIO           = "IO_ERROR"
	ReasonCancelled    = "CANCELLED"
)

// FailureReason extracts the persisted reason code from an export error,
// defaulting to the external tool reason.
func FailureReason(err error) string {
	var exportErr *Error
	if errors.As(err, &exportErr) {
		return exportErr.Reason
	}
	return ReasonExternalTool
}

// Error tags an export failure with its stable reason code.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Remuxer executes one export job: remux into a temporary file beside the
// destination, then publish atomically.
type Remuxer struct {
	cfg    *config.Config
	muxer  ffmpeg.Muxer
	logger *slog.Logger
}

// NewRemuxer builds a remuxer over the given muxer.
func NewRemuxer(cfg *config.Config, muxer ffmpeg.Muxer, logger *slog.Logger) *Remuxer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Remuxer{cfg: cfg, muxer: muxer, logger: logging.NewComponentLogger(logger, "remuxer")}
}

// Export runs the job. The destination file only ever appears complete: the
// remux writes a hidden temporary sibling which is renamed into place on
// success and removed on every failure path.
func (r *Remuxer) Export(ctx context.Context, job *queue.Job) error {
	destDir := filepath.Dir(job.DestPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &Error{Reason: ReasonIO, Err: services.Wrap(services.ErrValidation, "export", "prepare destination", "", err)}
	}

	// Temporary file in the destination directory so the final rename is
	// atomic on the same filesystem.
	tmpPath := filepath.Join(destDir, "."+uuid.NewString()+".bilicache"+filepath.Ext(job.DestPath))
	defer os.Remove(tmpPath)

	in := ffmpeg.Input{
		VideoPath: job.VideoPath,
		AudioPath: job.AudioPath,
		Container: strings.TrimPrefix(filepath.Ext(job.DestPath), "."),
	}
	ctx = services.WithStage(ctx, "remux")
	logger := logging.WithContext(ctx, r.logger).With(logging.String("title", job.Title))
	logger.Info("remux started",
		logging.String("quality", job.QualityLabel),
		logging.String("dest", job.DestPath))

	err := r.muxer.Remux(ctx, in, tmpPath, func(update ffmpeg.ProgressUpdate) {
		if update.OutTime > 0 {
			job.Progress = update.OutTime.Truncate(1e9).String()
		}
	})
	if err != nil {
		return r.classify(ctx, logger, err)
	}

	// ffmpeg can exit cleanly without writing a usable file; an empty
	// output never gets published.
	info, statErr := os.Stat(tmpPath)
	if statErr != nil || info.Size() == 0 {
		logger.Error("remux produced no output")
		return &Error{Reason: ReasonExternalTool, Err: services.Wrap(services.ErrExternalTool, "export", "remux", "output file missing or empty", statErr)}
	}

	if err := os.Rename(tmpPath, job.DestPath); err != nil {
		return &Error{Reason: ReasonIO, Err: services.Wrap(services.ErrValidation, "export", "publish output", "", err)}
	}

	if job.CoverPath != "" {
		coverDest := strings.TrimSuffix(job.DestPath, filepath.Ext(job.DestPath)) + filepath.Ext(job.CoverPath)
		if err := fileutil.CopyFile(job.CoverPath, coverDest); err != nil {
			// The video made it; a cover problem is not worth failing the job.
			logger.Warn("cover export failed", logging.Error(err))
		}
	}

	logger.Info("remux finished", logging.String("dest", job.DestPath))
	return nil
}

func (r *Remuxer) classify(ctx context.Context, logger *slog.Logger, err error) error {
	switch {
	case ctx.Err() != nil:
		return &Error{Reason: ReasonCancelled, Err: services.Wrap(services.ErrTransient, "export", "remux", "batch cancelled", ctx.Err())}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Reason: ReasonTimeout, Err: services.Wrap(services.ErrTimeout, "export", "remux", "ffmpeg exceeded remux timeout", err)}
	default:
		logger.Error("remux failed", logging.Error(err))
		return &Error{Reason: ReasonExternalTool, Err: services.Wrap(services.ErrExternalTool, "export", "remux", "", err)}
	}
}
