package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bilicache/internal/config"
	"bilicache/internal/services"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id TEXT NOT NULL,
	entry_dir TEXT NOT NULL,
	title TEXT NOT NULL,
	bvid TEXT,
	quality_id INTEGER NOT NULL DEFAULT 0,
	quality_label TEXT,
	video_path TEXT,
	audio_path TEXT,
	cover_path TEXT,
	dest_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_reason TEXT,
	error_detail TEXT,
	progress TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_batch ON jobs(batch_id);
`

// Store persists export jobs in a SQLite database under the log directory.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the job database for the given configuration.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("configuration required")
	}
	dbPath := filepath.Join(cfg.Paths.LogDir, "jobs.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "queue", "open store", "create database directory", err)
	}
	return OpenPath(ctx, dbPath)
}

// OpenPath opens the job database at an explicit path.
func OpenPath(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "queue", "open store", "open database", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, services.Wrap(services.ErrConfiguration, "queue", "open store", "ping database", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, services.Wrap(services.ErrConfiguration, "queue", "open store", "apply schema", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

const jobColumns = `id, batch_id, entry_dir, title, bvid, quality_id, quality_label,
video_path, audio_path, cover_path, dest_path, status, error_reason, error_detail,
progress, created_at, updated_at`

// NewJob inserts a pending job and fills in its identifier and timestamps.
func (s *Store) NewJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job required")
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = StatusPending
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO jobs (batch_id, entry_dir, title, bvid, quality_id, quality_label,
video_path, audio_path, cover_path, dest_path, status, error_reason, error_detail,
progress, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.BatchID, job.EntryDir, job.Title, nullableString(job.BVID),
		job.QualityID, nullableString(job.QualityLabel),
		nullableString(job.VideoPath), nullableString(job.AudioPath),
		nullableString(job.CoverPath), job.DestPath, string(job.Status),
		nullableString(job.ErrorReason), nullableString(job.ErrorDetail),
		nullableString(job.Progress),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return services.Wrap(services.ErrTransient, "queue", "insert job", "", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return services.Wrap(services.ErrTransient, "queue", "insert job", "read identifier", err)
	}
	job.ID = id
	return nil
}

// Update persists the mutable fields of a job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil || job.ID == 0 {
		return errors.New("persisted job required")
	}
	job.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
UPDATE jobs SET status = ?, error_reason = ?, error_detail = ?, progress = ?,
dest_path = ?, updated_at = ? WHERE id = ?`,
		string(job.Status), nullableString(job.ErrorReason),
		nullableString(job.ErrorDetail), nullableString(job.Progress),
		job.DestPath, job.UpdatedAt.Format(time.RFC3339Nano), job.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "queue", "update job", "", err)
	}
	return nil
}

// GetByID fetches one job. It returns services.ErrNotFound when the
// identifier is unknown.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "queue", "get job", fmt.Sprintf("job %d", id), err)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "queue", "get job", "", err)
	}
	return job, nil
}

// List returns jobs, newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "queue", "list jobs", "", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "queue", "list jobs", "scan row", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "queue", "list jobs", "iterate rows", err)
	}
	return jobs, nil
}

// ListBatch returns the jobs of one batch in planning order.
func (s *Store) ListBatch(ctx context.Context, batchID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE batch_id = ? ORDER BY id ASC`, batchID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "queue", "list batch", "", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "queue", "list batch", "scan row", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats counts jobs per status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return Stats{}, services.Wrap(services.ErrTransient, "queue", "job stats", "", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, services.Wrap(services.ErrTransient, "queue", "job stats", "scan row", err)
		}
		switch Status(status) {
		case StatusPending:
			stats.Pending = count
		case StatusRunning:
			stats.Running = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// ResetStuckRunning marks jobs left in the running state by an interrupted
// process as failed. It returns the number of jobs reset.
func (s *Store) ResetStuckRunning(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE jobs SET status = ?, error_reason = 'INTERRUPTED',
error_detail = 'process exited while job was running', updated_at = ?
WHERE status = ?`,
		string(StatusFailed), time.Now().UTC().Format(time.RFC3339Nano), string(StatusRunning))
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "queue", "reset stuck jobs", "", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes jobs in terminal states.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	args := make([]any, 0, len(TerminalStatuses))
	for _, status := range TerminalStatuses {
		args = append(args, string(status))
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE status IN (`+makePlaceholders(len(args))+`)`, args...)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "queue", "clear jobs", "", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var bvid, qualityLabel, videoPath, audioPath, coverPath sql.NullString
	var errorReason, errorDetail, progress sql.NullString
	var status, createdAt, updatedAt string

	err := row.Scan(&job.ID, &job.BatchID, &job.EntryDir, &job.Title, &bvid,
		&job.QualityID, &qualityLabel, &videoPath, &audioPath, &coverPath,
		&job.DestPath, &status, &errorReason, &errorDetail, &progress,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	job.BVID = bvid.String
	job.QualityLabel = qualityLabel.String
	job.VideoPath = videoPath.String
	job.AudioPath = audioPath.String
	job.CoverPath = coverPath.String
	job.ErrorReason = errorReason.String
	job.ErrorDetail = errorDetail.String
	job.Progress = progress.String
	job.Status = Status(status)
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &job, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
