package queue

import "time"

// Status represents the lifecycle state of an export job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// TerminalStatuses are the states a job can finish in.
var TerminalStatuses = []Status{StatusCompleted, StatusFailed}

// IsTerminal reports whether the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one planned export: a single cache variant remuxed to a single
// destination file. Jobs belong to a batch identified by BatchID.
type Job struct {
	ID           int64
	BatchID      string
	EntryDir     string
	Title        string
	BVID         string
	QualityID    int
	QualityLabel string
	VideoPath    string
	AudioPath    string
	CoverPath    string
	DestPath     string
	Status       Status
	ErrorReason  string
	ErrorDetail  string
	Progress     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Stats summarises jobs by status.
type Stats struct {
	Pending   int
	Running   int
	Completed int
	Failed    int
}

// Total returns the job count across all states.
func (s Stats) Total() int {
	return s.Pending + s.Running + s.Completed + s.Failed
}
