package domain

import "time"

// JobStatus is the lifecycle state of a conversion job.
type JobStatus string

// Job status constants
const (
	JobStatusUploading JobStatus = "UPLOADING"
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusDone      JobStatus = "DONE"
	JobStatusFailed    JobStatus = "FAILED"
)

// transitions encodes the only legal edges of the job lifecycle:
// UPLOADING -> QUEUED -> RUNNING -> DONE, plus FAILED reachable from
// any non-terminal state.
var transitions = map[JobStatus][]JobStatus{
	JobStatusUploading: {JobStatusQueued, JobStatusFailed},
	JobStatusQueued:    {JobStatusRunning, JobStatusFailed},
	JobStatusRunning:   {JobStatusDone, JobStatusFailed},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusUploading, JobStatusQueued, JobStatusRunning, JobStatusDone, JobStatusFailed:
		return true
	}
	return false
}

// JobRecord is one document-conversion job as stored in the jobs table.
type JobRecord struct {
	ID               string    `db:"id"`
	Status           JobStatus `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
	OriginalFileName string    `db:"original_file_name"`
	TotalPages       *int      `db:"total_pages"`
	CurrentPage      int       `db:"current_page"`
	Progress         float64   `db:"progress"`
	ResultPath       *string   `db:"result_path"`
	ErrorMessage     *string   `db:"error_message"`
}

// JobPatch is a partial update to a job record. Nil fields are left
// untouched; updated_at is always refreshed when a patch is applied.
// The same shape travels over the internal status-push endpoint, so the
// JSON field names match the wire contract.
type JobPatch struct {
	Status       *JobStatus `json:"status,omitempty"`
	TotalPages   *int       `json:"totalPages,omitempty"`
	CurrentPage  *int       `json:"currentPage,omitempty"`
	Progress     *float64   `json:"progress,omitempty"`
	ResultPath   *string    `json:"resultPath,omitempty"`
	ErrorMessage *string    `json:"errorMessage,omitempty"`
}

// IsEmpty reports whether the patch carries no fields.
func (p *JobPatch) IsEmpty() bool {
	return p.Status == nil && p.TotalPages == nil && p.CurrentPage == nil &&
		p.Progress == nil && p.ResultPath == nil && p.ErrorMessage == nil
}

// Helpers for building patches without local pointer plumbing.

func StatusPtr(s JobStatus) *JobStatus { return &s }
func IntPtr(v int) *int                { return &v }
func Float64Ptr(v float64) *float64    { return &v }
func StringPtr(v string) *string       { return &v }
