package dto

import (
	"time"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
)

// CreateJobResponse is returned by POST /jobs.
type CreateJobResponse struct {
	JobID string `json:"jobId"`
}

// OKResponse acknowledges page uploads, completion signals and internal
// pushes.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse carries a human-readable rejection message.
type ErrorResponse struct {
	Message string `json:"message"`
}

// JobResponse is the full job record plus the resolved result text, when
// one exists.
type JobResponse struct {
	ID               string  `json:"id"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
	OriginalFileName string  `json:"originalFileName"`
	TotalPages       *int    `json:"totalPages"`
	CurrentPage      int     `json:"currentPage"`
	Progress         float64 `json:"progress"`
	ResultPath       *string `json:"resultPath"`
	ErrorMessage     *string `json:"errorMessage"`
	Markdown         string  `json:"markdown"`
}

// NewJobResponse maps a job record onto the wire shape.
func NewJobResponse(job *domain.JobRecord, markdown string) JobResponse {
	return JobResponse{
		ID:               job.ID,
		Status:           string(job.Status),
		CreatedAt:        job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        job.UpdatedAt.Format(time.RFC3339),
		OriginalFileName: job.OriginalFileName,
		TotalPages:       job.TotalPages,
		CurrentPage:      job.CurrentPage,
		Progress:         job.Progress,
		ResultPath:       job.ResultPath,
		ErrorMessage:     job.ErrorMessage,
		Markdown:         markdown,
	}
}
