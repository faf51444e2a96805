// internal/model/job.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents where a print job is in its lifecycle
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusPrinting  JobStatus = "PRINTING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// PrintJob represents one descriptor submitted for printing
type PrintJob struct {
	ID          uuid.UUID  `json:"id"`
	Status      JobStatus  `json:"status"`
	Pages       int        `json:"pages"`
	BytesSent   int        `json:"bytes_sent"`
	Target      string     `json:"target,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsFinished checks if the job reached a terminal state
func (j *PrintJob) IsFinished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Duration returns how long the job ran, zero while unfinished
func (j *PrintJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}
