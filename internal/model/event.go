// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventJobQueued      EventType = "JOB_QUEUED"
	EventJobStarted     EventType = "JOB_STARTED"
	EventJobCompleted   EventType = "JOB_COMPLETED"
	EventJobFailed      EventType = "JOB_FAILED"
	EventPrinterError   EventType = "PRINTER_ERROR"
	EventPrinterOnline  EventType = "PRINTER_ONLINE"
	EventPrinterOffline EventType = "PRINTER_OFFLINE"
)

// JobEvent represents one lifecycle event of a print job
type JobEvent struct {
	ID        uuid.UUID              `json:"id"`
	EventType EventType              `json:"event_type"`
	JobID     uuid.UUID              `json:"job_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Severity  string                 `json:"severity"` // INFO, WARNING, ERROR
}

// NewJobEvent creates an event for a job with the current timestamp
func NewJobEvent(eventType EventType, jobID uuid.UUID, severity string) *JobEvent {
	return &JobEvent{
		ID:        uuid.New(),
		EventType: eventType,
		JobID:     jobID,
		Timestamp: time.Now(),
		Severity:  severity,
	}
}
