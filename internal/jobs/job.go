// Package jobs runs asynchronous work for the server: an in-memory
// manager tracks job records while a bounded worker pool executes them.
package jobs

import (
	"context"
	"time"
)

// Job is the interface that all job types must implement.
type Job interface {
	// Type returns the job type identifier.
	Type() string

	// Execute runs the job. It should respect context cancellation.
	Execute(ctx context.Context) error

	// Status returns the current status of the job as key-value pairs.
	// Returns nil map if no status to report.
	Status(ctx context.Context) (map[string]string, error)
}

// Status represents the current state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record represents a tracked job.
type Record struct {
	ID          string            `json:"id"`
	JobType     string            `json:"job_type"`
	Status      Status            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Error       string            `json:"error,omitempty"`
	Progress    map[string]string `json:"progress,omitempty"`
}
