// Package jobs models the best-effort side channel of the import
// pipeline: usage-counter increments are dispatched as asynchronous
// jobs, decoupled from the ledger-consistency transaction boundary. A
// lost usage job never corrupts financial data.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeRecordUsage increments a business's imported-transaction counter.
	JobTypeRecordUsage JobType = "record_usage"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// RecordUsageJob asks the usage sink to add Count imported transactions
// to a business's running total.
type RecordUsageJob struct {
	JobID      string    `json:"job_id"`
	BusinessID string    `json:"business_id"`
	Count      int       `json:"count"`
	Status     JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *RecordUsageJob) GetID() string { return j.JobID }

// GetType implements the Job interface.
func (j *RecordUsageJob) GetType() JobType { return JobTypeRecordUsage }

// GetStatus implements the Job interface.
func (j *RecordUsageJob) GetStatus() JobStatus { return j.Status }

// Publisher publishes jobs to a queue. Implementations may be
// in-memory or a real broker; callers treat publishing as
// fire-and-forget and only log failures.
type Publisher interface {
	PublishRecordUsage(ctx context.Context, job *RecordUsageJob) error
	Close() error
}

// Consumer consumes jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs; handler is called for each one.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs.
	Stop(ctx context.Context) error
}

// JobHandler processes one job; returning an error requests a retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state across executions.
type JobStore interface {
	SaveJob(ctx context.Context, job *RecordUsageJob) error
	GetJob(ctx context.Context, jobID string) (*RecordUsageJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*RecordUsageJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	BusinessID string
	Status     JobStatus
	Limit      int
	Offset     int
}
