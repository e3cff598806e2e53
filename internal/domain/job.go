package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of an orchestrated job.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// IsTerminal returns true if the status represents a final state.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobKind identifies which workflow step a job belongs to.
type JobKind string

const (
	KindProvisionSite   JobKind = "provision-site"
	KindAnalyzeProduct  JobKind = "analyze-product"
	KindGenerateArticle JobKind = "generate-article"
	KindSyncPublish     JobKind = "sync-publish"
)

// IsValid checks if the job kind is one of the known workflow kinds.
func (k JobKind) IsValid() bool {
	switch k {
	case KindProvisionSite, KindAnalyzeProduct, KindGenerateArticle, KindSyncPublish:
		return true
	}
	return false
}

// Job is a unit of orchestrated work. Jobs are never deleted; the table
// doubles as an audit trail of every workflow execution.
type Job struct {
	JobID      uuid.UUID       `json:"job_id"`
	Kind       JobKind         `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status"`
	RetryCount int             `json:"retry_count"`
	LastError  string          `json:"last_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
