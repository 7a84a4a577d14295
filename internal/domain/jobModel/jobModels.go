// Package jobModel carries the async ingestion job shape processed by the
// worker pool (internal/worker). Only ingestion-family work travels
// through a Job: answering a question runs synchronously from its HTTP
// handler and never touches this package.
package jobModel

import (
	"context"
	"time"

	"github.com/onboardrag/core/internal/domain/ragModel"
)

type JobStatus string
type InternalStatus string
type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	IngestInit       InternalStatus = "IngestInit"
	IngestExtract    InternalStatus = "IngestExtract"
	IngestChunk      InternalStatus = "IngestChunk"
	IngestEmbed      InternalStatus = "IngestEmbed"
	IngestStore      InternalStatus = "IngestStore"
	ReprocessInit    InternalStatus = "ReprocessInit"
	ReprocessAllInit InternalStatus = "ReprocessAllInit"
	Complete         InternalStatus = "Complete"
	Error            InternalStatus = "Error"

	JobTypeIngest       JobType = "Ingest"
	JobTypeReprocess    JobType = "Reprocess"
	JobTypeReprocessAll JobType = "ReprocessAll"
)

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	Payload     JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// IngestStats mirrors the processing statistics returned alongside a
// Document once ingestion completes.
type IngestStats struct {
	Seconds float64 `json:"seconds"`
	Pages   int     `json:"pages"`
	Words   int     `json:"words"`
}

// ReprocessAllResult is the {processed, errors} summary returned from a
// reprocess-all run.
type ReprocessAllResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

type JobPayload struct {
	// Ingest input.
	Title      string `json:"title,omitempty"`
	TagID      string `json:"tag_id,omitempty"`
	Filename   string `json:"filename,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	DocumentID string `json:"document_id,omitempty"`

	// Ingest / reprocess output.
	Document *ragModel.Document  `json:"document,omitempty"`
	Stats    IngestStats         `json:"stats,omitempty"`
	Warning  string              `json:"warning,omitempty"`
	AllStats *ReprocessAllResult `json:"all_stats,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}
