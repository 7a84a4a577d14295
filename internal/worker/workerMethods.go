package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/onboardrag/core/internal/config"
	jobmodel "github.com/onboardrag/core/internal/domain/jobModel"
	"github.com/onboardrag/core/internal/metrics"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.IngestJobTimeout)
	defer cancel()

	jobLogger := logger.With("traceId", job.TraceId, "jobId", job.Id)
	jobLogger.Debug("processing job", "jobType", job.JobType)

	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	switch job.JobType {
	case jobmodel.JobTypeIngest:
		job = _ragService.IngestDocument(ctx, job)
	case jobmodel.JobTypeReprocess:
		job = _ragService.ReprocessDocument(ctx, job)
	case jobmodel.JobTypeReprocessAll:
		job = _ragService.ReprocessAllDocuments(ctx, job)
	default:
		jobLogger.Error("unknown job type, discarding", "jobType", job.JobType)
		job.Status = jobmodel.JobStatusError
		job.Error = jobmodel.JobError{Message: "unknown job type"}
	}

	job.EndTime = time.Now()
	saveJobState(ctx, job, job.Status)
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("removed worker", "reason", reason, "workerCount", currentWorkerCount)
	metrics.DecrementActiveWorkerCount()
}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("failed to persist job state", "jobId", job.Id, "err", err)
	}
}
