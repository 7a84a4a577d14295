package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onboardrag/core/internal/config"
	"github.com/onboardrag/core/internal/domain/jobModel"
	"github.com/onboardrag/core/internal/job"
	"github.com/onboardrag/core/internal/metrics"
	"github.com/onboardrag/core/internal/rag"
	"github.com/onboardrag/core/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

// newJobData carries everything needed to construct an ingest-family Job
// across the handler boundary, before it reaches the job channel.
type newJobData struct {
	id         string
	traceId    string
	jobType    jobModel.JobType
	title      string
	tagId      string
	filename   string
	filePath   string
	documentId string
}

type JobHandler struct {
	service    *job.Service
	ragService rag.Service
}

func InitJobHandler(jobService *job.Service, ragService rag.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, ragService: ragService}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})
}

func CreateNewJob(newJob newJobData) {
	logJH.With("traceId", newJob.traceId, "job id", newJob.id)
	logJH.Info("To create new job", "jobType", newJob.jobType)
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// RagService exposes the synchronous query/admin surface (Answer, Stats,
// DeleteDocument, ListDocuments) to the request handlers, which never
// touch the job channel for these operations.
func RagService() rag.Service {
	return handlerInstance.ragService
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {
	_job := jobModel.Job{
		Id:          newJob.id,
		CreatedTime: time.Now(),
		TraceId:     newJob.traceId,
		Status:      jobModel.JobStatusQueued,
		JobType:     newJob.jobType,
	}

	switch newJob.jobType {
	case jobModel.JobTypeIngest:
		_job.CurrentStep = jobModel.IngestInit
		_job.Payload.Title = newJob.title
		_job.Payload.TagID = newJob.tagId
		_job.Payload.Filename = newJob.filename
		_job.Payload.FilePath = newJob.filePath
	case jobModel.JobTypeReprocess:
		_job.CurrentStep = jobModel.ReprocessInit
		_job.Payload.DocumentID = newJob.documentId
	case jobModel.JobTypeReprocessAll:
		_job.CurrentStep = jobModel.ReprocessAllInit
	}

	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new job", "jobId", _job.Id, "jobType", _job.JobType)

	//every job on this channel is ingest-family and can take minutes
	//(PDF extraction plus rate-limited embedding), so the dispatcher is
	//signaled on every enqueue rather than every Nth request
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	metrics.StartDispatcherSignalCount()
	logJH.Debug("Worker count ", accurateCount)
	h.service.DispatcherChannel <- true
}
