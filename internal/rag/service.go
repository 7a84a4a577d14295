// Package rag is the orchestration facade the transport layer (HTTP
// handlers, the worker pool, the MCP server) depends on. It wires the
// Ingestor, Retriever, Answerer and Stats components behind a single
// Service, so callers only know the Service interface and never touch
// the domain packages directly.
package rag

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/onboardrag/core/internal/domain/jobModel"
	"github.com/onboardrag/core/internal/domain/ragModel"
	"github.com/onboardrag/core/internal/domain/ragerr"
	"github.com/onboardrag/core/internal/rag/answerer"
	"github.com/onboardrag/core/internal/rag/ingest"
	"github.com/onboardrag/core/internal/rag/stats"
	"github.com/onboardrag/core/internal/store/sqlitestore"
	"github.com/onboardrag/core/pkg/logger_i"
)

// Retriever is the subset of internal/rag/retriever a Service needs;
// kept here rather than imported so either backend (InProcess or ANN)
// satisfies it without this package caring which.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, minScore float64) ([]ragModel.RetrievalSource, error)
}

// Store is the subset of sqlitestore.Store this package needs beyond
// what Ingestor and Stats already take.
type Store interface {
	DeleteDocument(ctx context.Context, documentID string) error
	ListDocumentsWithStats(ctx context.Context) ([]sqlitestore.DocumentStats, error)
}

// Index mirrors a deleted document out of the optional ANN backend; a
// nil Index means no ANN mirror is configured.
type Index interface {
	DeleteDocument(ctx context.Context, documentID string) error
}

// Service is the single entry point the worker pool and HTTP handlers
// depend on. Ingestion is exposed both as a job-shaped call (for the
// async worker pool) and the underlying synchronous calls the job
// wraps; answering and stats are always synchronous.
type Service interface {
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	ReprocessDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	ReprocessAllDocuments(ctx context.Context, job jobModel.Job) jobModel.Job
	DeleteDocument(ctx context.Context, documentID string) error
	ListDocuments(ctx context.Context) ([]sqlitestore.DocumentStats, error)
	Answer(ctx context.Context, question, userID string) (ragModel.Answer, error)
	Stats(ctx context.Context) (stats.Summary, error)
}

type service struct {
	ingestor *ingest.Ingestor
	answerer *answerer.Answerer
	stats    *stats.Stats
	store    Store
	index    Index
	logger   *logger_i.Logger
}

func NewService(ingestor *ingest.Ingestor, ans *answerer.Answerer, st *stats.Stats, store Store, index Index) Service {
	return &service{
		ingestor: ingestor,
		answerer: ans,
		stats:    st,
		store:    store,
		index:    index,
		logger:   logger_i.NewLogger("rag_service"),
	}
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	started := time.Now()
	job.CurrentStep = jobModel.IngestExtract

	data, err := os.ReadFile(job.Payload.FilePath)
	if err != nil {
		return s.jobError(job, ragerr.New(ragerr.Internal, "could not read uploaded file", err))
	}
	defer os.Remove(job.Payload.FilePath)

	doc, err := s.ingestor.ProcessDocument(ctx, data, job.Payload.Title, job.Payload.TagID, job.Payload.Filename)
	warning := ""
	if err != nil {
		if !ragerr.Is(err, ragerr.EmbeddingPartial) {
			return s.jobError(job, err)
		}
		warning = err.Error()
	}

	job.Payload.Document = &doc
	job.Payload.Stats = jobModel.IngestStats{
		Seconds: time.Since(started).Seconds(),
		Pages:   doc.PageCount,
		Words:   doc.WordCount,
	}
	job.Payload.Warning = warning
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func (s *service) ReprocessDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	job.CurrentStep = jobModel.ReprocessInit
	doc, err := s.ingestor.ReprocessDocument(ctx, job.Payload.DocumentID)
	if err != nil {
		if !ragerr.Is(err, ragerr.EmbeddingPartial) {
			return s.jobError(job, err)
		}
		job.Payload.Warning = err.Error()
	}
	job.Payload.Document = &doc
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func (s *service) ReprocessAllDocuments(ctx context.Context, job jobModel.Job) jobModel.Job {
	job.CurrentStep = jobModel.ReprocessAllInit
	result := s.ingestor.ReprocessAllDocuments(ctx, s.listAllDocuments)
	job.Payload.AllStats = &jobModel.ReprocessAllResult{Processed: result.Processed, Errors: result.Errors}
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func (s *service) listAllDocuments(ctx context.Context) ([]ragModel.Document, error) {
	rows, err := s.store.ListDocumentsWithStats(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]ragModel.Document, len(rows))
	for i, r := range rows {
		docs[i] = r.Document
	}
	return docs, nil
}

func (s *service) DeleteDocument(ctx context.Context, documentID string) error {
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.DeleteDocument(ctx, documentID); err != nil {
			s.logger.Warn("ann index delete failed after store delete", "documentId", documentID, "error", err)
		}
	}
	return nil
}

func (s *service) ListDocuments(ctx context.Context) ([]sqlitestore.DocumentStats, error) {
	return s.store.ListDocumentsWithStats(ctx)
}

func (s *service) Answer(ctx context.Context, question, userID string) (ragModel.Answer, error) {
	log := s.logger.With("userId", userID)
	log.Debug("answering question")
	return s.answerer.Answer(ctx, question)
}

func (s *service) Stats(ctx context.Context) (stats.Summary, error) {
	return s.stats.Summarize(ctx)
}

func (s *service) jobError(job jobModel.Job, err error) jobModel.Job {
	s.logger.Error("job failed", "jobId", job.Id, "error", err)
	job.Error = jobModel.JobError{
		Code:    httpStatusFor(err),
		Message: err.Error(),
		Retry:   ragerr.KindOf(err) == ragerr.StoreError || ragerr.KindOf(err) == ragerr.ModelTransient,
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}

func httpStatusFor(err error) int {
	switch ragerr.KindOf(err) {
	case ragerr.ValidationError:
		return http.StatusBadRequest
	case ragerr.NotFound:
		return http.StatusNotFound
	case ragerr.ExtractFailed, ragerr.EmbeddingPartial:
		return http.StatusUnprocessableEntity
	case ragerr.ModelRateLimited, ragerr.ModelQueueFull:
		return http.StatusTooManyRequests
	case ragerr.ModelTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
