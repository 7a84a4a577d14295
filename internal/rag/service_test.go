package rag

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/onboardrag/core/internal/domain/jobModel"
	"github.com/onboardrag/core/internal/domain/ragModel"
	"github.com/onboardrag/core/internal/domain/ragerr"
	"github.com/onboardrag/core/internal/rag/answerer"
	"github.com/onboardrag/core/internal/rag/ingest"
	"github.com/onboardrag/core/internal/rag/stats"
	"github.com/onboardrag/core/internal/store/sqlitestore"
)

type fakeIngestStore struct {
	docByID map[string]ragModel.Document
}

func newFakeIngestStore() *fakeIngestStore {
	return &fakeIngestStore{docByID: map[string]ragModel.Document{}}
}

func (s *fakeIngestStore) InsertDocument(ctx context.Context, doc ragModel.Document) error {
	s.docByID[doc.ID] = doc
	return nil
}
func (s *fakeIngestStore) GetDocument(ctx context.Context, id string) (ragModel.Document, error) {
	doc, ok := s.docByID[id]
	if !ok {
		return ragModel.Document{}, errors.New("not found")
	}
	return doc, nil
}
func (s *fakeIngestStore) BulkInsertChunks(ctx context.Context, id string, chunks []ragModel.Chunk) error {
	return nil
}
func (s *fakeIngestStore) ReplaceChunks(ctx context.Context, id string, chunks []ragModel.Chunk) error {
	return nil
}

type fakeEmbedder struct{ fail bool }

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []error) {
	vectors := make([][]float32, len(texts))
	errs := make([]error, len(texts))
	for i := range texts {
		if e.fail {
			errs[i] = errors.New("embed failed")
			continue
		}
		vectors[i] = []float32{0.1, 0.2}
	}
	return vectors, errs
}

type fakeRetriever struct{}

func (fakeRetriever) Retrieve(ctx context.Context, query string, topK int, minScore float64) ([]ragModel.RetrievalSource, error) {
	return nil, nil
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(ctx context.Context, systemInstructions, userPrompt string, temperature float64, maxOutputTokens int) (string, error) {
	return "", nil
}

type fakeStatsStore struct {
	rows []sqlitestore.DocumentStats
	err  error
}

func (s *fakeStatsStore) ListDocumentsWithStats(ctx context.Context) ([]sqlitestore.DocumentStats, error) {
	return s.rows, s.err
}

type fakeServiceStore struct {
	deletedID string
	deleteErr error
	listRows  []sqlitestore.DocumentStats
	listErr   error
}

func (s *fakeServiceStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.deletedID = documentID
	return s.deleteErr
}
func (s *fakeServiceStore) ListDocumentsWithStats(ctx context.Context) ([]sqlitestore.DocumentStats, error) {
	return s.listRows, s.listErr
}

type fakeServiceIndex struct {
	deletedID string
	deleteErr error
}

func (i *fakeServiceIndex) DeleteDocument(ctx context.Context, documentID string) error {
	i.deletedID = documentID
	return i.deleteErr
}

func newTestService(t *testing.T, embedFails bool) (*service, *fakeServiceStore, *fakeServiceIndex) {
	t.Helper()
	ingestStore := newFakeIngestStore()
	ingestor := ingest.New(ingestStore, nil, &fakeEmbedder{fail: embedFails}, 200, 20)
	ans := answerer.New(fakeRetriever{}, fakeGenerator{}, answerer.Config{
		EmptyRetrievalFallback: "no relevant information found",
		TopK:                   5,
		MinRelevanceScore:      0.3,
	})
	st := stats.New(&fakeStatsStore{})
	svcStore := &fakeServiceStore{}
	svcIndex := &fakeServiceIndex{}
	svc := NewService(ingestor, ans, st, svcStore, svcIndex).(*service)
	return svc, svcStore, svcIndex
}

func writeTempUpload(t *testing.T, text string) string {
	t.Helper()
	f, err := os.CreateTemp("", "upload-*.txt")
	if err != nil {
		t.Fatalf("could not create temp upload file: %v", err)
	}
	if _, err := f.WriteString(text); err != nil {
		t.Fatalf("could not write temp upload file: %v", err)
	}
	f.Close()
	return f.Name()
}

const sampleUpload = `Benefits Guide

This guide explains health, dental and retirement benefits available
to every employee starting on their first day.`

func TestIngestDocument_Success(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	path := writeTempUpload(t, sampleUpload)

	job := jobModel.Job{
		Id:      "job-1",
		JobType: jobModel.JobTypeIngest,
		Payload: jobModel.JobPayload{FilePath: path, Filename: "benefits.txt"},
	}
	result := svc.IngestDocument(context.Background(), job)

	if result.Status != jobModel.JobStatusComplete {
		t.Fatalf("Status = %q, want %q (error: %+v)", result.Status, jobModel.JobStatusComplete, result.Error)
	}
	if result.Payload.Document == nil {
		t.Fatal("expected the ingested document to be attached to the job payload")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected the uploaded temp file to be removed after ingestion")
	}
}

func TestIngestDocument_MissingFileIsInternalError(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	job := jobModel.Job{
		Id:      "job-2",
		Payload: jobModel.JobPayload{FilePath: "/nonexistent/path/does-not-exist.txt"},
	}
	result := svc.IngestDocument(context.Background(), job)
	if result.Status != jobModel.JobStatusError {
		t.Fatalf("Status = %q, want %q", result.Status, jobModel.JobStatusError)
	}
	if result.Error.Retry {
		t.Error("expected an unreadable-file error to not be marked retryable")
	}
}

func TestIngestDocument_EveryChunkFailingToEmbedIsJobError(t *testing.T) {
	svc, _, _ := newTestService(t, true)
	path := writeTempUpload(t, sampleUpload)

	job := jobModel.Job{
		Id:      "job-3",
		Payload: jobModel.JobPayload{FilePath: path, Filename: "benefits.txt"},
	}
	result := svc.IngestDocument(context.Background(), job)
	if result.Status != jobModel.JobStatusError {
		t.Fatalf("expected every-chunk-fails-to-embed to surface as a job error, got %q", result.Status)
	}
}

func TestDeleteDocument_PropagatesToIndex(t *testing.T) {
	svc, store, index := newTestService(t, false)
	if err := svc.DeleteDocument(context.Background(), "doc-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.deletedID != "doc-9" {
		t.Errorf("store.deletedID = %q, want doc-9", store.deletedID)
	}
	if index.deletedID != "doc-9" {
		t.Errorf("index.deletedID = %q, want doc-9", index.deletedID)
	}
}

func TestDeleteDocument_StoreErrorSkipsIndex(t *testing.T) {
	svc, store, index := newTestService(t, false)
	store.deleteErr = errors.New("store unavailable")

	if err := svc.DeleteDocument(context.Background(), "doc-9"); err == nil {
		t.Fatal("expected the store error to propagate")
	}
	if index.deletedID != "" {
		t.Error("expected the index delete to be skipped when the store delete fails")
	}
}

func TestDeleteDocument_IndexErrorIsNonFatal(t *testing.T) {
	svc, _, index := newTestService(t, false)
	index.deleteErr = errors.New("ann unavailable")

	if err := svc.DeleteDocument(context.Background(), "doc-9"); err != nil {
		t.Fatalf("expected an index delete failure to not fail the call, got %v", err)
	}
}

func TestHTTPStatusFor(t *testing.T) {
	cases := []struct {
		kind ragerr.Kind
		want int
	}{
		{ragerr.ValidationError, 400},
		{ragerr.NotFound, 404},
		{ragerr.ExtractFailed, 422},
		{ragerr.EmbeddingPartial, 422},
		{ragerr.ModelRateLimited, 429},
		{ragerr.ModelQueueFull, 429},
		{ragerr.ModelTimeout, 504},
		{ragerr.Internal, 500},
	}
	for _, tc := range cases {
		err := ragerr.New(tc.kind, "boom", nil)
		if got := httpStatusFor(err); got != tc.want {
			t.Errorf("httpStatusFor(%v) = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestJobError_MarksTransientAndStoreErrorsRetryable(t *testing.T) {
	svc, _, _ := newTestService(t, false)

	retryable := svc.jobError(jobModel.Job{}, ragerr.New(ragerr.ModelTransient, "temporary", nil))
	if !retryable.Error.Retry {
		t.Error("expected a ModelTransient error to be retryable")
	}

	notRetryable := svc.jobError(jobModel.Job{}, ragerr.New(ragerr.ValidationError, "bad input", nil))
	if notRetryable.Error.Retry {
		t.Error("expected a ValidationError to not be retryable")
	}
}

func TestListDocuments_DelegatesToStore(t *testing.T) {
	svc, store, _ := newTestService(t, false)
	store.listRows = []sqlitestore.DocumentStats{{Document: ragModel.Document{ID: "d1"}}}

	rows, err := svc.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Document.ID != "d1" {
		t.Errorf("ListDocuments() = %+v", rows)
	}
}

func TestAnswer_DelegatesToAnswerer(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	answer, err := svc.Answer(context.Background(), "what are the benefits?", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Text != "no relevant information found" {
		t.Errorf("Text = %q, want the empty-retrieval fallback", answer.Text)
	}
}

func TestStats_DelegatesToStatsSummarizer(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	summary, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.IsReady {
		t.Error("expected an empty corpus to not be ready")
	}
}
