package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/onboardrag/core/internal/domain/ragModel"
	"github.com/onboardrag/core/internal/domain/ragerr"
)

type fakeStore struct {
	insertedDoc     ragModel.Document
	insertErr       error
	bulkInsertErr   error
	replaceErr      error
	bulkInsertCalls int
	replaceCalls    int
	lastChunks      []ragModel.Chunk
	docByID         map[string]ragModel.Document
}

func newFakeStore() *fakeStore {
	return &fakeStore{docByID: map[string]ragModel.Document{}}
}

func (s *fakeStore) InsertDocument(ctx context.Context, doc ragModel.Document) error {
	s.insertedDoc = doc
	s.docByID[doc.ID] = doc
	return s.insertErr
}

func (s *fakeStore) GetDocument(ctx context.Context, documentID string) (ragModel.Document, error) {
	doc, ok := s.docByID[documentID]
	if !ok {
		return ragModel.Document{}, errors.New("not found")
	}
	return doc, nil
}

func (s *fakeStore) BulkInsertChunks(ctx context.Context, documentID string, chunks []ragModel.Chunk) error {
	s.bulkInsertCalls++
	s.lastChunks = chunks
	return s.bulkInsertErr
}

func (s *fakeStore) ReplaceChunks(ctx context.Context, documentID string, chunks []ragModel.Chunk) error {
	s.replaceCalls++
	s.lastChunks = chunks
	return s.replaceErr
}

type fakeIndex struct {
	upsertCalls int
	deleteCalls int
	upsertErr   error
	deleteErr   error
}

func (i *fakeIndex) UpsertChunks(ctx context.Context, chunks []ragModel.Chunk) error {
	i.upsertCalls++
	return i.upsertErr
}

func (i *fakeIndex) DeleteDocument(ctx context.Context, documentID string) error {
	i.deleteCalls++
	return i.deleteErr
}

type fakeEmbedder struct {
	dim      int
	failFrom int // texts at or after this index fail
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []error) {
	vectors := make([][]float32, len(texts))
	errs := make([]error, len(texts))
	for i := range texts {
		if e.failFrom >= 0 && i >= e.failFrom {
			errs[i] = errors.New("embedding failed")
			continue
		}
		vectors[i] = make([]float32, e.dim)
	}
	return vectors, errs
}

const samplePolicyText = `Remote Work Policy

This document explains eligibility for remote work across the company.
Employees must coordinate with their manager before switching to a remote
schedule, and teams are expected to maintain core collaboration hours.

Equipment Requests

New hires can request a laptop and monitor through the IT portal within
their first week. Replacement requests follow the same process once a
device is more than three years old.`

func TestProcessDocument_StoresDocumentAndChunks(t *testing.T) {
	store := newFakeStore()
	index := &fakeIndex{}
	embedder := &fakeEmbedder{dim: 4, failFrom: -1}
	in := New(store, index, embedder, 40, 10)

	doc, err := in.ProcessDocument(context.Background(), []byte(samplePolicyText), "", "tag-1", "remote-work.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title == "" {
		t.Error("expected a derived title")
	}
	if doc.TagID != "tag-1" {
		t.Errorf("TagID = %q, want tag-1", doc.TagID)
	}
	if store.bulkInsertCalls != 1 {
		t.Fatalf("expected BulkInsertChunks to be called once, got %d", store.bulkInsertCalls)
	}
	if len(store.lastChunks) == 0 {
		t.Fatal("expected at least one chunk to be stored")
	}
	for _, c := range store.lastChunks {
		if c.DocumentID != doc.ID {
			t.Errorf("chunk DocumentID = %q, want %q", c.DocumentID, doc.ID)
		}
		if len(c.Embedding) != 4 {
			t.Errorf("chunk embedding dimension = %d, want 4", len(c.Embedding))
		}
	}
	if index.upsertCalls != 1 {
		t.Errorf("expected the ANN index to be upserted once, got %d", index.upsertCalls)
	}
}

func TestProcessDocument_TitleOverridesExtractedTitle(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{dim: 2, failFrom: -1}
	in := New(store, nil, embedder, 40, 10)

	doc, err := in.ProcessDocument(context.Background(), []byte(samplePolicyText), "Custom Title", "", "doc.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Custom Title" {
		t.Errorf("Title = %q, want %q", doc.Title, "Custom Title")
	}
}

func TestProcessDocument_NilIndexIsSkippedSafely(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{dim: 2, failFrom: -1}
	in := New(store, nil, embedder, 40, 10)

	if _, err := in.ProcessDocument(context.Background(), []byte(samplePolicyText), "", "", "doc.txt"); err != nil {
		t.Fatalf("unexpected error with a nil index: %v", err)
	}
}

func TestProcessDocument_PartialEmbeddingFailurePersistsSurvivorsWithWarning(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{dim: 2, failFrom: 2}
	in := New(store, nil, embedder, 40, 10)

	_, err := in.ProcessDocument(context.Background(), []byte(samplePolicyText), "", "", "doc.txt")
	if !ragerr.Is(err, ragerr.EmbeddingPartial) {
		t.Fatalf("expected an EmbeddingPartial error, got %v", err)
	}
	if store.bulkInsertCalls != 1 {
		t.Fatalf("expected the surviving chunks to be persisted, got %d insert calls", store.bulkInsertCalls)
	}
	if len(store.lastChunks) == 0 {
		t.Fatal("expected at least one surviving chunk to be stored")
	}
	for _, c := range store.lastChunks {
		if len(c.Embedding) == 0 {
			t.Error("persisted a chunk without an embedding")
		}
	}
}

func TestProcessDocument_EveryChunkFailingToEmbedIsAnError(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{dim: 2, failFrom: 0}
	in := New(store, nil, embedder, 40, 10)

	if _, err := in.ProcessDocument(context.Background(), []byte(samplePolicyText), "", "", "doc.txt"); err == nil {
		t.Fatal("expected an error when every chunk fails to embed")
	}
	if store.bulkInsertCalls != 0 {
		t.Error("expected BulkInsertChunks to be skipped when there are no embedded chunks")
	}
}

func TestProcessDocument_EmptyInputFailsExtraction(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{dim: 2, failFrom: -1}
	in := New(store, nil, embedder, 40, 10)

	if _, err := in.ProcessDocument(context.Background(), []byte("   \n\n "), "", "", "empty.txt"); err == nil {
		t.Fatal("expected an error for a document with no extractable text")
	}
}

func TestReprocessDocument_ReplacesChunksAndUpdatesIndex(t *testing.T) {
	store := newFakeStore()
	index := &fakeIndex{}
	embedder := &fakeEmbedder{dim: 2, failFrom: -1}
	in := New(store, index, embedder, 40, 10)

	doc := ragModel.Document{ID: "doc-1", Title: "Remote Work Policy", Text: samplePolicyText}
	store.docByID[doc.ID] = doc

	got, err := in.ReprocessDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != doc.ID {
		t.Errorf("ID = %q, want %q", got.ID, doc.ID)
	}
	if store.replaceCalls != 1 {
		t.Errorf("expected ReplaceChunks to be called once, got %d", store.replaceCalls)
	}
	if index.deleteCalls != 1 || index.upsertCalls != 1 {
		t.Errorf("expected the index to be cleared then re-upserted, got delete=%d upsert=%d", index.deleteCalls, index.upsertCalls)
	}
}

func TestReprocessDocument_UnknownDocumentPropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{dim: 2, failFrom: -1}
	in := New(store, nil, embedder, 40, 10)

	if _, err := in.ReprocessDocument(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for an unknown document id")
	}
}

func TestReprocessAllDocuments_ContinuesPastPerDocumentFailures(t *testing.T) {
	store := newFakeStore()
	good := ragModel.Document{ID: "good", Text: samplePolicyText}
	bad := ragModel.Document{ID: "bad", Text: "   "}
	store.docByID[good.ID] = good
	store.docByID[bad.ID] = bad

	embedder := &fakeEmbedder{dim: 2, failFrom: -1}
	in := New(store, nil, embedder, 40, 10)

	result := in.ReprocessAllDocuments(context.Background(), func(ctx context.Context) ([]ragModel.Document, error) {
		return []ragModel.Document{good, bad}, nil
	})
	if result.Processed != 1 || result.Errors != 1 {
		t.Errorf("ReprocessAllResult = %+v, want {Processed:1 Errors:1}", result)
	}
}

func TestReprocessAllDocuments_ListErrorReturnsEmptyResult(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{dim: 2, failFrom: -1}
	in := New(store, nil, embedder, 40, 10)

	result := in.ReprocessAllDocuments(context.Background(), func(ctx context.Context) ([]ragModel.Document, error) {
		return nil, errors.New("store unavailable")
	})
	if result.Processed != 0 || result.Errors != 0 {
		t.Errorf("expected a zero-valued result on list failure, got %+v", result)
	}
}
