package stats

import (
	"context"
	"testing"
	"time"

	"github.com/onboardrag/core/internal/domain/ragModel"
	"github.com/onboardrag/core/internal/store/sqlitestore"
)

type mockStore struct {
	rows []sqlitestore.DocumentStats
	err  error
}

func (m *mockStore) ListDocumentsWithStats(ctx context.Context) ([]sqlitestore.DocumentStats, error) {
	return m.rows, m.err
}

func TestSummarize_EmptyCorpusIsNotReady(t *testing.T) {
	s := New(&mockStore{})
	summary, err := s.Summarize(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.IsReady {
		t.Fatal("expected empty corpus to not be ready")
	}
	if summary.TotalDocuments != 0 || summary.AverageChunksPerDoc != 0 {
		t.Fatalf("expected zero-valued summary, got %+v", summary)
	}
}

func TestSummarize_AggregatesAndReadiness(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rows := []sqlitestore.DocumentStats{
		{
			Document: ragModel.Document{
				Title:      "Handbook",
				WordCount:  1000,
				UploadedAt: now,
				Metadata:   ragModel.DocumentMetadata{DocumentType: ragModel.DocTypePolicy},
			},
			ChunkCount:          10,
			ChunksWithEmbedding: 10,
		},
		{
			Document: ragModel.Document{
				Title:      "Benefits Guide",
				WordCount:  500,
				UploadedAt: now.Add(time.Hour),
				Metadata:   ragModel.DocumentMetadata{DocumentType: ragModel.DocTypePolicy},
			},
			ChunkCount:          5,
			ChunksWithEmbedding: 0,
		},
	}

	s := New(&mockStore{rows: rows})
	summary, err := s.Summarize(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.TotalDocuments != 2 {
		t.Errorf("TotalDocuments = %d, want 2", summary.TotalDocuments)
	}
	if summary.TotalChunks != 15 {
		t.Errorf("TotalChunks = %d, want 15", summary.TotalChunks)
	}
	if summary.TotalWords != 1500 {
		t.Errorf("TotalWords = %d, want 1500", summary.TotalWords)
	}
	if summary.DocumentsWithEmbeddings != 1 {
		t.Errorf("DocumentsWithEmbeddings = %d, want 1", summary.DocumentsWithEmbeddings)
	}
	if summary.AverageChunksPerDoc != 7.5 {
		t.Errorf("AverageChunksPerDoc = %v, want 7.5", summary.AverageChunksPerDoc)
	}
	if !summary.IsReady {
		t.Error("expected corpus with at least one embedded document to be ready")
	}
	if summary.DocumentTypeCounts[ragModel.DocTypePolicy] != 2 {
		t.Errorf("DocumentTypeCounts[policy] = %d, want 2", summary.DocumentTypeCounts[ragModel.DocTypePolicy])
	}
	if len(summary.RecentUploads) != 2 || summary.RecentUploads[0].Title != "Benefits Guide" {
		t.Errorf("expected most recent upload first, got %+v", summary.RecentUploads)
	}
}

func TestSummarize_PropagatesStoreError(t *testing.T) {
	wantErr := context.DeadlineExceeded
	s := New(&mockStore{err: wantErr})
	if _, err := s.Summarize(context.Background()); err != wantErr {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}
