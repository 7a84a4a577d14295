// Package stats aggregates over the Store for corpus readiness and
// basic analytics: total documents/chunks/words, how many documents
// have at least one embedded chunk, the document-type distribution,
// and the most recent uploads.
package stats

import (
	"context"
	"sort"

	"github.com/onboardrag/core/internal/domain/ragModel"
	"github.com/onboardrag/core/internal/store/sqlitestore"
)

// Store is the subset of sqlitestore.Store this package needs.
type Store interface {
	ListDocumentsWithStats(ctx context.Context) ([]sqlitestore.DocumentStats, error)
}

const recentUploadsLimit = 5

type Summary struct {
	TotalDocuments          int
	TotalChunks             int
	TotalWords              int
	DocumentsWithEmbeddings int
	AverageChunksPerDoc     float64
	DocumentTypeCounts      map[ragModel.DocumentType]int
	RecentUploads           []ragModel.Document
	IsReady                 bool
}

type Stats struct {
	store Store
}

func New(store Store) *Stats {
	return &Stats{store: store}
}

// Summarize scans every document once and folds the aggregates in a
// single pass; ListDocumentsWithStats already orders by upload time
// descending so the recent-uploads slice is just the head of the list.
func (s *Stats) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.store.ListDocumentsWithStats(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		DocumentTypeCounts: make(map[ragModel.DocumentType]int),
	}
	for i, row := range rows {
		summary.TotalDocuments++
		summary.TotalChunks += row.ChunkCount
		summary.TotalWords += row.Document.WordCount
		if row.ChunksWithEmbedding > 0 {
			summary.DocumentsWithEmbeddings++
		}
		summary.DocumentTypeCounts[row.Document.Metadata.DocumentType]++
		if i < recentUploadsLimit {
			summary.RecentUploads = append(summary.RecentUploads, row.Document)
		}
	}
	if summary.TotalDocuments > 0 {
		summary.AverageChunksPerDoc = float64(summary.TotalChunks) / float64(summary.TotalDocuments)
	}
	summary.IsReady = summary.DocumentsWithEmbeddings > 0

	sort.Slice(summary.RecentUploads, func(i, j int) bool {
		return summary.RecentUploads[i].UploadedAt.After(summary.RecentUploads[j].UploadedAt)
	})
	return summary, nil
}
