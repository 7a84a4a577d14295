package adapter

import (
	"github.com/onboardrag/core/internal/api"
	"github.com/onboardrag/core/internal/domain/ragModel"
	"github.com/onboardrag/core/internal/rag/stats"
	"github.com/onboardrag/core/internal/store/sqlitestore"
)

// ToQueryResponse maps a synchronous Answer into the query interface
// contract's response shape, including the sourceCount/avg/top
// aggregates derived from the sources themselves.
func ToQueryResponse(answer ragModel.Answer) api.QueryResponse {
	sources := make([]api.SourceResponse, len(answer.Sources))
	var total, top float64
	for i, src := range answer.Sources {
		sources[i] = api.SourceResponse{
			ChunkId:        src.ChunkID,
			DocumentId:     src.DocumentID,
			DocumentTitle:  src.DocumentTitle,
			ChunkIndex:     src.ChunkIndex,
			RelevanceScore: src.RelevanceScore,
			Excerpt:        src.Excerpt(),
			Metadata: api.SourceMetadata{
				Author:       src.Metadata.DocumentAuthor,
				DocumentType: string(src.Metadata.DocumentType),
			},
		}
		total += src.RelevanceScore
		if src.RelevanceScore > top {
			top = src.RelevanceScore
		}
	}

	var avg float64
	if len(answer.Sources) > 0 {
		avg = total / float64(len(answer.Sources))
	}

	return api.QueryResponse{
		Answer:              answer.Text,
		Confidence:          answer.Confidence,
		Cached:              answer.Cached,
		ResponseTimeSeconds: answer.ResponseTimeSeconds,
		Sources:             sources,
		Metadata: api.QueryMetadata{
			SourceCount:       len(answer.Sources),
			AvgRelevanceScore: avg,
			TopRelevanceScore: top,
		},
	}
}

// ToStatsResponse maps the internal Summary to its wire shape, rendering
// the document-type enum keys as plain strings and the recent uploads as
// their titles.
func ToStatsResponse(summary stats.Summary) api.StatsResponse {
	counts := make(map[string]int, len(summary.DocumentTypeCounts))
	for docType, n := range summary.DocumentTypeCounts {
		counts[string(docType)] = n
	}
	recent := make([]string, len(summary.RecentUploads))
	for i, doc := range summary.RecentUploads {
		recent[i] = doc.Title
	}

	return api.StatsResponse{
		TotalDocuments:          summary.TotalDocuments,
		TotalChunks:             summary.TotalChunks,
		TotalWords:              summary.TotalWords,
		DocumentsWithEmbeddings: summary.DocumentsWithEmbeddings,
		AverageChunksPerDoc:     summary.AverageChunksPerDoc,
		DocumentTypeCounts:      counts,
		RecentUploads:           recent,
		IsReady:                 summary.IsReady,
	}
}

// ToDocumentList maps the admin listing scan into its wire shape.
func ToDocumentList(rows []sqlitestore.DocumentStats) []api.DocumentListEntry {
	out := make([]api.DocumentListEntry, len(rows))
	for i, row := range rows {
		out[i] = api.DocumentListEntry{
			Id:         row.Document.ID,
			Title:      row.Document.Title,
			TagId:      row.Document.TagID,
			ChunkCount: row.ChunkCount,
			UploadedAt: row.Document.UploadedAt,
		}
	}
	return out
}
