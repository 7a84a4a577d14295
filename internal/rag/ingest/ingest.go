// Package ingest turns an uploaded document into stored, embedded
// chunks. It is the synchronous core behind the async job types in
// internal/job/internal/worker: every exported method here runs start
// to finish inside one call, with no job-queue awareness of its own.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onboardrag/core/internal/config"
	"github.com/onboardrag/core/internal/domain/ragModel"
	"github.com/onboardrag/core/internal/domain/ragerr"
	"github.com/onboardrag/core/internal/rag/chunker"
	"github.com/onboardrag/core/internal/rag/extractor"
	"github.com/onboardrag/core/pkg/logger_i"
)

// Embedder is the subset of internal/rag/embedder's Embedder this
// package depends on.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, []error)
}

// Store is the subset of the persistence layer ingestion needs.
type Store interface {
	InsertDocument(ctx context.Context, doc ragModel.Document) error
	GetDocument(ctx context.Context, documentID string) (ragModel.Document, error)
	BulkInsertChunks(ctx context.Context, documentID string, chunks []ragModel.Chunk) error
	ReplaceChunks(ctx context.Context, documentID string, chunks []ragModel.Chunk) error
}

// Index mirrors chunk writes into the optional ANN backend; a nil
// Index means the in-process retriever is the only consumer of the
// Store's chunk rows.
type Index interface {
	UpsertChunks(ctx context.Context, chunks []ragModel.Chunk) error
	DeleteDocument(ctx context.Context, documentID string) error
}

type Ingestor struct {
	store             Store
	index             Index
	embedder          Embedder
	logger            *logger_i.Logger
	chunkSizeTokens   int
	overlapSizeTokens int
}

func New(store Store, index Index, embedder Embedder, chunkSizeTokens, overlapSizeTokens int) *Ingestor {
	return &Ingestor{
		store:             store,
		index:             index,
		embedder:          embedder,
		logger:            logger_i.NewLogger("ingest"),
		chunkSizeTokens:   chunkSizeTokens,
		overlapSizeTokens: overlapSizeTokens,
	}
}

// ProcessDocument extracts, chunks, embeds and stores a newly uploaded
// PDF (or docx/txt/rtf). title, if non-empty, wins over whatever the
// extractor found; tagID/filename are caller-optional.
func (in *Ingestor) ProcessDocument(ctx context.Context, data []byte, title, tagID, filename string) (ragModel.Document, error) {
	started := time.Now()

	result, err := in.extract(data, filename)
	if err != nil {
		return ragModel.Document{}, err
	}

	docTitle := firstNonEmpty(title, result.Title, deriveTitleFromFilename(filename), config.UntitledDocumentFallback)
	docID := uuid.NewString()

	doc := ragModel.Document{
		ID:         docID,
		Title:      docTitle,
		Author:     firstNonEmpty(result.Author, filename),
		TagID:      tagID,
		Text:       result.Text,
		PageCount:  result.PageCount,
		WordCount:  result.WordCount,
		UploadedAt: started,
		Metadata:   result.Metadata,
	}
	if err := in.store.InsertDocument(ctx, doc); err != nil {
		return ragModel.Document{}, err
	}

	if err := in.chunkEmbedStore(ctx, doc); err != nil {
		return doc, err
	}

	in.logger.Info("document ingested", "documentId", docID, "pages", doc.PageCount, "words", doc.WordCount, "seconds", time.Since(started).Seconds())
	return doc, nil
}

// ReprocessDocument re-chunks and re-embeds a document's already
// stored text, atomically replacing its chunk set. It is idempotent:
// running it twice in a row produces the same chunk boundaries both
// times, since chunking is a pure function of the stored text.
func (in *Ingestor) ReprocessDocument(ctx context.Context, documentID string) (ragModel.Document, error) {
	doc, err := in.store.GetDocument(ctx, documentID)
	if err != nil {
		return ragModel.Document{}, err
	}
	if err := in.chunkEmbedReplace(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// ReprocessAllResult is the {processed, errors} summary a batch
// reprocess reports; one document's failure never aborts the rest.
type ReprocessAllResult struct {
	Processed int
	Errors    int
}

func (in *Ingestor) ReprocessAllDocuments(ctx context.Context, list func(ctx context.Context) ([]ragModel.Document, error)) ReprocessAllResult {
	docs, err := list(ctx)
	if err != nil {
		in.logger.Error("reprocess-all could not list documents", "error", err)
		return ReprocessAllResult{}
	}

	var result ReprocessAllResult
	for _, doc := range docs {
		if err := in.chunkEmbedReplace(ctx, doc); err != nil && !ragerr.Is(err, ragerr.EmbeddingPartial) {
			in.logger.Warn("reprocess failed for document", "documentId", doc.ID, "error", err)
			result.Errors++
			continue
		}
		result.Processed++
	}
	return result
}

func (in *Ingestor) extract(data []byte, filename string) (extractor.Result, error) {
	if looksLikePDF(data) {
		return extractor.ExtractPDF(data, filename)
	}
	return extractor.ExtractOther(data, filename)
}

func looksLikePDF(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == "%PDF"
}

// chunkEmbedStore chunks doc.Text, embeds each chunk, and bulk-inserts
// only the chunks that embedded successfully. A chunk that failed to
// embed is dropped rather than stored with a nil embedding, so the
// retriever never has to special-case embeddingless rows beyond the
// "embedding IS NOT NULL" scan it already performs. When some but not
// all chunks embed, the successful ones are persisted and an
// EmbeddingPartial error is returned so callers can surface the warning.
func (in *Ingestor) chunkEmbedStore(ctx context.Context, doc ragModel.Document) error {
	chunks, failed, err := in.prepareChunks(ctx, doc)
	if err != nil {
		return err
	}
	if err := in.store.BulkInsertChunks(ctx, doc.ID, chunks); err != nil {
		return err
	}
	if in.index != nil {
		if err := in.index.UpsertChunks(ctx, chunks); err != nil {
			in.logger.Warn("ann index upsert failed, in-process retriever still has the chunks", "documentId", doc.ID, "error", err)
		}
	}
	if failed > 0 {
		return ragerr.New(ragerr.EmbeddingPartial, fmt.Sprintf("%d of %d chunks failed to embed; reprocess to complete", failed, failed+len(chunks)), nil)
	}
	return nil
}

func (in *Ingestor) chunkEmbedReplace(ctx context.Context, doc ragModel.Document) error {
	chunks, failed, err := in.prepareChunks(ctx, doc)
	if err != nil {
		return err
	}
	if err := in.store.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return err
	}
	if in.index != nil {
		if err := in.index.DeleteDocument(ctx, doc.ID); err != nil {
			in.logger.Warn("ann index delete-before-reprocess failed", "documentId", doc.ID, "error", err)
		}
		if err := in.index.UpsertChunks(ctx, chunks); err != nil {
			in.logger.Warn("ann index upsert failed, in-process retriever still has the chunks", "documentId", doc.ID, "error", err)
		}
	}
	if failed > 0 {
		return ragerr.New(ragerr.EmbeddingPartial, fmt.Sprintf("%d of %d chunks failed to embed; reprocess to complete", failed, failed+len(chunks)), nil)
	}
	return nil
}

func (in *Ingestor) prepareChunks(ctx context.Context, doc ragModel.Document) ([]ragModel.Chunk, int, error) {
	rawChunks := chunker.Chunk(doc.Text, in.chunkSizeTokens, in.overlapSizeTokens)
	if len(rawChunks) == 0 {
		return nil, 0, ragerr.New(ragerr.ExtractFailed, "document produced no chunks", nil)
	}

	texts := make([]string, len(rawChunks))
	for i, c := range rawChunks {
		texts[i] = c.Text
	}
	vectors, errs := in.embedder.EmbedBatch(ctx, texts)

	chunks := make([]ragModel.Chunk, 0, len(rawChunks))
	failed := 0
	var firstErr error
	for i, c := range rawChunks {
		if errs[i] != nil || vectors[i] == nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			failed++
			continue
		}
		chunks = append(chunks, ragModel.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Index:      c.Index,
			Text:       c.Text,
			TokenCount: c.TokenCount,
			Embedding:  vectors[i],
			Metadata: ragModel.ChunkMetadata{
				StartChar:      c.StartChar,
				EndChar:        c.EndChar,
				DocumentTitle:  doc.Title,
				DocumentType:   doc.Metadata.DocumentType,
				DocumentAuthor: doc.Author,
			},
		})
	}
	if failed > 0 {
		in.logger.Warn("partial embedding failure during ingestion", "documentId", doc.ID, "failed", failed, "total", len(rawChunks))
	}
	if len(chunks) == 0 {
		return nil, failed, ragerr.New(ragerr.KindOf(firstErr), "every chunk failed to embed", firstErr)
	}
	return chunks, failed, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func deriveTitleFromFilename(filename string) string {
	if filename == "" {
		return ""
	}
	name := filename
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(name, "-", " "), "_", " "))
}
