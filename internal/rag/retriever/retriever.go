// Package retriever implements the query-time similarity search: embed
// the question, score every stored chunk against it, and return the
// top matches above a relevance floor. Two backends share the same
// Retriever interface and external contract: InProcess scans the
// relational Store directly, ANN delegates to the Qdrant mirror.
package retriever

import (
	"context"
	"math"
	"sort"

	"github.com/onboardrag/core/internal/domain/ragModel"
	"github.com/onboardrag/core/pkg/logger_i"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, minScore float64) ([]ragModel.RetrievalSource, error)
}

// QueryEmbedder is the single-item embedding call the retriever needs;
// it is satisfied by internal/rag/modelclient.Client directly.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkScanner streams every chunk that has an embedding. It is
// satisfied by sqlitestore.Store.GetAllChunksWithEmbeddings.
type ChunkScanner interface {
	GetAllChunksWithEmbeddings(ctx context.Context, streamThreshold int, visit func(ragModel.Chunk) error) error
}

type InProcess struct {
	embedder        QueryEmbedder
	scanner         ChunkScanner
	streamThreshold int
	logger          *logger_i.Logger
}

func NewInProcess(embedder QueryEmbedder, scanner ChunkScanner, streamThreshold int) *InProcess {
	return &InProcess{
		embedder:        embedder,
		scanner:         scanner,
		streamThreshold: streamThreshold,
		logger:          logger_i.NewLogger("retriever"),
	}
}

// Retrieve embeds query once, scores every embedded chunk by cosine
// similarity, discards anything below minScore, and returns the first
// topK sorted by score descending with document id then chunk index
// as the tiebreak. An empty corpus yields an empty, non-error result.
func (r *InProcess) Retrieve(ctx context.Context, query string, topK int, minScore float64) ([]ragModel.RetrievalSource, error) {
	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	var candidates []ragModel.RetrievalSource
	err = r.scanner.GetAllChunksWithEmbeddings(ctx, r.streamThreshold, func(c ragModel.Chunk) error {
		score := cosineSimilarity(queryVector, c.Embedding)
		if score < minScore {
			return nil
		}
		candidates = append(candidates, ragModel.RetrievalSource{
			ChunkID:        c.ID,
			DocumentID:     c.DocumentID,
			DocumentTitle:  c.Metadata.DocumentTitle,
			ChunkIndex:     c.Index,
			ChunkText:      c.Text,
			RelevanceScore: score,
			Metadata:       c.Metadata,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RelevanceScore != candidates[j].RelevanceScore {
			return candidates[i].RelevanceScore > candidates[j].RelevanceScore
		}
		if candidates[i].DocumentID != candidates[j].DocumentID {
			return candidates[i].DocumentID < candidates[j].DocumentID
		}
		return candidates[i].ChunkIndex < candidates[j].ChunkIndex
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// cosineSimilarity treats a zero-length denominator as zero similarity
// rather than dividing by zero; a, b must share a dimension, which the
// data model invariants guarantee for any corpus.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// ANN delegates similarity search to the Qdrant mirror, which scores by
// cosine distance; qdrantindex.Index.Search drops hits below minScore
// after the query returns.
type ANN struct {
	embedder QueryEmbedder
	index    AnnSearcher
}

// AnnSearcher is satisfied by qdrantindex.Index.
type AnnSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, minScore float64) ([]ragModel.RetrievalSource, error)
}

func NewANN(embedder QueryEmbedder, index AnnSearcher) *ANN {
	return &ANN{embedder: embedder, index: index}
}

func (a *ANN) Retrieve(ctx context.Context, query string, topK int, minScore float64) ([]ragModel.RetrievalSource, error) {
	vector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return a.RetrieveByVector(ctx, vector, topK, minScore)
}

// RetrieveByVector searches with an already-computed query embedding,
// so a caller that embedded the question for the answer cache does not
// pay for a second embedding call on a cache miss.
func (a *ANN) RetrieveByVector(ctx context.Context, vector []float32, topK int, minScore float64) ([]ragModel.RetrievalSource, error) {
	return a.index.Search(ctx, vector, topK, minScore)
}
