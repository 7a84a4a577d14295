// Package qdrantindex is the optional ANN mirror of the chunk table:
// an Index rebuilt from sqlitestore and queried instead of the
// in-process cosine scan when RETRIEVER_BACKEND=ann. The relational
// Store remains the source of truth; every write here follows a write
// that already landed there.
package qdrantindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/onboardrag/core/internal/domain/ragModel"
	"github.com/onboardrag/core/internal/domain/ragerr"
	"github.com/onboardrag/core/pkg/logger_i"
)

type Index struct {
	client          *qdrant.Client
	logger          *logger_i.Logger
	collection      string
	cacheCollection string
	dimension       uint64
}

type Config struct {
	Host            string
	Port            int
	UseTLS          bool
	PoolSize        int
	Collection      string
	CacheCollection string
	Dimension       int32
}

func New(ctx context.Context, cfg Config) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		UseTLS:   cfg.UseTLS,
		PoolSize: uint(cfg.PoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}

	idx := &Index{
		client:          client,
		logger:          logger_i.NewLogger("qdrantindex"),
		collection:      cfg.Collection,
		cacheCollection: cfg.CacheCollection,
		dimension:       uint64(cfg.Dimension),
	}
	if err := idx.ensureCollection(ctx, idx.collection); err != nil {
		client.Close()
		return nil, fmt.Errorf("create chunk collection: %w", err)
	}
	if idx.cacheCollection != "" {
		if err := idx.ensureCollection(ctx, idx.cacheCollection); err != nil {
			idx.logger.Warn("answer cache collection unavailable", "error", err)
		}
	}
	return idx, nil
}

func (idx *Index) Close() error { return idx.client.Close() }

func (idx *Index) ensureCollection(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("empty collection name")
	}
	exists, err := idx.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     idx.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// UpsertChunks mirrors a document's embedded chunks into the
// collection, denormalizing the document title/type/author onto the
// payload so a search hit can build a RetrievalSource without a
// second lookup.
func (idx *Index) UpsertChunks(ctx context.Context, chunks []ragModel.Chunk) error {
	var points []*qdrant.PointStruct
	for _, c := range chunks {
		if c.Embedding == nil {
			continue
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(c.ID),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"document_id":     c.DocumentID,
				"chunk_index":     c.Index,
				"chunk_text":      c.Text,
				"document_title":  c.Metadata.DocumentTitle,
				"document_type":   string(c.Metadata.DocumentType),
				"document_author": c.Metadata.DocumentAuthor,
				"section_title":   c.Metadata.SectionTitle,
			}),
		})
	}
	if len(points) == 0 {
		return nil
	}
	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return ragerr.New(ragerr.StoreError, "qdrant upsert", err)
	}
	return nil
}

func (idx *Index) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: idx.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		return ragerr.New(ragerr.StoreError, "qdrant delete", err)
	}
	return nil
}

// Search runs an ANN query and maps hits directly to RetrievalSource,
// applying the same minScore floor the in-process retriever uses so
// both backends honor an identical external contract.
func (idx *Index) Search(ctx context.Context, vector []float32, topK int, minScore float64) ([]ragModel.RetrievalSource, error) {
	result, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, ragerr.New(ragerr.StoreError, "qdrant query", err)
	}

	var sources []ragModel.RetrievalSource
	for _, hit := range result {
		score := float64(hit.Score)
		if score < minScore {
			continue
		}
		payload := hit.Payload
		sources = append(sources, ragModel.RetrievalSource{
			ChunkID:        hit.Id.GetUuid(),
			DocumentID:     payload["document_id"].GetStringValue(),
			DocumentTitle:  payload["document_title"].GetStringValue(),
			ChunkIndex:     int(payload["chunk_index"].GetIntegerValue()),
			ChunkText:      payload["chunk_text"].GetStringValue(),
			RelevanceScore: score,
			Metadata: ragModel.ChunkMetadata{
				DocumentTitle:  payload["document_title"].GetStringValue(),
				DocumentType:   ragModel.DocumentType(payload["document_type"].GetStringValue()),
				DocumentAuthor: payload["document_author"].GetStringValue(),
				SectionTitle:   payload["section_title"].GetStringValue(),
			},
		})
	}
	return sources, nil
}

// GetCachedAnswer looks up a semantically similar prior question in
// the answer cache collection. A hit below the cutoff is treated as a
// miss, not a low-confidence hit: the cache either answers with high
// confidence or doesn't answer at all.
func (idx *Index) GetCachedAnswer(ctx context.Context, queryVector []float32, cutoff float64) (string, float64, bool, error) {
	if idx.cacheCollection == "" {
		return "", 0, false, nil
	}
	result, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.cacheCollection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return "", 0, false, ragerr.New(ragerr.StoreError, "qdrant cache query", err)
	}
	if len(result) == 0 || float64(result[0].Score) < cutoff {
		return "", 0, false, nil
	}
	payload := result[0].Payload
	return payload["answer"].GetStringValue(), payload["confidence"].GetDoubleValue(), true, nil
}

// SaveToCache stores a freshly generated answer keyed by its question
// vector, remembering the confidence it was produced with so a later
// hit replays it unchanged.
func (idx *Index) SaveToCache(ctx context.Context, id string, vector []float32, answer string, confidence float64, createdAtUnix int64) error {
	if idx.cacheCollection == "" {
		return nil
	}
	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.cacheCollection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"answer":     answer,
				"confidence": confidence,
				"timestamp":  createdAtUnix,
			}),
		}},
	})
	if err != nil {
		return ragerr.New(ragerr.StoreError, "qdrant cache upsert", err)
	}
	return nil
}
