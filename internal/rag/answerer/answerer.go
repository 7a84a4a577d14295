// Package answerer assembles retrieved chunks into a grounding prompt,
// invokes the Model Client's generator, validates that the answer cites
// its sources, and derives a confidence score. It never falls back to
// outside knowledge: the system instructions forbid it, and an empty
// retrieval short-circuits straight to a fixed fallback message.
package answerer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onboardrag/core/internal/domain/ragModel"
	"github.com/onboardrag/core/pkg/logger_i"
)

// Retriever is the subset of internal/rag/retriever this package needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, minScore float64) ([]ragModel.RetrievalSource, error)
}

// VectorRetriever is optionally implemented by a Retriever that can
// search with an already-computed query embedding. When the answer
// cache is active the question is embedded once up front, and a
// retriever implementing this avoids a duplicate embedding call.
type VectorRetriever interface {
	RetrieveByVector(ctx context.Context, vector []float32, topK int, minScore float64) ([]ragModel.RetrievalSource, error)
}

// Generator is the subset of internal/rag/modelclient.Client this
// package needs.
type Generator interface {
	Generate(ctx context.Context, systemInstructions, userPrompt string, temperature float64, maxOutputTokens int) (string, error)
}

// QueryEmbedder is the single-item embedding call used to key the
// answer cache; satisfied by internal/rag/modelclient.Client.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Cache is the semantic answer cache backed by the ANN index
// (qdrantindex.Index). A nil Cache disables caching entirely.
type Cache interface {
	GetCachedAnswer(ctx context.Context, queryVector []float32, cutoff float64) (answer string, confidence float64, ok bool, err error)
	SaveToCache(ctx context.Context, id string, vector []float32, answer string, confidence float64, createdAtUnix int64) error
}

// Config holds the fixed strings and generation ceiling the Answerer is
// built with; these come from internal/config so the literal fallback
// text lives in exactly one place.
type Config struct {
	SystemInstructions     string
	EmptyRetrievalFallback string
	MissingCitationNote    string
	Temperature            float64
	MaxOutputTokens        int
	TopK                   int
	MinRelevanceScore      float64
	CacheSimilarityCutoff  float64
}

type Answerer struct {
	retriever Retriever
	generator Generator
	embedder  QueryEmbedder
	cache     Cache
	cfg       Config
	logger    *logger_i.Logger
}

func New(retriever Retriever, generator Generator, cfg Config) *Answerer {
	return &Answerer{
		retriever: retriever,
		generator: generator,
		cfg:       cfg,
		logger:    logger_i.NewLogger("answerer"),
	}
}

// WithCache enables the semantic answer cache. The embedder keys the
// cache by question vector; cache failures degrade to the uncached
// path rather than failing the query.
func (a *Answerer) WithCache(cache Cache, embedder QueryEmbedder) *Answerer {
	a.cache = cache
	a.embedder = embedder
	return a
}

var citationPattern = regexp.MustCompile(`\[SOURCE \d+\]`)

// Answer embeds and retrieves for question, builds a grounding prompt
// from whatever comes back, and asks the generator for a cited answer.
// An empty retrieval is not an error: it returns the fixed fallback
// message with zero sources and zero confidence. With a cache wired,
// a semantically near-identical prior question short-circuits the
// whole pipeline.
func (a *Answerer) Answer(ctx context.Context, question string) (ragModel.Answer, error) {
	started := time.Now()

	var queryVector []float32
	if a.cache != nil {
		vector, err := a.embedder.Embed(ctx, question)
		if err != nil {
			a.logger.Warn("query embedding for answer cache failed, continuing uncached", "error", err)
		} else {
			queryVector = vector
			cached, conf, ok, err := a.cache.GetCachedAnswer(ctx, queryVector, a.cfg.CacheSimilarityCutoff)
			if err != nil {
				a.logger.Warn("answer cache lookup failed", "error", err)
			} else if ok {
				a.logger.Debug("answer cache hit")
				return ragModel.Answer{
					Text:                cached,
					Confidence:          conf,
					Cached:              true,
					ResponseTimeSeconds: time.Since(started).Seconds(),
				}, nil
			}
		}
	}

	sources, err := a.retrieve(ctx, question, queryVector)
	if err != nil {
		return ragModel.Answer{}, err
	}
	if len(sources) == 0 {
		return ragModel.Answer{
			Text:                a.cfg.EmptyRetrievalFallback,
			Sources:             nil,
			Confidence:          0,
			ResponseTimeSeconds: time.Since(started).Seconds(),
		}, nil
	}

	grounding := buildContext(sources)
	userPrompt := fmt.Sprintf("%s\n\n%s\n\nQuestion: %s", "Use only the sources below to answer the question.", grounding, question)

	text, err := a.generator.Generate(ctx, a.cfg.SystemInstructions, userPrompt, a.cfg.Temperature, a.cfg.MaxOutputTokens)
	if err != nil {
		return ragModel.Answer{}, err
	}

	cited := citationPattern.MatchString(text)
	if !cited {
		text = text + " " + a.cfg.MissingCitationNote
		a.logger.Warn("answer had no source citation, appended note")
	}

	conf := confidence(sources, cited)
	if a.cache != nil && queryVector != nil {
		if err := a.cache.SaveToCache(ctx, uuid.NewString(), queryVector, text, conf, time.Now().Unix()); err != nil {
			a.logger.Warn("answer cache save failed", "error", err)
		}
	}

	return ragModel.Answer{
		Text:                text,
		Sources:             sources,
		Confidence:          conf,
		ResponseTimeSeconds: time.Since(started).Seconds(),
	}, nil
}

// retrieve reuses the cache's query vector when the retriever can
// search by vector directly; otherwise it falls back to the plain
// text-in interface.
func (a *Answerer) retrieve(ctx context.Context, question string, queryVector []float32) ([]ragModel.RetrievalSource, error) {
	if queryVector != nil {
		if vr, ok := a.retriever.(VectorRetriever); ok {
			return vr.RetrieveByVector(ctx, queryVector, a.cfg.TopK, a.cfg.MinRelevanceScore)
		}
	}
	return a.retriever.Retrieve(ctx, question, a.cfg.TopK, a.cfg.MinRelevanceScore)
}

// buildContext renders one [SOURCE i: ...] header per retrieved chunk,
// separated by the fixed block separator, in retrieval order.
func buildContext(sources []ragModel.RetrievalSource) string {
	blocks := make([]string, len(sources))
	for i, s := range sources {
		authorSuffix := ""
		if s.Metadata.DocumentAuthor != "" {
			authorSuffix = " by " + s.Metadata.DocumentAuthor
		}
		typeSuffix := ""
		if s.Metadata.DocumentType != "" {
			typeSuffix = " [" + string(s.Metadata.DocumentType) + "]"
		}
		header := fmt.Sprintf("[SOURCE %d: %q%s%s - Section %d (Relevance: %.1f%%)]",
			i+1, s.DocumentTitle, authorSuffix, typeSuffix, s.ChunkIndex+1, s.RelevanceScore*100)
		blocks[i] = header + "\n" + s.ChunkText
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// confidence combines the average and top relevance, boosting it when
// the generator actually cited a source. The result is clamped to
// [0, 1]; callers never see a value outside that range.
func confidence(sources []ragModel.RetrievalSource, cited bool) float64 {
	if len(sources) == 0 {
		return 0
	}
	var sum, top float64
	for _, s := range sources {
		sum += s.RelevanceScore
		if s.RelevanceScore > top {
			top = s.RelevanceScore
		}
	}
	avg := sum / float64(len(sources))
	conf := 0.5*avg + 0.5*top
	if cited {
		conf *= 1.1
	}
	if conf > 1 {
		conf = 1
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}
