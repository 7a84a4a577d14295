package answerer

import (
	"context"
	"errors"
	"testing"

	"github.com/onboardrag/core/internal/domain/ragModel"
)

type stubRetriever struct {
	sources []ragModel.RetrievalSource
	err     error
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, topK int, minScore float64) ([]ragModel.RetrievalSource, error) {
	return s.sources, s.err
}

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (g *stubGenerator) Generate(ctx context.Context, systemInstructions, userPrompt string, temperature float64, maxOutputTokens int) (string, error) {
	g.calls++
	return g.text, g.err
}

type stubEmbedder struct{ err error }

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0, 0}, nil
}

type stubCache struct {
	answer     string
	confidence float64
	hit        bool
	getErr     error
	saveErr    error
	saved      bool
	savedText  string
}

func (c *stubCache) GetCachedAnswer(ctx context.Context, queryVector []float32, cutoff float64) (string, float64, bool, error) {
	return c.answer, c.confidence, c.hit, c.getErr
}

func (c *stubCache) SaveToCache(ctx context.Context, id string, vector []float32, answer string, confidence float64, createdAtUnix int64) error {
	c.saved = true
	c.savedText = answer
	return c.saveErr
}

// stubVectorRetriever also satisfies VectorRetriever, tracking which
// path was used.
type stubVectorRetriever struct {
	stubRetriever
	byVectorCalls int
}

func (s *stubVectorRetriever) RetrieveByVector(ctx context.Context, vector []float32, topK int, minScore float64) ([]ragModel.RetrievalSource, error) {
	s.byVectorCalls++
	return s.sources, s.err
}

func testConfig() Config {
	return Config{
		SystemInstructions:     "answer only from sources",
		EmptyRetrievalFallback: "no relevant information found",
		MissingCitationNote:    "(note: based on uploaded documents)",
		Temperature:            0.2,
		MaxOutputTokens:        1024,
		TopK:                   5,
		MinRelevanceScore:      0.3,
	}
}

func TestAnswer_EmptyRetrievalReturnsFallback(t *testing.T) {
	a := New(&stubRetriever{}, &stubGenerator{}, testConfig())
	answer, err := a.Answer(context.Background(), "what is the PTO policy?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Text != testConfig().EmptyRetrievalFallback {
		t.Errorf("Text = %q, want fallback message", answer.Text)
	}
	if answer.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", answer.Confidence)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(answer.Sources))
	}
}

func TestAnswer_RetrieverErrorPropagates(t *testing.T) {
	wantErr := errors.New("store unavailable")
	a := New(&stubRetriever{err: wantErr}, &stubGenerator{}, testConfig())
	if _, err := a.Answer(context.Background(), "q"); err != wantErr {
		t.Fatalf("expected retriever error to propagate, got %v", err)
	}
}

func TestAnswer_CitedAnswerKeepsHighConfidence(t *testing.T) {
	sources := []ragModel.RetrievalSource{
		{ChunkID: "c1", DocumentID: "d1", DocumentTitle: "Handbook", ChunkIndex: 0, ChunkText: "PTO accrues monthly.", RelevanceScore: 0.9},
	}
	gen := &stubGenerator{text: "PTO accrues monthly [SOURCE 1]."}
	a := New(&stubRetriever{sources: sources}, gen, testConfig())

	answer, err := a.Answer(context.Background(), "how does PTO accrue?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Text != gen.text {
		t.Errorf("expected generator text to pass through unmodified when cited, got %q", answer.Text)
	}
	if answer.Confidence <= 0 {
		t.Errorf("expected positive confidence for a cited, highly relevant answer, got %v", answer.Confidence)
	}
	if len(answer.Sources) != 1 {
		t.Errorf("expected 1 source, got %d", len(answer.Sources))
	}
}

func TestAnswer_MissingCitationAppendsNote(t *testing.T) {
	sources := []ragModel.RetrievalSource{
		{ChunkID: "c1", DocumentID: "d1", DocumentTitle: "Handbook", ChunkIndex: 0, ChunkText: "PTO accrues monthly.", RelevanceScore: 0.5},
	}
	gen := &stubGenerator{text: "PTO accrues monthly."}
	cfg := testConfig()
	a := New(&stubRetriever{sources: sources}, gen, cfg)

	answer, err := a.Answer(context.Background(), "how does PTO accrue?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := gen.text + " " + cfg.MissingCitationNote
	if answer.Text != want {
		t.Errorf("Text = %q, want %q", answer.Text, want)
	}
}

func TestAnswer_CacheHitShortCircuits(t *testing.T) {
	gen := &stubGenerator{text: "fresh answer [SOURCE 1]"}
	cache := &stubCache{answer: "cached answer [SOURCE 1]", confidence: 0.9, hit: true}
	a := New(&stubRetriever{}, gen, testConfig()).WithCache(cache, &stubEmbedder{})

	answer, err := a.Answer(context.Background(), "how does PTO accrue?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !answer.Cached {
		t.Error("expected Cached=true on a cache hit")
	}
	if answer.Text != cache.answer {
		t.Errorf("Text = %q, want cached answer", answer.Text)
	}
	if answer.Confidence != cache.confidence {
		t.Errorf("Confidence = %v, want %v", answer.Confidence, cache.confidence)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("cached answers carry no sources, got %d", len(answer.Sources))
	}
	if gen.calls != 0 {
		t.Errorf("generator should not run on a cache hit, ran %d times", gen.calls)
	}
}

func TestAnswer_CacheMissGeneratesAndSaves(t *testing.T) {
	sources := []ragModel.RetrievalSource{
		{ChunkID: "c1", DocumentID: "d1", DocumentTitle: "Handbook", ChunkText: "PTO accrues monthly.", RelevanceScore: 0.8},
	}
	gen := &stubGenerator{text: "PTO accrues monthly [SOURCE 1]."}
	cache := &stubCache{}
	ret := &stubVectorRetriever{stubRetriever: stubRetriever{sources: sources}}
	a := New(ret, gen, testConfig()).WithCache(cache, &stubEmbedder{})

	answer, err := a.Answer(context.Background(), "how does PTO accrue?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Cached {
		t.Error("expected Cached=false on a miss")
	}
	if !cache.saved {
		t.Fatal("expected the generated answer to be saved to the cache")
	}
	if cache.savedText != answer.Text {
		t.Errorf("saved %q, want the returned text %q", cache.savedText, answer.Text)
	}
	if ret.byVectorCalls != 1 {
		t.Errorf("expected the cache's query vector to be reused for retrieval, byVectorCalls = %d", ret.byVectorCalls)
	}
}

func TestAnswer_CacheFailuresDegradeToUncached(t *testing.T) {
	sources := []ragModel.RetrievalSource{
		{ChunkID: "c1", DocumentTitle: "Handbook", ChunkText: "PTO accrues monthly.", RelevanceScore: 0.8},
	}
	gen := &stubGenerator{text: "PTO accrues monthly [SOURCE 1]."}
	cache := &stubCache{getErr: errors.New("qdrant unavailable")}
	a := New(&stubRetriever{sources: sources}, gen, testConfig()).WithCache(cache, &stubEmbedder{})

	answer, err := a.Answer(context.Background(), "how does PTO accrue?")
	if err != nil {
		t.Fatalf("cache lookup failure must not fail the query: %v", err)
	}
	if answer.Text != gen.text {
		t.Errorf("Text = %q, want generated answer", answer.Text)
	}

	embedErr := &stubEmbedder{err: errors.New("embed down")}
	a = New(&stubRetriever{sources: sources}, &stubGenerator{text: gen.text}, testConfig()).WithCache(&stubCache{}, embedErr)
	if _, err := a.Answer(context.Background(), "q"); err != nil {
		t.Fatalf("cache-keying embed failure must not fail the query: %v", err)
	}
}

func TestAnswer_GeneratorErrorPropagates(t *testing.T) {
	sources := []ragModel.RetrievalSource{{ChunkID: "c1", RelevanceScore: 0.5}}
	wantErr := errors.New("model unavailable")
	a := New(&stubRetriever{sources: sources}, &stubGenerator{err: wantErr}, testConfig())
	if _, err := a.Answer(context.Background(), "q"); err != wantErr {
		t.Fatalf("expected generator error to propagate, got %v", err)
	}
}
