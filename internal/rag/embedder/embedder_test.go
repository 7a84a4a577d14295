package embedder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubClient struct {
	dimension   int32
	failTexts   map[string]bool
	callCount   int32
}

func (c *stubClient) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&c.callCount, 1)
	if c.failTexts[text] {
		return nil, errors.New("provider rejected text")
	}
	return []float32{float32(len(text))}, nil
}

func (c *stubClient) Dimension() int32 { return c.dimension }

func TestEmbedBatch_AllSucceed(t *testing.T) {
	client := &stubClient{dimension: 8}
	e := New(client, 2, time.Millisecond)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, errs := e.EmbedBatch(context.Background(), texts)

	if len(vectors) != len(texts) || len(errs) != len(texts) {
		t.Fatalf("expected parallel output slices of length %d", len(texts))
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("text %d: unexpected error %v", i, err)
		}
		if vectors[i] == nil {
			t.Errorf("text %d: expected a vector, got nil", i)
		}
	}
	if client.callCount != int32(len(texts)) {
		t.Errorf("expected %d Embed calls, got %d", len(texts), client.callCount)
	}
}

func TestEmbedBatch_PartialFailureStillReturnsTheRest(t *testing.T) {
	client := &stubClient{dimension: 8, failTexts: map[string]bool{"bad": true}}
	e := New(client, 3, time.Millisecond)

	texts := []string{"good1", "bad", "good2"}
	vectors, errs := e.EmbedBatch(context.Background(), texts)

	if errs[1] == nil {
		t.Error("expected an error for the failing text")
	}
	if vectors[1] != nil {
		t.Error("expected a nil vector for the failing text")
	}
	if errs[0] != nil || errs[2] != nil {
		t.Error("expected the surviving texts to succeed")
	}
	if vectors[0] == nil || vectors[2] == nil {
		t.Error("expected the surviving texts to have vectors")
	}
}

func TestEmbedBatch_ContextCancelledDuringInterBatchDelay(t *testing.T) {
	client := &stubClient{dimension: 8}
	e := New(client, 1, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	vectors, errs := e.EmbedBatch(ctx, []string{"a", "b", "c", "d"})
	if len(vectors) != 4 || len(errs) != 4 {
		t.Fatalf("expected full-length output slices even on cancellation")
	}
}

func TestNew_ClampsBatchSizeBelowOne(t *testing.T) {
	e := New(&stubClient{dimension: 4}, 0, time.Millisecond)
	if e.batchSize != 1 {
		t.Errorf("batchSize = %d, want 1", e.batchSize)
	}
}

func TestDimension_DelegatesToClient(t *testing.T) {
	e := New(&stubClient{dimension: 1536}, 1, time.Millisecond)
	if got := e.Dimension(); got != 1536 {
		t.Errorf("Dimension() = %d, want 1536", got)
	}
}
