// Package embedder batches chunk texts through the Model Client and
// returns one fixed-dimension vector per chunk, tolerating per-item
// failure. It is a thin structured-concurrency layer above the Model
// Client: its own batch size and inter-batch delay are independent of
// the queue's spacing, so one document's ingestion cannot starve other
// callers of the queue.
package embedder

import (
	"context"
	"sync"
	"time"

	"github.com/onboardrag/core/pkg/logger_i"
)

// Client is the subset of the Model Client the Embedder depends on.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int32
}

type Embedder struct {
	client     Client
	logger     *logger_i.Logger
	batchSize  int
	batchDelay time.Duration
}

func New(client Client, batchSize int, batchDelay time.Duration) *Embedder {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Embedder{
		client:     client,
		logger:     logger_i.NewLogger("embedder"),
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

func (e *Embedder) Dimension() int32 { return e.client.Dimension() }

// EmbedBatch embeds every text, bounding concurrency to batchSize calls
// in flight at once and sleeping batchDelay between batches. vectors[i]
// is nil and errs[i] is non-nil for any text that failed; the remaining
// items still complete.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []error) {
	vectors := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := e.client.Embed(ctx, texts[i])
				if err != nil {
					e.logger.Warn("embedding item failed", "index", i, "error", err)
					errs[i] = err
					return
				}
				vectors[i] = v
			}(i)
		}
		wg.Wait()

		if end < len(texts) {
			select {
			case <-time.After(e.batchDelay):
			case <-ctx.Done():
				return vectors, errs
			}
		}
	}

	succeeded := 0
	for _, v := range vectors {
		if v != nil {
			succeeded++
		}
	}
	if succeeded < len(texts) {
		e.logger.Warn("partial embedding failure", "succeeded", succeeded, "total", len(texts))
	}
	return vectors, errs
}
