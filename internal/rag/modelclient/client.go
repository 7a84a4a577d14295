// Package modelclient is the single outbound interface to the embedding
// and generative model providers. It owns a bounded FIFO queue, enforces
// minimum spacing between outbound requests, retries transient failures
// with capped exponential backoff, and honors provider retry-after hints
// as a one-off delay rather than a retry. No other package talks to a
// provider SDK directly.
package modelclient

import (
	"context"
	"sync"
	"time"

	"github.com/onboardrag/core/internal/domain/ragerr"
	"github.com/onboardrag/core/pkg/logger_i"
)

// Embedder is the provider-side embedding call the Client dispatches
// through its queue.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int32
}

// Generator is the provider-side generation call the Client dispatches
// through its queue.
type Generator interface {
	Generate(ctx context.Context, systemInstructions, userPrompt string, temperature float64, maxOutputTokens int) (string, error)
}

// Config holds the queue's tunables. Zero values are not sane defaults;
// callers should populate every field (internal/config wires this).
type Config struct {
	QueueCapacity      int
	MinInterval        time.Duration
	RequestTimeout     time.Duration
	MaxRetries         int
	BackoffBaseDelay   time.Duration
	BackoffCapDelay    time.Duration
	GenTemperature     float64
	GenMaxOutputTokens int
}

type job struct {
	ctx      context.Context
	fn       func(ctx context.Context) (any, error)
	resultCh chan jobResult
}

type jobResult struct {
	val any
	err error
}

// Client is the only component aware of provider-specific error shapes;
// everything downstream sees the ragerr taxonomy.
type Client struct {
	embedder  Embedder
	generator Generator
	cfg       Config
	logger    *logger_i.Logger

	queue chan *job

	mu           sync.Mutex
	nextDispatch time.Time

	stop chan struct{}
	once sync.Once
}

func New(embedder Embedder, generator Generator, cfg Config) *Client {
	c := &Client{
		embedder:  embedder,
		generator: generator,
		cfg:       cfg,
		logger:    logger_i.NewLogger("model_client"),
		queue:     make(chan *job, cfg.QueueCapacity),
		stop:      make(chan struct{}),
	}
	go c.dispatch()
	return c
}

func (c *Client) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Client) Dimension() int32 { return c.embedder.Dimension() }

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	val, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		return c.embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return val.([]float32), nil
}

// EmbedBatch embeds each text through the same queue sequentially,
// returning a per-index error. It exists as a convenience for callers
// that don't need the Embedder component's bounded concurrent fan-out.
// That batching, with its own batch size and inter-batch delay, lives in
// internal/rag/embedder.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []error) {
	vectors := make([][]float32, len(texts))
	errs := make([]error, len(texts))
	for i, t := range texts {
		vectors[i], errs[i] = c.Embed(ctx, t)
	}
	return vectors, errs
}

func (c *Client) Generate(ctx context.Context, systemInstructions, userPrompt string, temperature float64, maxOutputTokens int) (string, error) {
	if temperature > c.cfg.GenTemperature {
		temperature = c.cfg.GenTemperature
	}
	if maxOutputTokens <= 0 || maxOutputTokens > c.cfg.GenMaxOutputTokens {
		maxOutputTokens = c.cfg.GenMaxOutputTokens
	}
	val, err := c.submit(ctx, func(ctx context.Context) (any, error) {
		return c.generator.Generate(ctx, systemInstructions, userPrompt, temperature, maxOutputTokens)
	})
	if err != nil {
		return "", err
	}
	return val.(string), nil
}

// submit enqueues fn and blocks until it is dispatched, retried as
// needed, and completes, or until ctx is cancelled or the queue is full.
func (c *Client) submit(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	deadline := c.cfg.RequestTimeout
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	j := &job{ctx: callCtx, fn: fn, resultCh: make(chan jobResult, 1)}

	select {
	case c.queue <- j:
	default:
		return nil, ragerr.New(ragerr.ModelQueueFull, "model client queue is full", nil)
	}

	select {
	case r := <-j.resultCh:
		return r.val, r.err
	case <-callCtx.Done():
		return nil, ragerr.New(ragerr.ModelTimeout, "model client request timed out", callCtx.Err())
	}
}

func (c *Client) dispatch() {
	for {
		select {
		case <-c.stop:
			return
		case j := <-c.queue:
			c.waitForSlot()
			c.execute(j)
		}
	}
}

func (c *Client) waitForSlot() {
	c.mu.Lock()
	wait := time.Until(c.nextDispatch)
	c.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
}

// execute runs fn to completion, retrying transient failures with
// exponential backoff and honoring a rate-limit retry-after hint as a
// one-off delay before the queue's next dispatch rather than a retry of
// this request.
func (c *Client) execute(j *job) {
	if j.ctx.Err() != nil {
		j.resultCh <- jobResult{nil, ragerr.New(ragerr.ModelTimeout, "expired before dispatch", j.ctx.Err())}
		c.advance(c.cfg.MinInterval)
		return
	}

	delay := c.cfg.BackoffBaseDelay
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		val, err := j.fn(j.ctx)
		if err == nil {
			j.resultCh <- jobResult{val, nil}
			c.advance(c.cfg.MinInterval)
			return
		}
		lastErr = err

		if rl, ok := err.(*ragerr.Error); ok && rl.Kind == ragerr.ModelRateLimited {
			j.resultCh <- jobResult{nil, err}
			extra := time.Duration(rl.RetryAfter * float64(time.Second))
			if extra <= 0 {
				extra = c.cfg.MinInterval
			}
			c.advance(extra)
			return
		}

		if !ragerr.Is(err, ragerr.ModelTransient) {
			j.resultCh <- jobResult{nil, err}
			c.advance(c.cfg.MinInterval)
			return
		}

		if attempt == c.cfg.MaxRetries || j.ctx.Err() != nil {
			break
		}

		c.logger.Warn("retrying transient model error", "attempt", attempt+1, "error", err)
		select {
		case <-time.After(delay):
		case <-j.ctx.Done():
		}
		delay *= 2
		if delay > c.cfg.BackoffCapDelay {
			delay = c.cfg.BackoffCapDelay
		}
	}

	j.resultCh <- jobResult{nil, lastErr}
	c.advance(c.cfg.MinInterval)
}

func (c *Client) advance(minGap time.Duration) {
	c.mu.Lock()
	c.nextDispatch = time.Now().Add(minGap)
	c.mu.Unlock()
}
