// Package googleembed is the Google genai-backed Embedder used by the
// Model Client when EMBED_PROVIDER=google (the default).
package googleembed

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/onboardrag/core/internal/customHttpClient"
	"github.com/onboardrag/core/internal/rag/modelclient"
	"github.com/onboardrag/core/pkg/logger_i"
)

var errEmptyEmbedding = errors.New("provider returned no embedding")

type Client struct {
	genAi     *genai.Client
	model     string
	dimension int32
}

func New(ctx context.Context, apiKey, model string, dimension int32) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, HTTPClient: customHttpClient.Client})
	if err != nil {
		return nil, err
	}
	return &Client{genAi: c, model: model, dimension: dimension}, nil
}

func (c *Client) Dimension() int32 { return c.dimension }

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	log := logger_i.NewLogger("google_embed")
	content := []*genai.Content{{Parts: []*genai.Part{{Text: text}}}}
	result, err := c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             "RETRIEVAL_DOCUMENT",
	})
	if err != nil {
		log.Error("embed call failed", "error", err)
		return nil, modelclient.ClassifyGRPCError(err)
	}
	if len(result.Embeddings) == 0 {
		return nil, modelclient.ClassifyGRPCError(errEmptyEmbedding)
	}
	return result.Embeddings[0].Values, nil
}
