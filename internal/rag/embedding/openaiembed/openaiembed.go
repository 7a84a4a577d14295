// Package openaiembed is the OpenAI-backed Embedder used by the Model
// Client when EMBED_PROVIDER=openai.
package openaiembed

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/onboardrag/core/internal/customHttpClient"
	"github.com/onboardrag/core/internal/rag/modelclient"
	"github.com/onboardrag/core/pkg/logger_i"
)

type Client struct {
	api       openai.Client
	model     string
	dimension int32
}

func New(apiKey, model string, dimension int32) *Client {
	return &Client{
		api:       openai.NewClient(option.WithAPIKey(apiKey), option.WithHTTPClient(customHttpClient.Client)),
		model:     model,
		dimension: dimension,
	}
}

func (c *Client) Dimension() int32 { return c.dimension }

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	log := logger_i.NewLogger("openai_embed")
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:          c.model,
		Dimensions:     openai.Int(int64(c.dimension)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		log.Error("embed call failed", "error", err)
		return nil, classifyErr(err)
	}
	if len(resp.Data) == 0 {
		return nil, classifyErr(errors.New("provider returned no embedding"))
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func classifyErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return modelclient.ClassifyHTTPStatus(apiErr.StatusCode, 0, err)
	}
	return modelclient.ClassifyHTTPStatus(0, 0, err)
}
