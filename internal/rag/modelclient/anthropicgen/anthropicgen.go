// Package anthropicgen is the Anthropic-backed Generator used by the
// Model Client when MODEL_PROVIDER=anthropic. Anthropic has no public
// embeddings endpoint, so this provider is generation-only: a corpus
// using it for generation still embeds through the Google or OpenAI
// embedder, selected independently via EMBED_PROVIDER.
package anthropicgen

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/onboardrag/core/internal/customHttpClient"
	"github.com/onboardrag/core/internal/rag/modelclient"
	"github.com/onboardrag/core/pkg/logger_i"
)

type Client struct {
	api   anthropic.Client
	model anthropic.Model
}

func New(apiKey, model string) *Client {
	return &Client{
		api:   anthropic.NewClient(option.WithAPIKey(apiKey), option.WithHTTPClient(customHttpClient.Client)),
		model: anthropic.Model(model),
	}
}

func (c *Client) Generate(ctx context.Context, systemInstructions, userPrompt string, temperature float64, maxOutputTokens int) (string, error) {
	log := logger_i.NewLogger("anthropic_generate")
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxOutputTokens),
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemInstructions},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Error("generate call failed", "error", err)
		return "", classifyErr(err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", classifyErr(errors.New("provider returned no text block"))
}

func classifyErr(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return modelclient.ClassifyHTTPStatus(apiErr.StatusCode, 0, err)
	}
	return modelclient.ClassifyHTTPStatus(0, 0, err)
}
