// Package openaichat is the OpenAI-backed Generator used by the Model
// Client when MODEL_PROVIDER=openai.
package openaichat

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
	api   openai.Client
	model string
}

func New(apiKey, model string) *Client {
	return &Client{
		api:   openai.NewClient(option.WithAPIKey(apiKey), option.WithHTTPClient(customHttpClient.Client)),
		model: model,
	}
}

func (c *Client) Generate(ctx context.Context, systemInstructions, userPrompt string, temperature float64, maxOutputTokens int) (string, error) {
	log := logger_i.NewLogger("openai_chat")
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstructions),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(maxOutputTokens)),
	})
	if err != nil {
		log.Error("generate call failed", "error", err)
		return "", classifyErr(err)
	}
	if len(resp.Choices) == 0 {
		return "", classifyErr(errors.New("provider returned no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return modelclient.ClassifyHTTPStatus(apiErr.StatusCode, 0, err)
	}
	return modelclient.ClassifyHTTPStatus(0, 0, err)
}
