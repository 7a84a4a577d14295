// Package gemini is the Google genai-backed Generator used by the Model
// Client when MODEL_PROVIDER=google (the default).
package gemini

import (
	"context"

	"google.golang.org/genai"

	"github.com/onboardrag/core/internal/customHttpClient"
	"github.com/onboardrag/core/internal/rag/modelclient"
	"github.com/onboardrag/core/pkg/logger_i"
)

type Client struct {
	genAi *genai.Client
	model string
}

func New(ctx context.Context, apiKey, model string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, HTTPClient: customHttpClient.Client})
	if err != nil {
		return nil, err
	}
	return &Client{genAi: c, model: model}, nil
}

func (c *Client) Generate(ctx context.Context, systemInstructions, userPrompt string, temperature float64, maxOutputTokens int) (string, error) {
	log := logger_i.NewLogger("gemini_generate")
	t := float32(temperature)
	maxTok := int32(maxOutputTokens)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstructions}}},
		Temperature:       &t,
		MaxOutputTokens:   maxTok,
	}
	result, err := c.genAi.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), cfg)
	if err != nil {
		log.Error("generate call failed", "error", err)
		return "", modelclient.ClassifyGRPCError(err)
	}
	return result.Text(), nil
}
