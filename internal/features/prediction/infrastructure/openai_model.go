package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	configdomain "hdb-predictor/backend/internal/features/config/domain"
	"hdb-predictor/backend/internal/features/prediction/domain"

	openai "github.com/sashabaranov/go-openai"
)

const estimateInstructions = `You estimate HDB resale prices in Singapore dollars.
The user message is a JSON object mapping model input columns to values.
Columns prefixed town_ and flat_model_ are one-hot encoded; the column set to 1 is the selected category.
Reply with a single number and nothing else: no currency sign, no thousands separators, no explanation.`

// openAIModelClient asks a chat model for a price estimate of one row.
type openAIModelClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIModelClient creates a chat-completion backed model client. A
// non-empty BaseURL points the client at an OpenAI-compatible endpoint.
func NewOpenAIModelClient(cfg configdomain.OpenAIConfig) (ModelClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key not set")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &openAIModelClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (c *openAIModelClient) Name() string { return configdomain.ProviderOpenAI }

// Predict sends the row as a JSON object and parses the reply as a number.
func (c *openAIModelClient) Predict(ctx context.Context, row domain.FeatureRow) (float64, error) {
	payload, err := json.Marshal(row.Map())
	if err != nil {
		return 0, fmt.Errorf("failed to encode row: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: estimateInstructions},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, errors.New("chat completion returned no choices")
	}
	return parseEstimate(resp.Choices[0].Message.Content)
}

// parseEstimate accepts a bare number, tolerating a leading $ and thousands
// separators.
func parseEstimate(content string) (float64, error) {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "$")
	text = strings.ReplaceAll(text, ",", "")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("chat model reply %q is not a number", content)
	}
	return v, nil
}

func (c *openAIModelClient) Close() error { return nil }
