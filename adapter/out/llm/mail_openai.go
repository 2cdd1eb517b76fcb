// Package llm implements the chat-model port against the OpenAI API.
package llm

import (
	"context"
	"encoding/json"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"mail_server/core/port/out"
	"mail_server/pkg/apperr"
	"mail_server/pkg/logger"
)

// Config for the OpenAI classifier client.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Client wraps the OpenAI chat API in JSON mode. The answer is always
// a JSON object; anything the model produces that does not parse is
// degraded to an empty mapping.
type Client struct {
	client *openai.Client
	cfg    Config
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}
	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

// Invoke sends the prompt and decodes the structured answer. A
// transport-level failure is an error; an unparseable answer is not,
// it yields an empty mapping.
func (c *Client) Invoke(ctx context.Context, messages []out.ChatMessage) (map[string]any, error) {
	if c.cfg.APIKey == "" {
		return nil, apperr.ConfigError("openai api key not configured")
	}

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, apperr.ExternalError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return map[string]any{}, nil
	}

	content := resp.Choices[0].Message.Content
	var result map[string]any
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		logger.WithError(err).Warn("[LLM] Model answer is not valid JSON, degrading to empty result")
		return map[string]any{}, nil
	}
	return result, nil
}
