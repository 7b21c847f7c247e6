package oracle

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the chat-model oracle. It speaks the OpenAI chat-completions
// API, which Ollama and most local inference servers also serve.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient builds a Client for the given endpoint. baseURL should point at
// the API root (for Ollama: http://localhost:11434/v1). apiKey may be any
// non-empty placeholder for servers that ignore auth.
func NewClient(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}
}

// Rewrite asks the model for the updated usage line. The caller bounds ctx;
// one Rewrite call maps to one chat completion.
func (c *Client) Rewrite(ctx context.Context, req Request) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("oracle: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("oracle: empty completion response")
	}
	line := CleanResponse(resp.Choices[0].Message.Content)
	if line == "" {
		return "", fmt.Errorf("oracle: completion reduced to empty line")
	}
	return line, nil
}
