// Package llm wraps an OpenAI-compatible chat API as the question
// generation and answer evaluation collaborators.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/evalumate/evalumate/internal/llm/prompts"
)

// DefaultTimeout bounds each collaborator call. A timed-out call is a
// retryable failure; session state is never mutated on failure.
const DefaultTimeout = 60 * time.Second

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// New creates a new LLM client. An empty baseURL keeps the library
// default endpoint; a zero timeout falls back to DefaultTimeout.
func New(baseURL, apiKey, modelName string, timeout time.Duration) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		timeout: timeout,
	}
}

// Ping verifies the endpoint responds with a minimal completion call.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.complete(ctx, "Reply with OK.")
	if err != nil {
		return fmt.Errorf("LLM ping: %w", err)
	}
	return nil
}

// GenerateQuestions asks the model for the three-section question
// payload the bank parser understands.
func (c *Client) GenerateQuestions(ctx context.Context, content string) (string, error) {
	raw, err := c.complete(ctx, prompts.Generation(content))
	if err != nil {
		return "", fmt.Errorf("generate questions: %w", err)
	}
	return raw, nil
}

// Evaluate scores a candidate answer; the reply is expected to be a
// bare number, but the caller's parser tolerates anything.
func (c *Client) Evaluate(ctx context.Context, question, referenceAnswer, candidateAnswer string) (string, error) {
	raw, err := c.complete(ctx, prompts.Evaluation(question, referenceAnswer, candidateAnswer))
	if err != nil {
		return "", fmt.Errorf("evaluate answer: %w", err)
	}
	return raw, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return raw, nil
}
