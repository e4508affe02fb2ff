// Package llm provides the model transport used by the refactoring agents.
// The OpenAI client implements governor.Transport; all provider error
// classification (throttling vs. hard quota exhaustion) lives here so the
// governor and agents only ever see the loop's own error taxonomy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/CodexForgeBR/refactor-loop/internal/governor"
)

const systemRole = "You are a code refactoring assistant. Always answer in the exact format requested."

// Client sends chat-completion requests to the OpenAI API.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient builds a transport for the given API key and model.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is empty")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{
		api:   openai.NewClient(apiKey),
		model: model,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Send issues one chat completion and returns the response text.
// Provider failures are mapped to *governor.TransientLimitError or
// *governor.QuotaExceededError per the error taxonomy.
func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemRole},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyErr(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyErr maps provider errors onto the loop's error taxonomy.
// HTTP 429 with a quota/billing cause is a hard stop; any other 429 or
// explicit rate-limit signal is a retryable throttling condition.
func classifyErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := strings.ToLower(apiErr.Message)
		if code, ok := apiErr.Code.(string); ok {
			msg += " " + strings.ToLower(code)
		}

		if strings.Contains(msg, "insufficient_quota") || strings.Contains(msg, "billing") ||
			strings.Contains(msg, "quota") {
			return &governor.QuotaExceededError{Err: err}
		}
		if apiErr.HTTPStatusCode == 429 || strings.Contains(msg, "rate limit") ||
			strings.Contains(msg, "rate_limit") {
			return &governor.TransientLimitError{Err: err}
		}
	}
	return fmt.Errorf("model call failed: %w", err)
}
