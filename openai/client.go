// Package openai implements the streaming model collaborator on the OpenAI
// chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	openai "github.com/sashabaranov/go-openai"

	"github.com/escargot-labs/reviewbot"
)

// DefaultModel is the default OpenAI model for hunk review passes.
const DefaultModel = "gpt-4o-mini"

// Compile-time interface verification.
var _ reviewbot.Completer = (*Client)(nil)

// Client wraps the go-openai client.
type Client struct {
	client *openai.Client
}

// NewClient creates a new Client with the given API key.
func NewClient(apiKey string) *Client {
	return &Client{client: openai.NewClient(apiKey)}
}

// NewClientWithConfig creates a Client from a full go-openai config, for
// OpenAI-compatible endpoints behind a custom base URL.
func NewClientWithConfig(cfg openai.ClientConfig) *Client {
	return &Client{client: openai.NewClientWithConfig(cfg)}
}

// StreamCompletion streams a completion as decoded text chunks. API failures
// surface as reviewbot.ErrModelUnavailable; context errors pass through so
// the caller can distinguish its own timeout from a transport fault.
func (c *Client) StreamCompletion(ctx context.Context, systemPrompt, userPrompt string, cfg reviewbot.SamplingConfig) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Stream: true,
		})
		if err != nil {
			yield("", wrapAPIError(err))
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", wrapAPIError(err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if !yield(resp.Choices[0].Delta.Content, nil) {
				return
			}
		}
	}
}

// wrapAPIError maps go-openai transport failures to the core error taxonomy.
func wrapAPIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: openai API error (HTTP %d): %s",
			reviewbot.ErrModelUnavailable, apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", reviewbot.ErrModelUnavailable, err)
}
