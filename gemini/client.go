// Package gemini implements the streaming model collaborator on the Google
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"github.com/escargot-labs/reviewbot"
)

// DefaultModel is the recommended Gemini model for hunk review passes.
const DefaultModel = "gemini-3-flash-preview"

// Compile-time interface verification.
var _ reviewbot.Completer = (*Client)(nil)

// Client wraps the Gemini genai.Client.
type Client struct {
	client *genai.Client
}

// NewClient creates a new Client with the given API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, err
	}
	return &Client{client: client}, nil
}

// StreamCompletion streams a completion as decoded text chunks. API failures
// surface as reviewbot.ErrModelUnavailable; context errors pass through so
// the caller can distinguish its own timeout from a transport fault.
func (c *Client) StreamCompletion(ctx context.Context, systemPrompt, userPrompt string, cfg reviewbot.SamplingConfig) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		temp := cfg.Temperature
		config := &genai.GenerateContentConfig{
			Temperature: &temp,
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: systemPrompt}},
			},
		}
		contents := []*genai.Content{{
			Parts: []*genai.Part{{Text: userPrompt}},
		}}

		for resp, err := range c.client.Models.GenerateContentStream(ctx, cfg.Model, contents, config) {
			if err != nil {
				yield("", wrapAPIError(err))
				return
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}

// wrapAPIError maps genai transport failures to the core error taxonomy.
func wrapAPIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: gemini API error (HTTP %d): %s",
			reviewbot.ErrModelUnavailable, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", reviewbot.ErrModelUnavailable, err)
}
