// Package mock provides test doubles for reviewbot interfaces.
package mock

import (
	"context"
	"iter"

	"github.com/escargot-labs/reviewbot"
)

// Compile-time interface verification.
var _ reviewbot.Completer = (*Completer)(nil)

// Completer is a mock implementation of reviewbot.Completer.
type Completer struct {
	StreamCompletionFn func(ctx context.Context, systemPrompt, userPrompt string, cfg reviewbot.SamplingConfig) iter.Seq2[string, error]
}

func (c *Completer) StreamCompletion(ctx context.Context, systemPrompt, userPrompt string, cfg reviewbot.SamplingConfig) iter.Seq2[string, error] {
	return c.StreamCompletionFn(ctx, systemPrompt, userPrompt, cfg)
}

// Chunks builds a chunk stream that yields the given strings in order.
func Chunks(chunks ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
	}
}

// ChunksThenErr builds a chunk stream that yields the given strings and then
// fails with err.
func ChunksThenErr(err error, chunks ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		yield("", err)
	}
}
