package mock

import (
	"context"

	"github.com/escargot-labs/reviewbot"
)

// Compile-time interface verification.
var _ reviewbot.DiffSource = (*DiffSource)(nil)

// DiffSource is a mock implementation of reviewbot.DiffSource.
type DiffSource struct {
	EnsureCommitsFn func(ctx context.Context, pullRequestNumber int, baseSHA, headSHA string) error
	UnifiedDiffFn   func(ctx context.Context, baseSHA, headSHA string, contextLines int) (string, error)
	FileContentAtFn func(ctx context.Context, revision, path string) ([]string, error)
}

func (d *DiffSource) EnsureCommits(ctx context.Context, pullRequestNumber int, baseSHA, headSHA string) error {
	return d.EnsureCommitsFn(ctx, pullRequestNumber, baseSHA, headSHA)
}

func (d *DiffSource) UnifiedDiff(ctx context.Context, baseSHA, headSHA string, contextLines int) (string, error) {
	return d.UnifiedDiffFn(ctx, baseSHA, headSHA, contextLines)
}

func (d *DiffSource) FileContentAt(ctx context.Context, revision, path string) ([]string, error) {
	return d.FileContentAtFn(ctx, revision, path)
}
