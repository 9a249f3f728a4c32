package mock

import (
	"context"

	"github.com/escargot-labs/reviewbot"
)

// Compile-time interface verification.
var _ reviewbot.Reviewer = (*Reviewer)(nil)

// Reviewer is a mock implementation of reviewbot.Reviewer.
type Reviewer struct {
	ReviewFn func(ctx context.Context, req reviewbot.ReviewRequest) ([]reviewbot.AnchoredComment, error)
}

func (r *Reviewer) Review(ctx context.Context, req reviewbot.ReviewRequest) ([]reviewbot.AnchoredComment, error) {
	return r.ReviewFn(ctx, req)
}
