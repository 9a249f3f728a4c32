package reviewbot

import (
	"errors"
	"fmt"
)

// Error taxonomy for the review pipeline. Sentinels are matched with
// errors.Is at the request boundary to pick a transport status.
var (
	// ErrMalformedDiff indicates the diff text could not be parsed as a
	// unified diff. Fatal for the request.
	ErrMalformedDiff = errors.New("malformed diff")

	// ErrTimeout indicates a model call exceeded its per-call timeout.
	// Retryable up to the configured retry count.
	ErrTimeout = errors.New("model call timed out")

	// ErrModelUnavailable indicates a non-recoverable model transport
	// failure. Retryable up to the configured retry count.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrGitCommand is the single opaque failure kind all git/content
	// retrieval errors map to at the core boundary.
	ErrGitCommand = errors.New("git command failed")

	// ErrRevisionNotFound indicates a requested commit is absent from the
	// repository even after fetch fallbacks.
	ErrRevisionNotFound = errors.New("revision not found")
)

// UnparsableOutputError indicates model output could not be reduced to a
// JSON array even after the sanitize fallback. The caller recovers locally
// by treating the pass as yielding zero suggestions; Raw is kept for
// diagnostics.
type UnparsableOutputError struct {
	Raw string
}

func (e *UnparsableOutputError) Error() string {
	return fmt.Sprintf("unparsable model output (%d bytes)", len(e.Raw))
}
