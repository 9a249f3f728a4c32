// Package reviewbot provides domain types for turning a pull-request diff
// into line-anchored review comments via staged language-model passes.
package reviewbot

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
)

// Diff represents a parsed unified diff, scoped to reviewable files.
type Diff struct {
	Files []DiffFile
}

// DiffFile represents the hunks of a single file, addressed by its
// new-side (target) path.
type DiffFile struct {
	Path  string
	Hunks []Hunk
}

// Hunk represents a contiguous block of changes within a file.
type Hunk struct {
	OldStart int // From @@ -X,...
	OldCount int // From @@ -X,Y ...
	NewStart int // From @@ ...,+X
	NewCount int // From @@ ...,+X,Y
	Lines    []DiffLine
}

// Render returns the hunk in unified diff format for prompt embedding.
func (h Hunk) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	for _, line := range h.Lines {
		sb.WriteString(line.Kind.Prefix())
		sb.WriteString(line.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// DiffLine represents a single line within a hunk. Content carries no diff
// prefix and no trailing newline. OldLine is 0 for added lines, NewLine is
// 0 for removed lines.
type DiffLine struct {
	Kind    LineKind
	Content string
	OldLine int
	NewLine int
}

// LineKind represents the kind of a diff line.
type LineKind int

// Line kinds.
const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

// Prefix returns the unified-diff prefix character for the line kind.
func (k LineKind) Prefix() string {
	switch k {
	case LineAdded:
		return "+"
	case LineRemoved:
		return "-"
	default:
		return " "
	}
}

// Pass identifies one complete model invocation cycle across the hunks of a
// request. Passes run sequentially; each pass sees the ids accepted by the
// passes before it.
type Pass int

// Review passes, in execution order.
const (
	PassDefect Pass = iota
	PassRefactor
	PassCompiler
)

// String returns the pass name used in logs and suggestion categories.
func (p Pass) String() string {
	switch p {
	case PassDefect:
		return "defect"
	case PassRefactor:
		return "refactor"
	case PassCompiler:
		return "compiler"
	default:
		return "unknown"
	}
}

// RawSuggestion is a suggestion as parsed from model output. It is not yet
// trusted: every field must survive the filter pipeline before use.
type RawSuggestion struct {
	TargetID   string  `json:"target_id"`
	Category   string  `json:"category"`
	Message    string  `json:"message"`
	Confidence float64 `json:"confidence"`
}

// AcceptedSuggestion is a RawSuggestion that passed the filter pipeline,
// tagged with its source pass and resolved catalog entry.
type AcceptedSuggestion struct {
	RawSuggestion
	Pass  Pass
	Entry CatalogEntry
}

// AnchoredComment is the terminal output entity: a validated suggestion
// anchored to an exact line of the head revision.
type AnchoredComment struct {
	Path     string `json:"path"`
	Body     string `json:"body"`
	CommitID string `json:"commit_id"`
	Line     int    `json:"line"`
	Side     string `json:"side"` // always "RIGHT"
}

// SideRight is the only side this pipeline anchors to: comments always
// reference the new (target) side of the diff.
const SideRight = "RIGHT"

// ReviewRequest identifies the revision range and pull request to review.
type ReviewRequest struct {
	BaseSHA           string `json:"base_sha"`
	HeadSHA           string `json:"head_sha"`
	PullRequestNumber int    `json:"pull_request_number"`
}

// SamplingConfig holds per-call model sampling parameters.
type SamplingConfig struct {
	Model       string
	Temperature float32
}

// DiffSource provides diff text and file content from a git repository.
type DiffSource interface {
	// EnsureCommits makes base and head SHAs resolvable locally, fetching
	// the pull request ref or the raw SHAs as needed.
	EnsureCommits(ctx context.Context, pullRequestNumber int, baseSHA, headSHA string) error
	// UnifiedDiff returns the unified diff text for base..head with the
	// given number of context lines.
	UnifiedDiff(ctx context.Context, baseSHA, headSHA string, contextLines int) (string, error)
	// FileContentAt returns the lines of path at the given revision.
	FileContentAt(ctx context.Context, revision, path string) ([]string, error)
}

// Completer streams a model completion as decoded text chunks. The sequence
// yields a non-nil error at most once, as its final element.
type Completer interface {
	StreamCompletion(ctx context.Context, systemPrompt, userPrompt string, cfg SamplingConfig) iter.Seq2[string, error]
}

// Parser parses unified diff content into a Diff.
type Parser interface {
	Parse(r io.Reader) (*Diff, error)
}

// Reviewer executes a full review request.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) ([]AnchoredComment, error)
}
