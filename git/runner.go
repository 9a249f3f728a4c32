// Package git provides access to git operations via shell commands.
package git

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/escargot-labs/reviewbot"
)

// Compile-time interface verification.
var _ reviewbot.DiffSource = (*Runner)(nil)

// Runner executes git commands against a single local repository clone.
// All failures surface as reviewbot.ErrGitCommand so callers see one opaque
// failure kind at the core boundary.
type Runner struct {
	RepoPath string
	Remote   string // remote holding the pull request refs, e.g. "upstream"
	Logger   *slog.Logger
}

// NewRunner creates a git runner for the repository at repoPath.
func NewRunner(repoPath, remote string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{RepoPath: repoPath, Remote: remote, Logger: logger}
}

func (r *Runner) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.RepoPath}, args...)...)
	output, err := cmd.Output()
	if err != nil {
		detail := err.Error()
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		return "", fmt.Errorf("%w: git %s: %s", reviewbot.ErrGitCommand, args[0], detail)
	}
	return string(output), nil
}

// EnsureCommits makes the base and head SHAs resolvable locally. It prunes
// and refreshes the remote, tries the pull request head ref, and falls back
// to fetching the raw SHAs; only a commit still missing after all fallbacks
// is an error.
func (r *Runner) EnsureCommits(ctx context.Context, pullRequestNumber int, baseSHA, headSHA string) error {
	if _, err := r.run(ctx, "fetch", r.Remote, "--prune"); err != nil {
		r.Logger.Warn("remote prune fetch failed, continuing", "remote", r.Remote, "err", err)
	}
	prRef := fmt.Sprintf("refs/pull/%d/head", pullRequestNumber)
	if _, err := r.run(ctx, "fetch", r.Remote, prRef); err != nil {
		r.Logger.Warn("pull request ref not found, continuing with SHAs", "ref", prRef, "err", err)
	}

	for _, sha := range []string{baseSHA, headSHA} {
		if r.hasCommit(ctx, sha) {
			continue
		}
		if _, err := r.run(ctx, "fetch", r.Remote, sha); err != nil {
			r.Logger.Warn("direct SHA fetch failed", "sha", sha, "err", err)
		}
		if !r.hasCommit(ctx, sha) {
			return fmt.Errorf("%w: %s", reviewbot.ErrRevisionNotFound, sha)
		}
	}
	return nil
}

func (r *Runner) hasCommit(ctx context.Context, sha string) bool {
	_, err := r.run(ctx, "cat-file", "-e", sha+"^{commit}")
	return err == nil
}

// UnifiedDiff returns the unified diff for baseSHA..headSHA with the given
// number of context lines.
func (r *Runner) UnifiedDiff(ctx context.Context, baseSHA, headSHA string, contextLines int) (string, error) {
	return r.run(ctx, "diff", "--no-color", "--no-ext-diff", "--text",
		fmt.Sprintf("-U%d", contextLines), baseSHA, headSHA)
}

// FileContentAt returns the lines of path at the given revision.
func (r *Runner) FileContentAt(ctx context.Context, revision, path string) ([]string, error) {
	blob, err := r.run(ctx, "show", revision+":"+path)
	if err != nil {
		return nil, err
	}
	return splitLines(blob), nil
}

// splitLines splits blob content the way git numbers lines: no trailing
// empty line for content ending in a newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
