package reviewbot

import (
	"io"
	"log/slog"
)

// DefaultAlignWindow is the default ± line window for the nearby search.
const DefaultAlignWindow = 25

// contextDepth is how many target-side neighbor lines on each side are used
// to disambiguate between equally matching candidates.
const contextDepth = 2

// Aligner resolves a catalog entry's diff-reported line number against the
// actual head-revision file content. The diff may have been computed before
// later commits shifted the file, so the reported slot can be stale.
type Aligner struct {
	Window int // ± search window in lines; DefaultAlignWindow if 0
	Logger *slog.Logger
}

func (a *Aligner) window() int {
	if a.Window > 0 {
		return a.Window
	}
	return DefaultAlignWindow
}

func (a *Aligner) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Align returns the 1-based head-revision line number for entry, or false if
// the entry cannot be unambiguously located. Resolution order: exact slot
// match, unique match within the window, context tie-break. A wrong anchor
// is worse than a missing one, so every ambiguous case reports false.
func (a *Aligner) Align(entry CatalogEntry, hunk Hunk, headLines []string) (int, bool) {
	expected := normalizeForCompare(entry.Content)
	total := len(headLines)
	baseIdx := entry.NewLine - 1

	// Step 1: the diff-reported slot still holds the same content.
	if baseIdx >= 0 && baseIdx < total && normalizeForCompare(headLines[baseIdx]) == expected {
		return entry.NewLine, true
	}

	// Step 2: collect candidates within the window, nearest first.
	var candidates []int
	for delta := 1; delta <= a.window(); delta++ {
		if up := baseIdx - delta; up >= 0 && up < total && normalizeForCompare(headLines[up]) == expected {
			candidates = append(candidates, up)
		}
		if down := baseIdx + delta; down >= 0 && down < total && normalizeForCompare(headLines[down]) == expected {
			candidates = append(candidates, down)
		}
	}

	switch len(candidates) {
	case 0:
		a.logger().Debug("align: no candidate in window",
			"target_id", entry.TargetID, "line", entry.NewLine, "window", a.window())
		return 0, false
	case 1:
		return candidates[0] + 1, true
	}

	// Step 3: disambiguate by surrounding target-side context from the hunk.
	prevCtx, nextCtx := targetContext(hunk, entry.LineIdx, contextDepth)
	bestIdx, bestScore, tie := -1, -1, false
	for _, pos := range candidates {
		score := 0
		for offset, want := range prevCtx {
			if nei := pos - (offset + 1); nei >= 0 && nei < total && normalizeForCompare(headLines[nei]) == want {
				score++
			}
		}
		for offset, want := range nextCtx {
			if nei := pos + (offset + 1); nei >= 0 && nei < total && normalizeForCompare(headLines[nei]) == want {
				score++
			}
		}
		switch {
		case score > bestScore:
			bestIdx, bestScore, tie = pos, score, false
		case score == bestScore:
			tie = true
		}
	}

	// Only a unique winner with actual context support is trustworthy.
	if bestIdx >= 0 && !tie && bestScore > 0 {
		return bestIdx + 1, true
	}
	a.logger().Debug("align: ambiguous candidates",
		"target_id", entry.TargetID, "line", entry.NewLine, "candidates", len(candidates))
	return 0, false
}

// targetContext collects up to depth normalized target-side lines on each
// side of the hunk line at centerIdx. prev[0] and next[0] are the nearest
// neighbors. Removed lines have no target-side position and are skipped.
func targetContext(hunk Hunk, centerIdx, depth int) (prev, next []string) {
	for i := centerIdx - 1; i >= 0 && len(prev) < depth; i-- {
		if hunk.Lines[i].NewLine != 0 {
			prev = append(prev, normalizeForCompare(hunk.Lines[i].Content))
		}
	}
	for i := centerIdx + 1; i < len(hunk.Lines) && len(next) < depth; i++ {
		if hunk.Lines[i].NewLine != 0 {
			next = append(next, normalizeForCompare(hunk.Lines[i].Content))
		}
	}
	return prev, next
}
