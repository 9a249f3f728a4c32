package reviewbot

import (
	"fmt"
	"strings"
)

// CatalogEntry is one addressable added line within a hunk. Only catalog
// entries may be cited by the model; context and removed lines are retained
// in the Hunk for alignment context but are never directly citable.
type CatalogEntry struct {
	TargetID string // "{hunkIndex}:{ordinal}", stable across passes
	Content  string // added line text, no diff prefix
	NewLine  int    // 1-based line number on the new side
	LineIdx  int    // position within the hunk's Lines, for context lookup
}

// BuildCatalog enumerates the commentable added lines of a hunk. Ids encode
// the hunk's index within its file so they never collide across hunks.
// Blank and brace-only lines carry no reviewable content and are excluded.
func BuildCatalog(hunkIndex int, h Hunk) []CatalogEntry {
	var entries []CatalogEntry
	ordinal := 0
	for i, line := range h.Lines {
		if line.Kind != LineAdded {
			continue
		}
		if !isMeaningfulCode(line.Content) {
			continue
		}
		entries = append(entries, CatalogEntry{
			TargetID: fmt.Sprintf("%d:%d", hunkIndex, ordinal),
			Content:  line.Content,
			NewLine:  line.NewLine,
			LineIdx:  i,
		})
		ordinal++
	}
	return entries
}

// CatalogByID indexes catalog entries by target id for filter lookups.
func CatalogByID(entries []CatalogEntry) map[string]CatalogEntry {
	byID := make(map[string]CatalogEntry, len(entries))
	for _, e := range entries {
		byID[e.TargetID] = e
	}
	return byID
}

// isMeaningfulCode reports whether an added line is worth cataloging.
// Empty lines and lone braces attract noise comments, never real findings.
func isMeaningfulCode(content string) bool {
	s := strings.TrimSpace(content)
	switch s {
	case "", "{", "}", "};":
		return false
	}
	return true
}

// tabWidth is the tab stop used when normalizing lines for comparison.
const tabWidth = 4

// normalizeForCompare expands tabs and trims surrounding whitespace so that
// reflowed indentation does not defeat line equality checks.
func normalizeForCompare(s string) string {
	if strings.ContainsRune(s, '\t') {
		s = expandTabs(s, tabWidth)
	}
	return strings.TrimSpace(s)
}

// expandTabs replaces each tab with spaces up to the next multiple of width.
func expandTabs(s string, width int) string {
	var sb strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := width - col%width
			for range n {
				sb.WriteByte(' ')
			}
			col += n
			continue
		}
		sb.WriteRune(r)
		col++
	}
	return sb.String()
}
