// Package gitdiff implements unified diff parsing using bluekeyes/go-gitdiff.
package gitdiff

import (
	"fmt"
	"io"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/escargot-labs/reviewbot"
)

// Compile-time interface verification.
var _ reviewbot.Parser = (*Parser)(nil)

// Parser parses unified diff content into the review domain model.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads diff content and returns the parsed result. Binary files and
// deletions have no reviewable new side and are omitted. A parse failure is
// reported as reviewbot.ErrMalformedDiff, which is fatal for the request.
func (p *Parser) Parse(r io.Reader) (*reviewbot.Diff, error) {
	files, _, err := gitdiff.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", reviewbot.ErrMalformedDiff, err)
	}

	result := &reviewbot.Diff{}
	for _, f := range files {
		if f.IsBinary || f.IsDelete || f.NewName == "" {
			continue
		}
		result.Files = append(result.Files, convertFile(f))
	}
	return result, nil
}

func convertFile(f *gitdiff.File) reviewbot.DiffFile {
	df := reviewbot.DiffFile{
		Path:  f.NewName,
		Hunks: make([]reviewbot.Hunk, 0, len(f.TextFragments)),
	}
	for _, frag := range f.TextFragments {
		df.Hunks = append(df.Hunks, convertFragment(frag))
	}
	return df
}

func convertFragment(frag *gitdiff.TextFragment) reviewbot.Hunk {
	hunk := reviewbot.Hunk{
		OldStart: int(frag.OldPosition),
		OldCount: int(frag.OldLines),
		NewStart: int(frag.NewPosition),
		NewCount: int(frag.NewLines),
	}

	// Track line numbers for old and new sides
	oldLine := int(frag.OldPosition)
	newLine := int(frag.NewPosition)

	for _, l := range frag.Lines {
		line := reviewbot.DiffLine{
			Content: strings.TrimSuffix(l.Line, "\n"),
		}

		switch l.Op {
		case gitdiff.OpContext:
			line.Kind = reviewbot.LineContext
			line.OldLine = oldLine
			line.NewLine = newLine
			oldLine++
			newLine++
		case gitdiff.OpAdd:
			line.Kind = reviewbot.LineAdded
			line.NewLine = newLine
			newLine++
		case gitdiff.OpDelete:
			line.Kind = reviewbot.LineRemoved
			line.OldLine = oldLine
			oldLine++
		}

		hunk.Lines = append(hunk.Lines, line)
	}

	return hunk
}
