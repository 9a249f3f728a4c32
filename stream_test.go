package reviewbot_test

import (
	"errors"
	"testing"

	"github.com/escargot-labs/reviewbot"
	"github.com/escargot-labs/reviewbot/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const suggestionArray = `[{"target_id":"0:1","category":"defect","message":"possible null deref of ptr","confidence":0.92}]`

func TestExtractArray_SingleChunk(t *testing.T) {
	t.Parallel()

	got, err := reviewbot.ExtractArray(mock.Chunks(suggestionArray))

	require.NoError(t, err)
	assert.Equal(t, suggestionArray, got)
}

func TestExtractArray_CharByCharMatchesSingleChunk(t *testing.T) {
	t.Parallel()

	chunks := make([]string, 0, len(suggestionArray))
	for _, r := range suggestionArray {
		chunks = append(chunks, string(r))
	}

	got, err := reviewbot.ExtractArray(mock.Chunks(chunks...))

	require.NoError(t, err)
	assert.Equal(t, suggestionArray, got)
}

func TestExtractArray_StopsBeforeTrailingProse(t *testing.T) {
	t.Parallel()

	got, err := reviewbot.ExtractArray(mock.Chunks(
		suggestionArray, " \n\nI hope this helps!",
	))

	require.NoError(t, err)
	assert.Equal(t, suggestionArray, got)
}

func TestExtractArray_IgnoresBracketsInsideStrings(t *testing.T) {
	t.Parallel()

	input := `[{"target_id":"0:0","category":"defect","message":"index expr a[i]] is out of bounds","confidence":0.9}]`

	got, err := reviewbot.ExtractArray(mock.Chunks(input))

	require.NoError(t, err)
	assert.Equal(t, input, got)
}

func TestExtractArray_RespectsEscapedQuotes(t *testing.T) {
	t.Parallel()

	input := `[{"target_id":"0:0","category":"defect","message":"string \"a]\" leaks","confidence":0.9}]`

	got, err := reviewbot.ExtractArray(mock.Chunks(input))

	require.NoError(t, err)
	assert.Equal(t, input, got)
}

func TestExtractArray_LeadingProseBeforeArray(t *testing.T) {
	t.Parallel()

	got, err := reviewbot.ExtractArray(mock.Chunks(
		"Here are my findings:\n", suggestionArray,
	))

	require.NoError(t, err)
	assert.Equal(t, suggestionArray, got)
}

func TestExtractArray_FencedFallback(t *testing.T) {
	t.Parallel()

	// Unterminated prose bracket before the fence keeps the balance scan
	// from ever completing; only the sanitize fallback recovers the array.
	got, err := reviewbot.ExtractArray(mock.Chunks(
		"Results [see below:\n```json\n[]\n```\nDone.",
	))

	require.NoError(t, err)
	assert.Equal(t, "[]", got)
}

func TestExtractArray_EmptyArray(t *testing.T) {
	t.Parallel()

	got, err := reviewbot.ExtractArray(mock.Chunks("[]"))

	require.NoError(t, err)
	assert.Equal(t, "[]", got)
}

func TestExtractArray_UnparsableOutput(t *testing.T) {
	t.Parallel()

	_, err := reviewbot.ExtractArray(mock.Chunks("no structured output at all"))

	var unparsable *reviewbot.UnparsableOutputError
	require.ErrorAs(t, err, &unparsable)
	assert.Equal(t, "no structured output at all", unparsable.Raw)
}

func TestExtractArray_EmptyStream(t *testing.T) {
	t.Parallel()

	_, err := reviewbot.ExtractArray(mock.Chunks())

	var unparsable *reviewbot.UnparsableOutputError
	require.ErrorAs(t, err, &unparsable)
	assert.Empty(t, unparsable.Raw)
}

func TestExtractArray_TransportErrorPassesThrough(t *testing.T) {
	t.Parallel()

	transportErr := errors.New("connection reset")

	_, err := reviewbot.ExtractArray(mock.ChunksThenErr(transportErr, "[{"))

	assert.ErrorIs(t, err, transportErr)
}

func TestParseSuggestions_SkipsNonObjectElements(t *testing.T) {
	t.Parallel()

	input := `[{"target_id":"0:0","category":"defect","message":"m","confidence":0.9}, "stray string", 42]`

	got := reviewbot.ParseSuggestions(input)

	require.Len(t, got, 1)
	assert.Equal(t, "0:0", got[0].TargetID)
}

func TestParseSuggestions_EmptyArray(t *testing.T) {
	t.Parallel()

	assert.Empty(t, reviewbot.ParseSuggestions("[]"))
}
