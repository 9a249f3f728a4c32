package reviewbot

import (
	"encoding/json"
	"iter"
	"strings"
)

// ExtractArray consumes a stream of decoded text chunks and returns the
// earliest complete JSON array found in the accumulated output. Extraction
// stops as soon as a syntactically complete array parses, so trailing model
// commentary after the array is never waited for. If the stream ends
// without one, a sanitize fallback runs over the full buffer; if that also
// fails the raw buffer is returned inside an UnparsableOutputError.
//
// Stream transport errors are returned as-is; the caller decides whether
// they are retryable.
func ExtractArray(stream iter.Seq2[string, error]) (string, error) {
	var sb strings.Builder
	for chunk, err := range stream {
		if err != nil {
			return "", err
		}
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if arr, ok := completeArray(sb.String()); ok {
			return arr, nil
		}
	}

	if arr := sanitizeOutput(sb.String()); arr != "" {
		return arr, nil
	}
	return "", &UnparsableOutputError{Raw: sb.String()}
}

// completeArray scans s from the first '[' for the earliest index at which
// brackets balance to zero, then validates the span as JSON. Bracket
// characters inside string literals must not count, so quote and escape
// state is tracked explicitly.
func completeArray(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}
	inString := false
	escaped := false
	depth := 0
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				span := s[start : i+1]
				if json.Valid([]byte(span)) {
					return span, true
				}
				return "", false
			}
		}
	}
	return "", false
}

// sanitizeOutput recovers a JSON array from prose-wrapped model output.
// A fenced ```json block is preferred; otherwise the slice between the
// first '[' and last ']' gets one final parse attempt. Returns "" if no
// valid array can be recovered.
func sanitizeOutput(s string) string {
	if block, ok := fencedJSONBlock(s); ok {
		if isJSONArray(block) {
			return block
		}
	}
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start < 0 || end <= start {
		return ""
	}
	if cand := strings.TrimSpace(s[start : end+1]); isJSONArray(cand) {
		return cand
	}
	return ""
}

// fencedJSONBlock extracts the body of the first ```json fenced block.
func fencedJSONBlock(s string) (string, bool) {
	lower := strings.ToLower(s)
	open := strings.Index(lower, "```json")
	if open < 0 {
		return "", false
	}
	rest := s[open+len("```json"):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func isJSONArray(s string) bool {
	var v []json.RawMessage
	return json.Unmarshal([]byte(s), &v) == nil
}

// ParseSuggestions decodes an extracted JSON array into raw suggestions.
// Elements that are not objects with the expected field types are skipped;
// schema enforcement proper happens in the filter pipeline.
func ParseSuggestions(arrayText string) []RawSuggestion {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(arrayText), &elems); err != nil {
		return nil
	}
	var out []RawSuggestion
	for _, raw := range elems {
		var s RawSuggestion
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
