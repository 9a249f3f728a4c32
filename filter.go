package reviewbot

import (
	"io"
	"log/slog"
)

// FilterSuggestions runs the multi-stage filter pipeline over raw model
// output for one hunk and pass. Stages apply in order and short-circuit per
// item: schema validity, target validity against the catalog, same-pass
// duplicate drop, confidence threshold, cross-pass de-duplication against
// ids accepted by earlier passes. Every rejection is logged with the reason.
//
// Each pass's system prompt fixes the category it may emit, so a category
// not matching the running pass is model noise and fails schema validation.
func FilterSuggestions(logger *slog.Logger, pass Pass, raw []RawSuggestion, catalog []CatalogEntry, priorAccepted map[string]bool, threshold float64) []AcceptedSuggestion {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	byID := CatalogByID(catalog)
	seen := make(map[string]bool)

	var accepted []AcceptedSuggestion
	for _, s := range raw {
		if s.TargetID == "" || s.Message == "" || s.Category != pass.String() ||
			s.Confidence < 0 || s.Confidence > 1 {
			logger.Debug("filter: schema invalid",
				"pass", pass.String(), "target_id", s.TargetID, "category", s.Category)
			continue
		}
		entry, ok := byID[s.TargetID]
		if !ok {
			logger.Debug("filter: unknown target id",
				"pass", pass.String(), "target_id", s.TargetID)
			continue
		}
		if seen[s.TargetID] {
			logger.Debug("filter: duplicate target id in pass",
				"pass", pass.String(), "target_id", s.TargetID)
			continue
		}
		if s.Confidence < threshold {
			logger.Debug("filter: below confidence threshold",
				"pass", pass.String(), "target_id", s.TargetID,
				"confidence", s.Confidence, "threshold", threshold)
			continue
		}
		if priorAccepted[s.TargetID] {
			logger.Debug("filter: already accepted in earlier pass",
				"pass", pass.String(), "target_id", s.TargetID)
			continue
		}
		seen[s.TargetID] = true
		accepted = append(accepted, AcceptedSuggestion{
			RawSuggestion: s,
			Pass:          pass,
			Entry:         entry,
		})
	}
	return accepted
}
