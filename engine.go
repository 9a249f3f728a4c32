package reviewbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// EngineConfig holds the tunables of the review pipeline.
type EngineConfig struct {
	IncludePaths        []string      // review only files under these prefixes
	ContextLines        int           // -U value for the unified diff
	ConfidenceThreshold float64       // minimum accepted suggestion confidence
	AlignWindow         int           // ± line window for head alignment
	Workers             int           // per-pass hunk fan-out limit
	CallTimeout         time.Duration // per model call
	MaxRetries          int           // extra attempts after a retryable failure
	InterCallDelay      time.Duration // pacing between consecutive model calls
	Temperature         float32
	DefectModel         string
	RefactorModel       string
	CompilerModel       string // empty disables the compiler-hints pass
}

// Engine runs the full review pipeline for one request: diff retrieval and
// parsing, staged model passes per hunk, suggestion filtering, and head
// alignment. An Engine is safe for concurrent use; all per-request state
// (head blob cache, accepted-id sets) is local to a Review call.
type Engine struct {
	git    DiffSource
	parser Parser
	model  Completer
	cfg    EngineConfig
	logger *slog.Logger
}

// Compile-time interface verification.
var _ Reviewer = (*Engine)(nil)

// NewEngine creates an Engine. A nil logger discards all output.
func NewEngine(git DiffSource, parser Parser, model Completer, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{git: git, parser: parser, model: model, cfg: cfg, logger: logger}
}

// hunkItem is the unit of per-pass work: one hunk with its catalog.
type hunkItem struct {
	path    string
	hunk    Hunk
	catalog []CatalogEntry
}

// passSpec pairs a pass with the model that serves it.
type passSpec struct {
	pass  Pass
	model string
}

// Review executes the pipeline for req and returns the anchored comments.
func (e *Engine) Review(ctx context.Context, req ReviewRequest) ([]AnchoredComment, error) {
	e.logger.Info("review start",
		"pr", req.PullRequestNumber, "base", req.BaseSHA, "head", req.HeadSHA)

	if err := e.git.EnsureCommits(ctx, req.PullRequestNumber, req.BaseSHA, req.HeadSHA); err != nil {
		return nil, err
	}

	diffText, err := e.git.UnifiedDiff(ctx, req.BaseSHA, req.HeadSHA, e.cfg.ContextLines)
	if err != nil {
		return nil, err
	}
	diff, err := e.parser.Parse(strings.NewReader(normalizeDiffText(diffText)))
	if err != nil {
		return nil, err
	}

	items, cache := e.prepare(ctx, req.HeadSHA, diff)
	if len(items) == 0 {
		e.logger.Info("no hunks to review")
		return nil, nil
	}
	e.logger.Info("review plan", "hunks", len(items), "workers", e.cfg.Workers)

	passes := []passSpec{
		{PassDefect, e.cfg.DefectModel},
		{PassRefactor, e.cfg.RefactorModel},
	}
	if e.cfg.CompilerModel != "" {
		passes = append(passes, passSpec{PassCompiler, e.cfg.CompilerModel})
	}

	aligner := &Aligner{Window: e.cfg.AlignWindow, Logger: e.logger}

	// prior[i] accumulates the target ids accepted for item i by earlier
	// passes; it feeds both the prompt exclusion and the filter safety net.
	prior := make([]map[string]bool, len(items))
	for i := range prior {
		prior[i] = make(map[string]bool)
	}
	comments := make([][]AnchoredComment, len(items))

	for _, spec := range passes {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Workers)
		for i := range items {
			g.Go(func() error {
				passComments, acceptedIDs, err := e.runPass(gctx, spec, items[i], prior[i], req.HeadSHA, cache, aligner)
				if err != nil {
					return fmt.Errorf("%s pass, hunk %s: %w", spec.pass, items[i].path, err)
				}
				comments[i] = append(comments[i], passComments...)
				for id := range acceptedIDs {
					prior[i][id] = true
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var all []AnchoredComment
	for i := range items {
		all = append(all, comments[i]...)
	}
	e.logger.Info("review done", "pr", req.PullRequestNumber, "comments", len(all))
	return all, nil
}

// prepare scopes the diff to the configured path prefixes, builds per-hunk
// catalogs, and prefills the head blob cache so pass workers only read it.
func (e *Engine) prepare(ctx context.Context, headSHA string, diff *Diff) ([]hunkItem, map[string][]string) {
	var items []hunkItem
	cache := make(map[string][]string)
	for _, file := range diff.Files {
		if !pathIncluded(file.Path, e.cfg.IncludePaths) {
			continue
		}
		key := headSHA + ":" + file.Path
		if _, ok := cache[key]; !ok {
			lines, err := e.git.FileContentAt(ctx, headSHA, file.Path)
			if err != nil {
				e.logger.Debug("could not load head blob", "key", key, "err", err)
				lines = nil
			}
			cache[key] = lines
		}
		for hunkIdx, hunk := range file.Hunks {
			catalog := BuildCatalog(hunkIdx, hunk)
			if len(catalog) == 0 {
				continue
			}
			items = append(items, hunkItem{path: file.Path, hunk: hunk, catalog: catalog})
		}
	}
	return items, cache
}

// runPass executes one pass over one hunk: prompt, stream, filter, align.
// An unparsable model response yields zero suggestions rather than an error.
func (e *Engine) runPass(ctx context.Context, spec passSpec, item hunkItem, prior map[string]bool, headSHA string, cache map[string][]string, aligner *Aligner) ([]AnchoredComment, map[string]bool, error) {
	if !anyCommentable(item.catalog, prior) {
		e.logger.Debug("pass skipped: all catalog ids accepted by earlier passes",
			"pass", spec.pass.String(), "path", item.path)
		return nil, nil, nil
	}
	prompt := BuildPrompt(item.path, item.hunk, item.catalog, prior)

	arrayText, err := e.complete(ctx, SystemPrompt(spec.pass), prompt, spec.model)
	if err != nil {
		var unparsable *UnparsableOutputError
		if errors.As(err, &unparsable) {
			e.logger.Warn("model output unparsable, pass yields no suggestions",
				"pass", spec.pass.String(), "path", item.path, "raw_len", len(unparsable.Raw))
			return nil, nil, nil
		}
		return nil, nil, err
	}

	raw := ParseSuggestions(arrayText)
	e.logger.Debug("model returned suggestions",
		"pass", spec.pass.String(), "path", item.path, "count", len(raw))

	accepted := FilterSuggestions(e.logger, spec.pass, raw, item.catalog, prior, e.cfg.ConfidenceThreshold)

	headLines := cache[headSHA+":"+item.path]
	var out []AnchoredComment
	acceptedIDs := make(map[string]bool)
	for _, s := range accepted {
		line, ok := aligner.Align(s.Entry, item.hunk, headLines)
		if !ok {
			e.logger.Debug("suggestion dropped: unresolved alignment",
				"pass", spec.pass.String(), "path", item.path, "target_id", s.TargetID)
			continue
		}
		out = append(out, AnchoredComment{
			Path:     item.path,
			Body:     s.Message,
			CommitID: headSHA,
			Line:     line,
			Side:     SideRight,
		})
		acceptedIDs[s.TargetID] = true
	}
	if len(raw) > 0 && len(out) == 0 {
		e.logger.Warn("all suggestions dropped by filters",
			"pass", spec.pass.String(), "path", item.path, "raw", len(raw))
	}
	return out, acceptedIDs, nil
}

// complete performs one model call with per-call timeout, retry on timeout
// or transport failure, and optional pacing between consecutive calls.
func (e *Engine) complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	sampling := SamplingConfig{Model: model, Temperature: e.cfg.Temperature}
	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
		arrayText, err := ExtractArray(e.model.StreamCompletion(callCtx, systemPrompt, userPrompt, sampling))
		cancel()
		e.pace(ctx)

		if err == nil {
			return arrayText, nil
		}
		var unparsable *UnparsableOutputError
		if errors.As(err, &unparsable) {
			return "", err
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s: %v", ErrTimeout, e.cfg.CallTimeout, err)
		}
		if !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrModelUnavailable) {
			return "", err
		}
		lastErr = err
		if attempt < e.cfg.MaxRetries {
			e.logger.Warn("model call failed, retrying",
				"attempt", attempt+1, "max", e.cfg.MaxRetries+1, "err", err)
		}
	}
	return "", lastErr
}

// pace applies the configured delay between consecutive model calls without
// outliving the request context.
func (e *Engine) pace(ctx context.Context) {
	if e.cfg.InterCallDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(e.cfg.InterCallDelay):
	}
}

// normalizeDiffText converts CRLF to LF and guarantees a trailing newline so
// the parser never sees a truncated final line.
func normalizeDiffText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}

// anyCommentable reports whether the catalog still has an entry not already
// accepted by an earlier pass. A fully-covered hunk has nothing left to ask
// the model about.
func anyCommentable(catalog []CatalogEntry, excluded map[string]bool) bool {
	for _, e := range catalog {
		if !excluded[e.TargetID] {
			return true
		}
	}
	return false
}

// pathIncluded reports whether path falls under one of the allowed prefixes.
// An empty prefix list includes everything.
func pathIncluded(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
