// Command reviewbot serves the pull-request review API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/escargot-labs/reviewbot"
	"github.com/escargot-labs/reviewbot/config"
	"github.com/escargot-labs/reviewbot/gemini"
	"github.com/escargot-labs/reviewbot/git"
	"github.com/escargot-labs/reviewbot/gitdiff"
	"github.com/escargot-labs/reviewbot/httpapi"
	"github.com/escargot-labs/reviewbot/openai"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	model, err := newCompleter(ctx, cfg)
	if err != nil {
		return err
	}

	engine := reviewbot.NewEngine(
		git.NewRunner(cfg.RepoPath, cfg.Remote, logger),
		gitdiff.NewParser(),
		model,
		reviewbot.EngineConfig{
			IncludePaths:        cfg.IncludePaths,
			ContextLines:        cfg.DiffContext,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			AlignWindow:         cfg.AlignWindow,
			Workers:             cfg.Workers,
			CallTimeout:         cfg.CallTimeout,
			MaxRetries:          cfg.MaxRetries,
			InterCallDelay:      cfg.InterCallDelay,
			Temperature:         cfg.Temperature,
			DefectModel:         cfg.DefectModel,
			RefactorModel:       cfg.RefactorModel,
			CompilerModel:       cfg.CompilerModel,
		},
		logger,
	)

	server := httpapi.New(cfg.ListenAddr, engine, cfg.MaxConcurrentReviews, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	}
}

// newCompleter builds the configured model provider, filling in provider
// default models for any pass left unset.
func newCompleter(ctx context.Context, cfg *config.Config) (reviewbot.Completer, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		if cfg.DefectModel == "" {
			cfg.DefectModel = gemini.DefaultModel
		}
		if cfg.RefactorModel == "" {
			cfg.RefactorModel = gemini.DefaultModel
		}
		return gemini.NewClient(ctx, cfg.GeminiAPIKey)
	case config.ProviderOpenAI:
		if cfg.DefectModel == "" {
			cfg.DefectModel = openai.DefaultModel
		}
		if cfg.RefactorModel == "" {
			cfg.RefactorModel = openai.DefaultModel
		}
		return openai.NewClient(cfg.OpenAIAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
