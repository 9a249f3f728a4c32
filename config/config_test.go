package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/escargot-labs/reviewbot/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REPO_PATH", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "test-key")
	// Clear optional knobs that may leak in from the environment.
	for _, key := range []string{
		"GIT_REMOTE", "LISTEN_ADDR", "LOG_LEVEL", "LLM_PROVIDER", "OPENAI_API_KEY",
		"MODEL_DEFECT", "MODEL_REFACTOR", "MODEL_COMPILER", "LLM_TEMPERATURE",
		"DIFF_CONTEXT", "REVIEW_INCLUDE_PATHS", "CONFIDENCE_THRESHOLD",
		"ALIGN_SEARCH_WINDOW", "LLM_TIMEOUT_SECONDS", "LLM_MAX_RETRIES",
		"INTER_REQUEST_DELAY_SECONDS", "REVIEW_PARALLEL_WORKERS", "REVIEW_MAX_CONCURRENCY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "upstream", cfg.Remote)
	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, config.ProviderGemini, cfg.Provider)
	assert.Equal(t, 10, cfg.DiffContext)
	assert.Equal(t, []string{"src/"}, cfg.IncludePaths)
	assert.InDelta(t, 0.8, cfg.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 25, cfg.AlignWindow)
	assert.Equal(t, 600*time.Second, cfg.CallTimeout)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.InterCallDelay)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, int64(1), cfg.MaxConcurrentReviews)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Empty(t, cfg.CompilerModel)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REVIEW_INCLUDE_PATHS", "src/, lib/core/")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.65")
	t.Setenv("LLM_TIMEOUT_SECONDS", "30")
	t.Setenv("REVIEW_PARALLEL_WORKERS", "4")
	t.Setenv("REVIEW_MAX_CONCURRENCY", "2")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("MODEL_COMPILER", "tuning-model")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"src/", "lib/core/"}, cfg.IncludePaths)
	assert.InDelta(t, 0.65, cfg.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, int64(2), cfg.MaxConcurrentReviews)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "tuning-model", cfg.CompilerModel)
}

func TestLoad_MissingRepoPath(t *testing.T) {
	t.Setenv("REPO_PATH", "")
	t.Setenv("GEMINI_API_KEY", "test-key")

	_, err := config.Load()

	assert.Error(t, err)
}

func TestLoad_RepoPathNotADirectory(t *testing.T) {
	t.Setenv("REPO_PATH", "/definitely/not/a/real/dir")
	t.Setenv("GEMINI_API_KEY", "test-key")

	_, err := config.Load()

	assert.Error(t, err)
}

func TestLoad_OpenAIProviderRequiresKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_PROVIDER", config.ProviderOpenAI)

	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.ProviderOpenAI, cfg.Provider)
}

func TestLoad_UnknownProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_PROVIDER", "quantum")

	_, err := config.Load()

	assert.Error(t, err)
}
