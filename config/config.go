// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Providers the service can stream completions from.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds the full service configuration.
type Config struct {
	RepoPath   string // local clone reviewed PRs are fetched into
	Remote     string // remote holding pull request refs
	ListenAddr string
	LogLevel   slog.Level

	Provider     string
	GeminiAPIKey string
	OpenAIAPIKey string

	DefectModel   string
	RefactorModel string
	CompilerModel string // empty disables the compiler-hints pass
	Temperature   float32

	DiffContext         int
	IncludePaths        []string
	ConfidenceThreshold float64
	AlignWindow         int
	CallTimeout         time.Duration
	MaxRetries          int
	InterCallDelay      time.Duration
	Workers             int

	MaxConcurrentReviews int64
}

// Load reads configuration from environment variables, loading a .env file
// first if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	repoPath := os.Getenv("REPO_PATH")
	if repoPath == "" {
		return nil, fmt.Errorf("REPO_PATH environment variable is not set")
	}
	info, err := os.Stat(repoPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("REPO_PATH %q is not a valid directory", repoPath)
	}

	cfg := &Config{
		RepoPath:             repoPath,
		Remote:               getString("GIT_REMOTE", "upstream"),
		ListenAddr:           getString("LISTEN_ADDR", ":8000"),
		LogLevel:             parseLogLevel(getString("LOG_LEVEL", "debug")),
		Provider:             getString("LLM_PROVIDER", ProviderGemini),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		DefectModel:          os.Getenv("MODEL_DEFECT"),
		RefactorModel:        os.Getenv("MODEL_REFACTOR"),
		CompilerModel:        os.Getenv("MODEL_COMPILER"),
		Temperature:          float32(getFloat("LLM_TEMPERATURE", 0.1)),
		DiffContext:          getInt("DIFF_CONTEXT", 10),
		IncludePaths:         getList("REVIEW_INCLUDE_PATHS", []string{"src/"}),
		ConfidenceThreshold:  getFloat("CONFIDENCE_THRESHOLD", 0.8),
		AlignWindow:          getInt("ALIGN_SEARCH_WINDOW", 25),
		CallTimeout:          getSeconds("LLM_TIMEOUT_SECONDS", 600*time.Second),
		MaxRetries:           getInt("LLM_MAX_RETRIES", 1),
		InterCallDelay:       getSeconds("INTER_REQUEST_DELAY_SECONDS", 5*time.Second),
		Workers:              getInt("REVIEW_PARALLEL_WORKERS", 1),
		MaxConcurrentReviews: int64(getInt("REVIEW_MAX_CONCURRENCY", 1)),
	}

	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
		}
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxConcurrentReviews < 1 {
		cfg.MaxConcurrentReviews = 1
	}
	return cfg, nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return time.Duration(f * float64(time.Second))
}

// getList parses a comma-separated list, dropping empty elements.
func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
