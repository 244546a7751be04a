// Package config assembles the pipeline configuration from defaults, an
// optional TOML file, and environment variables, in that precedence order
// (flags override on top, in the CLI layer). The resulting Config struct is
// built once at process start and passed to every component; nothing else
// in the repository reads the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the config file loaded when none is specified and the
// file exists.
const DefaultPath = "robust-chunker.toml"

// Environment variable names.
const (
	EnvInputPath    = "INPUT_PATH"
	EnvOutputDir    = "OUTPUT_DIR"
	EnvChunkSeconds = "CHUNK_SECONDS"
	EnvMaxRetries   = "MAX_RETRIES"
	EnvRetryDelay   = "RETRY_DELAY_SECONDS"
	EnvMaxParallel  = "MAX_PARALLEL"
	EnvBackend      = "CHUNKER_BACKEND"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
)

// Config is the root configuration structure.
type Config struct {
	Input    InputConfig    `toml:"input"`    // Source and output locations
	Chunking ChunkingConfig `toml:"chunking"` // Segmentation parameters
	Retry    RetryConfig    `toml:"retry"`    // Per-chunk retry budget
	Backend  BackendConfig  `toml:"backend"`  // Transcription backend selection
	Pipeline PipelineConfig `toml:"pipeline"` // Orchestration parameters
	Logging  LoggingConfig  `toml:"logging"`  // Log level and format
	Storage  StorageConfig  `toml:"storage"`  // Run history persistence
}

// InputConfig names the source file and chunk output directory.
type InputConfig struct {
	Path      string `toml:"path"`       // Source audio file
	OutputDir string `toml:"output_dir"` // Directory for chunk files (empty = temp dir)
}

// ChunkingConfig holds segmentation parameters.
type ChunkingConfig struct {
	ChunkSeconds   float64 `toml:"chunk_seconds"`   // Target chunk length (default 300)
	OverlapSeconds float64 `toml:"overlap_seconds"` // Overlap before each boundary (default 0)
	KeepChunks     bool    `toml:"keep_chunks"`     // Retain chunk files after the run
	Implementation string  `toml:"implementation"`  // Preferred segmenter implementation (empty = probe order)
}

// RetryConfig holds the per-chunk retry budget.
type RetryConfig struct {
	MaxRetries        int     `toml:"max_retries"`         // Additional attempts after the first (default 3)
	RetryDelaySeconds float64 `toml:"retry_delay_seconds"` // Initial backoff delay (default 1)
	MaxDelaySeconds   float64 `toml:"max_delay_seconds"`   // Backoff cap (default 30)
	FixedDelay        bool    `toml:"fixed_delay"`         // Disable exponential doubling
}

// BackendConfig selects and parameterizes the transcription backend.
type BackendConfig struct {
	Provider string `toml:"provider"` // "openai" or "gemini" (default openai)
	Model    string `toml:"model"`    // Override the provider's default model
	Language string `toml:"language"` // ISO 639-1 audio language (empty = auto-detect)
	Prompt   string `toml:"prompt"`   // Context prompt for accuracy

	// API keys resolve from the environment; the TOML values exist for
	// development setups only and the environment always wins.
	OpenAIAPIKey string `toml:"openai_api_key"`
	GeminiAPIKey string `toml:"gemini_api_key"`
}

// PipelineConfig holds orchestration parameters.
type PipelineConfig struct {
	MaxParallel int    `toml:"max_parallel"` // Concurrent backend calls (default 4)
	Policy      string `toml:"policy"`       // "strict" or "best-effort" (default strict)
}

// LoggingConfig holds logger construction parameters.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error (default info)
	Format string `toml:"format"` // console or json (default console)
}

// StorageConfig enables run-history persistence.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path"` // Database file (empty disables persistence)
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Chunking: ChunkingConfig{
			ChunkSeconds: 300,
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			RetryDelaySeconds: 1,
			MaxDelaySeconds:   30,
		},
		Backend: BackendConfig{
			Provider: "openai",
		},
		Pipeline: PipelineConfig{
			MaxParallel: 4,
			Policy:      "strict",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path (the
// default path when empty, skipped when absent), and environment overrides.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	} else if explicit {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}

	applyEnv(&cfg, getenv)
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(EnvInputPath); v != "" {
		cfg.Input.Path = v
	}
	if v := getenv(EnvOutputDir); v != "" {
		cfg.Input.OutputDir = v
	}
	if v := getenv(EnvChunkSeconds); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Chunking.ChunkSeconds = f
		}
	}
	if v := getenv(EnvMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxRetries = n
		}
	}
	if v := getenv(EnvRetryDelay); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retry.RetryDelaySeconds = f
		}
	}
	if v := getenv(EnvMaxParallel); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.MaxParallel = n
		}
	}
	if v := getenv(EnvBackend); v != "" {
		cfg.Backend.Provider = v
	}
	if v := getenv(EnvOpenAIKey); v != "" {
		cfg.Backend.OpenAIAPIKey = v
	}
	if v := getenv(EnvGeminiKey); v != "" {
		cfg.Backend.GeminiAPIKey = v
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSeconds <= 0 {
		return fmt.Errorf("chunking.chunk_seconds must be positive, got %v", c.Chunking.ChunkSeconds)
	}
	if c.Chunking.OverlapSeconds < 0 {
		return fmt.Errorf("chunking.overlap_seconds cannot be negative, got %v", c.Chunking.OverlapSeconds)
	}
	if c.Chunking.OverlapSeconds >= c.Chunking.ChunkSeconds {
		return fmt.Errorf("chunking.overlap_seconds (%v) must be less than chunk_seconds (%v)",
			c.Chunking.OverlapSeconds, c.Chunking.ChunkSeconds)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries cannot be negative, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.RetryDelaySeconds < 0 {
		return fmt.Errorf("retry.retry_delay_seconds cannot be negative, got %v", c.Retry.RetryDelaySeconds)
	}
	if c.Pipeline.MaxParallel < 1 {
		return fmt.Errorf("pipeline.max_parallel must be at least 1, got %d", c.Pipeline.MaxParallel)
	}
	switch c.Pipeline.Policy {
	case "strict", "best-effort":
	default:
		return fmt.Errorf("pipeline.policy must be \"strict\" or \"best-effort\", got %q", c.Pipeline.Policy)
	}
	switch c.Backend.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("backend.provider must be \"openai\" or \"gemini\", got %q", c.Backend.Provider)
	}
	return nil
}
