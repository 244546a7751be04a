package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vocallocal/robust-chunker/internal/config"
)

// noEnv is a getenv that finds nothing.
func noEnv(string) string { return "" }

// envWith builds a getenv from a map.
func envWith(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "robust-chunker.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	if cfg.Chunking.ChunkSeconds != 300 {
		t.Errorf("ChunkSeconds = %v, want 300", cfg.Chunking.ChunkSeconds)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.RetryDelaySeconds != 1 {
		t.Errorf("RetryDelaySeconds = %v, want 1", cfg.Retry.RetryDelaySeconds)
	}
	if cfg.Backend.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", cfg.Backend.Provider)
	}
	if cfg.Pipeline.Policy != "strict" {
		t.Errorf("Policy = %q, want strict", cfg.Pipeline.Policy)
	}
	if cfg.Pipeline.MaxParallel != 4 {
		t.Errorf("MaxParallel = %d, want 4", cfg.Pipeline.MaxParallel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("file values override defaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `
[chunking]
chunk_seconds = 120.0
overlap_seconds = 2.0

[retry]
max_retries = 7

[backend]
provider = "gemini"

[pipeline]
policy = "best-effort"

[storage]
sqlite_path = "runs.db"
`)
		cfg, err := config.Load(path, noEnv)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Chunking.ChunkSeconds != 120 {
			t.Errorf("ChunkSeconds = %v, want 120", cfg.Chunking.ChunkSeconds)
		}
		if cfg.Chunking.OverlapSeconds != 2 {
			t.Errorf("OverlapSeconds = %v, want 2", cfg.Chunking.OverlapSeconds)
		}
		if cfg.Retry.MaxRetries != 7 {
			t.Errorf("MaxRetries = %d, want 7", cfg.Retry.MaxRetries)
		}
		if cfg.Backend.Provider != "gemini" {
			t.Errorf("Provider = %q, want gemini", cfg.Backend.Provider)
		}
		if cfg.Pipeline.Policy != "best-effort" {
			t.Errorf("Policy = %q", cfg.Pipeline.Policy)
		}
		if cfg.Storage.SQLitePath != "runs.db" {
			t.Errorf("SQLitePath = %q", cfg.Storage.SQLitePath)
		}
		// Untouched sections keep their defaults.
		if cfg.Pipeline.MaxParallel != 4 {
			t.Errorf("MaxParallel = %d, want default 4", cfg.Pipeline.MaxParallel)
		}
	})

	t.Run("explicit missing file errors", func(t *testing.T) {
		t.Parallel()
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"), noEnv)
		if err == nil {
			t.Error("Load() expected error for missing explicit config")
		}
	})

	t.Run("absent default path is fine", func(t *testing.T) {
		t.Parallel()
		// Relies on no robust-chunker.toml in the test working directory.
		cfg, err := config.Load("", noEnv)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Chunking.ChunkSeconds != 300 {
			t.Errorf("ChunkSeconds = %v, want default", cfg.Chunking.ChunkSeconds)
		}
	})

	t.Run("malformed file errors", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "[[[[not toml")
		if _, err := config.Load(path, noEnv); err == nil {
			t.Error("Load() expected parse error")
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `
[chunking]
chunk_seconds = 120.0

[backend]
provider = "openai"
openai_api_key = "file-key"
`)
		cfg, err := config.Load(path, envWith(map[string]string{
			config.EnvChunkSeconds: "60",
			config.EnvBackend:      "gemini",
			config.EnvOpenAIKey:    "env-key",
			config.EnvGeminiKey:    "gem-key",
			config.EnvMaxRetries:   "9",
			config.EnvRetryDelay:   "0.5",
			config.EnvMaxParallel:  "2",
			config.EnvInputPath:    "/audio/in.ogg",
			config.EnvOutputDir:    "/chunks",
		}))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Chunking.ChunkSeconds != 60 {
			t.Errorf("ChunkSeconds = %v, want env override 60", cfg.Chunking.ChunkSeconds)
		}
		if cfg.Backend.Provider != "gemini" {
			t.Errorf("Provider = %q, want gemini", cfg.Backend.Provider)
		}
		if cfg.Backend.OpenAIAPIKey != "env-key" {
			t.Errorf("OpenAIAPIKey = %q, want env-key", cfg.Backend.OpenAIAPIKey)
		}
		if cfg.Backend.GeminiAPIKey != "gem-key" {
			t.Errorf("GeminiAPIKey = %q", cfg.Backend.GeminiAPIKey)
		}
		if cfg.Retry.MaxRetries != 9 || cfg.Retry.RetryDelaySeconds != 0.5 {
			t.Errorf("Retry = %+v", cfg.Retry)
		}
		if cfg.Pipeline.MaxParallel != 2 {
			t.Errorf("MaxParallel = %d", cfg.Pipeline.MaxParallel)
		}
		if cfg.Input.Path != "/audio/in.ogg" || cfg.Input.OutputDir != "/chunks" {
			t.Errorf("Input = %+v", cfg.Input)
		}
	})

	t.Run("unparsable numeric env is ignored", func(t *testing.T) {
		t.Parallel()
		cfg, err := config.Load("", envWith(map[string]string{
			config.EnvChunkSeconds: "five minutes",
			config.EnvMaxRetries:   "lots",
		}))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Chunking.ChunkSeconds != 300 || cfg.Retry.MaxRetries != 3 {
			t.Errorf("bad env values clobbered defaults: %+v", cfg)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() config.Config { return config.Default() }

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero chunk seconds", func(c *config.Config) { c.Chunking.ChunkSeconds = 0 }},
		{"negative chunk seconds", func(c *config.Config) { c.Chunking.ChunkSeconds = -1 }},
		{"negative overlap", func(c *config.Config) { c.Chunking.OverlapSeconds = -1 }},
		{"overlap equals chunk", func(c *config.Config) {
			c.Chunking.ChunkSeconds = 60
			c.Chunking.OverlapSeconds = 60
		}},
		{"negative retries", func(c *config.Config) { c.Retry.MaxRetries = -1 }},
		{"negative retry delay", func(c *config.Config) { c.Retry.RetryDelaySeconds = -0.5 }},
		{"zero parallel", func(c *config.Config) { c.Pipeline.MaxParallel = 0 }},
		{"unknown policy", func(c *config.Config) { c.Pipeline.Policy = "lenient" }},
		{"unknown provider", func(c *config.Config) { c.Backend.Provider = "whisperx" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})
}
