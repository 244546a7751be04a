package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vocallocal/robust-chunker/internal/compat"
	"github.com/vocallocal/robust-chunker/internal/config"
	"github.com/vocallocal/robust-chunker/internal/pipeline"
	"github.com/vocallocal/robust-chunker/internal/transcribe"
	"github.com/vocallocal/robust-chunker/pkg/logger"
)

// runFlags collects the run command's flag values so overrides can be
// applied onto the loaded config only when the flag was actually set.
type runFlags struct {
	configPath     string
	outputDir      string
	chunkSeconds   float64
	overlapSeconds float64
	implementation string
	maxRetries     int
	retryDelay     float64
	fixedDelay     bool
	parallel       int
	policy         string
	backend        string
	model          string
	language       string
	prompt         string
	keepChunks     bool
}

// RunCmd creates the run command. The env parameter provides injectable
// dependencies for testing.
func RunCmd(env *Env) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [audio-file]",
		Short: "Chunk an audio file and transcribe every chunk",
		Long: `Split an audio file into fixed-duration chunks, transcribe each chunk
through the selected backend with per-chunk retries, and write a JSON
manifest of every outcome to stdout.

Under the default strict policy the run fails unless every chunk
transcribed; --policy best-effort accepts partial results and marks each
failed chunk's position in the assembled transcript.

The audio file may also come from the config file or the INPUT_PATH
environment variable; the positional argument takes precedence.`,
		Example: `  chunker run lecture.mp3
  chunker run meeting.ogg --chunk-seconds 120 --policy best-effort
  chunker run interview.wav --backend gemini -p 8 > manifest.json
  INPUT_PATH=lecture.mp3 chunker run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := ""
			if len(args) == 1 {
				inputPath = args[0]
			}
			return runRun(cmd, env, inputPath, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (default: robust-chunker.toml if present)")
	cmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", "", "Directory for chunk files (default: temp dir)")
	cmd.Flags().Float64Var(&flags.chunkSeconds, "chunk-seconds", 0, "Target chunk length in seconds (default 300)")
	cmd.Flags().Float64Var(&flags.overlapSeconds, "overlap-seconds", 0, "Seconds of audio repeated before each boundary")
	cmd.Flags().StringVar(&flags.implementation, "implementation", "", "Preferred segmenter implementation")
	cmd.Flags().IntVar(&flags.maxRetries, "max-retries", 0, "Retries per chunk after the first attempt (default 3)")
	cmd.Flags().Float64Var(&flags.retryDelay, "retry-delay", 0, "Initial retry delay in seconds (default 1)")
	cmd.Flags().BoolVar(&flags.fixedDelay, "fixed-delay", false, "Use a fixed retry delay instead of exponential backoff")
	cmd.Flags().IntVarP(&flags.parallel, "parallel", "p", 0, fmt.Sprintf("Max concurrent transcriptions (1-%d)", pipeline.MaxRecommendedParallel))
	cmd.Flags().StringVar(&flags.policy, "policy", "", "Aggregate policy: strict, best-effort")
	cmd.Flags().StringVar(&flags.backend, "backend", "", "Transcription backend: openai, gemini")
	cmd.Flags().StringVar(&flags.model, "model", "", "Override the backend's default model")
	cmd.Flags().StringVarP(&flags.language, "language", "l", "", "Audio language (ISO 639-1 code, e.g. en, fr)")
	cmd.Flags().StringVar(&flags.prompt, "prompt", "", "Context prompt passed to the backend")
	cmd.Flags().BoolVar(&flags.keepChunks, "keep-chunks", false, "Retain chunk files after the run")

	return cmd
}

// applyFlags overlays set flags onto the loaded config. Flags are the last
// layer of precedence, above the environment and the config file.
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) {
	set := cmd.Flags().Changed
	if set("output-dir") {
		cfg.Input.OutputDir = flags.outputDir
	}
	if set("chunk-seconds") {
		cfg.Chunking.ChunkSeconds = flags.chunkSeconds
	}
	if set("overlap-seconds") {
		cfg.Chunking.OverlapSeconds = flags.overlapSeconds
	}
	if set("implementation") {
		cfg.Chunking.Implementation = flags.implementation
	}
	if set("keep-chunks") {
		cfg.Chunking.KeepChunks = flags.keepChunks
	}
	if set("max-retries") {
		cfg.Retry.MaxRetries = flags.maxRetries
	}
	if set("retry-delay") {
		cfg.Retry.RetryDelaySeconds = flags.retryDelay
	}
	if set("fixed-delay") {
		cfg.Retry.FixedDelay = flags.fixedDelay
	}
	if set("parallel") {
		cfg.Pipeline.MaxParallel = flags.parallel
	}
	if set("policy") {
		cfg.Pipeline.Policy = flags.policy
	}
	if set("backend") {
		cfg.Backend.Provider = flags.backend
	}
	if set("model") {
		cfg.Backend.Model = flags.model
	}
	if set("language") {
		cfg.Backend.Language = flags.language
	}
	if set("prompt") {
		cfg.Backend.Prompt = flags.prompt
	}
}

// runRun executes the chunking pipeline.
// Validation order: config -> file exists -> backend key -> setup -> run.
func runRun(cmd *cobra.Command, env *Env, inputPath string, flags runFlags) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	cfg, err := env.ConfigLoader.Load(flags.configPath, env.Getenv)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	applyFlags(cmd, &cfg, flags)
	if inputPath != "" {
		cfg.Input.Path = inputPath
	}
	if cfg.Input.Path == "" {
		return fmt.Errorf("%w: no audio file given (argument, config input.path, or %s)",
			ErrInvalidConfiguration, config.EnvInputPath)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	if _, err := os.Stat(cfg.Input.Path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, cfg.Input.Path)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}

	policy, err := pipeline.ParsePolicy(cfg.Pipeline.Policy)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	backend, err := buildBackend(env, cfg.Backend)
	if err != nil {
		return err
	}

	// === SETUP ===

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	defer func() { _ = log.Sync() }()

	ffmpegPath, err := env.FFmpegResolver.Resolve()
	if err != nil {
		return err
	}
	log.Debug("resolved ffmpeg", logger.String("path", ffmpegPath))

	prober, err := env.ProberFactory.NewProber(ffmpegPath)
	if err != nil {
		return err
	}

	overlap := time.Duration(cfg.Chunking.OverlapSeconds * float64(time.Second))
	settings := compat.Settings{
		ChunkSeconds:      cfg.Chunking.ChunkSeconds,
		MaxRetries:        &cfg.Retry.MaxRetries,
		RetryDelaySeconds: &cfg.Retry.RetryDelaySeconds,
	}
	var preferred []string
	if cfg.Chunking.Implementation != "" {
		preferred = []string{cfg.Chunking.Implementation}
	}
	segmenter, err := env.SegmenterBuilder.Build(ffmpegPath, overlap, settings, preferred...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	client := buildClient(backend, cfg.Retry)

	chunkDuration := time.Duration(cfg.Chunking.ChunkSeconds * float64(time.Second))
	orchOpts := []pipeline.Option{
		pipeline.WithPolicy(policy),
		pipeline.WithParallel(cfg.Pipeline.MaxParallel),
		pipeline.WithTranscribeOptions(transcribe.Options{
			Language: cfg.Backend.Language,
			Prompt:   cfg.Backend.Prompt,
		}),
		pipeline.WithLogger(log),
	}
	if cfg.Chunking.KeepChunks {
		orchOpts = append(orchOpts, pipeline.WithKeepChunks())
	}

	orch, err := pipeline.New(prober, segmenter, client, chunkDuration, orchOpts...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	// === RUN ===

	manifest, err := orch.Run(ctx, cfg.Input.Path, cfg.Input.OutputDir)
	if err != nil {
		return err
	}

	// Persistence is advisory: a broken history database must not discard
	// a completed transcription.
	if cfg.Storage.SQLitePath != "" {
		if err := persistManifest(env, cfg.Storage.SQLitePath, log, manifest); err != nil {
			log.Warn("run history not saved", logger.Error(err))
		}
	}

	if err := manifest.WriteJSON(env.Stdout); err != nil {
		return err
	}

	if !manifest.OverallSuccess {
		return fmt.Errorf("%w: %d/%d chunks transcribed under %s policy",
			ErrRunFailed, manifest.Succeeded(), manifest.ChunkCount, manifest.Policy)
	}
	return nil
}

// buildBackend validates the provider selection and its API key.
func buildBackend(env *Env, cfg config.BackendConfig) (transcribe.Backend, error) {
	switch cfg.Provider {
	case transcribe.BackendOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w (set it with: export %s=sk-...)",
				ErrAPIKeyMissing, config.EnvOpenAIKey)
		}
		return env.BackendFactory.NewOpenAI(cfg.OpenAIAPIKey, cfg.Model), nil
	case transcribe.BackendGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w (set it with: export %s=...)",
				ErrAPIKeyMissing, config.EnvGeminiKey)
		}
		return env.BackendFactory.NewGemini(cfg.GeminiAPIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("%w: %q (want %q or %q)",
			ErrUnsupportedProvider, cfg.Provider, transcribe.BackendOpenAI, transcribe.BackendGemini)
	}
}

func buildClient(backend transcribe.Backend, cfg config.RetryConfig) *transcribe.Client {
	opts := []transcribe.ClientOption{
		transcribe.WithMaxRetries(cfg.MaxRetries),
		transcribe.WithRetryDelays(
			time.Duration(cfg.RetryDelaySeconds*float64(time.Second)),
			time.Duration(cfg.MaxDelaySeconds*float64(time.Second)),
		),
	}
	if cfg.FixedDelay {
		opts = append(opts, transcribe.WithFixedDelay())
	}
	return transcribe.NewClient(backend, opts...)
}

func persistManifest(env *Env, dbPath string, log *logger.Logger, m *pipeline.Manifest) error {
	st, err := env.StoreOpener.Open(dbPath, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	runID, err := st.SaveManifest(m)
	if err != nil {
		return err
	}
	log.Info("run saved",
		logger.Int64("run_id", runID),
		logger.String("db", dbPath))
	return nil
}
