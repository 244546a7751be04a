package cli

import (
	"io"
	"os"
	"time"

	"github.com/vocallocal/robust-chunker/internal/audio"
	"github.com/vocallocal/robust-chunker/internal/compat"
	"github.com/vocallocal/robust-chunker/internal/config"
	"github.com/vocallocal/robust-chunker/internal/ffmpeg"
	"github.com/vocallocal/robust-chunker/internal/pipeline"
	"github.com/vocallocal/robust-chunker/internal/store"
	"github.com/vocallocal/robust-chunker/internal/transcribe"
	"github.com/vocallocal/robust-chunker/pkg/logger"
)

// Env holds injectable dependencies for CLI commands. This is the central
// injection point for testing commands in isolation.
//
// All fields have production defaults via DefaultEnv(). Tests override
// specific fields using the With* options.
type Env struct {
	// I/O and environment. Stdout carries the manifest only; all
	// diagnostics go to Stderr.
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// Factories for domain objects
	FFmpegResolver   FFmpegResolver
	ConfigLoader     ConfigLoader
	ProberFactory    ProberFactory
	SegmenterBuilder SegmenterBuilder
	BackendFactory   BackendFactory
	StoreOpener      StoreOpener
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve() (string, error)
}

// ConfigLoader assembles configuration from file and environment.
type ConfigLoader interface {
	Load(path string, getenv func(string) string) (config.Config, error)
}

// ProberFactory creates audio probers.
type ProberFactory interface {
	NewProber(ffmpegPath string) (audio.Prober, error)
}

// SegmenterBuilder constructs a segmenter by probing the registered
// implementations and resolving settings against the winner's signature.
type SegmenterBuilder interface {
	Build(ffmpegPath string, overlap time.Duration, set compat.Settings, names ...string) (audio.Segmenter, error)
}

// BackendFactory creates transcription backends per provider.
type BackendFactory interface {
	NewOpenAI(apiKey, model string) transcribe.Backend
	NewGemini(apiKey, model string) transcribe.Backend
}

// ManifestStore persists run manifests.
type ManifestStore interface {
	SaveManifest(m *pipeline.Manifest) (int64, error)
	Close() error
}

// StoreOpener opens the run-history store.
type StoreOpener interface {
	Open(path string, log *logger.Logger) (ManifestStore, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) {
		e.FFmpegResolver = r
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithProberFactory sets the prober factory.
func WithProberFactory(f ProberFactory) EnvOption {
	return func(e *Env) {
		e.ProberFactory = f
	}
}

// WithSegmenterBuilder sets the segmenter builder.
func WithSegmenterBuilder(b SegmenterBuilder) EnvOption {
	return func(e *Env) {
		e.SegmenterBuilder = b
	}
}

// WithBackendFactory sets the backend factory.
func WithBackendFactory(f BackendFactory) EnvOption {
	return func(e *Env) {
		e.BackendFactory = f
	}
}

// WithStoreOpener sets the store opener.
func WithStoreOpener(o StoreOpener) EnvOption {
	return func(e *Env) {
		e.StoreOpener = o
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		Getenv:           os.Getenv,
		FFmpegResolver:   &defaultFFmpegResolver{},
		ConfigLoader:     &defaultConfigLoader{},
		ProberFactory:    &defaultProberFactory{},
		SegmenterBuilder: &defaultSegmenterBuilder{},
		BackendFactory:   &defaultBackendFactory{},
		StoreOpener:      &defaultStoreOpener{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve() (string, error) {
	return ffmpeg.NewResolver().Resolve()
}

type defaultConfigLoader struct{}

func (defaultConfigLoader) Load(path string, getenv func(string) string) (config.Config, error) {
	return config.Load(path, getenv)
}

type defaultProberFactory struct{}

func (defaultProberFactory) NewProber(ffmpegPath string) (audio.Prober, error) {
	return audio.NewFFmpegProber(ffmpegPath)
}

// defaultSegmenterBuilder registers the known segmenter variants and lets
// the compat registry pick one. Both variants are backed by the FFmpeg time
// segmenter here; they differ only in the parameter spelling their
// constructors declare, matching the deployments this tool has to run on.
type defaultSegmenterBuilder struct{}

func (defaultSegmenterBuilder) Build(ffmpegPath string, overlap time.Duration, set compat.Settings, names ...string) (audio.Segmenter, error) {
	newTimeSegmenter := func(args compat.Args) (audio.Segmenter, error) {
		seconds, ok := args.ChunkSeconds()
		if !ok {
			return nil, compat.ErrIncompatibleSignature
		}
		return audio.NewTimeSegmenter(ffmpegPath,
			time.Duration(seconds*float64(time.Second)), overlap)
	}

	reg := compat.NewRegistry[audio.Segmenter]()
	reg.Register(compat.Factory[audio.Segmenter]{
		Signature: compat.Signature{
			Name:   "robust_chunker",
			Params: []string{"chunk_duration", compat.ParamMaxRetries, compat.ParamRetryDelay},
		},
		New: newTimeSegmenter,
	})
	reg.Register(compat.Factory[audio.Segmenter]{
		Signature: compat.Signature{
			Name:   "ffmpeg_time",
			Params: []string{"chunk_duration_seconds"},
		},
		New: newTimeSegmenter,
	})
	return reg.Build(set, names...)
}

type defaultBackendFactory struct{}

func (defaultBackendFactory) NewOpenAI(apiKey, model string) transcribe.Backend {
	opts := []transcribe.OpenAIOption{}
	if model != "" {
		opts = append(opts, transcribe.WithOpenAIModel(model))
	}
	return transcribe.NewOpenAIBackend(apiKey, opts...)
}

func (defaultBackendFactory) NewGemini(apiKey, model string) transcribe.Backend {
	opts := []transcribe.GeminiOption{}
	if model != "" {
		opts = append(opts, transcribe.WithGeminiModel(model))
	}
	return transcribe.NewGeminiBackend(apiKey, opts...)
}

type defaultStoreOpener struct{}

func (defaultStoreOpener) Open(path string, log *logger.Logger) (ManifestStore, error) {
	return store.NewRunStore(path, log)
}

// Compile-time interface verification.
var (
	_ FFmpegResolver   = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader     = (*defaultConfigLoader)(nil)
	_ ProberFactory    = (*defaultProberFactory)(nil)
	_ SegmenterBuilder = (*defaultSegmenterBuilder)(nil)
	_ BackendFactory   = (*defaultBackendFactory)(nil)
	_ StoreOpener      = (*defaultStoreOpener)(nil)
)
