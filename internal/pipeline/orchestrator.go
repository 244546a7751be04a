package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vocallocal/robust-chunker/internal/audio"
	"github.com/vocallocal/robust-chunker/internal/transcribe"
	"github.com/vocallocal/robust-chunker/pkg/logger"
)

// MaxRecommendedParallel is the upper limit for concurrent backend calls.
// Higher values tend to trip vendor rate limiting.
const MaxRecommendedParallel = 8

// DefaultParallel is the worker pool size when none is configured.
const DefaultParallel = 4

// ChunkTranscriber is the per-chunk client the orchestrator dispatches to.
// Implementations never return an error: every outcome is a Result.
type ChunkTranscriber interface {
	Transcribe(ctx context.Context, chunk audio.Chunk, opts transcribe.Options) transcribe.Result
}

// Compile-time interface compliance check.
var _ ChunkTranscriber = (*transcribe.Client)(nil)

// errKindExtraction marks results for chunks that never reached the
// backend because their extraction failed.
const errKindExtraction = "extraction_failed"

// Orchestrator drives a full run: probe, segment, transcribe, assemble.
type Orchestrator struct {
	prober        audio.Prober
	segmenter     audio.Segmenter
	client        ChunkTranscriber
	chunkDuration time.Duration

	policy     Policy
	parallel   int
	keepChunks bool
	tropts     transcribe.Options
	log        *logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy sets the aggregate success policy.
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithParallel bounds the number of concurrent backend calls.
func WithParallel(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.parallel = min(n, MaxRecommendedParallel)
		}
	}
}

// WithKeepChunks retains extracted chunk files after the run.
func WithKeepChunks() Option {
	return func(o *Orchestrator) { o.keepChunks = true }
}

// WithTranscribeOptions sets per-request backend options.
func WithTranscribeOptions(opts transcribe.Options) Option {
	return func(o *Orchestrator) { o.tropts = opts }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l.Named("pipeline") }
}

// New creates an Orchestrator. chunkDuration must match the segmenter's
// configured chunk length; it anchors the probe-consistency check and the
// manifest summary.
func New(prober audio.Prober, segmenter audio.Segmenter, client ChunkTranscriber, chunkDuration time.Duration, opts ...Option) (*Orchestrator, error) {
	if prober == nil || segmenter == nil || client == nil {
		return nil, fmt.Errorf("prober, segmenter, and client are required")
	}
	if chunkDuration <= 0 {
		return nil, fmt.Errorf("%w: chunk duration must be positive", audio.ErrInvalidConfig)
	}

	o := &Orchestrator{
		prober:        prober,
		segmenter:     segmenter,
		client:        client,
		chunkDuration: chunkDuration,
		policy:        PolicyStrict,
		parallel:      DefaultParallel,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes the pipeline for sourcePath, writing chunk files to
// outputDir (a temp directory when empty). Per-chunk failures are recorded
// in the returned manifest; only pipeline-level failures (missing input,
// zero chunks, cancellation) return an error.
func (o *Orchestrator) Run(ctx context.Context, sourcePath, outputDir string) (*Manifest, error) {
	started := time.Now()

	source, err := o.prober.Probe(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	o.log.Info("probed source",
		logger.String("source", source.String()),
		logger.Duration("chunk_duration", o.chunkDuration))

	chunks, segErr := o.segmenter.Segment(ctx, source, outputDir)
	// An interrupt is not a segmentation failure; report it as such even
	// when it struck before the first chunk was extracted.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(chunks) == 0 {
		if segErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoChunksProduced, segErr)
		}
		return nil, ErrNoChunksProduced
	}
	if segErr != nil {
		o.log.Warn("partial extraction, proceeding with available chunks",
			logger.Int("extracted", len(chunks)),
			logger.Error(segErr))
	}

	if !o.keepChunks {
		defer func() {
			if err := audio.CleanupChunks(chunks); err != nil {
				o.log.Warn("chunk cleanup failed", logger.Error(err))
			}
		}()
	}

	if err := o.checkCoverage(source, chunks, segErr != nil); err != nil {
		return nil, err
	}

	expected := chunkCount(source.Duration, o.chunkDuration)
	o.log.Info("segmented source",
		logger.Int("chunks", len(chunks)),
		logger.Int("expected", expected))

	results, err := o.transcribeAll(ctx, chunks, expected, segErr)
	if err != nil {
		return nil, err
	}

	manifest := o.assemble(source, results, started)
	o.log.Info("run complete",
		logger.Bool("overall_success", manifest.OverallSuccess),
		logger.Int("succeeded", manifest.Succeeded()),
		logger.Int("chunks", manifest.ChunkCount),
		logger.Float64("elapsed_seconds", manifest.ElapsedSeconds))
	return manifest, nil
}

// checkCoverage validates the segmenter's output against the probed
// duration. A shortfall larger than one chunk length without any reported
// extraction failure means boundaries were computed from a bad probe, which
// would silently drop content.
func (o *Orchestrator) checkCoverage(source audio.Source, chunks []audio.Chunk, partial bool) error {
	if partial {
		// Missing coverage is already explained by extraction failures.
		return nil
	}

	var maxEnd time.Duration
	for _, c := range chunks {
		if c.End > maxEnd {
			maxEnd = c.End
		}
	}
	if source.Duration-maxEnd > o.chunkDuration {
		return fmt.Errorf("%w: probed %v but chunks cover only %v",
			audio.ErrProbeInconsistency, source.Duration, maxEnd)
	}
	return nil
}

// chunkCount returns ceil(total/chunkDuration).
func chunkCount(total, chunkDuration time.Duration) int {
	return int((total + chunkDuration - 1) / chunkDuration)
}

// transcribeAll dispatches chunks to the client with a bounded worker pool.
// Results land in an index-addressed slice, so assembly order is defined by
// chunk index no matter the completion order. Chunks lost to extraction
// failures get a synthetic failed result at their index.
func (o *Orchestrator) transcribeAll(ctx context.Context, chunks []audio.Chunk, expected int, segErr error) ([]transcribe.Result, error) {
	size := expected
	for _, c := range chunks {
		if c.Index+1 > size {
			size = c.Index + 1
		}
	}
	results := make([]transcribe.Result, size)
	for i := range results {
		msg := "chunk file was not extracted"
		if segErr != nil {
			msg = segErr.Error()
		}
		results[i] = transcribe.Result{
			Index:   i,
			ErrKind: errKindExtraction,
			ErrMsg:  msg,
		}
	}

	// Semaphore channel for concurrency control.
	sem := make(chan struct{}, o.parallel)

	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				// Not yet dispatched; must not start.
				return gctx.Err()
			}
			defer func() { <-sem }()

			o.log.Debug("transcribing", logger.String("chunk", chunk.String()))
			res := o.client.Transcribe(gctx, chunk, o.tropts)
			if !res.OK {
				o.log.Warn("chunk failed",
					logger.Int("index", res.Index),
					logger.String("error_kind", res.ErrKind),
					logger.Int("attempts", res.Attempts))
			}
			results[chunk.Index] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// assemble builds the final manifest in chunk-index order.
func (o *Orchestrator) assemble(source audio.Source, results []transcribe.Result, started time.Time) *Manifest {
	var parts []string
	succeeded := 0
	for _, r := range results {
		if r.OK {
			succeeded++
			parts = append(parts, r.Text)
			continue
		}
		parts = append(parts, GapMarker(r.Index))
	}

	success := false
	switch o.policy {
	case PolicyBestEffort:
		success = succeeded > 0
	default:
		success = succeeded == len(results)
	}

	return &Manifest{
		Source:         source.Path,
		Policy:         o.policy,
		ChunkSeconds:   o.chunkDuration.Seconds(),
		ChunkCount:     len(results),
		Results:        results,
		Transcript:     strings.Join(parts, "\n\n"),
		OverallSuccess: success,
		StartedAt:      started.UTC(),
		ElapsedSeconds: time.Since(started).Seconds(),
	}
}
