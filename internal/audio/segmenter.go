package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Compile-time interface implementation check.
var _ Segmenter = (*TimeSegmenter)(nil)

// Segmenter cuts a probed source into bounded-duration chunk files.
type Segmenter interface {
	// Segment extracts chunks of source into outputDir and returns them
	// ordered by index. A failure to extract one chunk does not abort the
	// remaining chunks: the successfully extracted chunks are returned
	// together with an error wrapping ErrExtractionFailed, and the caller
	// decides whether to proceed with partial coverage or abort.
	Segment(ctx context.Context, source Source, outputDir string) ([]Chunk, error)
}

// Default segmentation parameters.
const (
	// DefaultChunkDuration matches the deployment default of 300 seconds.
	DefaultChunkDuration = 5 * time.Minute

	// outputDirPerm is the permission mode for created output directories.
	outputDirPerm = 0750
)

// TimeSegmenter splits audio into fixed-duration chunks, the final chunk
// clamped to the source duration. An optional overlap starts every chunk
// after the first slightly before its nominal boundary so words spanning a
// boundary are captured in at least one chunk; de-duplicating the repeated
// transcript text is the aggregation layer's concern, not handled here.
type TimeSegmenter struct {
	ffmpegPath    string
	chunkDuration time.Duration
	overlap       time.Duration

	// Injectable dependencies (default to OS implementations).
	cmd  commandRunner
	dirs dirMaker
}

// SegmenterOption configures a TimeSegmenter.
type SegmenterOption func(*TimeSegmenter)

// WithSegmenterCommandRunner sets the command runner (for testing).
func WithSegmenterCommandRunner(r commandRunner) SegmenterOption {
	return func(s *TimeSegmenter) { s.cmd = r }
}

// WithSegmenterDirMaker sets the directory maker (for testing).
func WithSegmenterDirMaker(d dirMaker) SegmenterOption {
	return func(s *TimeSegmenter) { s.dirs = d }
}

// NewTimeSegmenter creates a TimeSegmenter with the specified parameters.
func NewTimeSegmenter(ffmpegPath string, chunkDuration, overlap time.Duration, opts ...SegmenterOption) (*TimeSegmenter, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("%w: ffmpegPath cannot be empty", ErrInvalidConfig)
	}
	if chunkDuration <= 0 {
		return nil, fmt.Errorf("%w: chunk duration must be positive, got %v", ErrInvalidConfig, chunkDuration)
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkDuration {
		return nil, fmt.Errorf("%w: overlap %v >= chunk duration %v", ErrInvalidConfig, overlap, chunkDuration)
	}

	s := &TimeSegmenter{
		ffmpegPath:    ffmpegPath,
		chunkDuration: chunkDuration,
		overlap:       overlap,
		cmd:           osCommandRunner{},
		dirs:          osDirMaker{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Boundaries computes the nominal chunk time ranges for a source of the
// given duration: ceil(duration/chunkDuration) ranges covering [0, duration)
// with no gaps, the final range clamped. Pure and deterministic, so
// re-running segmentation always yields identical boundaries.
func (s *TimeSegmenter) Boundaries(total time.Duration) []Chunk {
	if total <= 0 {
		return nil
	}

	var chunks []Chunk
	for i := 0; ; i++ {
		start := time.Duration(i) * s.chunkDuration
		if start >= total {
			break
		}
		chunks = append(chunks, Chunk{
			Index: i,
			Start: start,
			End:   min(start+s.chunkDuration, total),
		})
	}
	return chunks
}

// Segment extracts chunk files for source into outputDir.
// When outputDir is empty a temp directory is created instead.
func (s *TimeSegmenter) Segment(ctx context.Context, source Source, outputDir string) ([]Chunk, error) {
	boundaries := s.Boundaries(source.Duration)
	if len(boundaries) == 0 {
		return nil, fmt.Errorf("%w: source has no duration", ErrInvalidConfig)
	}

	if outputDir == "" {
		dir, err := s.dirs.MkdirTemp("", tempDirPattern+"*")
		if err != nil {
			return nil, fmt.Errorf("create temp directory: %w", err)
		}
		outputDir = dir
	} else if err := s.dirs.MkdirAll(outputDir, outputDirPerm); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var (
		chunks  []Chunk
		extErrs []error
	)
	for _, b := range boundaries {
		if ctx.Err() != nil {
			extErrs = append(extErrs, ctx.Err())
			break
		}

		// Overlap moves the physical extraction window earlier; Start keeps
		// the nominal boundary so ordering and coverage stay exact.
		extractStart := b.Start
		if b.Index > 0 && b.Start >= s.overlap {
			extractStart = b.Start - s.overlap
		}

		chunkPath := filepath.Join(outputDir, fmt.Sprintf("chunk_%03d.ogg", b.Index))
		if err := s.extractChunk(ctx, source.Path, chunkPath, extractStart, b.End); err != nil {
			extErrs = append(extErrs, err)
			continue
		}

		b.Path = chunkPath
		chunks = append(chunks, b)
	}

	if len(extErrs) > 0 {
		return chunks, errors.Join(extErrs...)
	}
	return chunks, nil
}

// chunkEncodingArgs returns FFmpeg encoding arguments for chunk extraction.
// Re-encodes to OGG Vorbis so output is valid even from corrupted or
// truncated sources, at 16kHz mono optimal for speech transcription.
func chunkEncodingArgs() []string {
	return []string{
		"-c:a", "libvorbis",
		"-ar", "16000",
		"-ac", "1",
		"-q:a", "2",
	}
}

// extractChunk extracts [start, end) of audioPath into chunkPath.
func (s *TimeSegmenter) extractChunk(ctx context.Context, audioPath, chunkPath string, start, end time.Duration) error {
	args := []string{
		"-y",
		"-i", audioPath,
		"-ss", formatFFmpegTime(start),
		"-to", formatFFmpegTime(end),
	}
	args = append(args, chunkEncodingArgs()...)
	args = append(args, chunkPath)

	output, err := s.cmd.CombinedOutput(ctx, s.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: %s: %v\nOutput: %s",
			ErrExtractionFailed, chunkPath, err, string(output))
	}
	return nil
}

// formatFFmpegTime formats a duration for FFmpeg -ss/-to arguments.
func formatFFmpegTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}
