package audio

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Compile-time interface implementation check.
var _ Prober = (*FFmpegProber)(nil)

// Prober inspects an audio file and reports its duration and format.
type Prober interface {
	// Probe returns the source metadata for path.
	// The inspection is read-only; no files are written.
	Probe(ctx context.Context, path string) (Source, error)
}

// FFmpegProber probes audio files by parsing FFmpeg's stream info output.
// ffprobe is not required; plain ffmpeg reports duration, sample rate, and
// channel layout on stderr when asked to decode to a null muxer.
type FFmpegProber struct {
	ffmpegPath string

	// Injectable dependencies (default to OS implementations).
	cmd     commandRunner
	statter fileStatter
}

// ProberOption configures an FFmpegProber.
type ProberOption func(*FFmpegProber)

// WithProberCommandRunner sets the command runner (for testing).
func WithProberCommandRunner(r commandRunner) ProberOption {
	return func(p *FFmpegProber) { p.cmd = r }
}

// WithProberFileStatter sets the file statter (for testing).
func WithProberFileStatter(s fileStatter) ProberOption {
	return func(p *FFmpegProber) { p.statter = s }
}

// NewFFmpegProber creates a prober using the given ffmpeg binary.
func NewFFmpegProber(ffmpegPath string, opts ...ProberOption) (*FFmpegProber, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("%w: ffmpegPath cannot be empty", ErrInvalidConfig)
	}

	p := &FFmpegProber{
		ffmpegPath: ffmpegPath,
		cmd:        osCommandRunner{},
		statter:    osFileStatter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Probe inspects path and returns its metadata.
func (p *FFmpegProber) Probe(ctx context.Context, path string) (Source, error) {
	if _, err := p.statter.Stat(path); err != nil {
		return Source{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	args := []string{
		"-i", path,
		"-f", "null", "-",
	}
	output, err := p.cmd.CombinedOutput(ctx, p.ffmpegPath, args)
	if err != nil && len(output) == 0 {
		// FFmpeg returns non-zero even when it successfully reads file info,
		// so only a silent failure is terminal here.
		return Source{}, fmt.Errorf("probe %s: %w", path, err)
	}

	return parseProbeOutput(path, string(output))
}

// Patterns matched against FFmpeg stderr.
var (
	// Duration: 00:05:23.45
	durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	// time=00:05:23.45 (progress output fallback)
	timeRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
	// Stream #0:0: Audio: vorbis, 16000 Hz, mono, fltp
	sampleRateRe = regexp.MustCompile(`Audio:[^\n]*?(\d+)\s*Hz`)
	channelsRe   = regexp.MustCompile(`Hz,\s*(mono|stereo|(\d+)(?:\.\d+)?\s*channels?)`)
)

// parseProbeOutput extracts Source metadata from FFmpeg stderr.
func parseProbeOutput(path, output string) (Source, error) {
	duration, err := parseDurationFromFFmpegOutput(output)
	if err != nil {
		// No parseable duration means FFmpeg could not decode the input.
		return Source{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	src := Source{
		Path:     path,
		Duration: duration,
	}

	if m := sampleRateRe.FindStringSubmatch(output); m != nil {
		src.SampleRate, _ = strconv.Atoi(m[1])
	}
	if m := channelsRe.FindStringSubmatch(output); m != nil {
		switch m[1] {
		case "mono":
			src.Channels = 1
		case "stereo":
			src.Channels = 2
		default:
			src.Channels, _ = strconv.Atoi(m[2])
		}
	}

	return src, nil
}

// parseDurationFromFFmpegOutput extracts duration from FFmpeg stderr.
// Looks for "Duration: HH:MM:SS.ms", falling back to the last "time=" value
// in progress output.
func parseDurationFromFFmpegOutput(output string) (time.Duration, error) {
	if matches := durationRe.FindStringSubmatch(output); matches != nil {
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	allMatches := timeRe.FindAllStringSubmatch(output, -1)
	if len(allMatches) > 0 {
		matches := allMatches[len(allMatches)-1]
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	return 0, fmt.Errorf("could not parse duration from ffmpeg output")
}

// parseTimeComponents converts HH:MM:SS.frac strings to a Duration.
func parseTimeComponents(hours, minutes, seconds, fractional string) (time.Duration, error) {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	// Normalize the fractional part to milliseconds. FFmpeg emits anywhere
	// from one to six digits after the dot.
	frac, _ := strconv.Atoi(fractional)
	ms := frac
	switch n := len(fractional); {
	case n == 1:
		ms = frac * 100
	case n == 2:
		ms = frac * 10
	case n == 3:
		// Already milliseconds.
	case n > 3:
		for i := n; i > 3; i-- {
			ms /= 10
		}
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}
