// Package audio implements the probing and segmentation half of the
// pipeline: inspecting a source file and cutting it into bounded-duration
// chunk files suitable for independent transcription.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vocallocal/robust-chunker/internal/format"
)

// Source describes a probed input file. Immutable once returned by a Prober.
type Source struct {
	Path       string
	Duration   time.Duration
	SampleRate int
	Channels   int
}

// String returns a human-readable representation for logging.
func (s Source) String() string {
	return fmt.Sprintf("%s (%s, %d Hz, %d ch)",
		filepath.Base(s.Path), format.Duration(s.Duration), s.SampleRate, s.Channels)
}

// Chunk represents a bounded-duration segment extracted from a source file.
// The caller is responsible for cleaning up chunk files after use.
type Chunk struct {
	Path  string        // Absolute path to the chunk file.
	Index int           // Zero-based index for ordering.
	Start time.Duration // Nominal start offset in the source audio.
	End   time.Duration // End offset in the source audio.
}

// Duration returns the nominal length of this chunk (excluding overlap).
func (c Chunk) Duration() time.Duration {
	return c.End - c.Start
}

// String returns a human-readable representation for logging.
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d: %s-%s",
		c.Index,
		format.Duration(c.Start),
		format.Duration(c.End))
}

// tempDirPattern names the temp directories created when no output
// directory is configured. CleanupChunks refuses to remove directories
// outside this pattern.
const tempDirPattern = "robust-chunker-"

// CleanupChunks removes all chunk files, and their parent directory when it
// was created by the segmenter itself. Call after all results are recorded.
func CleanupChunks(chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	dir := filepath.Dir(chunks[0].Path)
	if strings.Contains(filepath.Base(dir), tempDirPattern) {
		return os.RemoveAll(dir)
	}

	// Configured output directory: remove only our files, keep the directory.
	for _, chunk := range chunks {
		_ = os.Remove(chunk.Path) // best-effort; files may already be gone
	}
	return nil
}
