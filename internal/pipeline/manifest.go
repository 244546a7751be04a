// Package pipeline orchestrates the full chunking run: probe, segment,
// transcribe each chunk with bounded concurrency, and assemble an ordered
// manifest of per-chunk outcomes.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vocallocal/robust-chunker/internal/transcribe"
)

// ErrNoChunksProduced indicates segmentation yielded zero usable chunks,
// so there is no meaningful partial result to report.
var ErrNoChunksProduced = errors.New("no chunks produced")

// Policy decides how per-chunk failures roll up into overall success.
type Policy string

const (
	// PolicyStrict requires every chunk to succeed. The default: a partial
	// transcript silently missing content is a worse failure mode than an
	// explicit abort.
	PolicyStrict Policy = "strict"

	// PolicyBestEffort succeeds when at least one chunk succeeds, leaving
	// an explicit gap marker at each failed position.
	PolicyBestEffort Policy = "best-effort"
)

// ParsePolicy validates a policy name from configuration.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyStrict, PolicyBestEffort:
		return Policy(s), nil
	case "":
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown aggregate policy %q (want %q or %q)",
			s, PolicyStrict, PolicyBestEffort)
	}
}

// GapMarker is inserted into the transcript at a failed chunk's position so
// missing content is visible rather than silent.
func GapMarker(index int) string {
	return fmt.Sprintf("[chunk %d unavailable]", index)
}

// Manifest is the terminal output of a pipeline run: every per-chunk
// outcome ordered by chunk index, plus run-level summary.
type Manifest struct {
	Source         string              `json:"source"`
	Policy         Policy              `json:"policy"`
	ChunkSeconds   float64             `json:"chunk_seconds"`
	ChunkCount     int                 `json:"chunk_count"`
	Results        []transcribe.Result `json:"results"`
	Transcript     string              `json:"transcript"`
	OverallSuccess bool                `json:"overall_success"`
	StartedAt      time.Time           `json:"started_at"`
	ElapsedSeconds float64             `json:"elapsed_seconds"`
}

// Succeeded returns the number of successfully transcribed chunks.
func (m *Manifest) Succeeded() int {
	n := 0
	for _, r := range m.Results {
		if r.OK {
			n++
		}
	}
	return n
}

// WriteJSON emits the manifest as indented JSON for machine consumption.
func (m *Manifest) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}
