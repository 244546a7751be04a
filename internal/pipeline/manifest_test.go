package pipeline_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/vocallocal/robust-chunker/internal/pipeline"
	"github.com/vocallocal/robust-chunker/internal/transcribe"
)

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    pipeline.Policy
		wantErr bool
	}{
		{"strict", "strict", pipeline.PolicyStrict, false},
		{"best effort", "best-effort", pipeline.PolicyBestEffort, false},
		{"empty defaults to strict", "", pipeline.PolicyStrict, false},
		{"unknown", "lenient", "", true},
		{"case sensitive", "Strict", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := pipeline.ParsePolicy(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePolicy(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePolicy(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePolicy(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGapMarker(t *testing.T) {
	t.Parallel()

	if got := pipeline.GapMarker(3); got != "[chunk 3 unavailable]" {
		t.Errorf("GapMarker(3) = %q", got)
	}
}

func TestManifest_Succeeded(t *testing.T) {
	t.Parallel()

	m := &pipeline.Manifest{
		Results: []transcribe.Result{
			{Index: 0, OK: true},
			{Index: 1, OK: false},
			{Index: 2, OK: true},
		},
	}
	if got := m.Succeeded(); got != 2 {
		t.Errorf("Succeeded() = %d, want 2", got)
	}
}

func TestManifest_WriteJSON(t *testing.T) {
	t.Parallel()

	m := &pipeline.Manifest{
		Source:       "in.ogg",
		Policy:       pipeline.PolicyStrict,
		ChunkSeconds: 300,
		ChunkCount:   2,
		Results: []transcribe.Result{
			{Index: 0, OK: true, Text: "hello", Attempts: 1},
			{Index: 1, ErrKind: "rate_limit", ErrMsg: "slow down", Attempts: 4},
		},
		Transcript:     "hello\n\n[chunk 1 unavailable]",
		OverallSuccess: false,
		StartedAt:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		ElapsedSeconds: 12.5,
	}

	var buf bytes.Buffer
	if err := m.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	// The output must round-trip and preserve failure detail.
	var back pipeline.Manifest
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if back.ChunkCount != 2 || back.OverallSuccess {
		t.Errorf("round-trip mismatch: %+v", back)
	}
	if back.Results[1].ErrKind != "rate_limit" {
		t.Errorf("Results[1].ErrKind = %q", back.Results[1].ErrKind)
	}
	if !bytes.Contains(buf.Bytes(), []byte("\n  ")) {
		t.Error("output is not indented")
	}
}
