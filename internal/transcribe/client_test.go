package transcribe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vocallocal/robust-chunker/internal/apierr"
	"github.com/vocallocal/robust-chunker/internal/audio"
	"github.com/vocallocal/robust-chunker/internal/transcribe"
)

// fakeBackend scripts per-attempt outcomes and counts calls.
type fakeBackend struct {
	mu    sync.Mutex
	errs  []error // error for call n; nil or out of range means success
	text  string
	calls int
}

func (f *fakeBackend) Transcribe(_ context.Context, _ string, _ transcribe.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.calls
	f.calls++
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	return f.text, nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastClient(backend transcribe.Backend, maxRetries int) *transcribe.Client {
	return transcribe.NewClient(backend,
		transcribe.WithMaxRetries(maxRetries),
		transcribe.WithRetryDelays(time.Microsecond, time.Millisecond))
}

func TestClient_Transcribe(t *testing.T) {
	t.Parallel()

	chunk := audio.Chunk{Path: "/tmp/chunk_000.ogg", Index: 0}

	t.Run("success on first attempt", func(t *testing.T) {
		t.Parallel()
		backend := &fakeBackend{text: "hello world"}
		res := fastClient(backend, 3).Transcribe(context.Background(), chunk, transcribe.Options{})

		if !res.OK {
			t.Fatalf("Result not OK: %+v", res)
		}
		if res.Text != "hello world" {
			t.Errorf("Text = %q, want %q", res.Text, "hello world")
		}
		if res.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", res.Attempts)
		}
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		t.Parallel()
		backend := &fakeBackend{
			errs: []error{apierr.ErrRateLimit, apierr.ErrServerError},
			text: "eventually",
		}
		res := fastClient(backend, 3).Transcribe(context.Background(), chunk, transcribe.Options{})

		if !res.OK {
			t.Fatalf("Result not OK: %+v", res)
		}
		if res.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", res.Attempts)
		}
	})

	t.Run("retry budget bounds attempts", func(t *testing.T) {
		t.Parallel()
		backend := &fakeBackend{
			errs: []error{
				apierr.ErrServerError, apierr.ErrServerError, apierr.ErrServerError,
				apierr.ErrServerError, apierr.ErrServerError, apierr.ErrServerError,
			},
		}
		res := fastClient(backend, 2).Transcribe(context.Background(), chunk, transcribe.Options{})

		if res.OK {
			t.Fatal("expected failure")
		}
		if backend.callCount() != 3 {
			t.Errorf("backend called %d times, want 3 (maxRetries+1)", backend.callCount())
		}
		if res.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", res.Attempts)
		}
		if res.ErrKind != "server_error" {
			t.Errorf("ErrKind = %q, want %q", res.ErrKind, "server_error")
		}
		if res.ErrMsg == "" {
			t.Error("ErrMsg empty")
		}
	})

	t.Run("auth failure does not spend retry budget", func(t *testing.T) {
		t.Parallel()
		backend := &fakeBackend{
			errs: []error{fmt.Errorf("bad key: %w", apierr.ErrAuthFailed)},
		}
		res := fastClient(backend, 5).Transcribe(context.Background(), chunk, transcribe.Options{})

		if res.OK {
			t.Fatal("expected failure")
		}
		if backend.callCount() != 1 {
			t.Errorf("backend called %d times, want 1", backend.callCount())
		}
		if res.ErrKind != "auth_failed" {
			t.Errorf("ErrKind = %q, want %q", res.ErrKind, "auth_failed")
		}
	})

	t.Run("result carries chunk index", func(t *testing.T) {
		t.Parallel()
		backend := &fakeBackend{text: "x"}
		res := fastClient(backend, 0).Transcribe(context.Background(),
			audio.Chunk{Path: "/tmp/chunk_007.ogg", Index: 7}, transcribe.Options{})
		if res.Index != 7 {
			t.Errorf("Index = %d, want 7", res.Index)
		}
	})
}
