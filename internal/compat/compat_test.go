package compat_test

import (
	"errors"
	"testing"

	"github.com/vocallocal/robust-chunker/internal/compat"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestResolve_ChunkDurationAliases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  []string
		wantKey string
	}{
		{"legacy chunk_duration", []string{"chunk_duration"}, "chunk_duration"},
		{"chunk_duration_seconds", []string{"chunk_duration_seconds"}, "chunk_duration_seconds"},
		{"chunk_seconds", []string{"chunk_seconds"}, "chunk_seconds"},
		{
			name:    "first alias wins when several declared",
			params:  []string{"chunk_seconds", "chunk_duration"},
			wantKey: "chunk_duration",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sig := compat.Signature{Name: "impl", Params: tt.params}
			args, err := compat.Resolve(sig, compat.Settings{ChunkSeconds: 300})
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got, ok := args[tt.wantKey]; !ok || got != 300.0 {
				t.Errorf("args[%q] = %v (present=%v), want 300", tt.wantKey, got, ok)
			}
			if v, ok := args.ChunkSeconds(); !ok || v != 300 {
				t.Errorf("ChunkSeconds() = %v, %v; want 300, true", v, ok)
			}
		})
	}
}

func TestResolve_IncompatibleSignature(t *testing.T) {
	t.Parallel()

	sig := compat.Signature{Name: "weird", Params: []string{"segment_length"}}
	_, err := compat.Resolve(sig, compat.Settings{ChunkSeconds: 300})
	if !errors.Is(err, compat.ErrIncompatibleSignature) {
		t.Errorf("Resolve() error = %v, want ErrIncompatibleSignature", err)
	}
}

func TestResolve_InvalidChunkSeconds(t *testing.T) {
	t.Parallel()

	sig := compat.Signature{Name: "impl", Params: []string{"chunk_seconds"}}
	for _, v := range []float64{0, -10} {
		if _, err := compat.Resolve(sig, compat.Settings{ChunkSeconds: v}); err == nil {
			t.Errorf("Resolve() with ChunkSeconds=%v expected error", v)
		}
	}
}

func TestResolve_OptionalParams(t *testing.T) {
	t.Parallel()

	t.Run("bound when declared and set", func(t *testing.T) {
		t.Parallel()
		sig := compat.Signature{
			Name:   "full",
			Params: []string{"chunk_duration", "max_retries", "retry_delay"},
		}
		args, err := compat.Resolve(sig, compat.Settings{
			ChunkSeconds:      120,
			MaxRetries:        intPtr(5),
			RetryDelaySeconds: floatPtr(2.5),
		})
		if err != nil {
			t.Fatal(err)
		}
		if args["max_retries"] != 5 {
			t.Errorf("max_retries = %v, want 5", args["max_retries"])
		}
		if args["retry_delay"] != 2.5 {
			t.Errorf("retry_delay = %v, want 2.5", args["retry_delay"])
		}
	})

	t.Run("skipped when not declared", func(t *testing.T) {
		t.Parallel()
		sig := compat.Signature{Name: "minimal", Params: []string{"chunk_duration"}}
		args, err := compat.Resolve(sig, compat.Settings{
			ChunkSeconds: 120,
			MaxRetries:   intPtr(5),
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := args["max_retries"]; ok {
			t.Error("max_retries bound despite undeclared parameter")
		}
	})

	t.Run("skipped when nil", func(t *testing.T) {
		t.Parallel()
		sig := compat.Signature{Name: "full", Params: []string{"chunk_duration", "max_retries"}}
		args, err := compat.Resolve(sig, compat.Settings{ChunkSeconds: 120})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := args["max_retries"]; ok {
			t.Error("max_retries bound despite nil setting")
		}
	})
}

// testImpl is a stand-in for a constructed segmenter.
type testImpl struct {
	name         string
	chunkSeconds float64
}

func factory(name string, params ...string) compat.Factory[*testImpl] {
	return compat.Factory[*testImpl]{
		Signature: compat.Signature{Name: name, Params: params},
		New: func(args compat.Args) (*testImpl, error) {
			secs, _ := args.ChunkSeconds()
			return &testImpl{name: name, chunkSeconds: secs}, nil
		},
	}
}

func TestRegistry_Probe(t *testing.T) {
	t.Parallel()

	reg := compat.NewRegistry[*testImpl]()
	reg.Register(factory("alpha", "chunk_duration"))
	reg.Register(factory("beta", "chunk_seconds"))

	t.Run("registration order when unnamed", func(t *testing.T) {
		t.Parallel()
		f, err := reg.Probe()
		if err != nil {
			t.Fatal(err)
		}
		if f.Signature.Name != "alpha" {
			t.Errorf("Probe() = %q, want alpha", f.Signature.Name)
		}
	})

	t.Run("explicit preference", func(t *testing.T) {
		t.Parallel()
		f, err := reg.Probe("beta")
		if err != nil {
			t.Fatal(err)
		}
		if f.Signature.Name != "beta" {
			t.Errorf("Probe(beta) = %q", f.Signature.Name)
		}
	})

	t.Run("first installed among candidates", func(t *testing.T) {
		t.Parallel()
		f, err := reg.Probe("missing", "beta", "alpha")
		if err != nil {
			t.Fatal(err)
		}
		if f.Signature.Name != "beta" {
			t.Errorf("Probe() = %q, want beta", f.Signature.Name)
		}
	})

	t.Run("unknown implementation", func(t *testing.T) {
		t.Parallel()
		_, err := reg.Probe("gamma")
		if !errors.Is(err, compat.ErrUnknownImplementation) {
			t.Errorf("Probe(gamma) error = %v, want ErrUnknownImplementation", err)
		}
	})
}

func TestRegistry_Build(t *testing.T) {
	t.Parallel()

	reg := compat.NewRegistry[*testImpl]()
	reg.Register(factory("legacy", "chunk_duration"))
	reg.Register(factory("modern", "chunk_duration_seconds"))

	impl, err := reg.Build(compat.Settings{ChunkSeconds: 300}, "modern")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if impl.name != "modern" || impl.chunkSeconds != 300 {
		t.Errorf("Build() = %+v", impl)
	}

	t.Run("incompatible winner fails loud", func(t *testing.T) {
		t.Parallel()
		reg2 := compat.NewRegistry[*testImpl]()
		reg2.Register(factory("weird", "segment_length"))
		_, err := reg2.Build(compat.Settings{ChunkSeconds: 300})
		if !errors.Is(err, compat.ErrIncompatibleSignature) {
			t.Errorf("Build() error = %v, want ErrIncompatibleSignature", err)
		}
	})

	t.Run("duplicate registration replaces in place", func(t *testing.T) {
		t.Parallel()
		reg3 := compat.NewRegistry[*testImpl]()
		reg3.Register(factory("alpha", "chunk_duration"))
		reg3.Register(factory("beta", "chunk_duration"))
		reg3.Register(factory("alpha", "chunk_seconds")) // re-register

		f, err := reg3.Probe()
		if err != nil {
			t.Fatal(err)
		}
		// Probe order unchanged; the newer signature wins.
		if f.Signature.Name != "alpha" || f.Signature.Params[0] != "chunk_seconds" {
			t.Errorf("Probe() = %+v", f.Signature)
		}
	})
}
