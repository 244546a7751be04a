package compat

import (
	"fmt"
)

// Factory constructs a segmenter-like implementation from resolved Args.
// The construct function receives arguments keyed by the implementation's
// own parameter spellings, as produced by Resolve against its Signature.
type Factory[T any] struct {
	Signature Signature
	New       func(args Args) (T, error)
}

// Registry holds registered implementations probed in preference order,
// mirroring deployments where either of two chunker variants may be
// installed and whichever is present wins.
type Registry[T any] struct {
	order     []string
	factories map[string]Factory[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{factories: make(map[string]Factory[T])}
}

// Register adds an implementation. Registration order defines probe order.
func (r *Registry[T]) Register(f Factory[T]) {
	if _, dup := r.factories[f.Signature.Name]; !dup {
		r.order = append(r.order, f.Signature.Name)
	}
	r.factories[f.Signature.Name] = f
}

// Probe returns the first registered implementation among names, or the
// first registered overall when names is empty.
func (r *Registry[T]) Probe(names ...string) (Factory[T], error) {
	if len(names) == 0 {
		names = r.order
	}
	for _, name := range names {
		if f, ok := r.factories[name]; ok {
			return f, nil
		}
	}
	return Factory[T]{}, fmt.Errorf("%w: tried %v", ErrUnknownImplementation, names)
}

// Build resolves settings against the probed implementation's signature and
// constructs it. This is the single startup entry point; nothing downstream
// needs to know which parameter spelling the implementation uses.
func (r *Registry[T]) Build(set Settings, names ...string) (T, error) {
	var zero T

	factory, err := r.Probe(names...)
	if err != nil {
		return zero, err
	}

	args, err := Resolve(factory.Signature, set)
	if err != nil {
		return zero, err
	}

	return factory.New(args)
}
