// Package compat resolves runtime configuration against segmenter
// implementations whose constructors spell their parameters differently.
// Deployments have shipped the chunk duration as chunk_duration,
// chunk_duration_seconds, or chunk_seconds; rather than scattering
// introspection through the pipeline, every implementation declares its
// accepted parameter names once, and resolution happens once at startup
// through a strategy table.
package compat

import (
	"errors"
	"fmt"
	"slices"
)

// Recognized aliases for the chunk duration parameter, in match order.
var chunkDurationAliases = []string{
	"chunk_duration",
	"chunk_duration_seconds",
	"chunk_seconds",
}

// Optional parameters resolved only when the signature declares them.
// Absent parameters are left to the implementation's own defaults.
const (
	ParamMaxRetries = "max_retries"
	ParamRetryDelay = "retry_delay"
)

// ErrIncompatibleSignature indicates an implementation declares none of the
// recognized chunk-duration parameter names. Failing loud here is
// deliberate: silently defaulting would produce wrong chunk sizes with no
// warning.
var ErrIncompatibleSignature = errors.New("incompatible chunker signature")

// ErrUnknownImplementation indicates no registered implementation matched.
var ErrUnknownImplementation = errors.New("unknown chunker implementation")

// Signature describes the constructor parameters an implementation accepts.
type Signature struct {
	// Name identifies the implementation, for diagnostics.
	Name string
	// Params are the declared constructor parameter names.
	Params []string
}

// Accepts reports whether the signature declares the given parameter name.
func (s Signature) Accepts(name string) bool {
	return slices.Contains(s.Params, name)
}

// Settings holds the canonical runtime values to map onto a signature.
type Settings struct {
	ChunkSeconds float64

	// Optional; nil leaves the implementation's own default in place.
	MaxRetries        *int
	RetryDelaySeconds *float64
}

// Args is the resolved argument mapping, keyed by the implementation's own
// parameter spellings.
type Args map[string]any

// ChunkSeconds returns the chunk duration value regardless of the alias it
// was resolved under, and whether one was present.
func (a Args) ChunkSeconds() (float64, bool) {
	for _, alias := range chunkDurationAliases {
		if v, ok := a[alias]; ok {
			f, ok := v.(float64)
			return f, ok
		}
	}
	return 0, false
}

// Resolve maps settings onto sig's declared parameter names. The chunk
// duration binds to the first recognized alias the signature accepts;
// max_retries and retry_delay bind only when declared.
func Resolve(sig Signature, set Settings) (Args, error) {
	if set.ChunkSeconds <= 0 {
		return nil, fmt.Errorf("chunk seconds must be positive, got %v", set.ChunkSeconds)
	}

	args := make(Args)

	matched := false
	for _, alias := range chunkDurationAliases {
		if sig.Accepts(alias) {
			args[alias] = set.ChunkSeconds
			matched = true
			break
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: %s accepts none of %v",
			ErrIncompatibleSignature, sig.Name, chunkDurationAliases)
	}

	if set.MaxRetries != nil && sig.Accepts(ParamMaxRetries) {
		args[ParamMaxRetries] = *set.MaxRetries
	}
	if set.RetryDelaySeconds != nil && sig.Accepts(ParamRetryDelay) {
		args[ParamRetryDelay] = *set.RetryDelaySeconds
	}

	return args, nil
}
