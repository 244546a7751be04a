package audio

import "errors"

// ErrFileNotFound indicates the input audio file does not exist or is unreadable.
var ErrFileNotFound = errors.New("audio file not found")

// ErrUnsupportedFormat indicates FFmpeg could not decode the input container/codec.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrProbeInconsistency indicates the probed duration disagrees with the
// segmented coverage by more than one chunk length. Boundaries computed from
// a bad probe drift, so this is fatal for the run.
var ErrProbeInconsistency = errors.New("probe duration inconsistency")

// ErrInvalidConfig indicates segmenter parameters are out of range.
var ErrInvalidConfig = errors.New("invalid segmenter configuration")

// ErrExtractionFailed indicates FFmpeg failed to write a chunk file.
var ErrExtractionFailed = errors.New("chunk extraction failed")
