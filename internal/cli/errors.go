package cli

import "errors"

// CLI-specific sentinel errors. Validation and usage errors that don't
// belong to domain packages live here so main can map them to exit codes.
var (
	// ErrAPIKeyMissing indicates the selected backend's API key is not set.
	ErrAPIKeyMissing = errors.New("API key not set")

	// ErrUnsupportedProvider indicates an unknown transcription provider name.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidConfiguration indicates the merged configuration failed
	// validation before the pipeline started.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrRunFailed indicates the pipeline completed but the manifest did not
	// meet its aggregate policy. The manifest has already been written.
	ErrRunFailed = errors.New("run failed")
)
