// Package transcribe sends audio chunks to a remote speech-to-text backend
// and wraps the call in bounded retry. Backends perform a single attempt and
// classify their failures into apierr sentinels; the Client spends the retry
// budget and encodes every outcome, success or failure, into a Result value.
package transcribe

import (
	"context"
	"net/http"
)

// Options configures a transcription request.
type Options struct {
	// Language is the audio language as an ISO 639-1 code.
	// Zero value means auto-detect.
	Language string

	// Prompt provides context to improve transcription accuracy, such as
	// domain-specific vocabulary or expected content.
	Prompt string
}

// Backend performs a single transcription attempt against a vendor API.
type Backend interface {
	// Transcribe converts one audio file to text. Errors are classified
	// into apierr sentinels so the retry layer can tell transient failures
	// from terminal ones.
	Transcribe(ctx context.Context, audioPath string, opts Options) (string, error)
}

// httpDoer abstracts the HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Backend identifiers accepted by configuration.
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)
