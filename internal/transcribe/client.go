package transcribe

import (
	"context"
	"time"

	"github.com/vocallocal/robust-chunker/internal/apierr"
	"github.com/vocallocal/robust-chunker/internal/audio"
)

// Default retry configuration.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second
)

// Result is the outcome of transcribing one chunk. Immutable once returned.
// Failures are encoded here rather than raised, so one chunk's failure can
// never abort the orchestrator loop.
type Result struct {
	Index    int    `json:"index"`
	OK       bool   `json:"ok"`
	Text     string `json:"text,omitempty"`
	ErrKind  string `json:"error_kind,omitempty"`
	ErrMsg   string `json:"error_message,omitempty"`
	Attempts int    `json:"attempts"`
}

// Client transcribes chunks through a Backend with bounded retry.
// Transient failures are retried with exponential backoff (or a fixed delay
// when configured); non-retryable failures short-circuit without spending
// retry budget.
type Client struct {
	backend    Backend
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	fixedDelay bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMaxRetries sets the maximum number of retry attempts per chunk.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) ClientOption {
	return func(c *Client) {
		if base > 0 {
			c.baseDelay = base
		}
		if max > 0 {
			c.maxDelay = max
		}
	}
}

// WithFixedDelay disables exponential doubling between attempts.
func WithFixedDelay() ClientOption {
	return func(c *Client) { c.fixedDelay = true }
}

// NewClient creates a Client around the given backend.
func NewClient(backend Backend, opts ...ClientOption) *Client {
	c := &Client{
		backend:    backend,
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultRetryDelay,
		maxDelay:   defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe runs one chunk through the backend, retrying transient
// failures up to the configured budget. It performs at most maxRetries+1
// attempts and never returns an error: terminal failures are recorded in
// the Result along with the number of attempts actually used.
func (c *Client) Transcribe(ctx context.Context, chunk audio.Chunk, opts Options) Result {
	cfg := apierr.RetryConfig{
		MaxRetries: c.maxRetries,
		BaseDelay:  c.baseDelay,
		MaxDelay:   c.maxDelay,
		Fixed:      c.fixedDelay,
	}

	attempts := 0
	text, err := apierr.RetryWithBackoff(ctx, cfg, func(attempt int) (string, error) {
		attempts = attempt + 1
		return c.backend.Transcribe(ctx, chunk.Path, opts)
	}, apierr.Retryable)

	if err != nil {
		return Result{
			Index:    chunk.Index,
			ErrKind:  apierr.Kind(err),
			ErrMsg:   err.Error(),
			Attempts: attempts,
		}
	}

	return Result{
		Index:    chunk.Index,
		OK:       true,
		Text:     text,
		Attempts: attempts,
	}
}
