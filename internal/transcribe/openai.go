package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vocallocal/robust-chunker/internal/apierr"
)

// ModelGPT4oMiniTranscribe is the cost-effective transcription model.
const ModelGPT4oMiniTranscribe = "gpt-4o-mini-transcribe"

// audioTranscriber is the slice of *openai.Client this backend needs.
// Allows injecting mocks in tests.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Backend          = (*OpenAIBackend)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAIBackend transcribes audio using OpenAI's transcription API.
type OpenAIBackend struct {
	client audioTranscriber
	model  string
}

// OpenAIOption configures an OpenAIBackend.
type OpenAIOption func(*OpenAIBackend)

// WithOpenAIModel overrides the transcription model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(b *OpenAIBackend) {
		if model != "" {
			b.model = model
		}
	}
}

// WithOpenAIClient sets the API client (for testing).
func WithOpenAIClient(c audioTranscriber) OpenAIOption {
	return func(b *OpenAIBackend) { b.client = c }
}

// NewOpenAIBackend creates an OpenAI transcription backend.
func NewOpenAIBackend(apiKey string, opts ...OpenAIOption) *OpenAIBackend {
	b := &OpenAIBackend{
		client: openai.NewClient(apiKey),
		model:  ModelGPT4oMiniTranscribe,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Transcribe performs a single transcription attempt.
func (b *OpenAIBackend) Transcribe(ctx context.Context, audioPath string, opts Options) (string, error) {
	req := openai.AudioRequest{
		Model:    b.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatJSON,
		Prompt:   opts.Prompt,
		Language: opts.Language,
	}

	resp, err := b.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	return resp.Text, nil
}

// classifyOpenAIError maps OpenAI API errors to apierr sentinels.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			// Distinguish temporary rate limits from exhausted quota: quota
			// requires user action and must not consume retry budget.
			if strings.Contains(apiErr.Message, "quota") ||
				strings.Contains(apiErr.Message, "billing") {
				return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
			}
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrServerError)
		case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%v: %w", netErr, apierr.ErrTransport)
	}

	return err
}
