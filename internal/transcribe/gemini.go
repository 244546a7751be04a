package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Gemini API defaults.
const (
	// DefaultGeminiHost is the Gemini API host.
	DefaultGeminiHost = "generativelanguage.googleapis.com"

	// DefaultGeminiModel is the default transcription model.
	DefaultGeminiModel = "gemini-2.0-flash"

	// geminiTimeout bounds a single generateContent call.
	geminiTimeout = 5 * time.Minute

	// geminiSystemPrompt pins the model to verbatim transcription.
	geminiSystemPrompt = "You are a transcriber. Transcribe the audio exactly. Do not add anything else."
)

// Compile-time interface compliance check.
var _ Backend = (*GeminiBackend)(nil)

// GeminiBackend transcribes audio using the Gemini generateContent API with
// inline audio data.
type GeminiBackend struct {
	apiKey     string
	host       string
	model      string
	httpClient httpDoer
}

// GeminiOption configures a GeminiBackend.
type GeminiOption func(*GeminiBackend)

// WithGeminiModel overrides the transcription model.
func WithGeminiModel(model string) GeminiOption {
	return func(b *GeminiBackend) {
		if model != "" {
			b.model = model
		}
	}
}

// WithGeminiHost overrides the API host (for testing).
func WithGeminiHost(host string) GeminiOption {
	return func(b *GeminiBackend) { b.host = host }
}

// WithGeminiHTTPClient sets a custom HTTP client (for testing).
func WithGeminiHTTPClient(c httpDoer) GeminiOption {
	return func(b *GeminiBackend) { b.httpClient = c }
}

// NewGeminiBackend creates a Gemini transcription backend.
func NewGeminiBackend(apiKey string, opts ...GeminiOption) *GeminiBackend {
	b := &GeminiBackend{
		apiKey:     apiKey,
		host:       DefaultGeminiHost,
		model:      DefaultGeminiModel,
		httpClient: &http.Client{Timeout: geminiTimeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Request/response shapes for generateContent.
type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Transcribe performs a single transcription attempt.
func (b *GeminiBackend) Transcribe(ctx context.Context, audioPath string, opts Options) (string, error) {
	data, err := os.ReadFile(audioPath) // #nosec G304 -- audioPath comes from internal segmentation
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	prompt := "Transcribe this audio."
	if opts.Language != "" {
		prompt = fmt.Sprintf("Transcribe this audio. The language is %q.", opts.Language)
	}
	if opts.Prompt != "" {
		prompt += " Context: " + opts.Prompt
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MIMEType: audioMIMEType(audioPath),
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
				{Text: prompt},
			},
		}},
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: geminiSystemPrompt}},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	apiURL := fmt.Sprintf("https://%s/v1beta/models/%s:generateContent?key=%s",
		b.host, b.model, b.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", classifyGeminiTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyGeminiHTTPError(resp.StatusCode, respBody)
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content in gemini response")
	}
	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

// audioMIMEType maps a chunk file extension to its MIME type.
// Chunks produced by the segmenter are always OGG; other extensions cover
// direct transcription of un-segmented inputs.
func audioMIMEType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); strings.HasPrefix(t, "audio/") {
		return t
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mp3"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	default:
		return "audio/ogg"
	}
}
