package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/vocallocal/robust-chunker/internal/apierr"
)

// classifyGeminiHTTPError maps a non-200 Gemini response to apierr sentinels.
func classifyGeminiHTTPError(statusCode int, body []byte) error {
	var errResp geminiErrorResponse
	msg := string(body)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		// Gemini reports exhausted quota as RESOURCE_EXHAUSTED with 429.
		if errResp.Error.Status == "RESOURCE_EXHAUSTED" {
			return fmt.Errorf("%s: %w", msg, apierr.ErrQuotaExceeded)
		}
		return fmt.Errorf("%s: %w", msg, apierr.ErrRateLimit)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, apierr.ErrAuthFailed)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, apierr.ErrTimeout)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%s: %w", msg, apierr.ErrServerError)
	case http.StatusBadRequest, http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, apierr.ErrBadRequest)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}

// classifyGeminiTransportError maps pre-response failures to apierr sentinels.
func classifyGeminiTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%v: %w", netErr, apierr.ErrTimeout)
	}
	return fmt.Errorf("%v: %w", err, apierr.ErrTransport)
}
