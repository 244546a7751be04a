package transcribe

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// ClassifyOpenAIError exports classifyOpenAIError for testing.
var ClassifyOpenAIError = classifyOpenAIError

// ClassifyGeminiHTTPError exports classifyGeminiHTTPError for testing.
var ClassifyGeminiHTTPError = classifyGeminiHTTPError

// ClassifyGeminiTransportError exports classifyGeminiTransportError for testing.
var ClassifyGeminiTransportError = classifyGeminiTransportError

// AudioMIMEType exports audioMIMEType for testing.
var AudioMIMEType = audioMIMEType

// HTTPDoer exports httpDoer for testing.
type HTTPDoer = httpDoer
