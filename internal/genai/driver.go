// Package genai generates post text and images through a provider-agnostic
// driver interface. The Composer layers platform-specific post-processing
// (length limits, thread splitting, hashtag normalization) on top of raw
// completions.
package genai

import (
	"context"
	"fmt"
)

// Driver defines the interface for AI completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// GenerateImages renders images for a prompt.
	GenerateImages(ctx context.Context, req *ImageRequest) (*ImageResponse, error)
	// Name returns the driver identifier (e.g., "xai").
	Name() string
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a provider-agnostic completion response.
type Response struct {
	Text         string
	FinishReason string
	Usage        *Usage
}

// ImageRequest asks the provider to render Count images for a prompt.
type ImageRequest struct {
	Model  string
	Prompt string
	Count  int
}

// ImageResponse carries decoded image bytes.
type ImageResponse struct {
	Created int64
	Images  [][]byte
}

// ProviderError is returned when a provider responds with a non-2xx status.
//
// Drivers should populate RawResponse with the provider response body bytes.
// RawResponse must never include API keys.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Message     string
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}
