package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL    = "https://api.x.ai/v1"
	defaultModel      = "grok-2-latest"
	defaultImageModel = "grok-2-image"
)

// XAIClient implements the Driver interface via the OpenAI-compatible xAI API.
type XAIClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	ImageModel string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewXAIClient returns a client with defaults applied from config.
func NewXAIClient(cfg Config) *XAIClient {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	imageModel := strings.TrimSpace(cfg.ImageModel)
	if imageModel == "" {
		imageModel = defaultImageModel
	}

	return &XAIClient{
		BaseURL:    baseURL,
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Model:      model,
		ImageModel: imageModel,
		Timeout:    cfg.Timeout,
	}
}

// Name returns the driver identifier.
func (c *XAIClient) Name() string {
	return "xai"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
}

// Complete sends a chat completion request to /chat/completions.
func (c *XAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	if c == nil {
		return nil, fmt.Errorf("xai client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.Model
	}

	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := chatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		temperature := req.Temperature
		payload.Temperature = &temperature
	}

	respBody, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, err
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	return &Response{
		Text:         strings.TrimSpace(parsed.Choices[0].Message.Content),
		FinishReason: parsed.Choices[0].FinishReason,
		Usage:        parsed.Usage,
	}, nil
}

type imageGenerationRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageGenerationResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		B64JSON       string `json:"b64_json,omitempty"`
		URL           string `json:"url,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

// GenerateImages renders images via /images/generations and decodes the
// base64 payloads.
func (c *XAIClient) GenerateImages(ctx context.Context, req *ImageRequest) (*ImageResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("xai client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	count := req.Count
	if count <= 0 {
		count = 1
	}
	if count > 10 {
		return nil, fmt.Errorf("count must be between 1 and 10")
	}

	payload := imageGenerationRequest{
		Model:          strings.TrimSpace(req.Model),
		Prompt:         req.Prompt,
		N:              count,
		ResponseFormat: "b64_json",
	}
	if payload.Model == "" {
		payload.Model = c.ImageModel
	}

	respBody, err := c.post(ctx, "/images/generations", payload)
	if err != nil {
		return nil, err
	}

	var parsed imageGenerationResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	images := make([][]byte, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		b64 := strings.TrimSpace(item.B64JSON)
		if b64 == "" {
			continue
		}
		// xAI may return either raw base64 or a data URL.
		if strings.HasPrefix(b64, "data:") {
			if idx := strings.Index(b64, ","); idx > 0 {
				b64 = b64[idx+1:]
			}
		}
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decode image base64: %w", err)
		}
		images = append(images, decoded)
	}

	return &ImageResponse{Created: parsed.Created, Images: images}, nil
}

func (c *XAIClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			Provider:    "xai",
			StatusCode:  resp.StatusCode,
			Message:     strings.TrimSpace(string(respBody)),
			RawResponse: respBody,
		}
	}

	return respBody, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
