package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXAIComplete(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/chat/completions", r.URL.Path)
			require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var payload chatCompletionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.Equal(t, "grok-2-latest", payload.Model)
			require.Len(t, payload.Messages, 2)
			require.Equal(t, "system", payload.Messages[0].Role)
			require.Equal(t, "user", payload.Messages[1].Role)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"choices": [{"message": {"role": "assistant", "content": "  A tidy answer.  "}, "finish_reason": "stop"}],
				"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
			}`))
		}))
		defer server.Close()

		client := NewXAIClient(Config{BaseURL: server.URL, APIKey: "test-key"})
		resp, err := client.Complete(context.Background(), &Request{System: "be brief", Prompt: "hello"})
		require.NoError(t, err)
		require.Equal(t, "A tidy answer.", resp.Text)
		require.Equal(t, "stop", resp.FinishReason)
		require.Equal(t, 15, resp.Usage.TotalTokens)
	})

	t.Run("ProviderErrorOnNon2xx", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": "rate limit exceeded"}`))
		}))
		defer server.Close()

		client := NewXAIClient(Config{BaseURL: server.URL, APIKey: "test-key"})
		_, err := client.Complete(context.Background(), &Request{Prompt: "hello"})
		require.Error(t, err)

		var provErr *ProviderError
		require.ErrorAs(t, err, &provErr)
		require.Equal(t, "xai", provErr.Provider)
		require.Equal(t, http.StatusTooManyRequests, provErr.StatusCode)
	})

	t.Run("MissingAPIKey", func(t *testing.T) {
		client := NewXAIClient(Config{})
		_, err := client.Complete(context.Background(), &Request{Prompt: "hello"})
		require.Error(t, err)
	})

	t.Run("MissingPrompt", func(t *testing.T) {
		client := NewXAIClient(Config{APIKey: "k"})
		_, err := client.Complete(context.Background(), &Request{})
		require.Error(t, err)
	})
}

func TestXAIGenerateImages(t *testing.T) {
	t.Run("DecodesBase64", func(t *testing.T) {
		raw := []byte{0x89, 'P', 'N', 'G'}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/images/generations", r.URL.Path)

			var payload imageGenerationRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.Equal(t, "grok-2-image", payload.Model)
			require.Equal(t, "b64_json", payload.ResponseFormat)

			body := map[string]any{
				"created": 1700000000,
				"data": []map[string]string{
					{"b64_json": base64.StdEncoding.EncodeToString(raw)},
					{"b64_json": "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(body)
		}))
		defer server.Close()

		client := NewXAIClient(Config{BaseURL: server.URL, APIKey: "test-key"})
		resp, err := client.GenerateImages(context.Background(), &ImageRequest{Prompt: "a lighthouse"})
		require.NoError(t, err)
		require.Len(t, resp.Images, 2)
		require.Equal(t, raw, resp.Images[0])
		require.Equal(t, raw, resp.Images[1])
	})

	t.Run("CountBounds", func(t *testing.T) {
		client := NewXAIClient(Config{APIKey: "k"})
		_, err := client.GenerateImages(context.Background(), &ImageRequest{Prompt: "p", Count: 11})
		require.Error(t, err)
	})
}
