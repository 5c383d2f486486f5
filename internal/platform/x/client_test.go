package x

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/postpilot/postpilot/internal/guard"
)

func testGate(t *testing.T) *guard.Gate {
	t.Helper()

	gate, err := guard.New("platform", guard.Config{
		Windows: []guard.Window{{Name: "test", MaxRequests: 100, Period: time.Minute}},
		Retry:   guard.RetryPolicy{MaxRetries: guard.Int(1), InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: guard.Float64(2)},
	}, guard.WithRetryable(Retryable))
	require.NoError(t, err)
	return gate
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	client, err := NewClient(Config{
		BaseURL:     serverURL,
		BearerToken: "test-bearer",
		UserID:      "me-123",
	}, testGate(t))
	require.NoError(t, err)
	return client
}

func TestCreatePost(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/tweets", r.URL.Path)
			require.Equal(t, "Bearer test-bearer", r.Header.Get("Authorization"))

			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.Equal(t, "hello world", payload["text"])

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data": {"id": "1234567890", "text": "hello world"}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		id, err := client.CreatePost(context.Background(), "hello world", "", nil)
		require.NoError(t, err)
		require.Equal(t, "1234567890", id)
	})

	t.Run("ReplyAndMediaIncluded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

			reply, ok := payload["reply"].(map[string]any)
			require.True(t, ok)
			require.Equal(t, "777", reply["in_reply_to_tweet_id"])

			media, ok := payload["media"].(map[string]any)
			require.True(t, ok)
			require.Equal(t, []any{"m1"}, media["media_ids"])

			_, _ = w.Write([]byte(`{"data": {"id": "88"}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		id, err := client.CreatePost(context.Background(), "reply text", "777", []string{"m1"})
		require.NoError(t, err)
		require.Equal(t, "88", id)
	})

	t.Run("TextTruncatedToLimit", func(t *testing.T) {
		var received string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			received, _ = payload["text"].(string)
			_, _ = w.Write([]byte(`{"data": {"id": "1"}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.CreatePost(context.Background(), strings.Repeat("a", 400), "", nil)
		require.NoError(t, err)
		require.Len(t, []rune(received), 280)
	})

	t.Run("EmptyTextRejectedBeforeGate", func(t *testing.T) {
		client := newTestClient(t, "http://unused.invalid")
		_, err := client.CreatePost(context.Background(), "   ", "", nil)
		require.Error(t, err)
	})
}

func TestSearchRecent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tweets/search/recent", r.URL.Path)
		require.Equal(t, "golang -is:retweet", r.URL.Query().Get("query"))
		require.Equal(t, "5", r.URL.Query().Get("max_results"))

		_, _ = w.Write([]byte(`{"data": [
			{"id": "1", "text": "first", "author_id": "u1"},
			{"id": "2", "text": "second", "author_id": "u2"}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	posts, err := client.SearchRecent(context.Background(), "golang -is:retweet", 5)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "first", posts[0].Text)
	require.Equal(t, "u2", posts[1].AuthorID)
}

func TestEngagement(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "42", payload["tweet_id"])

		_, _ = w.Write([]byte(`{"data": {"liked": true}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Like(context.Background(), "42"))
	require.NoError(t, client.Repost(context.Background(), "42"))
	require.Equal(t, []string{"/users/me-123/likes", "/users/me-123/retweets"}, paths)
}

func TestUploadMedia(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		payload := []byte{0x89, 'P', 'N', 'G'}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/media/upload", r.URL.Path)
			require.Equal(t, "Bearer test-bearer", r.Header.Get("Authorization"))

			require.NoError(t, r.ParseMultipartForm(1<<20))
			require.Equal(t, "tweet_image", r.FormValue("media_category"))

			file, _, err := r.FormFile("media")
			require.NoError(t, err)
			defer file.Close() // nolint:errcheck // best-effort cleanup
			uploaded, err := io.ReadAll(file)
			require.NoError(t, err)
			require.Equal(t, payload, uploaded)

			_, _ = w.Write([]byte(`{"data": {"id": "m-9", "media_key": "3_m-9"}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		id, err := client.UploadMedia(context.Background(), payload)
		require.NoError(t, err)
		require.Equal(t, "m-9", id)
	})

	t.Run("EmptyMediaRejectedBeforeGate", func(t *testing.T) {
		client := newTestClient(t, "http://unused.invalid")
		_, err := client.UploadMedia(context.Background(), nil)
		require.Error(t, err)
	})
}

func TestPostMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tweets/42", r.URL.Path)
		require.Equal(t, "public_metrics", r.URL.Query().Get("tweet.fields"))

		_, _ = w.Write([]byte(`{"data": {"public_metrics": {
			"like_count": 7, "retweet_count": 2, "reply_count": 1, "impression_count": 321
		}}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	metrics, err := client.PostMetrics(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, 7, metrics.Likes)
	require.Equal(t, 2, metrics.Reposts)
	require.Equal(t, 1, metrics.Replies)
	require.Equal(t, 321, metrics.Impressions)
}

func TestErrorClassification(t *testing.T) {
	t.Run("ClientErrorNotRetried", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"title": "Forbidden", "detail": "not allowed"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.CreatePost(context.Background(), "text", "", nil)
		require.Error(t, err)
		require.Equal(t, 1, calls)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		require.Contains(t, apiErr.Error(), "not allowed")
	})

	t.Run("ServerErrorRetried", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"data": {"id": "9"}}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		id, err := client.CreatePost(context.Background(), "text", "", nil)
		require.NoError(t, err)
		require.Equal(t, "9", id)
		require.Equal(t, 2, calls)
	})
}

func TestRetryable(t *testing.T) {
	require.True(t, Retryable(&APIError{StatusCode: http.StatusTooManyRequests}))
	require.True(t, Retryable(&APIError{StatusCode: http.StatusBadGateway}))
	require.False(t, Retryable(&APIError{StatusCode: http.StatusBadRequest}))
	require.False(t, Retryable(&APIError{StatusCode: http.StatusNotFound}))
	require.True(t, Retryable(errors.New("connection reset")))
	require.False(t, Retryable(guard.ErrRateLimited))
	require.False(t, Retryable(context.Canceled))
}

func TestGateDeniesWithoutSpendingCall(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"data": {"id": "1"}}`))
	}))
	defer server.Close()

	gate, err := guard.New("platform", guard.Config{
		Windows: []guard.Window{{Name: "tiny", MaxRequests: 1, Period: time.Hour}},
	}, guard.WithRetryable(Retryable))
	require.NoError(t, err)

	client, err := NewClient(Config{BaseURL: server.URL, BearerToken: "b", UserID: "u"}, gate)
	require.NoError(t, err)

	_, err = client.CreatePost(context.Background(), "first", "", nil)
	require.NoError(t, err)

	_, err = client.CreatePost(context.Background(), "second", "", nil)
	require.ErrorIs(t, err, guard.ErrRateLimited)
	require.Equal(t, 1, calls)
}
