// Package x is a minimal X API v2 client covering the calls the agent makes:
// publishing posts, searching recent posts, engagement actions, media uploads
// and public metrics lookups. Every call runs through the platform gate.
package x

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/postpilot/postpilot/internal/core"
	"github.com/postpilot/postpilot/internal/guard"
)

const defaultBaseURL = "https://api.x.com/2"

// Config contains the client settings (mirrors config.PlatformConfig without
// importing it, so the package stays wiring-free).
type Config struct {
	BaseURL     string
	BearerToken string
	UserID      string
	Timeout     time.Duration
}

// Client talks to the X API v2. All methods admit through the injected gate;
// callers see guard.ErrRateLimited / guard.ErrCircuitOpen when the quota or
// breaker denies the call.
type Client struct {
	baseURL     string
	bearerToken string
	userID      string
	gate        *guard.Gate
	httpClient  *http.Client
	timeout     time.Duration
}

// NewClient builds a client over the given gate.
func NewClient(cfg Config, gate *guard.Gate) (*Client, error) {
	if gate == nil {
		return nil, fmt.Errorf("gate is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		bearerToken: strings.TrimSpace(cfg.BearerToken),
		userID:      strings.TrimSpace(cfg.UserID),
		gate:        gate,
		timeout:     cfg.Timeout,
	}, nil
}

// SetHTTPClient overrides the transport, for tests.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Gate returns the admission gate, for status reporting.
func (c *Client) Gate() *guard.Gate {
	return c.gate
}

// FoundPost is a post returned by SearchRecent.
type FoundPost struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	AuthorID string `json:"author_id"`
}

type createPostRequest struct {
	Text  string `json:"text"`
	Reply *struct {
		InReplyToPostID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
	Media *struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media,omitempty"`
}

type createPostResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// CreatePost publishes a post and returns its ID. Text is sanitized and
// truncated to the platform limit. replyTo and mediaIDs are optional.
func (c *Client) CreatePost(ctx context.Context, text string, replyTo string, mediaIDs []string) (string, error) {
	text = core.SanitizeText(text, core.MaxPostLength)
	if text == "" {
		return "", fmt.Errorf("post text is required")
	}

	payload := createPostRequest{Text: text}
	if replyTo = strings.TrimSpace(replyTo); replyTo != "" {
		payload.Reply = &struct {
			InReplyToPostID string `json:"in_reply_to_tweet_id"`
		}{InReplyToPostID: replyTo}
	}
	if len(mediaIDs) > 0 {
		payload.Media = &struct {
			MediaIDs []string `json:"media_ids"`
		}{MediaIDs: mediaIDs}
	}

	var parsed createPostResponse
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		return c.request(ctx, http.MethodPost, "/tweets", payload, &parsed)
	})
	if err != nil {
		return "", err
	}
	if parsed.Data.ID == "" {
		return "", fmt.Errorf("create post: response missing id")
	}
	return parsed.Data.ID, nil
}

type searchResponse struct {
	Data []FoundPost `json:"data"`
}

// SearchRecent returns up to count recent posts matching the query.
func (c *Client) SearchRecent(ctx context.Context, query string, count int) ([]FoundPost, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	if count <= 0 {
		count = 10
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("max_results", strconv.Itoa(count))
	params.Set("tweet.fields", "author_id")

	var parsed searchResponse
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		return c.request(ctx, http.MethodGet, "/tweets/search/recent?"+params.Encode(), nil, &parsed)
	})
	if err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

// Like marks a post as liked by the configured user.
func (c *Client) Like(ctx context.Context, postID string) error {
	return c.engage(ctx, "likes", postID)
}

// Repost reposts a post as the configured user.
func (c *Client) Repost(ctx context.Context, postID string) error {
	return c.engage(ctx, "retweets", postID)
}

// Reply publishes a reply to the given post.
func (c *Client) Reply(ctx context.Context, postID string, text string) (string, error) {
	if strings.TrimSpace(postID) == "" {
		return "", fmt.Errorf("post id is required")
	}
	return c.CreatePost(ctx, text, postID, nil)
}

func (c *Client) engage(ctx context.Context, action string, postID string) error {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return fmt.Errorf("post id is required")
	}
	if c.userID == "" {
		return fmt.Errorf("user id is required for %s", action)
	}

	payload := map[string]string{"tweet_id": postID}
	path := fmt.Sprintf("/users/%s/%s", c.userID, action)

	return c.gate.Do(ctx, func(ctx context.Context) error {
		return c.request(ctx, http.MethodPost, path, payload, nil)
	})
}

type uploadMediaResponse struct {
	Data struct {
		ID       string `json:"id"`
		MediaKey string `json:"media_key"`
	} `json:"data"`
}

// UploadMedia uploads encoded image bytes and returns the media ID to attach
// via CreatePost.
func (c *Client) UploadMedia(ctx context.Context, media []byte) (string, error) {
	if len(media) == 0 {
		return "", fmt.Errorf("media is required")
	}

	var parsed uploadMediaResponse
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		return c.upload(ctx, media, &parsed)
	})
	if err != nil {
		return "", err
	}
	if parsed.Data.ID == "" {
		return "", fmt.Errorf("upload media: response missing id")
	}
	return parsed.Data.ID, nil
}

func (c *Client) upload(ctx context.Context, media []byte, out any) error {
	if c.bearerToken == "" {
		return fmt.Errorf("bearer token is required")
	}

	ctx, cancel := withTimeout(ctx, c.timeout)
	if cancel != nil {
		defer cancel()
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", "media.png")
	if err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(media); err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}
	if err := writer.WriteField("media_category", "tweet_image"); err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/media/upload", &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.bearerToken)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	return c.send(httpReq, out)
}

type metricsResponse struct {
	Data struct {
		PublicMetrics struct {
			LikeCount       int `json:"like_count"`
			RetweetCount    int `json:"retweet_count"`
			ReplyCount      int `json:"reply_count"`
			ImpressionCount int `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// PostMetrics fetches the public engagement counters for a post.
func (c *Client) PostMetrics(ctx context.Context, postID string) (core.PostMetrics, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return core.PostMetrics{}, fmt.Errorf("post id is required")
	}

	var parsed metricsResponse
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		return c.request(ctx, http.MethodGet, "/tweets/"+postID+"?tweet.fields=public_metrics", nil, &parsed)
	})
	if err != nil {
		return core.PostMetrics{}, err
	}

	return core.PostMetrics{
		Likes:       parsed.Data.PublicMetrics.LikeCount,
		Reposts:     parsed.Data.PublicMetrics.RetweetCount,
		Replies:     parsed.Data.PublicMetrics.ReplyCount,
		Impressions: parsed.Data.PublicMetrics.ImpressionCount,
	}, nil
}

// CheckHealth satisfies the server health checker: a configured token is the
// readiness signal, no API call is spent on it.
func (c *Client) CheckHealth(_ context.Context) error {
	if c == nil || c.bearerToken == "" {
		return fmt.Errorf("bearer token not configured")
	}
	return nil
}

func (c *Client) request(ctx context.Context, method, path string, payload any, out any) error {
	if c.bearerToken == "" {
		return fmt.Errorf("bearer token is required")
	}

	ctx, cancel := withTimeout(ctx, c.timeout)
	if cancel != nil {
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.bearerToken)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return c.send(httpReq, out)
}

func (c *Client) send(httpReq *http.Request, out any) error {
	client := c.httpClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
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
