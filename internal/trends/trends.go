// Package trends fetches trending topics from SerpAPI's google_trends engine.
// Results are cached; failures fall back to a configured topic list so the
// posting loop never stalls on the trends source.
package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/postpilot/postpilot/internal/cache"
	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/guard"
)

const (
	defaultBaseURL = "https://serpapi.com/search.json"
	defaultQuery   = "technology, ai, fashion, architecture, design"
	maxTopics      = 5

	cacheKey = "trending_topics"
)

// Client queries SerpAPI through the trends gate.
type Client struct {
	cfg        config.TrendsConfig
	gate       *guard.Gate
	cache      *cache.Cache
	httpClient *http.Client
}

// NewClient builds a trends client. The cache is optional.
func NewClient(cfg config.TrendsConfig, gate *guard.Gate, c *cache.Cache) (*Client, error) {
	if gate == nil {
		return nil, fmt.Errorf("gate is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}

	return &Client{cfg: cfg, gate: gate, cache: c}, nil
}

// SetHTTPClient overrides the transport, for tests.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

type searchResponse struct {
	TrendingSearches []struct {
		Title string `json:"title"`
		Query string `json:"query"`
	} `json:"trending_searches"`
}

// TrendingTopics returns up to five trending topic titles, serving from
// cache when fresh.
func (c *Client) TrendingTopics(ctx context.Context) ([]string, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			if topics, ok := cached.([]string); ok {
				return topics, nil
			}
		}
	}

	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, fmt.Errorf("serpapi key is required")
	}

	var topics []string
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		fetched, err := c.fetch(ctx)
		if err != nil {
			return err
		}
		topics = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil && len(topics) > 0 {
		c.cache.SetTTL(cacheKey, topics, c.cfg.CacheTTL)
		// A successful refresh is the sweep point for expired entries.
		c.cache.Cleanup()
	}
	return topics, nil
}

// TopicsOrFallback returns trending topics, or the configured fallback list
// when the source is disabled or failing. The returned error is the fetch
// failure, if any, for the caller to log; the topic list is always usable.
func (c *Client) TopicsOrFallback(ctx context.Context) ([]string, error) {
	if !c.cfg.Enabled {
		return c.fallback(), nil
	}

	topics, err := c.TrendingTopics(ctx)
	if err != nil || len(topics) == 0 {
		return c.fallback(), err
	}
	return topics, nil
}

func (c *Client) fallback() []string {
	if len(c.cfg.Fallback) > 0 {
		return append([]string(nil), c.cfg.Fallback...)
	}
	return []string{"technology"}
}

func (c *Client) fetch(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, c.cfg.Timeout)
	if cancel != nil {
		defer cancel()
	}

	params := url.Values{}
	params.Set("engine", "google_trends")
	params.Set("q", defaultQuery)
	params.Set("api_key", c.cfg.APIKey)
	if geo := strings.TrimSpace(c.cfg.Geo); geo != "" {
		params.Set("geo", geo)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	client := c.httpClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi request failed: status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	topics := make([]string, 0, maxTopics)
	for _, item := range parsed.TrendingSearches {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = strings.TrimSpace(item.Query)
		}
		if title == "" {
			continue
		}
		topics = append(topics, title)
		if len(topics) == maxTopics {
			break
		}
	}
	return topics, nil
}

// Hashtags derives lowercase hashtags from topic titles.
func Hashtags(topics []string) []string {
	tags := make([]string, 0, len(topics))
	for _, topic := range topics {
		tag := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(topic), " ", ""))
		if tag == "" {
			continue
		}
		tags = append(tags, "#"+tag)
	}
	if len(tags) == 0 {
		return []string{"#technology", "#ai"}
	}
	return tags
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
