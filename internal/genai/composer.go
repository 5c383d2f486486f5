package genai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/postpilot/postpilot/internal/core"
	"github.com/postpilot/postpilot/internal/guard"
)

// maxTweetLength caps generated post text well under the platform limit so
// hashtags can be appended without truncation.
const maxTweetLength = 140

const maxThreadLength = 4

// Composer turns topics into ready-to-publish post text. All provider calls
// run through the generation gate.
type Composer struct {
	driver  Driver
	gate    *guard.Gate
	prompts PromptSet
	cfg     Config
}

// NewComposer builds a composer over the given driver and gate, loading
// prompt templates from cfg.PromptsDir (embedded defaults when unset).
func NewComposer(driver Driver, gate *guard.Gate, cfg Config) (*Composer, error) {
	if driver == nil {
		return nil, fmt.Errorf("driver is required")
	}
	if gate == nil {
		return nil, fmt.Errorf("gate is required")
	}

	prompts, err := LoadPrompts(cfg.PromptsDir)
	if err != nil {
		return nil, err
	}

	return &Composer{
		driver:  driver,
		gate:    gate,
		prompts: prompts,
		cfg:     cfg,
	}, nil
}

// Tweet generates a single post about a topic.
func (c *Composer) Tweet(ctx context.Context, topic string) (string, error) {
	text, err := c.complete(ctx, "tweet", map[string]string{"topic": topic})
	if err != nil {
		return "", err
	}

	tweet := finishSentence(truncateRunes(stripQuotes(text), maxTweetLength))
	if tweet == "" {
		return "", fmt.Errorf("empty tweet for topic %q", topic)
	}
	return tweet, nil
}

// Thread generates a 3-4 post thread about a topic, one post per line of the
// completion.
func (c *Composer) Thread(ctx context.Context, topic string) ([]string, error) {
	text, err := c.complete(ctx, "thread", map[string]string{"topic": topic})
	if err != nil {
		return nil, err
	}

	var posts []string
	for _, line := range strings.Split(text, "\n") {
		line = stripListMarker(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		post := finishSentence(truncateRunes(stripQuotes(line), maxTweetLength))
		if post == "" {
			continue
		}
		posts = append(posts, post)
		if len(posts) == maxThreadLength {
			break
		}
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("empty thread for topic %q", topic)
	}
	return posts, nil
}

// Hashtags generates up to five normalized hashtags for content.
func (c *Composer) Hashtags(ctx context.Context, content string) ([]string, error) {
	text, err := c.complete(ctx, "hashtags", map[string]string{"content": content})
	if err != nil {
		return nil, err
	}

	var tags []string
	for _, field := range strings.Fields(text) {
		tag := strings.Trim(field, "#,.")
		if tag == "" {
			continue
		}
		tags = append(tags, "#"+tag)
		if len(tags) == 5 {
			break
		}
	}
	return tags, nil
}

// Reply generates a short positive reply to someone else's post.
func (c *Composer) Reply(ctx context.Context, postText string) (string, error) {
	text, err := c.complete(ctx, "reply", map[string]string{"post": postText})
	if err != nil {
		return "", err
	}

	reply := core.SanitizeText(stripQuotes(text), core.MaxPostLength)
	if reply == "" {
		return "", fmt.Errorf("empty reply")
	}
	return reply, nil
}

// ImagePrompt renders the image-generation prompt for a topic.
func (c *Composer) ImagePrompt(topic string) (string, error) {
	prompt, err := c.prompts.Render("image", map[string]string{"topic": topic})
	if err != nil {
		return "", err
	}
	return prompt.Template, nil
}

// Image generates one image for the topic and downscales it for attachment,
// returning PNG bytes. Returns nil bytes when image attachments are disabled.
func (c *Composer) Image(ctx context.Context, topic string) ([]byte, error) {
	if !c.cfg.Images.Enabled {
		return nil, nil
	}

	prompt, err := c.ImagePrompt(topic)
	if err != nil {
		return nil, err
	}

	var images [][]byte
	err = c.gate.Do(ctx, func(ctx context.Context) error {
		resp, err := c.driver.GenerateImages(ctx, &ImageRequest{Prompt: prompt, Count: 1})
		if err != nil {
			return err
		}
		images = resp.Images
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("empty image response for topic %q", topic)
	}

	if err := c.archiveImage(images[0]); err != nil {
		return nil, err
	}

	width := c.cfg.Images.ThumbWidth
	if width <= 0 {
		width = 512
	}
	return Thumbnail(images[0], width)
}

// archiveImage keeps a full-size copy when an archive directory is
// configured.
func (c *Composer) archiveImage(data []byte) error {
	dir := strings.TrimSpace(c.cfg.Images.Dir)
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil { // #nosec G301 -- user-chosen archive dir
		return fmt.Errorf("create image archive dir: %w", err)
	}
	name := fmt.Sprintf("image-%d.png", time.Now().UnixNano())
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil { // #nosec G306 -- archived image is not sensitive
		return fmt.Errorf("archive image: %w", err)
	}
	return nil
}

func (c *Composer) complete(ctx context.Context, name string, vars map[string]string) (string, error) {
	prompt, err := c.prompts.Render(name, vars)
	if err != nil {
		return "", err
	}

	var text string
	err = c.gate.Do(ctx, func(ctx context.Context) error {
		resp, err := c.driver.Complete(ctx, &Request{
			System:      prompt.System,
			Prompt:      prompt.Template,
			MaxTokens:   c.cfg.MaxTokens,
			Temperature: c.cfg.Temperature,
		})
		if err != nil {
			return err
		}
		text = resp.Text
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// finishSentence ensures the text ends on terminal punctuation, cutting back
// to the last full sentence when truncation left a fragment.
func finishSentence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?") {
		return text
	}
	if idx := strings.LastIndexAny(text, ".!?"); idx > 0 {
		return strings.TrimSpace(text[:idx+1])
	}
	return text + "."
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func stripQuotes(text string) string {
	return strings.Trim(strings.TrimSpace(text), `"“”`)
}

// stripListMarker removes leading "1." / "2)" / "-" markers from thread lines.
func stripListMarker(line string) string {
	trimmed := strings.TrimLeft(line, "-*• ")
	i := 0
	for i < len(trimmed) && unicode.IsDigit(rune(trimmed[i])) {
		i++
	}
	if i > 0 && i < len(trimmed) && (trimmed[i] == '.' || trimmed[i] == ')') {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSpace(trimmed)
}
