package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/postpilot/postpilot/internal/core"
	"github.com/postpilot/postpilot/internal/metrics"
)

const (
	// recentWindow is the lookback used for topic dedup and analytics.
	recentWindow = 24 * time.Hour

	// maxTrackedPosts bounds how many posts one analytics pass refreshes.
	maxTrackedPosts = 50
)

// runPost publishes a single post on a topic not covered in the last day.
func (a *Agent) runPost(ctx context.Context) error {
	topic, err := a.pickTopic(ctx)
	if err != nil {
		return err
	}

	text, err := a.composer.Tweet(ctx, topic)
	if err != nil {
		return fmt.Errorf("compose tweet: %w", err)
	}

	text = a.withHashtags(ctx, text)
	mediaIDs := a.attachMedia(ctx, topic)

	postID, err := a.platform.CreatePost(ctx, text, "", mediaIDs)
	metrics.RecordAPICall("platform", "create_post", err == nil)
	if err != nil {
		return fmt.Errorf("publish post: %w", err)
	}

	metrics.RecordPostPublished("single")
	a.logInfo("Published post",
		zap.String("post_id", postID),
		zap.String("topic", topic))

	return a.recordPost(ctx, postID, text)
}

// runThread publishes a thread, chaining each part as a reply to the
// previous one.
func (a *Agent) runThread(ctx context.Context) error {
	topic, err := a.pickTopic(ctx)
	if err != nil {
		return err
	}

	parts, err := a.composer.Thread(ctx, topic)
	if err != nil {
		return fmt.Errorf("compose thread: %w", err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("compose thread: empty result for topic %q", topic)
	}

	parts[0] = a.withHashtags(ctx, parts[0])

	replyTo := ""
	for i, part := range parts {
		postID, err := a.platform.CreatePost(ctx, part, replyTo, nil)
		metrics.RecordAPICall("platform", "create_post", err == nil)
		if err != nil {
			if i > 0 {
				a.logWarn("Thread truncated mid-publish",
					zap.String("topic", topic),
					zap.Int("published", i),
					zap.Int("planned", len(parts)))
			}
			return fmt.Errorf("publish thread part %d: %w", i+1, err)
		}

		if err := a.recordPost(ctx, postID, part); err != nil {
			return err
		}
		replyTo = postID
	}

	metrics.RecordPostPublished("thread")
	a.logInfo("Published thread",
		zap.String("topic", topic),
		zap.Int("parts", len(parts)))

	return nil
}

// runInteractions engages with recent posts matching the search query: every
// found post gets a like, every third a repost, and the first a reply.
func (a *Agent) runInteractions(ctx context.Context) error {
	if a.cfg.MaxInteractions <= 0 {
		return nil
	}

	query := a.cfg.SearchQuery
	if strings.TrimSpace(query) == "" {
		query = "technology -is:retweet"
	}

	found, err := a.platform.SearchRecent(ctx, query, a.cfg.MaxInteractions*2)
	metrics.RecordAPICall("platform", "search_recent", err == nil)
	if err != nil {
		return fmt.Errorf("search posts: %w", err)
	}

	engaged := 0
	for i, post := range found {
		if engaged >= a.cfg.MaxInteractions {
			break
		}

		if err := a.platform.Like(ctx, post.ID); err != nil {
			metrics.RecordAPICall("platform", "like", false)
			return fmt.Errorf("like post %s: %w", post.ID, err)
		}
		metrics.RecordAPICall("platform", "like", true)
		a.logInteraction(ctx, post.ID, core.InteractionLike, post.AuthorID)

		if i%3 == 2 {
			if err := a.platform.Repost(ctx, post.ID); err != nil {
				metrics.RecordAPICall("platform", "repost", false)
				return fmt.Errorf("repost %s: %w", post.ID, err)
			}
			metrics.RecordAPICall("platform", "repost", true)
			a.logInteraction(ctx, post.ID, core.InteractionRepost, post.AuthorID)
		}

		if i == 0 {
			if err := a.replyTo(ctx, post.ID, post.Text, post.AuthorID); err != nil {
				return err
			}
		}

		engaged++
	}

	a.logInfo("Interaction pass complete",
		zap.Int("found", len(found)),
		zap.Int("engaged", engaged))

	return nil
}

func (a *Agent) replyTo(ctx context.Context, postID, postText, authorID string) error {
	text, err := a.composer.Reply(ctx, postText)
	if err != nil {
		return fmt.Errorf("compose reply: %w", err)
	}

	replyID, err := a.platform.Reply(ctx, postID, text)
	metrics.RecordAPICall("platform", "reply", err == nil)
	if err != nil {
		return fmt.Errorf("reply to %s: %w", postID, err)
	}

	metrics.RecordPostPublished("reply")
	a.logInteraction(ctx, postID, core.InteractionReply, authorID)

	return a.recordPost(ctx, replyID, text)
}

// runAnalytics refreshes engagement metrics for recent posts and persists an
// analytics snapshot.
func (a *Agent) runAnalytics(ctx context.Context) error {
	now := a.clock()
	cutoff := now.Add(-recentWindow)

	posts, err := a.storage.PostsSince(ctx, cutoff, maxTrackedPosts)
	if err != nil {
		return fmt.Errorf("load recent posts: %w", err)
	}

	var totals core.PostMetrics
	tracked := 0
	for _, post := range posts {
		m, err := a.platform.PostMetrics(ctx, post.PostID)
		metrics.RecordAPICall("platform", "post_metrics", err == nil)
		if err != nil {
			a.logWarn("Metrics refresh failed for post",
				zap.String("post_id", post.PostID),
				zap.Error(err))
			continue
		}

		if err := a.storage.UpdatePostMetrics(ctx, post.PostID, m); err != nil {
			return fmt.Errorf("update post metrics: %w", err)
		}

		totals.Likes += m.Likes
		totals.Reposts += m.Reposts
		totals.Replies += m.Replies
		totals.Impressions += m.Impressions
		tracked++
	}

	snapshot := core.AnalyticsSnapshot{
		CapturedAt:   now,
		PostsTracked: tracked,
		Totals:       totals,
		APICalls:     a.gateUsage(),
	}

	if err := a.storage.SaveAnalytics(ctx, snapshot); err != nil {
		return fmt.Errorf("save analytics: %w", err)
	}

	a.logInfo("Analytics refreshed",
		zap.Int("posts_tracked", tracked),
		zap.Int("likes", totals.Likes),
		zap.Int("impressions", totals.Impressions))

	return nil
}

// runHealth persists gate snapshots and verifies the store is reachable.
func (a *Agent) runHealth(ctx context.Context) error {
	if err := a.storage.CheckHealth(ctx); err != nil {
		return fmt.Errorf("store health: %w", err)
	}

	for _, gate := range a.gates {
		if gate == nil {
			continue
		}
		snapshot := gate.Snapshot()
		metrics.ObserveGate(snapshot)
		if err := a.storage.SaveGuardState(ctx, snapshot); err != nil {
			return fmt.Errorf("save guard state %s: %w", snapshot.Name, err)
		}

		a.logInfo("Gate status",
			zap.String("gate", snapshot.Name),
			zap.String("breaker", string(snapshot.Breaker.State)),
			zap.Int("failures", snapshot.Breaker.ConsecutiveFailures))
	}

	return nil
}

// pickTopic chooses the first candidate topic not mentioned by a post in the
// last day.
func (a *Agent) pickTopic(ctx context.Context) (string, error) {
	candidates := a.candidateTopics(ctx)

	recent, err := a.storage.PostsSince(ctx, a.clock().Add(-recentWindow), maxTrackedPosts)
	if err != nil {
		return "", fmt.Errorf("load recent posts: %w", err)
	}

	for _, topic := range candidates {
		if !topicMentioned(topic, recent) {
			return topic, nil
		}
	}

	// Everything was covered recently; rotate back to the front.
	return candidates[0], nil
}

func topicMentioned(topic string, posts []core.Post) bool {
	key := topicKey(topic)
	if key == "" {
		return false
	}
	for _, post := range posts {
		if strings.Contains(strings.ToLower(post.Text), key) {
			return true
		}
	}
	return false
}

func topicKey(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}

// attachMedia generates an image for the topic and uploads it. Attachment
// failures degrade to a text-only post rather than losing the posting slot.
func (a *Agent) attachMedia(ctx context.Context, topic string) []string {
	img, err := a.composer.Image(ctx, topic)
	if err != nil {
		metrics.RecordAPICall("genai", "generate_image", false)
		a.logWarn("Image generation failed, posting without media",
			zap.String("topic", topic),
			zap.Error(err))
		return nil
	}
	if len(img) == 0 {
		return nil
	}
	metrics.RecordAPICall("genai", "generate_image", true)

	mediaID, err := a.platform.UploadMedia(ctx, img)
	metrics.RecordAPICall("platform", "upload_media", err == nil)
	if err != nil {
		a.logWarn("Media upload failed, posting without media",
			zap.String("topic", topic),
			zap.Error(err))
		return nil
	}
	return []string{mediaID}
}

// withHashtags appends generated hashtags when they fit the platform limit.
func (a *Agent) withHashtags(ctx context.Context, text string) string {
	tags, err := a.composer.Hashtags(ctx, text)
	if err != nil {
		a.logWarn("Hashtag generation failed",
			zap.Error(err))
		return text
	}
	if len(tags) == 0 {
		return text
	}

	candidate := text + "\n\n" + strings.Join(tags, " ")
	if len([]rune(candidate)) > core.MaxPostLength {
		return text
	}
	return candidate
}

func (a *Agent) recordPost(ctx context.Context, postID, text string) error {
	post := core.Post{
		PostID:    postID,
		Text:      text,
		CreatedAt: a.clock().UTC(),
	}
	if err := a.storage.InsertPost(ctx, post); err != nil {
		return fmt.Errorf("record post: %w", err)
	}
	return nil
}

func (a *Agent) logInteraction(ctx context.Context, postID string, kind core.InteractionKind, userID string) {
	interaction := core.Interaction{
		PostID:    postID,
		Kind:      kind,
		UserID:    userID,
		CreatedAt: a.clock().UTC(),
	}
	if err := a.storage.LogInteraction(ctx, interaction); err != nil {
		a.logWarn("Failed to record interaction",
			zap.String("post_id", postID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

// gateUsage reports consumed quota per gate for the analytics snapshot,
// using each gate's tightest window.
func (a *Agent) gateUsage() map[string]int {
	if len(a.gates) == 0 {
		return nil
	}

	usage := make(map[string]int, len(a.gates))
	for _, gate := range a.gates {
		if gate == nil {
			continue
		}
		snapshot := gate.Snapshot()
		if len(snapshot.Windows) == 0 {
			continue
		}
		w := snapshot.Windows[0]
		used := w.Capacity - int(w.Tokens)
		if used < 0 {
			used = 0
		}
		usage[snapshot.Name] = used
	}

	if len(usage) == 0 {
		return nil
	}
	return usage
}
