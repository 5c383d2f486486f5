// Package agent runs the autonomous posting loop: scheduled posts and
// threads, engagement with found posts, analytics refresh, and periodic
// health reporting. Every external call goes through the owning gate, so a
// denied call surfaces here as a rate-limit or circuit error and the job
// yields until the next tick.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/core"
	"github.com/postpilot/postpilot/internal/guard"
	"github.com/postpilot/postpilot/internal/platform/x"
)

// tickInterval is how often the loop checks schedules.
const tickInterval = 30 * time.Second

// Platform is the posting surface the agent publishes to.
type Platform interface {
	CreatePost(ctx context.Context, text string, replyTo string, mediaIDs []string) (string, error)
	UploadMedia(ctx context.Context, media []byte) (string, error)
	SearchRecent(ctx context.Context, query string, count int) ([]x.FoundPost, error)
	Like(ctx context.Context, postID string) error
	Repost(ctx context.Context, postID string) error
	Reply(ctx context.Context, postID string, text string) (string, error)
	PostMetrics(ctx context.Context, postID string) (core.PostMetrics, error)
}

// Composer generates post content. Image returns nil bytes when image
// attachments are disabled.
type Composer interface {
	Tweet(ctx context.Context, topic string) (string, error)
	Thread(ctx context.Context, topic string) ([]string, error)
	Hashtags(ctx context.Context, content string) ([]string, error)
	Reply(ctx context.Context, postText string) (string, error)
	Image(ctx context.Context, topic string) ([]byte, error)
}

// TopicSource supplies candidate topics for the posting job.
type TopicSource interface {
	TopicsOrFallback(ctx context.Context) ([]string, error)
}

// Storage persists posts, interactions, analytics and gate state.
type Storage interface {
	InsertPost(ctx context.Context, post core.Post) error
	PostsSince(ctx context.Context, cutoff time.Time, limit int) ([]core.Post, error)
	UpdatePostMetrics(ctx context.Context, postID string, metrics core.PostMetrics) error
	LogInteraction(ctx context.Context, interaction core.Interaction) error
	CountInteractionsSince(ctx context.Context, cutoff time.Time) (map[core.InteractionKind]int, error)
	SaveAnalytics(ctx context.Context, snapshot core.AnalyticsSnapshot) error
	SaveGuardState(ctx context.Context, snapshot guard.Snapshot) error
	CheckHealth(ctx context.Context) error
}

// Deps carries the agent's collaborators.
type Deps struct {
	Platform Platform
	Composer Composer
	Topics   TopicSource
	Storage  Storage
	Gates    []*guard.Gate
	Logger   *logging.Logger
	Clock    func() time.Time
}

// Agent is the long-running posting loop.
type Agent struct {
	cfg      config.AgentConfig
	platform Platform
	composer Composer
	topics   TopicSource
	storage  Storage
	gates    []*guard.Gate
	logger   *logging.Logger
	clock    func() time.Time

	posting   hourlySchedule
	threads   hourlySchedule
	interact  intervalSchedule
	analytics intervalSchedule
	health    intervalSchedule
}

// New creates an agent. Platform, Composer and Storage are required; a nil
// TopicSource restricts topics to the configured list.
func New(cfg config.AgentConfig, deps Deps) (*Agent, error) {
	if deps.Platform == nil {
		return nil, errors.New("agent requires a platform client")
	}
	if deps.Composer == nil {
		return nil, errors.New("agent requires a composer")
	}
	if deps.Storage == nil {
		return nil, errors.New("agent requires storage")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	return &Agent{
		cfg:       cfg,
		platform:  deps.Platform,
		composer:  deps.Composer,
		topics:    deps.Topics,
		storage:   deps.Storage,
		gates:     deps.Gates,
		logger:    deps.Logger,
		clock:     deps.Clock,
		posting:   hourlySchedule{hours: cfg.PostHours},
		threads:   hourlySchedule{hours: cfg.ThreadHours},
		interact:  intervalSchedule{every: cfg.InteractEvery},
		analytics: intervalSchedule{every: cfg.AnalyticsEvery},
		health:    intervalSchedule{every: cfg.HealthEvery},
	}, nil
}

// Run drives the loop until the context is canceled.
func (a *Agent) Run(ctx context.Context) error {
	a.logInfo("Agent loop starting",
		zap.Ints("post_hours", a.cfg.PostHours),
		zap.Ints("thread_hours", a.cfg.ThreadHours),
		zap.Duration("interact_every", a.cfg.InteractEvery),
		zap.Duration("analytics_every", a.cfg.AnalyticsEvery))

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	a.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			a.logInfo("Agent loop stopping")
			return ctx.Err()
		case <-ticker.C:
			a.Tick(ctx)
		}
	}
}

// Tick runs every due job once. Exposed so tests and the CLI can drive the
// loop without the ticker.
func (a *Agent) Tick(ctx context.Context) {
	now := a.clock()

	if a.health.due(now) {
		a.health.fired(now)
		a.runJob(ctx, "health", a.runHealth)
	}

	// Thread hours take priority over plain post hours when both match.
	if a.threads.due(now) {
		a.threads.fired(now)
		a.posting.fired(now)
		a.runJob(ctx, "thread", a.runThread)
	} else if a.posting.due(now) {
		a.posting.fired(now)
		a.runJob(ctx, "post", a.runPost)
	}

	if a.interact.due(now) {
		a.interact.fired(now)
		a.runJob(ctx, "interact", a.runInteractions)
	}

	if a.analytics.due(now) {
		a.analytics.fired(now)
		a.runJob(ctx, "analytics", a.runAnalytics)
	}
}

// One-shot entry points for the CLI. Each runs a single pass of the
// corresponding scheduled job.

func (a *Agent) PublishPost(ctx context.Context) error   { return a.runPost(ctx) }
func (a *Agent) PublishThread(ctx context.Context) error { return a.runThread(ctx) }
func (a *Agent) Interact(ctx context.Context) error      { return a.runInteractions(ctx) }

func (a *Agent) RefreshAnalytics(ctx context.Context) error { return a.runAnalytics(ctx) }
func (a *Agent) ReportHealth(ctx context.Context) error     { return a.runHealth(ctx) }

func (a *Agent) runJob(ctx context.Context, name string, job func(ctx context.Context) error) {
	err := job(ctx)
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, guard.ErrRateLimited):
		a.logWarn("Job yielded: rate limited",
			zap.String("job", name),
			zap.Error(err))
	case errors.Is(err, guard.ErrCircuitOpen):
		a.logWarn("Job yielded: circuit open",
			zap.String("job", name),
			zap.Error(err))
	default:
		a.logError("Job failed",
			zap.String("job", name),
			zap.Error(err))
	}
}

func (a *Agent) logInfo(msg string, fields ...zap.Field) {
	if a.logger != nil {
		a.logger.Info(msg, fields...)
	}
}

func (a *Agent) logWarn(msg string, fields ...zap.Field) {
	if a.logger != nil {
		a.logger.Warn(msg, fields...)
	}
}

func (a *Agent) logError(msg string, fields ...zap.Field) {
	if a.logger != nil {
		a.logger.Error(msg, fields...)
	}
}

// candidateTopics merges trending topics with the configured list.
func (a *Agent) candidateTopics(ctx context.Context) []string {
	var topics []string

	if a.topics != nil {
		trending, err := a.topics.TopicsOrFallback(ctx)
		if err != nil {
			a.logWarn("Trend lookup failed, using fallback topics",
				zap.Error(err))
		}
		topics = append(topics, trending...)
	}

	topics = append(topics, a.cfg.Topics...)

	seen := make(map[string]struct{}, len(topics))
	unique := topics[:0]
	for _, topic := range topics {
		key := topicKey(topic)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, topic)
	}

	if len(unique) == 0 {
		unique = []string{"technology"}
	}
	return unique
}
