package core

import "time"

// InteractionKind identifies the type of engagement recorded for a post.
type InteractionKind string

const (
	InteractionLike   InteractionKind = "like"
	InteractionRepost InteractionKind = "repost"
	InteractionReply  InteractionKind = "reply"
)

// PostMetrics holds the public engagement counters for a post.
type PostMetrics struct {
	Likes       int `json:"likes"`
	Reposts     int `json:"reposts"`
	Replies     int `json:"replies"`
	Impressions int `json:"impressions"`
}

// Post is a published post tracked by the agent.
type Post struct {
	PostID    string      `json:"post_id"`
	Text      string      `json:"text"`
	MediaPath string      `json:"media_path,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
	Metrics   PostMetrics `json:"metrics"`
}

// Interaction records an engagement performed against another user's post.
type Interaction struct {
	PostID    string          `json:"post_id"`
	Kind      InteractionKind `json:"kind"`
	UserID    string          `json:"user_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AnalyticsSnapshot is one captured analytics record.
type AnalyticsSnapshot struct {
	CapturedAt   time.Time      `json:"captured_at"`
	PostsTracked int            `json:"posts_tracked"`
	Totals       PostMetrics    `json:"totals"`
	APICalls     map[string]int `json:"api_calls,omitempty"`
}
