//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/core"
	"github.com/postpilot/postpilot/internal/guard"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	store, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.CheckHealth(ctx))
	require.NoError(t, store.Close())
}

func TestPostRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	createdAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	post := core.Post{
		PostID:    "1890",
		Text:      "hello world",
		MediaPath: "media/thumb.png",
		CreatedAt: createdAt,
		Metrics:   core.PostMetrics{Likes: 2, Impressions: 40},
	}
	require.NoError(t, store.InsertPost(ctx, post))

	posts, err := store.RecentPosts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "1890", posts[0].PostID)
	require.Equal(t, "hello world", posts[0].Text)
	require.Equal(t, "media/thumb.png", posts[0].MediaPath)
	require.True(t, posts[0].CreatedAt.Equal(createdAt))
	require.Nil(t, posts[0].UpdatedAt)
	require.Equal(t, 2, posts[0].Metrics.Likes)

	metrics := core.PostMetrics{Likes: 10, Reposts: 3, Replies: 1, Impressions: 250}
	require.NoError(t, store.UpdatePostMetrics(ctx, "1890", metrics))

	posts, err = store.RecentPosts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, metrics, posts[0].Metrics)
	require.NotNil(t, posts[0].UpdatedAt)
}

func TestPostsSinceFiltersByCutoff(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	old := core.Post{PostID: "1", Text: "old", CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	recent := core.Post{PostID: "2", Text: "recent", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.InsertPost(ctx, old))
	require.NoError(t, store.InsertPost(ctx, recent))

	posts, err := store.PostsSince(ctx, time.Now().UTC().Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "2", posts[0].PostID)
}

func TestInteractionCounts(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	now := time.Now().UTC()
	for _, interaction := range []core.Interaction{
		{PostID: "10", Kind: core.InteractionLike, CreatedAt: now},
		{PostID: "11", Kind: core.InteractionLike, CreatedAt: now},
		{PostID: "12", Kind: core.InteractionReply, UserID: "u1", CreatedAt: now},
		{PostID: "13", Kind: core.InteractionRepost, CreatedAt: now.Add(-2 * time.Hour)},
	} {
		require.NoError(t, store.LogInteraction(ctx, interaction))
	}

	counts, err := store.CountInteractionsSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, counts[core.InteractionLike])
	require.Equal(t, 1, counts[core.InteractionReply])
	require.Zero(t, counts[core.InteractionRepost])
}

func TestAnalyticsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	snapshot := core.AnalyticsSnapshot{
		CapturedAt:   time.Date(2026, time.March, 2, 6, 0, 0, 0, time.UTC),
		PostsTracked: 4,
		Totals:       core.PostMetrics{Likes: 20, Impressions: 900},
		APICalls:     17,
	}
	require.NoError(t, store.SaveAnalytics(ctx, snapshot))

	snapshots, err := store.RecentAnalytics(ctx, 5)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	require.Equal(t, 4, snapshots[0].PostsTracked)
	require.Equal(t, 20, snapshots[0].Totals.Likes)
	require.Equal(t, 17, snapshots[0].APICalls)
}

func TestGuardStateUpsertAndAdmin(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	failedAt := time.Date(2026, time.March, 3, 9, 30, 0, 0, time.UTC)
	snapshot := guard.Snapshot{
		Name: "platform",
		Windows: []guard.WindowState{
			{Name: "15m", Tokens: 3.5, Capacity: 50, Period: 15 * time.Minute},
		},
		Breaker: guard.BreakerSnapshot{
			State:               guard.BreakerOpen,
			ConsecutiveFailures: 5,
			LastFailureAt:       &failedAt,
		},
	}
	require.NoError(t, store.SaveGuardState(ctx, snapshot))

	// Upsert replaces the row in place.
	snapshot.Breaker.State = guard.BreakerClosed
	snapshot.Breaker.ConsecutiveFailures = 0
	snapshot.Breaker.LastFailureAt = nil
	require.NoError(t, store.SaveGuardState(ctx, snapshot))

	require.NoError(t, store.SaveGuardState(ctx, guard.Snapshot{
		Name:    "genai",
		Windows: []guard.WindowState{{Name: "1m", Tokens: 10, Capacity: 10, Period: time.Minute}},
		Breaker: guard.BreakerSnapshot{State: guard.BreakerClosed},
	}))

	entries, err := store.ListGuardStates(ctx, GuardQuery{All: true})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "genai", entries[0].Gate)
	require.Equal(t, "platform", entries[1].Gate)
	require.Equal(t, guard.BreakerClosed, entries[1].BreakerState)
	require.Zero(t, entries[1].ConsecutiveFailures)
	require.Nil(t, entries[1].LastFailureAt)
	require.Len(t, entries[1].Windows, 1)
	require.Equal(t, "15m", entries[1].Windows[0].Name)

	count, err := store.CountGuardStates(ctx, GuardQuery{Prefix: "gen"})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	affected, err := store.ResetGuardStates(ctx, GuardQuery{Gate: "platform"})
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	count, err = store.CountGuardStates(ctx, GuardQuery{All: true})
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
