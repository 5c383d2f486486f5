package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/postpilot/postpilot/internal/core"
)

// InsertPost records a newly published post.
func (s *Store) InsertPost(ctx context.Context, post core.Post) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	postID := strings.TrimSpace(post.PostID)
	if postID == "" {
		return errors.New("post id is required")
	}

	createdAt := post.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var mediaPath sql.NullString
	if strings.TrimSpace(post.MediaPath) != "" {
		mediaPath = sql.NullString{String: post.MediaPath, Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO posts (post_id, text, media_path, created_at, likes, reposts, replies, impressions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, postID, post.Text, mediaPath, createdAt.Unix(),
		post.Metrics.Likes, post.Metrics.Reposts, post.Metrics.Replies, post.Metrics.Impressions)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// UpdatePostMetrics refreshes the engagement counters for a post.
func (s *Store) UpdatePostMetrics(ctx context.Context, postID string, metrics core.PostMetrics) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	postID = strings.TrimSpace(postID)
	if postID == "" {
		return errors.New("post id is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		UPDATE posts
		SET likes = ?, reposts = ?, replies = ?, impressions = ?, updated_at = ?
		WHERE post_id = ?
	`, metrics.Likes, metrics.Reposts, metrics.Replies, metrics.Impressions,
		time.Now().UTC().Unix(), postID)
	if err != nil {
		return fmt.Errorf("update post metrics: %w", err)
	}

	return nil
}

// RecentPosts returns the most recent posts, newest first.
func (s *Store) RecentPosts(ctx context.Context, limit int) ([]core.Post, error) {
	return s.postsSince(ctx, time.Time{}, limit)
}

// PostsSince returns posts created at or after the cutoff, newest first.
func (s *Store) PostsSince(ctx context.Context, cutoff time.Time, limit int) ([]core.Post, error) {
	return s.postsSince(ctx, cutoff, limit)
}

func (s *Store) postsSince(ctx context.Context, cutoff time.Time, limit int) ([]core.Post, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT post_id, text, media_path, created_at, updated_at, likes, reposts, replies, impressions
		FROM posts
		WHERE created_at >= ?
		ORDER BY created_at DESC
		LIMIT ?
	`, cutoff.UTC().Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var posts []core.Post
	for rows.Next() {
		var (
			post      core.Post
			mediaPath sql.NullString
			createdAt int64
			updatedAt sql.NullInt64
		)
		if err := rows.Scan(&post.PostID, &post.Text, &mediaPath, &createdAt, &updatedAt,
			&post.Metrics.Likes, &post.Metrics.Reposts, &post.Metrics.Replies, &post.Metrics.Impressions); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		post.MediaPath = mediaPath.String
		post.CreatedAt = time.Unix(createdAt, 0).UTC()
		if updatedAt.Valid {
			value := time.Unix(updatedAt.Int64, 0).UTC()
			post.UpdatedAt = &value
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}

	return posts, nil
}
