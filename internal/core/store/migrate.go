package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		post_id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		media_path TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER,
		likes INTEGER NOT NULL DEFAULT 0,
		reposts INTEGER NOT NULL DEFAULT 0,
		replies INTEGER NOT NULL DEFAULT 0,
		impressions INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		user_id TEXT,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_post ON interactions(post_id, kind);`,
	`CREATE TABLE IF NOT EXISTS analytics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		captured_at INTEGER NOT NULL,
		payload TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_analytics_captured ON analytics(captured_at DESC);`,
	`CREATE TABLE IF NOT EXISTS guard_state (
		gate TEXT PRIMARY KEY,
		windows TEXT NOT NULL,
		breaker_state TEXT NOT NULL,
		consecutive_failures INTEGER NOT NULL DEFAULT 0,
		last_failure_at INTEGER,
		updated_at INTEGER NOT NULL
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
