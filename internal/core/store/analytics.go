package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/postpilot/postpilot/internal/core"
)

// SaveAnalytics appends an analytics snapshot.
func (s *Store) SaveAnalytics(ctx context.Context, snapshot core.AnalyticsSnapshot) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	capturedAt := snapshot.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
		snapshot.CapturedAt = capturedAt
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode analytics snapshot: %w", err)
	}

	if _, err := s.DB.ExecContext(ctx, `
		INSERT INTO analytics (captured_at, payload)
		VALUES (?, ?)
	`, capturedAt.Unix(), string(payload)); err != nil {
		return fmt.Errorf("save analytics: %w", err)
	}

	return nil
}

// RecentAnalytics returns the most recent snapshots, newest first.
func (s *Store) RecentAnalytics(ctx context.Context, limit int) ([]core.AnalyticsSnapshot, error) {
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
		SELECT payload
		FROM analytics
		ORDER BY captured_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch analytics: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var snapshots []core.AnalyticsSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan analytics: %w", err)
		}
		var snapshot core.AnalyticsSnapshot
		if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
			return nil, fmt.Errorf("decode analytics snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch analytics: %w", err)
	}

	return snapshots, nil
}
