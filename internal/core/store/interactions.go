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

// LogInteraction records an engagement performed against another user's post.
func (s *Store) LogInteraction(ctx context.Context, interaction core.Interaction) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	postID := strings.TrimSpace(interaction.PostID)
	if postID == "" {
		return errors.New("post id is required")
	}
	if interaction.Kind == "" {
		return errors.New("interaction kind is required")
	}

	createdAt := interaction.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var userID sql.NullString
	if strings.TrimSpace(interaction.UserID) != "" {
		userID = sql.NullString{String: interaction.UserID, Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO interactions (post_id, kind, user_id, created_at)
		VALUES (?, ?, ?, ?)
	`, postID, string(interaction.Kind), userID, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("log interaction: %w", err)
	}

	return nil
}

// CountInteractionsSince returns interaction counts by kind since the cutoff.
func (s *Store) CountInteractionsSince(ctx context.Context, cutoff time.Time) (map[core.InteractionKind]int, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT kind, COUNT(*)
		FROM interactions
		WHERE created_at >= ?
		GROUP BY kind
	`, cutoff.UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("count interactions: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	counts := make(map[core.InteractionKind]int)
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan interaction count: %w", err)
		}
		counts[core.InteractionKind(kind)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count interactions: %w", err)
	}

	return counts, nil
}
