package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/postpilot/postpilot/internal/guard"
)

// GuardEntry is a stored gate snapshot with its last update time.
type GuardEntry struct {
	Gate                string
	Windows             []guard.WindowState
	BreakerState        guard.BreakerState
	ConsecutiveFailures int
	LastFailureAt       *time.Time
	UpdatedAt           time.Time
}

// GuardQuery selects stored guard state for listing and reset.
type GuardQuery struct {
	All    bool
	Gate   string
	Prefix string
}

func (q GuardQuery) Validate() error {
	if q.All {
		return nil
	}
	if strings.TrimSpace(q.Gate) != "" {
		return nil
	}
	if strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --gate, or --prefix")
}

func (q GuardQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	if q.All {
		return "", nil, nil
	}
	if gate := strings.TrimSpace(q.Gate); gate != "" {
		return "WHERE gate = ?", []any{gate}, nil
	}
	return "WHERE gate LIKE ?", []any{strings.TrimSpace(q.Prefix) + "%"}, nil
}

// ListGuardStates returns stored gate snapshots matching the query.
func (s *Store) ListGuardStates(ctx context.Context, q GuardQuery) ([]GuardEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT gate, windows, breaker_state, consecutive_failures, last_failure_at, updated_at
		FROM guard_state
		%s
		ORDER BY gate
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list guard state: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []GuardEntry{}
	for rows.Next() {
		var (
			entry         GuardEntry
			windowsJSON   string
			breakerState  string
			lastFailureAt sql.NullInt64
			updatedAt     int64
		)
		if err := rows.Scan(&entry.Gate, &windowsJSON, &breakerState,
			&entry.ConsecutiveFailures, &lastFailureAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan guard state: %w", err)
		}

		if err := json.Unmarshal([]byte(windowsJSON), &entry.Windows); err != nil {
			return nil, fmt.Errorf("decode guard windows: %w", err)
		}
		entry.BreakerState = guard.BreakerState(breakerState)
		if lastFailureAt.Valid {
			value := time.Unix(lastFailureAt.Int64, 0).UTC()
			entry.LastFailureAt = &value
		}
		entry.UpdatedAt = time.Unix(updatedAt, 0).UTC()

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list guard state: %w", err)
	}

	return entries, nil
}

// CountGuardStates returns how many stored snapshots match the query.
func (s *Store) CountGuardStates(ctx context.Context, q GuardQuery) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM guard_state
		%s
	`, where), args...)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count guard state: %w", err)
	}
	return count, nil
}

// ResetGuardStates deletes stored snapshots matching the query.
func (s *Store) ResetGuardStates(ctx context.Context, q GuardQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM guard_state
		%s
	`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset guard state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset guard state: %w", err)
	}
	return affected, nil
}
