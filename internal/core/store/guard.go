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

// SaveGuardState persists a gate snapshot. Guard state is observability and
// admin data; the in-process gate remains authoritative and resets on restart.
func (s *Store) SaveGuardState(ctx context.Context, snapshot guard.Snapshot) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	gate := strings.TrimSpace(snapshot.Name)
	if gate == "" {
		return errors.New("gate name is required")
	}

	windows, err := json.Marshal(snapshot.Windows)
	if err != nil {
		return fmt.Errorf("encode guard windows: %w", err)
	}

	var lastFailureAt sql.NullInt64
	if snapshot.Breaker.LastFailureAt != nil {
		lastFailureAt = sql.NullInt64{Int64: snapshot.Breaker.LastFailureAt.UTC().Unix(), Valid: true}
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO guard_state (gate, windows, breaker_state, consecutive_failures, last_failure_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(gate) DO UPDATE SET
			windows = excluded.windows,
			breaker_state = excluded.breaker_state,
			consecutive_failures = excluded.consecutive_failures,
			last_failure_at = excluded.last_failure_at,
			updated_at = excluded.updated_at
	`, gate, string(windows), string(snapshot.Breaker.State),
		snapshot.Breaker.ConsecutiveFailures, lastFailureAt, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("store guard state: %w", err)
	}

	return nil
}
