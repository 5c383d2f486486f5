package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/postpilot/postpilot/internal/config"
)

func TestBuildDSN(t *testing.T) {
	t.Run("URLUsesRawValue", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io",
			AuthToken: "token123",
		}

		dsn, err := buildDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123", dsn)
	})

	t.Run("URLWithExistingQuery", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io?foo=bar",
			AuthToken: "token123",
		}

		dsn, err := buildDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123&foo=bar", dsn)
	})

	t.Run("URLKeepsExistingToken", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io?authToken=original",
			AuthToken: "token123",
		}

		dsn, err := buildDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=original", dsn)
	})

	t.Run("PathWithFilePrefix", func(t *testing.T) {
		cfg := config.StoreConfig{Path: "file:./postpilot.db"}

		dsn, err := buildDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "file:./postpilot.db", dsn)
	})

	t.Run("PathMissing", func(t *testing.T) {
		cfg := config.StoreConfig{}

		_, err := buildDSN(cfg)
		require.Error(t, err)
	})

	t.Run("MemoryPath", func(t *testing.T) {
		cfg := config.StoreConfig{Path: ":memory:"}

		dsn, err := buildDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})
}

func TestGuardQueryValidate(t *testing.T) {
	t.Run("RequiresSelector", func(t *testing.T) {
		err := GuardQuery{}.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "--all")
	})

	t.Run("AcceptsAll", func(t *testing.T) {
		require.NoError(t, GuardQuery{All: true}.Validate())
	})

	t.Run("AcceptsGate", func(t *testing.T) {
		require.NoError(t, GuardQuery{Gate: "platform"}.Validate())
	})

	t.Run("AcceptsPrefix", func(t *testing.T) {
		require.NoError(t, GuardQuery{Prefix: "gen"}.Validate())
	})

	t.Run("BlankGateRejected", func(t *testing.T) {
		require.Error(t, GuardQuery{Gate: "   "}.Validate())
	})
}

func TestGuardQueryWhereClause(t *testing.T) {
	t.Run("All", func(t *testing.T) {
		where, args, err := GuardQuery{All: true}.whereClause()
		require.NoError(t, err)
		require.Empty(t, where)
		require.Empty(t, args)
	})

	t.Run("Gate", func(t *testing.T) {
		where, args, err := GuardQuery{Gate: "platform"}.whereClause()
		require.NoError(t, err)
		require.Equal(t, "WHERE gate = ?", where)
		require.Equal(t, []any{"platform"}, args)
	})

	t.Run("Prefix", func(t *testing.T) {
		where, args, err := GuardQuery{Prefix: "gen"}.whereClause()
		require.NoError(t, err)
		require.Equal(t, "WHERE gate LIKE ?", where)
		require.Equal(t, []any{"gen%"}, args)
	})
}
