package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenUsesWAL(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.sqlite"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.Equal(t, "wal", mode)

	problems, err := QuickCheck(context.Background(), db)
	require.NoError(t, err)
	require.Nil(t, problems)
}

func TestMigrateIsIncremental(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "m.sqlite")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	v1 := []string{"CREATE TABLE t (id INTEGER PRIMARY KEY)"}
	require.NoError(t, Migrate(ctx, db, v1))
	// Re-running an applied step would fail on the existing table.
	require.NoError(t, Migrate(ctx, db, v1))

	v2 := append(v1, "ALTER TABLE t ADD COLUMN name TEXT")
	require.NoError(t, Migrate(ctx, db, v2))

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	require.Equal(t, 2, version)
	_, err = db.Exec("INSERT INTO t (id, name) VALUES (1, 'x')")
	require.NoError(t, err)

	require.Error(t, Migrate(ctx, db, append(v2, "NOT SQL")))
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	require.Equal(t, 2, version)
}
