package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMigrations_Idempotent(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ApplyMigrations(ctx))
	require.NoError(t, s.ApplyMigrations(ctx))

	versions, err := s.GetAppliedVersions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, len(migrations))
	for i, v := range versions {
		assert.Equal(t, migrations[i].Version, v.Version)
		assert.False(t, v.AppliedAt.IsZero())
	}
}

func TestApplyMigrations_AddsPinnedColumnToV1Database(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "v1.db")
	ctx := context.Background()

	// Build a database that stops at version 1
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, ensureSchemaVersionTableTx(ctx, tx))
	_, err = tx.ExecContext(ctx, migrations[0].SQL)
	require.NoError(t, err)
	require.NoError(t, recordMigrationTx(ctx, tx, 1, time.Now().UTC()))
	require.NoError(t, tx.Commit())

	tx, err = db.BeginTx(ctx, nil)
	require.NoError(t, err)
	exists, err := columnExistsTx(ctx, tx, "projects", "pinned")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, tx.Rollback())
	require.NoError(t, db.Close())

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	version, err := store.GetLatestVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	tx, err = store.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	exists, err = columnExistsTx(ctx, tx, "projects", "pinned")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAddColumnIfNotExists(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			return addColumnIfNotExistsTx(ctx, tx, "settings", "note", "TEXT")
		})
		require.NoError(t, err)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := columnExistsTx(ctx, tx, "settings", "note")
		require.NoError(t, err)
		assert.True(t, exists)
		return nil
	})
	require.NoError(t, err)
}

func TestMigrations_VersionsAreSequential(t *testing.T) {
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.Description)
	}
}
