package migrations

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })
	return db
}

func tableNames(t *testing.T, db *bun.DB) []string {
	t.Helper()
	var names []string
	err := db.NewRaw("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'bun_%' AND name NOT LIKE 'sqlite_%' ORDER BY name").
		Scan(context.Background(), &names)
	require.NoError(t, err)
	return names
}

func TestBringUpToDate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	group, err := BringUpToDate(ctx, db)
	require.NoError(t, err)
	assert.False(t, group.IsZero())

	assert.Equal(t, []string{
		"album_aliases", "album_artists", "album_collections", "album_tags", "albums", "artists", "artwork_cache",
		"collections", "playlist_items", "playlists", "sync_checkpoints", "sync_runs", "tags", "tracks",
	}, tableNames(t, db))

	// A second call has nothing left to do.
	group, err = BringUpToDate(ctx, db)
	require.NoError(t, err)
	assert.True(t, group.IsZero())
}

func TestRollbackAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	_, err := BringUpToDate(ctx, db)
	require.NoError(t, err)
	require.NoError(t, RollbackAll(ctx, db))
	assert.Empty(t, tableNames(t, db))
}
