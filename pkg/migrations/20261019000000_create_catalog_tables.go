package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		statements := []string{`
			CREATE TABLE albums (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				artist_name TEXT NOT NULL,
				year INTEGER,
				thumb TEXT NOT NULL DEFAULT '',
				art TEXT NOT NULL DEFAULT '',
				genre TEXT NOT NULL DEFAULT '',
				rating REAL,
				added_at TIMESTAMPTZ,
				track_count INTEGER NOT NULL DEFAULT 0,
				duration INTEGER NOT NULL DEFAULT 0,
				studio TEXT NOT NULL DEFAULT '',
				summary TEXT NOT NULL DEFAULT '',
				title_sort TEXT NOT NULL DEFAULT '',
				original_title TEXT NOT NULL DEFAULT '',
				edition_title TEXT NOT NULL DEFAULT '',
				guid TEXT NOT NULL DEFAULT '',
				title_key TEXT NOT NULL,
				artist_key TEXT NOT NULL,
				sync_run_id TEXT,
				last_seen_run_id TEXT,
				last_seen_at TIMESTAMPTZ
			)
`, `CREATE INDEX ix_albums_sort ON albums (artist_key, title_key, id)`,
			`CREATE INDEX ix_albums_year ON albums (year)`,
			`CREATE INDEX ix_albums_last_seen_run_id ON albums (last_seen_run_id)`,
			`
			CREATE TABLE tracks (
				id TEXT PRIMARY KEY,
				album_id TEXT NOT NULL REFERENCES albums (id) ON DELETE CASCADE,
				title TEXT NOT NULL,
				track_number INTEGER NOT NULL DEFAULT 0,
				disc_number INTEGER NOT NULL DEFAULT 0,
				duration INTEGER NOT NULL DEFAULT 0,
				artist_name TEXT NOT NULL DEFAULT '',
				media_key TEXT NOT NULL DEFAULT '',
				thumb TEXT NOT NULL DEFAULT '',
				title_key TEXT NOT NULL,
				sync_run_id TEXT,
				last_seen_run_id TEXT,
				last_seen_at TIMESTAMPTZ
			)
`, `CREATE INDEX ix_tracks_album_id ON tracks (album_id, disc_number, track_number)`,
			`CREATE INDEX ix_tracks_last_seen_run_id ON tracks (last_seen_run_id)`,
			`
			CREATE TABLE artists (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				sort_name TEXT NOT NULL DEFAULT '',
				name_key TEXT NOT NULL,
				sort_key TEXT NOT NULL,
				album_count INTEGER NOT NULL DEFAULT 0,
				summary TEXT NOT NULL DEFAULT '',
				thumb TEXT NOT NULL DEFAULT '',
				sync_run_id TEXT,
				last_seen_run_id TEXT,
				last_seen_at TIMESTAMPTZ
			)
`, `CREATE INDEX ix_artists_sort ON artists (sort_key, name_key, id)`,
			`
			CREATE TABLE collections (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				title_key TEXT NOT NULL,
				album_count INTEGER NOT NULL DEFAULT 0,
				summary TEXT NOT NULL DEFAULT '',
				thumb TEXT NOT NULL DEFAULT '',
				sync_run_id TEXT,
				last_seen_run_id TEXT,
				last_seen_at TIMESTAMPTZ
			)
`, `CREATE INDEX ix_collections_sort ON collections (title_key, id)`,
			`
			CREATE TABLE tags (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				kind TEXT NOT NULL,
				value TEXT NOT NULL,
				normalized_value TEXT NOT NULL
			)
`, `CREATE UNIQUE INDEX ux_tags_kind_normalized_value ON tags (kind, normalized_value)`,
			`
			CREATE TABLE album_tags (
				album_id TEXT NOT NULL REFERENCES albums (id) ON DELETE CASCADE,
				tag_id INTEGER NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
				sync_run_id TEXT,
				PRIMARY KEY (album_id, tag_id)
			)
`, `CREATE INDEX ix_album_tags_tag_id ON album_tags (tag_id)`,
			`
			CREATE TABLE album_artists (
				album_id TEXT NOT NULL REFERENCES albums (id) ON DELETE CASCADE,
				artist_id TEXT NOT NULL,
				sync_run_id TEXT,
				PRIMARY KEY (album_id, artist_id)
			)
`, `CREATE INDEX ix_album_artists_artist_id ON album_artists (artist_id)`,
			`
			CREATE TABLE album_collections (
				album_id TEXT NOT NULL REFERENCES albums (id) ON DELETE CASCADE,
				collection_id TEXT NOT NULL,
				sync_run_id TEXT,
				PRIMARY KEY (album_id, collection_id)
			)
`, `CREATE INDEX ix_album_collections_collection_id ON album_collections (collection_id)`,
		}
		for _, stmt := range statements {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	down := func(ctx context.Context, db *bun.DB) error {
		for _, table := range []string{"album_collections", "album_artists", "album_tags", "tags", "collections", "artists", "tracks", "albums"} {
			if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
