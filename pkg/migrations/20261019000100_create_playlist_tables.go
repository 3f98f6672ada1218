package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			CREATE TABLE playlists (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				title_key TEXT NOT NULL,
				track_count INTEGER NOT NULL DEFAULT 0,
				duration INTEGER NOT NULL DEFAULT 0,
				summary TEXT NOT NULL DEFAULT '',
				thumb TEXT NOT NULL DEFAULT '',
				sync_run_id TEXT,
				last_seen_run_id TEXT,
				last_seen_at TIMESTAMPTZ
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		// track_id has no foreign key: playlists may reference tracks from
		// sections that aren't mirrored locally.
		_, err = db.ExecContext(ctx, `
			CREATE TABLE playlist_items (
				playlist_id TEXT NOT NULL REFERENCES playlists (id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				track_id TEXT NOT NULL,
				sync_run_id TEXT,
				last_seen_run_id TEXT,
				last_seen_at TIMESTAMPTZ,
				PRIMARY KEY (playlist_id, position)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.ExecContext(ctx, `CREATE INDEX ix_playlist_items_track_id ON playlist_items (track_id)`)
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS playlist_items`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.ExecContext(ctx, `DROP TABLE IF EXISTS playlists`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
