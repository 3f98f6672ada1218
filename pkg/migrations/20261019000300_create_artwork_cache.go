package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			CREATE TABLE artwork_cache (
				owner_id TEXT NOT NULL,
				owner_type TEXT NOT NULL,
				variant TEXT NOT NULL CHECK (variant IN ('thumbnail', 'full')),
				path TEXT NOT NULL,
				source_path TEXT NOT NULL DEFAULT '',
				size_bytes INTEGER NOT NULL DEFAULT 0,
				updated_at TIMESTAMPTZ NOT NULL,
				last_accessed_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (owner_id, owner_type, variant)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.ExecContext(ctx, `CREATE INDEX ix_artwork_cache_last_accessed_at ON artwork_cache (last_accessed_at)`)
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS artwork_cache`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
