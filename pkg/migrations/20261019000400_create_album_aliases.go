package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			CREATE TABLE album_aliases (
				alias_id TEXT PRIMARY KEY,
				canonical_id TEXT NOT NULL,
				sync_run_id TEXT NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.ExecContext(ctx, `CREATE INDEX ix_album_aliases_canonical_id ON album_aliases (canonical_id)`)
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS album_aliases`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
