package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			CREATE TABLE sync_runs (
				id TEXT PRIMARY KEY,
				reason TEXT NOT NULL,
				started_at TIMESTAMPTZ NOT NULL,
				completed_at TIMESTAMPTZ
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.ExecContext(ctx, `CREATE INDEX ix_sync_runs_started_at ON sync_runs (started_at)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.ExecContext(ctx, `
			CREATE TABLE sync_checkpoints (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				sync_run_id TEXT
			)
`)
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS sync_checkpoints`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.ExecContext(ctx, `DROP TABLE IF EXISTS sync_runs`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
