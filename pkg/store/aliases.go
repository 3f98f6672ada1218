package store

import (
	"context"
	"database/sql"
	"sort"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// ReplaceAlbumAliases stores the merge mapping produced by run and drops every
// alias an earlier run wrote, so an album that stops being split stops being
// redirected.
func (svc *Service) ReplaceAlbumAliases(ctx context.Context, aliases map[string]string, run *models.SyncRun) error {
	if run == nil {
		return errcodes.OperationFailed("replacing album aliases requires a sync run")
	}
	return svc.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return replaceAlbumAliases(ctx, tx, aliases, run)
	})
}

func replaceAlbumAliases(ctx context.Context, db bun.IDB, aliases map[string]string, run *models.SyncRun) error {
	rows := make([]*models.AlbumAlias, 0, len(aliases))
	for alias, canonical := range aliases {
		rows = append(rows, &models.AlbumAlias{AliasID: alias, CanonicalID: canonical, SyncRunID: run.ID})
	}
	sort.Slice(rows, func(i, j int) bool { return models.LessID(rows[i].AliasID, rows[j].AliasID) })

	for _, c := range chunk(rows, batchSize) {
		_, err := db.NewInsert().
			Model(&c).
			On("CONFLICT (alias_id) DO UPDATE").
			Set("canonical_id = EXCLUDED.canonical_id").
			Set("sync_run_id = EXCLUDED.sync_run_id").
			Exec(ctx)
		if err != nil {
			return wrap(err)
		}
	}
	_, err := db.NewDelete().
		Model((*models.AlbumAlias)(nil)).
		Where("sync_run_id != ?", run.ID).
		Exec(ctx)
	return wrap(err)
}

// ResolveAlbumID returns the id id was merged into, or id itself when it
// isn't an alias.
func (svc *Service) ResolveAlbumID(ctx context.Context, id string) (string, error) {
	var canonical string
	err := svc.db.NewSelect().
		Model((*models.AlbumAlias)(nil)).
		Column("canonical_id").
		Where("aal.alias_id = ?", id).
		Scan(ctx, &canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return id, nil
	}
	if err != nil {
		return "", wrap(err)
	}
	return canonical, nil
}

// AlbumAliases returns the ids merged into canonicalID, in id order.
func (svc *Service) AlbumAliases(ctx context.Context, canonicalID string) ([]string, error) {
	ids := []string{}
	err := svc.db.NewSelect().
		Model((*models.AlbumAlias)(nil)).
		Column("alias_id").
		Where("aal.canonical_id = ?", canonicalID).
		OrderExpr(models.IDOrder("aal.alias_id")).
		Scan(ctx, &ids)
	if err != nil {
		return nil, wrap(err)
	}
	return ids, nil
}
