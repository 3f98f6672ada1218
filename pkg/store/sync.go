package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// PruneResult lists what PruneRowsNotSeen deleted.
type PruneResult struct {
	AlbumIDs      []string
	TrackIDs      []string
	ArtistIDs     []string
	CollectionIDs []string
	PlaylistIDs   []string
	PlaylistItems int
}

// BeginIncrementalSync allocates a new sync run.
func (svc *Service) BeginIncrementalSync(ctx context.Context, startedAt time.Time, reason string) (*models.SyncRun, error) {
	run := &models.SyncRun{
		ID:        uuid.New().String(),
		Reason:    reason,
		StartedAt: startedAt,
	}
	if _, err := svc.db.NewInsert().Model(run).Exec(ctx); err != nil {
		return nil, wrap(err)
	}
	return run, nil
}

// PruneRowsNotSeen deletes every syncable row whose last seen run isn't run,
// along with every join row that would otherwise point at a deleted parent:
// tracks of pruned albums, tag/artist/collection links, and playlist items of
// pruned playlists or pruned tracks.
func (svc *Service) PruneRowsNotSeen(ctx context.Context, run *models.SyncRun) (*PruneResult, error) {
	if run == nil {
		return nil, errcodes.OperationFailed("pruning requires a sync run")
	}
	result := &PruneResult{}
	err := svc.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if result.AlbumIDs, err = unseenIDs(ctx, tx, "albums", run, ""); err != nil {
			return err
		}
		orphaned := "album_id IN (SELECT id FROM albums WHERE last_seen_run_id IS NOT ?)"
		if result.TrackIDs, err = unseenIDs(ctx, tx, "tracks", run, orphaned); err != nil {
			return err
		}
		if result.ArtistIDs, err = unseenIDs(ctx, tx, "artists", run, ""); err != nil {
			return err
		}
		if result.CollectionIDs, err = unseenIDs(ctx, tx, "collections", run, ""); err != nil {
			return err
		}
		if result.PlaylistIDs, err = unseenIDs(ctx, tx, "playlists", run, ""); err != nil {
			return err
		}

		items, err := tx.NewDelete().
			Model((*models.PlaylistItem)(nil)).
			WhereGroup(" AND ", func(q *bun.DeleteQuery) *bun.DeleteQuery {
				return q.
					Where("last_seen_run_id IS NOT ?", run.ID).
					WhereOr("playlist_id IN (SELECT id FROM playlists WHERE last_seen_run_id IS NOT ?)", run.ID)
			}).
			Exec(ctx)
		if err != nil {
			return wrap(err)
		}
		if n, err := items.RowsAffected(); err == nil {
			result.PlaylistItems += int(n)
		}
		for _, c := range chunk(result.TrackIDs, batchSize) {
			items, err := tx.NewDelete().Model((*models.PlaylistItem)(nil)).Where("track_id IN (?)", bun.In(c)).Exec(ctx)
			if err != nil {
				return wrap(err)
			}
			if n, err := items.RowsAffected(); err == nil {
				result.PlaylistItems += int(n)
			}
		}

		for _, c := range chunk(result.TrackIDs, batchSize) {
			if _, err := tx.NewDelete().Model((*models.Track)(nil)).Where("id IN (?)", bun.In(c)).Exec(ctx); err != nil {
				return wrap(err)
			}
		}
		for _, c := range chunk(result.AlbumIDs, batchSize) {
			for _, model := range []interface{}{
				(*models.AlbumTag)(nil),
				(*models.AlbumArtist)(nil),
				(*models.AlbumCollection)(nil),
			} {
				if _, err := tx.NewDelete().Model(model).Where("album_id IN (?)", bun.In(c)).Exec(ctx); err != nil {
					return wrap(err)
				}
			}
			if _, err := tx.NewDelete().Model((*models.Album)(nil)).Where("id IN (?)", bun.In(c)).Exec(ctx); err != nil {
				return wrap(err)
			}
		}
		for _, model := range []interface{}{
			(*models.Artist)(nil),
			(*models.Collection)(nil),
			(*models.Playlist)(nil),
		} {
			if _, err := tx.NewDelete().Model(model).Where("last_seen_run_id IS NOT ?", run.ID).Exec(ctx); err != nil {
				return wrap(err)
			}
		}

		// Links whose other end is gone.
		anti := []struct {
			model interface{}
			where string
		}{
			{(*models.AlbumArtist)(nil), "artist_id NOT IN (SELECT id FROM artists)"},
			{(*models.AlbumCollection)(nil), "collection_id NOT IN (SELECT id FROM collections)"},
			{(*models.AlbumTag)(nil), "album_id NOT IN (SELECT id FROM albums)"},
		}
		for _, a := range anti {
			if _, err := tx.NewDelete().Model(a.model).Where(a.where).Exec(ctx); err != nil {
				return wrap(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func unseenIDs(ctx context.Context, db bun.IDB, table string, run *models.SyncRun, orWhere string) ([]string, error) {
	ids := []string{}
	q := db.NewSelect().
		TableExpr("?", bun.Ident(table)).
		Column("id").
		Where("last_seen_run_id IS NOT ?", run.ID)
	if orWhere != "" {
		q = q.WhereOr(orWhere, run.ID)
	}
	if err := q.OrderExpr(models.IDOrder("id")).Scan(ctx, &ids); err != nil {
		return nil, wrap(err)
	}
	return ids, nil
}

// SetSyncCheckpoint stores checkpoint, replacing any previous value for its
// key. run may be nil.
func (svc *Service) SetSyncCheckpoint(ctx context.Context, checkpoint *models.SyncCheckpoint, run *models.SyncRun) error {
	return svc.SetSyncCheckpoints(ctx, []*models.SyncCheckpoint{checkpoint}, run)
}

// SetSyncCheckpoints stores several checkpoints in one transaction.
func (svc *Service) SetSyncCheckpoints(ctx context.Context, checkpoints []*models.SyncCheckpoint, run *models.SyncRun) error {
	if len(checkpoints) == 0 {
		return nil
	}
	now := svc.now()
	return svc.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return setCheckpoints(ctx, tx, checkpoints, run, now)
	})
}

func setCheckpoints(ctx context.Context, db bun.IDB, checkpoints []*models.SyncCheckpoint, run *models.SyncRun, now time.Time) error {
	for _, cp := range checkpoints {
		cp.UpdatedAt = now
		cp.SyncRunID = nil
		if run != nil {
			id := run.ID
			cp.SyncRunID = &id
		}
	}
	_, err := db.NewInsert().
		Model(&checkpoints).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Set("sync_run_id = EXCLUDED.sync_run_id").
		Exec(ctx)
	return wrap(err)
}

// SyncCheckpoint returns nil when nothing is stored under key.
func (svc *Service) SyncCheckpoint(ctx context.Context, key string) (*models.SyncCheckpoint, error) {
	cp := &models.SyncCheckpoint{}
	err := svc.db.NewSelect().Model(cp).Where("sc.key = ?", key).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err)
	}
	return cp, nil
}

// CompleteIncrementalSync closes run and records refreshedAt as the last
// refresh.
func (svc *Service) CompleteIncrementalSync(ctx context.Context, run *models.SyncRun, refreshedAt time.Time) error {
	if run == nil {
		return errcodes.OperationFailed("completing a sync requires a sync run")
	}
	now := svc.now()
	return svc.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return completeRun(ctx, tx, run, refreshedAt, now)
	})
}

func completeRun(ctx context.Context, db bun.IDB, run *models.SyncRun, refreshedAt, now time.Time) error {
	run.CompletedAt = &refreshedAt
	_, err := db.NewUpdate().
		Model(run).
		Column("completed_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return wrap(err)
	}
	return setCheckpoints(ctx, db, []*models.SyncCheckpoint{{
		Key:   models.CheckpointLastRefreshedAt,
		Value: refreshedAt.UTC().Format(time.RFC3339Nano),
	}}, run, now)
}

// LastRefreshDate returns nil before the first completed refresh.
func (svc *Service) LastRefreshDate(ctx context.Context) (*time.Time, error) {
	cp, err := svc.SyncCheckpoint(ctx, models.CheckpointLastRefreshedAt)
	if err != nil || cp == nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, cp.Value)
	if err != nil {
		return nil, errcodes.StorageCorrupted("unreadable last refresh date " + cp.Value)
	}
	return &t, nil
}

// ListSyncRuns returns the most recent runs first.
func (svc *Service) ListSyncRuns(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	runs := []*models.SyncRun{}
	q := svc.db.NewSelect().Model(&runs).Order("sr.started_at DESC", "sr.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, wrap(err)
	}
	return runs, nil
}

// CleanupOldSyncRuns keeps the newest keep runs and deletes the rest. Rows
// stamped with a deleted run keep the id as a plain value.
func (svc *Service) CleanupOldSyncRuns(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := svc.db.NewDelete().
		Model((*models.SyncRun)(nil)).
		Where("id NOT IN (SELECT id FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT ?)", keep).
		Exec(ctx)
	if err != nil {
		return 0, wrap(err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
