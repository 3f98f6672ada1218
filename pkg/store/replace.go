package store

import (
	"context"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/uptrace/bun"
)

// ReplaceLibrary wipes the catalog and writes snapshot in its place, all in
// one transaction, then records refreshedAt as the last refresh. It is meant
// for first-run bootstrap and explicit resets. Tag rows survive so their ids
// stay stable. Rows are stamped with run, which is then completed.
//
// The result lists the stored rows that snapshot no longer has, the same way
// PruneRowsNotSeen reports an incremental pass.
func (svc *Service) ReplaceLibrary(ctx context.Context, snapshot *models.LibrarySnapshot, run *models.SyncRun, refreshedAt time.Time) (*PruneResult, error) {
	if run == nil {
		return nil, errcodes.OperationFailed("replacing the library requires a sync run")
	}
	now := svc.now()
	result := &PruneResult{}
	err := svc.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := dropped(ctx, tx, snapshot, result); err != nil {
			return err
		}

		for _, model := range []interface{}{
			(*models.PlaylistItem)(nil),
			(*models.Playlist)(nil),
			(*models.AlbumTag)(nil),
			(*models.AlbumArtist)(nil),
			(*models.AlbumCollection)(nil),
			(*models.Track)(nil),
			(*models.Album)(nil),
			(*models.Artist)(nil),
			(*models.Collection)(nil),
		} {
			if _, err := tx.NewDelete().Model(model).Where("1 = 1").Exec(ctx); err != nil {
				return wrap(err)
			}
		}

		if len(snapshot.Albums) > 0 {
			if err := upsertAlbums(ctx, tx, snapshot.Albums, run, now); err != nil {
				return err
			}
		}
		if len(snapshot.Tracks) > 0 {
			if err := upsertTracks(ctx, tx, snapshot.Tracks, run, now); err != nil {
				return err
			}
		}
		if len(snapshot.Artists) > 0 {
			if err := upsertArtists(ctx, tx, snapshot.Artists, run, now); err != nil {
				return err
			}
		}
		if len(snapshot.Collections) > 0 {
			if err := upsertCollections(ctx, tx, snapshot.Collections, run, now); err != nil {
				return err
			}
		}
		if len(snapshot.Playlists) > 0 {
			if err := upsertPlaylists(ctx, tx, snapshot.Playlists, run, now); err != nil {
				return err
			}
		}
		for _, p := range snapshot.Playlists {
			items := snapshot.PlaylistItems[p.ID]
			if len(items) == 0 {
				continue
			}
			if err := upsertPlaylistItems(ctx, tx, p.ID, items, run, now); err != nil {
				return err
			}
		}

		if err := replaceAlbumAliases(ctx, tx, snapshot.AlbumAliases, run); err != nil {
			return err
		}

		return completeRun(ctx, tx, run, refreshedAt, now)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// dropped fills result with the ids of stored catalog rows missing from
// snapshot. Playlist items are replaced wholesale and aren't counted.
func dropped(ctx context.Context, db bun.IDB, snapshot *models.LibrarySnapshot, result *PruneResult) error {
	tables := []struct {
		table string
		keep  map[string]struct{}
		into  *[]string
	}{
		{"albums", idSet(snapshot.Albums, func(a *models.Album) string { return a.ID }), &result.AlbumIDs},
		{"tracks", idSet(snapshot.Tracks, func(t *models.Track) string { return t.ID }), &result.TrackIDs},
		{"artists", idSet(snapshot.Artists, func(a *models.Artist) string { return a.ID }), &result.ArtistIDs},
		{"collections", idSet(snapshot.Collections, func(c *models.Collection) string { return c.ID }), &result.CollectionIDs},
		{"playlists", idSet(snapshot.Playlists, func(p *models.Playlist) string { return p.ID }), &result.PlaylistIDs},
	}
	for _, t := range tables {
		stored := []string{}
		err := db.NewSelect().
			TableExpr("?", bun.Ident(t.table)).
			Column("id").
			OrderExpr(models.IDOrder("id")).
			Scan(ctx, &stored)
		if err != nil {
			return wrap(err)
		}
		*t.into = []string{}
		for _, id := range stored {
			if _, ok := t.keep[id]; !ok {
				*t.into = append(*t.into, id)
			}
		}
	}
	return nil
}

func idSet[T any](items []T, id func(T) string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[id(item)] = struct{}{}
	}
	return set
}
