package store

import (
	"context"
	"strings"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/normalize"
	"github.com/uptrace/bun"
)

var playlistDataColumns = []string{"title", "title_key", "track_count", "duration", "summary", "thumb"}

var playlistItemDataColumns = []string{"track_id"}

func (svc *Service) FetchPlaylists(ctx context.Context) ([]*models.Playlist, error) {
	playlists := []*models.Playlist{}
	err := svc.db.NewSelect().Model(&playlists).OrderExpr("pl.title_key ASC, " + models.IDOrder("pl.id")).Scan(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return playlists, nil
}

// FetchPlaylistItems returns the playlist's items in position order, each
// with its track when the track is stored locally.
func (svc *Service) FetchPlaylistItems(ctx context.Context, playlistID string) ([]*models.PlaylistItem, error) {
	items := []*models.PlaylistItem{}
	err := svc.db.NewSelect().
		Model(&items).
		Relation("Track").
		Where("pi.playlist_id = ?", playlistID).
		Order("pi.position ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return items, nil
}

func (svc *Service) UpsertPlaylists(ctx context.Context, playlists []*models.Playlist, run *models.SyncRun) error {
	if len(playlists) == 0 {
		return nil
	}
	now := svc.now()
	return svc.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return upsertPlaylists(ctx, tx, playlists, run, now)
	})
}

func upsertPlaylists(ctx context.Context, db bun.IDB, playlists []*models.Playlist, run *models.SyncRun, now time.Time) error {
	for _, p := range playlists {
		p.Title = strings.TrimSpace(p.Title)
		p.TitleKey = normalize.Normalize(p.Title)
		p.Stamp(run, now)
	}
	cols := conflictColumns(playlistDataColumns, run != nil)
	for _, c := range chunk(playlists, batchSize) {
		q := db.NewInsert().Model(&c).On("CONFLICT (id) DO UPDATE")
		if _, err := upsertSet(q, cols).Exec(ctx); err != nil {
			return wrap(err)
		}
	}
	return nil
}

// UpsertPlaylistItems writes items for playlistID keyed by position.
// Positions are stored exactly as given, so a track repeated at two
// positions is two rows. Positions no longer present are left for
// PruneRowsNotSeen.
func (svc *Service) UpsertPlaylistItems(ctx context.Context, playlistID string, items []*models.PlaylistItem, run *models.SyncRun) error {
	if len(items) == 0 {
		return nil
	}
	now := svc.now()
	return svc.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return upsertPlaylistItems(ctx, tx, playlistID, items, run, now)
	})
}

func upsertPlaylistItems(ctx context.Context, db bun.IDB, playlistID string, items []*models.PlaylistItem, run *models.SyncRun, now time.Time) error {
	for _, it := range items {
		it.PlaylistID = playlistID
		it.Stamp(run, now)
	}
	cols := conflictColumns(playlistItemDataColumns, run != nil)
	for _, c := range chunk(items, batchSize) {
		q := db.NewInsert().Model(&c).On("CONFLICT (playlist_id, position) DO UPDATE")
		if _, err := upsertSet(q, cols).Exec(ctx); err != nil {
			return wrap(err)
		}
	}
	return nil
}

func (svc *Service) MarkPlaylistsSeen(ctx context.Context, ids []string, run *models.SyncRun) error {
	return svc.markSeen(ctx, (*models.Playlist)(nil), ids, run, "")
}
