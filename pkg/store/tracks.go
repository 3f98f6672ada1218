package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/normalize"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

var trackDataColumns = []string{
	"album_id", "title", "track_number", "disc_number", "duration", "artist_name",
	"media_key", "thumb", "title_key",
}

var trackOrder = "tr.disc_number ASC, tr.track_number ASC, " + models.IDOrder("tr.id")

func (svc *Service) FetchTracks(ctx context.Context, albumID string) ([]*models.Track, error) {
	tracks := []*models.Track{}
	err := svc.db.NewSelect().
		Model(&tracks).
		Where("tr.album_id = ?", albumID).
		OrderExpr(trackOrder).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return tracks, nil
}

// FetchAllTracks returns every stored track grouped in album order.
func (svc *Service) FetchAllTracks(ctx context.Context) ([]*models.Track, error) {
	tracks := []*models.Track{}
	err := svc.db.NewSelect().
		Model(&tracks).
		OrderExpr(models.IDOrder("tr.album_id") + ", " + trackOrder).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return tracks, nil
}

// FetchTrack returns nil when the track isn't stored.
func (svc *Service) FetchTrack(ctx context.Context, id string) (*models.Track, error) {
	track := &models.Track{}
	err := svc.db.NewSelect().Model(track).Where("tr.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err)
	}
	return track, nil
}

// UpsertTracks inserts or updates tracks by id. If any track points at an
// album that isn't stored, the whole batch is rejected with
// errcodes.OperationFailed and nothing is written.
func (svc *Service) UpsertTracks(ctx context.Context, tracks []*models.Track, run *models.SyncRun) error {
	if len(tracks) == 0 {
		return nil
	}
	now := svc.now()
	return svc.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return upsertTracks(ctx, tx, tracks, run, now)
	})
}

func upsertTracks(ctx context.Context, db bun.IDB, tracks []*models.Track, run *models.SyncRun, now time.Time) error {
	albumIDs := make([]string, 0, len(tracks))
	for _, t := range tracks {
		albumIDs = append(albumIDs, t.AlbumID)
	}
	missing, err := missingAlbumIDs(ctx, db, albumIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return errcodes.OperationFailed(fmt.Sprintf("tracks reference albums that are not stored: %s", strings.Join(missing, ", ")))
	}

	for _, t := range tracks {
		t.Title = strings.TrimSpace(t.Title)
		t.TitleKey = normalize.Normalize(t.Title)
		t.Stamp(run, now)
	}

	cols := conflictColumns(trackDataColumns, run != nil)
	for _, c := range chunk(tracks, batchSize) {
		q := db.NewInsert().Model(&c).On("CONFLICT (id) DO UPDATE")
		if _, err := upsertSet(q, cols).Exec(ctx); err != nil {
			return wrap(err)
		}
	}
	return nil
}

// missingAlbumIDs returns, sorted, the ids among albumIDs with no album row.
// An empty album id always counts as missing.
func missingAlbumIDs(ctx context.Context, db bun.IDB, albumIDs []string) ([]string, error) {
	var missing []string
	for _, id := range albumIDs {
		if id == "" {
			missing = append(missing, `""`)
			break
		}
	}

	wanted := uniqueStrings(albumIDs)
	found := make(map[string]struct{}, len(wanted))
	for _, c := range chunk(wanted, batchSize) {
		var ids []string
		err := db.NewSelect().
			Model((*models.Album)(nil)).
			Column("al.id").
			Where("al.id IN (?)", bun.In(c)).
			Scan(ctx, &ids)
		if err != nil {
			return nil, wrap(err)
		}
		for _, id := range ids {
			found[id] = struct{}{}
		}
	}
	for _, id := range wanted {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return models.LessID(missing[i], missing[j]) })
	return missing, nil
}

func (svc *Service) MarkTracksSeen(ctx context.Context, ids []string, run *models.SyncRun) error {
	return svc.markSeen(ctx, (*models.Track)(nil), ids, run, "")
}

// MarkTracksWithValidAlbumsSeen marks only those tracks whose album is still
// stored, so a track can't outlive its album through a seen marker.
func (svc *Service) MarkTracksWithValidAlbumsSeen(ctx context.Context, ids []string, run *models.SyncRun) error {
	return svc.markSeen(ctx, (*models.Track)(nil), ids, run, "album_id IN (SELECT id FROM albums)")
}
