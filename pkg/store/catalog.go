package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/normalize"
	"github.com/cadenzamusic/cadenza/pkg/sortname"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

var artistDataColumns = []string{"name", "sort_name", "name_key", "sort_key", "album_count", "summary", "thumb"}

var collectionDataColumns = []string{"title", "title_key", "album_count", "summary", "thumb"}

var (
	artistOrder     = "ar.sort_key ASC, ar.name_key ASC, " + models.IDOrder("ar.id")
	collectionOrder = "co.title_key ASC, " + models.IDOrder("co.id")
)

func (svc *Service) FetchArtists(ctx context.Context) ([]*models.Artist, error) {
	artists := []*models.Artist{}
	if err := svc.db.NewSelect().Model(&artists).OrderExpr(artistOrder).Scan(ctx); err != nil {
		return nil, wrap(err)
	}
	return artists, nil
}

// FetchArtist returns nil when the artist isn't stored.
func (svc *Service) FetchArtist(ctx context.Context, id string) (*models.Artist, error) {
	artist := &models.Artist{}
	err := svc.db.NewSelect().Model(artist).Where("ar.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return artist, wrap(err)
}

func (svc *Service) FetchCollections(ctx context.Context) ([]*models.Collection, error) {
	collections := []*models.Collection{}
	if err := svc.db.NewSelect().Model(&collections).OrderExpr(collectionOrder).Scan(ctx); err != nil {
		return nil, wrap(err)
	}
	return collections, nil
}

// FetchCollection returns nil when the collection isn't stored.
func (svc *Service) FetchCollection(ctx context.Context, id string) (*models.Collection, error) {
	collection := &models.Collection{}
	err := svc.db.NewSelect().Model(collection).Where("co.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return collection, wrap(err)
}

// ReplaceArtists writes the full artist catalog for run. Artists missing from
// the list are left for PruneRowsNotSeen.
func (svc *Service) ReplaceArtists(ctx context.Context, artists []*models.Artist, run *models.SyncRun) error {
	if len(artists) == 0 {
		return nil
	}
	now := svc.now()
	return svc.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return upsertArtists(ctx, tx, artists, run, now)
	})
}

func upsertArtists(ctx context.Context, db bun.IDB, artists []*models.Artist, run *models.SyncRun, now time.Time) error {
	for _, a := range artists {
		a.Name = strings.TrimSpace(a.Name)
		a.SortName = sortname.Resolve(a.SortName, a.Name)
		a.NameKey = normalize.Normalize(a.Name)
		a.SortKey = normalize.Normalize(a.SortName)
		a.Stamp(run, now)
	}
	cols := conflictColumns(artistDataColumns, run != nil)
	for _, c := range chunk(artists, batchSize) {
		q := db.NewInsert().Model(&c).On("CONFLICT (id) DO UPDATE")
		if _, err := upsertSet(q, cols).Exec(ctx); err != nil {
			return wrap(err)
		}
	}
	return nil
}

// ReplaceCollections writes the full collection catalog for run.
func (svc *Service) ReplaceCollections(ctx context.Context, collections []*models.Collection, run *models.SyncRun) error {
	if len(collections) == 0 {
		return nil
	}
	now := svc.now()
	return svc.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return upsertCollections(ctx, tx, collections, run, now)
	})
}

func upsertCollections(ctx context.Context, db bun.IDB, collections []*models.Collection, run *models.SyncRun, now time.Time) error {
	for _, c := range collections {
		c.Title = strings.TrimSpace(c.Title)
		c.TitleKey = normalize.Normalize(c.Title)
		c.Stamp(run, now)
	}
	cols := conflictColumns(collectionDataColumns, run != nil)
	for _, c := range chunk(collections, batchSize) {
		q := db.NewInsert().Model(&c).On("CONFLICT (id) DO UPDATE")
		if _, err := upsertSet(q, cols).Exec(ctx); err != nil {
			return wrap(err)
		}
	}
	return nil
}

func (svc *Service) MarkArtistsSeen(ctx context.Context, ids []string, run *models.SyncRun) error {
	return svc.markSeen(ctx, (*models.Artist)(nil), ids, run, "")
}

func (svc *Service) MarkCollectionsSeen(ctx context.Context, ids []string, run *models.SyncRun) error {
	return svc.markSeen(ctx, (*models.Collection)(nil), ids, run, "")
}
