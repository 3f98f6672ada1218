package store

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/normalize"
	"github.com/cadenzamusic/cadenza/pkg/sortname"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

var albumDataColumns = []string{
	"title", "artist_name", "year", "thumb", "art", "genre", "rating", "added_at",
	"track_count", "duration", "studio", "summary", "title_sort", "original_title",
	"edition_title", "guid", "title_key", "artist_key",
}

// albumOrder is the display order for album listings. The id tie-break keeps
// pagination stable among albums with the same artist and title.
var albumOrder = "al.artist_key ASC, al.title_key ASC, " + models.IDOrder("al.id")

// prepareAlbum fills the derived key columns.
func prepareAlbum(a *models.Album) {
	a.Title = strings.TrimSpace(a.Title)
	a.ArtistName = strings.TrimSpace(a.ArtistName)
	if a.TitleSort == "" {
		a.TitleSort = sortname.ForTitle(a.Title)
	}
	a.TitleKey = normalize.Normalize(a.Title)
	a.ArtistKey = normalize.Normalize(a.ArtistName)
}

func (svc *Service) FetchAlbums(ctx context.Context, page Page) ([]*models.Album, error) {
	albums := []*models.Album{}
	q := svc.db.NewSelect().Model(&albums).OrderExpr(albumOrder)
	if err := page.apply(q).Scan(ctx); err != nil {
		return nil, wrap(err)
	}
	return albums, svc.loadAlbumRelations(ctx, svc.db, albums)
}

// FetchAlbum returns nil when the album isn't stored.
func (svc *Service) FetchAlbum(ctx context.Context, id string) (*models.Album, error) {
	album := &models.Album{}
	err := svc.db.NewSelect().Model(album).Where("al.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err)
	}
	return album, svc.loadAlbumRelations(ctx, svc.db, []*models.Album{album})
}

// FetchAlbumsByID returns the stored albums among ids, in display order.
func (svc *Service) FetchAlbumsByID(ctx context.Context, ids []string) ([]*models.Album, error) {
	albums := []*models.Album{}
	for _, c := range chunk(uniqueStrings(ids), batchSize) {
		var part []*models.Album
		err := svc.db.NewSelect().Model(&part).Where("al.id IN (?)", bun.In(c)).Scan(ctx)
		if err != nil {
			return nil, wrap(err)
		}
		albums = append(albums, part...)
	}
	sortAlbums(albums)
	return albums, svc.loadAlbumRelations(ctx, svc.db, albums)
}

// FetchArtistAlbums returns albums credited to the artist by name, either on
// the album itself or through an album/artist link.
func (svc *Service) FetchArtistAlbums(ctx context.Context, artistName string) ([]*models.Album, error) {
	albums := []*models.Album{}
	key := normalize.Normalize(artistName)
	if key == "" {
		return albums, nil
	}
	err := svc.db.NewSelect().
		Model(&albums).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("al.artist_key = ?", key).
				WhereOr("al.id IN (SELECT aa.album_id FROM album_artists AS aa JOIN artists AS ar ON ar.id = aa.artist_id WHERE ar.name_key = ?)", key)
		}).
		OrderExpr(albumOrder).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return albums, svc.loadAlbumRelations(ctx, svc.db, albums)
}

func (svc *Service) FetchCollectionAlbums(ctx context.Context, collectionID string) ([]*models.Album, error) {
	albums := []*models.Album{}
	err := svc.db.NewSelect().
		Model(&albums).
		Where("al.id IN (SELECT ac.album_id FROM album_collections AS ac WHERE ac.collection_id = ?)", collectionID).
		OrderExpr(albumOrder).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return albums, svc.loadAlbumRelations(ctx, svc.db, albums)
}

// UpsertAlbums inserts or updates albums by id, canonicalizes their tags, and
// replaces their tag, artist and collection links. The whole batch commits or
// none of it does.
func (svc *Service) UpsertAlbums(ctx context.Context, albums []*models.Album, run *models.SyncRun) error {
	if len(albums) == 0 {
		return nil
	}
	now := svc.now()
	return svc.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return upsertAlbums(ctx, tx, albums, run, now)
	})
}

func upsertAlbums(ctx context.Context, db bun.IDB, albums []*models.Album, run *models.SyncRun, now time.Time) error {
	ids := make([]string, 0, len(albums))
	for _, a := range albums {
		prepareAlbum(a)
		a.Stamp(run, now)
		ids = append(ids, a.ID)
	}

	cols := conflictColumns(albumDataColumns, run != nil)
	for _, c := range chunk(albums, batchSize) {
		q := db.NewInsert().Model(&c).On("CONFLICT (id) DO UPDATE")
		if _, err := upsertSet(q, cols).Exec(ctx); err != nil {
			return wrap(err)
		}
	}

	return replaceAlbumLinks(ctx, db, albums, ids, run, newTagResolver(db, now))
}

func replaceAlbumLinks(ctx context.Context, db bun.IDB, albums []*models.Album, ids []string, run *models.SyncRun, tags *tagResolver) error {
	var runID *string
	if run != nil {
		runID = &run.ID
	}

	for _, c := range chunk(ids, batchSize) {
		for _, model := range []interface{}{
			(*models.AlbumTag)(nil),
			(*models.AlbumArtist)(nil),
			(*models.AlbumCollection)(nil),
		} {
			if _, err := db.NewDelete().Model(model).Where("album_id IN (?)", bun.In(c)).Exec(ctx); err != nil {
				return wrap(err)
			}
		}
	}

	var (
		tagLinks        []*models.AlbumTag
		artistLinks     []*models.AlbumArtist
		collectionLinks []*models.AlbumCollection
	)
	for _, a := range albums {
		seenTags := map[int64]struct{}{}
		for _, kind := range models.TagKinds {
			for _, raw := range a.TagValues(kind) {
				tag, err := tags.resolve(ctx, kind, raw)
				if err != nil {
					return err
				}
				if tag == nil {
					continue
				}
				if _, dup := seenTags[tag.ID]; dup {
					continue
				}
				seenTags[tag.ID] = struct{}{}
				tagLinks = append(tagLinks, &models.AlbumTag{AlbumID: a.ID, TagID: tag.ID, SyncRunID: runID})
			}
		}
		for _, artistID := range uniqueStrings(a.ArtistIDs) {
			artistLinks = append(artistLinks, &models.AlbumArtist{AlbumID: a.ID, ArtistID: artistID, SyncRunID: runID})
		}
		for _, collectionID := range uniqueStrings(a.CollectionIDs) {
			collectionLinks = append(collectionLinks, &models.AlbumCollection{AlbumID: a.ID, CollectionID: collectionID, SyncRunID: runID})
		}
	}

	for _, c := range chunk(tagLinks, batchSize) {
		if _, err := db.NewInsert().Model(&c).Exec(ctx); err != nil {
			return wrap(err)
		}
	}
	for _, c := range chunk(artistLinks, batchSize) {
		if _, err := db.NewInsert().Model(&c).Exec(ctx); err != nil {
			return wrap(err)
		}
	}
	for _, c := range chunk(collectionLinks, batchSize) {
		if _, err := db.NewInsert().Model(&c).Exec(ctx); err != nil {
			return wrap(err)
		}
	}
	return nil
}

// MarkAlbumsSeen records that the albums still exist remotely without
// rewriting their data.
func (svc *Service) MarkAlbumsSeen(ctx context.Context, ids []string, run *models.SyncRun) error {
	return svc.markSeen(ctx, (*models.Album)(nil), ids, run, "")
}

func (svc *Service) markSeen(ctx context.Context, model interface{}, ids []string, run *models.SyncRun, extra string) error {
	if run == nil {
		return errors.New("marking rows seen requires a sync run")
	}
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil
	}
	now := svc.now()
	return svc.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for _, c := range chunk(ids, batchSize) {
			q := tx.NewUpdate().
				Model(model).
				Set("last_seen_run_id = ?", run.ID).
				Set("last_seen_at = ?", now).
				Where("id IN (?)", bun.In(c))
			if extra != "" {
				q = q.Where(extra)
			}
			if _, err := q.Exec(ctx); err != nil {
				return wrap(err)
			}
		}
		return nil
	})
}

type albumTagRow struct {
	AlbumID string
	Kind    string
	Value   string
}

type albumLinkRow struct {
	AlbumID string
	OtherID string
}

// loadAlbumRelations fills the tag values and link ids of albums in place.
func (svc *Service) loadAlbumRelations(ctx context.Context, db bun.IDB, albums []*models.Album) error {
	if len(albums) == 0 {
		return nil
	}
	byID := make(map[string]*models.Album, len(albums))
	ids := make([]string, 0, len(albums))
	for _, a := range albums {
		a.Genres, a.Styles, a.Moods = []string{}, []string{}, []string{}
		a.ArtistIDs, a.CollectionIDs = []string{}, []string{}
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	for _, c := range chunk(ids, batchSize) {
		var tagRows []albumTagRow
		err := db.NewSelect().
			TableExpr("album_tags AS at").
			Join("JOIN tags AS t ON t.id = at.tag_id").
			ColumnExpr("at.album_id, t.kind, t.value").
			Where("at.album_id IN (?)", bun.In(c)).
			OrderExpr("t.normalized_value ASC").
			Scan(ctx, &tagRows)
		if err != nil {
			return wrap(err)
		}
		for _, r := range tagRows {
			a := byID[r.AlbumID]
			a.SetTagValues(r.Kind, append(a.TagValues(r.Kind), r.Value))
		}

		var artistRows []albumLinkRow
		err = db.NewSelect().
			TableExpr("album_artists AS aa").
			ColumnExpr("aa.album_id, aa.artist_id AS other_id").
			Where("aa.album_id IN (?)", bun.In(c)).
			OrderExpr(models.IDOrder("aa.artist_id")).
			Scan(ctx, &artistRows)
		if err != nil {
			return wrap(err)
		}
		for _, r := range artistRows {
			byID[r.AlbumID].ArtistIDs = append(byID[r.AlbumID].ArtistIDs, r.OtherID)
		}

		var collectionRows []albumLinkRow
		err = db.NewSelect().
			TableExpr("album_collections AS ac").
			ColumnExpr("ac.album_id, ac.collection_id AS other_id").
			Where("ac.album_id IN (?)", bun.In(c)).
			OrderExpr(models.IDOrder("ac.collection_id")).
			Scan(ctx, &collectionRows)
		if err != nil {
			return wrap(err)
		}
		for _, r := range collectionRows {
			byID[r.AlbumID].CollectionIDs = append(byID[r.AlbumID].CollectionIDs, r.OtherID)
		}
	}
	return nil
}

func sortAlbums(albums []*models.Album) {
	sort.SliceStable(albums, func(i, j int) bool {
		a, b := albums[i], albums[j]
		if a.ArtistKey != b.ArtistKey {
			return a.ArtistKey < b.ArtistKey
		}
		if a.TitleKey != b.TitleKey {
			return a.TitleKey < b.TitleKey
		}
		return models.LessID(a.ID, b.ID)
	})
}
