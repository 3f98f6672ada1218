package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/normalize"
	"github.com/cadenzamusic/cadenza/pkg/query"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type tagKey struct {
	kind       string
	normalized string
}

// tagResolver maps raw tag values to canonical tag rows, creating rows the
// first time a (kind, normalized value) pair is seen. It caches within one
// transaction.
type tagResolver struct {
	db    bun.IDB
	now   time.Time
	cache map[tagKey]*models.Tag
}

func newTagResolver(db bun.IDB, now time.Time) *tagResolver {
	return &tagResolver{db: db, now: now, cache: map[tagKey]*models.Tag{}}
}

// resolve returns nil for values that normalize to nothing.
func (r *tagResolver) resolve(ctx context.Context, kind, raw string) (*models.Tag, error) {
	key := tagKey{kind: kind, normalized: normalize.Normalize(raw)}
	if key.normalized == "" {
		return nil, nil
	}
	if tag, ok := r.cache[key]; ok {
		return tag, nil
	}

	tag := &models.Tag{}
	err := r.db.NewSelect().
		Model(tag).
		Where("t.kind = ? AND t.normalized_value = ?", key.kind, key.normalized).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, wrap(err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		tag = &models.Tag{
			CreatedAt:       r.now,
			Kind:            key.kind,
			Value:           strings.Join(strings.Fields(raw), " "),
			NormalizedValue: key.normalized,
		}
		if _, err := r.db.NewInsert().Model(tag).Returning("id").Exec(ctx); err != nil {
			return nil, wrap(err)
		}
	}

	r.cache[key] = tag
	return tag, nil
}

func validTagKind(kind string) bool {
	for _, k := range models.TagKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// AvailableTags lists tags of kind that at least one stored album carries,
// with the number of albums carrying each.
func (svc *Service) AvailableTags(ctx context.Context, kind string) ([]*models.Tag, error) {
	if !validTagKind(kind) {
		return nil, errcodes.ValidationError("Unknown tag kind " + kind)
	}
	tags := []*models.Tag{}
	err := svc.db.NewSelect().
		Model(&tags).
		ColumnExpr("t.*").
		ColumnExpr("COUNT(at.album_id) AS album_count").
		Join("JOIN album_tags AS at ON at.tag_id = t.id").
		Where("t.kind = ?", kind).
		Group("t.id").
		Order("t.normalized_value ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return tags, nil
}

// CountTags returns how many tag rows exist, regardless of use.
func (svc *Service) CountTags(ctx context.Context) (int, error) {
	n, err := svc.db.NewSelect().Model((*models.Tag)(nil)).Count(ctx)
	return n, wrap(err)
}

// AlbumsByTag returns albums carrying the tag, matched on its normalized value.
func (svc *Service) AlbumsByTag(ctx context.Context, kind, value string) ([]*models.Album, error) {
	if !validTagKind(kind) {
		return nil, errcodes.ValidationError("Unknown tag kind " + kind)
	}
	filter := query.AlbumFilter{}
	switch kind {
	case models.TagKindGenre:
		filter.GenreTags = []string{value}
	case models.TagKindStyle:
		filter.StyleTags = []string{value}
	case models.TagKindMood:
		filter.MoodTags = []string{value}
	}
	return svc.QueryAlbums(ctx, filter)
}

// QueryAlbums runs filter through the query planner and loads the relations
// of the matching albums.
func (svc *Service) QueryAlbums(ctx context.Context, filter query.AlbumFilter) ([]*models.Album, error) {
	albums, err := query.NewPlanner(svc.db).Albums(ctx, filter)
	if err != nil {
		return nil, err
	}
	return albums, svc.loadAlbumRelations(ctx, svc.db, albums)
}
