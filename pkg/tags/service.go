// Package tags serves the genre, style and mood catalog built up by library
// refreshes.
package tags

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/cadenzamusic/cadenza/pkg/database"
	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/normalize"
	"github.com/cadenzamusic/cadenza/pkg/store"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type ListTagsOptions struct {
	Limit  *int
	Offset *int
	Kind   *string
	Search *string
	// InUse drops tags no album carries.
	InUse bool

	includeTotal bool
}

type Service struct {
	db    *bun.DB
	store *store.Service
}

func NewService(db *bun.DB) *Service {
	return &Service{db, store.NewService(db)}
}

func (svc *Service) RetrieveTag(ctx context.Context, id int64) (*models.Tag, error) {
	tag := &models.Tag{}

	err := svc.db.
		NewSelect().
		Model(tag).
		ColumnExpr("t.*").
		ColumnExpr("(SELECT COUNT(*) FROM album_tags AS at WHERE at.tag_id = t.id) AS album_count").
		Where("t.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Tag", strconv.FormatInt(id, 10))
		}
		return nil, errors.WithStack(database.Classify(err))
	}

	return tag, nil
}

func (svc *Service) ListTags(ctx context.Context, opts ListTagsOptions) ([]*models.Tag, error) {
	t, _, err := svc.listTagsWithTotal(ctx, opts)
	return t, errors.WithStack(err)
}

func (svc *Service) ListTagsWithTotal(ctx context.Context, opts ListTagsOptions) ([]*models.Tag, int, error) {
	opts.includeTotal = true
	return svc.listTagsWithTotal(ctx, opts)
}

func (svc *Service) listTagsWithTotal(ctx context.Context, opts ListTagsOptions) ([]*models.Tag, int, error) {
	tags := []*models.Tag{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&tags).
		ColumnExpr("t.*").
		ColumnExpr("(SELECT COUNT(*) FROM album_tags AS at WHERE at.tag_id = t.id) AS album_count").
		Order("t.kind ASC", "t.normalized_value ASC")

	if opts.Kind != nil {
		q = q.Where("t.kind = ?", *opts.Kind)
	}
	if opts.InUse {
		q = q.Where("EXISTS (SELECT 1 FROM album_tags AS at WHERE at.tag_id = t.id)")
	}
	if opts.Search != nil {
		if key := normalize.Normalize(*opts.Search); key != "" {
			q = q.Where("instr(t.normalized_value, ?) > 0", key)
		}
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(database.Classify(err))
	}

	return tags, total, nil
}

// Albums returns the albums carrying the tag, in album display order.
func (svc *Service) Albums(ctx context.Context, id int64) ([]*models.Album, error) {
	tag, err := svc.RetrieveTag(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.store.AlbumsByTag(ctx, tag.Kind, tag.Value)
}

// CleanupOrphanedTags deletes tags no album carries. Tags that are still in
// use keep their ids.
func (svc *Service) CleanupOrphanedTags(ctx context.Context) (int, error) {
	result, err := svc.db.NewDelete().
		Model((*models.Tag)(nil)).
		Where("id NOT IN (SELECT DISTINCT tag_id FROM album_tags)").
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(database.Classify(err))
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}
