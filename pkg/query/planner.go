// Package query turns a declarative album filter into a single SQL read.
package query

import (
	"context"

	"github.com/cadenzamusic/cadenza/pkg/database"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/normalize"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// YearRange bounds are inclusive. A nil bound is open. Albums without a year
// never match a range with any bound set.
type YearRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

func (r *YearRange) bounded() bool {
	return r != nil && (r.Min != nil || r.Max != nil)
}

// AlbumFilter narrows an album listing. Every listed tag within a kind must be
// present on the album; every listed artist and collection must be linked.
// Conditions of different fields are ANDed together.
type AlbumFilter struct {
	YearRange     *YearRange `json:"year_range,omitempty"`
	GenreTags     []string   `json:"genre_tags,omitempty"`
	StyleTags     []string   `json:"style_tags,omitempty"`
	MoodTags      []string   `json:"mood_tags,omitempty"`
	ArtistIDs     []string   `json:"artist_ids,omitempty"`
	CollectionIDs []string   `json:"collection_ids,omitempty"`
	TextQuery     string     `json:"text_query,omitempty"`
	Limit         int        `json:"limit,omitempty"`
	Offset        int        `json:"offset,omitempty"`
}

// IsEmpty reports whether the filter has no conditions at all.
func (f AlbumFilter) IsEmpty() bool {
	return !f.YearRange.bounded() &&
		len(f.GenreTags) == 0 && len(f.StyleTags) == 0 && len(f.MoodTags) == 0 &&
		len(f.ArtistIDs) == 0 && len(f.CollectionIDs) == 0 &&
		normalize.Normalize(f.TextQuery) == ""
}

type Planner struct {
	db bun.IDB
}

func NewPlanner(db bun.IDB) *Planner {
	return &Planner{db: db}
}

// Albums runs the filter. Results are ordered by artist, then title, then id
// as models.LessID orders ids, so equal artist/title pairs still page
// deterministically.
func (p *Planner) Albums(ctx context.Context, filter AlbumFilter) ([]*models.Album, error) {
	albums := []*models.Album{}
	q := p.db.NewSelect().Model(&albums)
	q = apply(q, filter).OrderExpr("al.artist_key ASC, al.title_key ASC, " + models.IDOrder("al.id"))
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			q = q.Limit(-1)
		}
		q = q.Offset(filter.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(database.Classify(err))
	}
	return albums, nil
}

// Count returns how many albums match, ignoring Limit and Offset.
func (p *Planner) Count(ctx context.Context, filter AlbumFilter) (int, error) {
	q := p.db.NewSelect().Model((*models.Album)(nil))
	n, err := apply(q, filter).Count(ctx)
	if err != nil {
		return 0, errors.WithStack(database.Classify(err))
	}
	return n, nil
}

func apply(q *bun.SelectQuery, f AlbumFilter) *bun.SelectQuery {
	if r := f.YearRange; r.bounded() {
		q = q.Where("al.year IS NOT NULL")
		if r.Min != nil {
			q = q.Where("al.year >= ?", *r.Min)
		}
		if r.Max != nil {
			q = q.Where("al.year <= ?", *r.Max)
		}
	}

	q = requireAllTags(q, models.TagKindGenre, f.GenreTags)
	q = requireAllTags(q, models.TagKindStyle, f.StyleTags)
	q = requireAllTags(q, models.TagKindMood, f.MoodTags)

	if ids := distinct(f.ArtistIDs, nil); len(ids) > 0 {
		q = q.Where(`al.id IN (
			SELECT aa.album_id FROM album_artists AS aa
			WHERE aa.artist_id IN (?)
			GROUP BY aa.album_id
			HAVING COUNT(DISTINCT aa.artist_id) = ?)`, bun.In(ids), len(ids))
	}
	if ids := distinct(f.CollectionIDs, nil); len(ids) > 0 {
		q = q.Where(`al.id IN (
			SELECT ac.album_id FROM album_collections AS ac
			WHERE ac.collection_id IN (?)
			GROUP BY ac.album_id
			HAVING COUNT(DISTINCT ac.collection_id) = ?)`, bun.In(ids), len(ids))
	}

	if text := normalize.Normalize(f.TextQuery); text != "" {
		q = q.Where("(instr(al.title_key, ?) > 0 OR instr(al.artist_key, ?) > 0)", text, text)
	}
	return q
}

// requireAllTags keeps albums linked to a tag of kind for every value, after
// normalization. Values that normalize to the same key count once.
func requireAllTags(q *bun.SelectQuery, kind string, values []string) *bun.SelectQuery {
	keys := distinct(values, normalize.Normalize)
	if len(keys) == 0 {
		return q
	}
	return q.Where(`al.id IN (
		SELECT at.album_id FROM album_tags AS at
		JOIN tags AS t ON t.id = at.tag_id
		WHERE t.kind = ? AND t.normalized_value IN (?)
		GROUP BY at.album_id
		HAVING COUNT(DISTINCT t.normalized_value) = ?)`, kind, bun.In(keys), len(keys))
}

func distinct(values []string, mapFn func(string) string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, v := range values {
		if mapFn != nil {
			v = mapFn(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
