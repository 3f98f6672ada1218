package library

import (
	"github.com/cadenzamusic/cadenza/pkg/query"
	"github.com/cadenzamusic/cadenza/pkg/store"
	"github.com/robinjoseph08/golib/pointerutil"
)

const (
	SearchTypeAll         = "all"
	SearchTypeAlbums      = "albums"
	SearchTypeArtists     = "artists"
	SearchTypeCollections = "collections"
)

type ListAlbumsQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=500"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

func (q ListAlbumsQuery) page() store.Page {
	return store.Page{Limit: q.Limit, Offset: q.Offset}
}

type SearchQuery struct {
	Q    string `query:"q" json:"q" mod:"trim"`
	Type string `query:"type" json:"type,omitempty" default:"all" validate:"oneof=all albums artists collections"`
}

// QueryAlbumsPayload leaves a year bound open when it is zero.
type QueryAlbumsPayload struct {
	YearMin       int      `json:"year_min,omitempty" validate:"omitempty,year"`
	YearMax       int      `json:"year_max,omitempty" validate:"omitempty,year,gtefield=YearMin"`
	GenreTags     []string `json:"genre_tags,omitempty" validate:"max=50"`
	StyleTags     []string `json:"style_tags,omitempty" validate:"max=50"`
	MoodTags      []string `json:"mood_tags,omitempty" validate:"max=50"`
	ArtistIDs     []string `json:"artist_ids,omitempty" validate:"max=50"`
	CollectionIDs []string `json:"collection_ids,omitempty" validate:"max=50"`
	TextQuery     string   `json:"text_query,omitempty" mod:"trim" validate:"max=200"`
	Limit         int      `json:"limit,omitempty" default:"50" validate:"min=1,max=500"`
	Offset        int      `json:"offset,omitempty" validate:"min=0"`
}

func (p *QueryAlbumsPayload) filter() query.AlbumFilter {
	f := query.AlbumFilter{
		GenreTags:     p.GenreTags,
		StyleTags:     p.StyleTags,
		MoodTags:      p.MoodTags,
		ArtistIDs:     p.ArtistIDs,
		CollectionIDs: p.CollectionIDs,
		TextQuery:     p.TextQuery,
		Limit:         p.Limit,
		Offset:        p.Offset,
	}
	if p.YearMin != 0 || p.YearMax != 0 {
		f.YearRange = &query.YearRange{}
		if p.YearMin != 0 {
			f.YearRange.Min = pointerutil.Int(p.YearMin)
		}
		if p.YearMax != 0 {
			f.YearRange.Max = pointerutil.Int(p.YearMax)
		}
	}
	return f
}

type RefreshPayload struct {
	Reason string `json:"reason,omitempty" default:"user_initiated" validate:"refreshreason"`
}

type ListSyncRunsQuery struct {
	Limit int `query:"limit" json:"limit,omitempty" default:"20" validate:"min=1,max=100"`
}
