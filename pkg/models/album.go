package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Album struct {
	bun.BaseModel `bun:"table:albums,alias:al"`

	ID            string     `bun:"id,pk" json:"id"`
	Title         string     `bun:",notnull" json:"title"`
	ArtistName    string     `bun:",notnull" json:"artist_name"`
	Year          *int       `json:"year,omitempty"`
	Thumb         string     `bun:",notnull" json:"thumb,omitempty"`
	Art           string     `bun:",notnull" json:"art,omitempty"`
	Genre         string     `bun:",notnull" json:"genre,omitempty"`
	Rating        *float64   `json:"rating,omitempty"`
	AddedAt       *time.Time `json:"added_at,omitempty"`
	TrackCount    int        `bun:",notnull" json:"track_count"`
	Duration      int64      `bun:",notnull" json:"duration"`
	Studio        string     `bun:",notnull" json:"studio,omitempty"`
	Summary       string     `bun:",notnull" json:"summary,omitempty"`
	TitleSort     string     `bun:",notnull" json:"title_sort,omitempty"`
	OriginalTitle string     `bun:",notnull" json:"original_title,omitempty"`
	EditionTitle  string     `bun:",notnull" json:"edition_title,omitempty"`
	GUID          string     `bun:"guid,notnull" json:"guid,omitempty"`
	TitleKey      string     `bun:",notnull" json:"-"`
	ArtistKey     string     `bun:",notnull" json:"-"`
	SyncStamp

	Genres        []string `bun:"-" json:"genres"`
	Styles        []string `bun:"-" json:"styles"`
	Moods         []string `bun:"-" json:"moods"`
	ArtistIDs     []string `bun:"-" json:"artist_ids"`
	CollectionIDs []string `bun:"-" json:"collection_ids"`
}

// TagValues returns the album's raw tag values for kind.
func (a *Album) TagValues(kind string) []string {
	switch kind {
	case TagKindGenre:
		return a.Genres
	case TagKindStyle:
		return a.Styles
	case TagKindMood:
		return a.Moods
	}
	return nil
}

// SetTagValues replaces the album's raw tag values for kind.
func (a *Album) SetTagValues(kind string, values []string) {
	switch kind {
	case TagKindGenre:
		a.Genres = values
	case TagKindStyle:
		a.Styles = values
	case TagKindMood:
		a.Moods = values
	}
}

type AlbumArtist struct {
	bun.BaseModel `bun:"table:album_artists,alias:aa"`

	AlbumID   string  `bun:"album_id,pk"`
	ArtistID  string  `bun:"artist_id,pk"`
	SyncRunID *string `bun:"sync_run_id"`
}

type AlbumCollection struct {
	bun.BaseModel `bun:"table:album_collections,alias:ac"`

	AlbumID      string  `bun:"album_id,pk"`
	CollectionID string  `bun:"collection_id,pk"`
	SyncRunID    *string `bun:"sync_run_id"`
}

// AlbumAlias points a remote album id that a refresh folded into another
// album at the id that survived. The set is rewritten by every run.
type AlbumAlias struct {
	bun.BaseModel `bun:"table:album_aliases,alias:aal"`

	AliasID     string `bun:"alias_id,pk" json:"alias_id"`
	CanonicalID string `bun:"canonical_id,notnull" json:"canonical_id"`
	SyncRunID   string `bun:"sync_run_id,notnull" json:"sync_run_id"`
}
