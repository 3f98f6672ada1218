package models

import (
	"github.com/uptrace/bun"
)

type Playlist struct {
	bun.BaseModel `bun:"table:playlists,alias:pl"`

	ID         string `bun:"id,pk" json:"id"`
	Title      string `bun:",notnull" json:"title"`
	TitleKey   string `bun:",notnull" json:"-"`
	TrackCount int    `bun:",notnull" json:"track_count"`
	Duration   int64  `bun:",notnull" json:"duration"`
	Summary    string `bun:",notnull" json:"summary,omitempty"`
	Thumb      string `bun:",notnull" json:"thumb,omitempty"`
	SyncStamp
}

// PlaylistItem is one slot in a playlist. The same track may appear at
// several positions; each is its own row.
type PlaylistItem struct {
	bun.BaseModel `bun:"table:playlist_items,alias:pi"`

	PlaylistID string `bun:"playlist_id,pk" json:"playlist_id"`
	Position   int    `bun:"position,pk" json:"position"`
	TrackID    string `bun:"track_id,notnull" json:"track_id"`
	SyncStamp

	Track *Track `bun:"rel:belongs-to,join:track_id=id" json:"track,omitempty"`
}
