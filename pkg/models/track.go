package models

import (
	"github.com/uptrace/bun"
)

type Track struct {
	bun.BaseModel `bun:"table:tracks,alias:tr"`

	ID          string `bun:"id,pk" json:"id"`
	AlbumID     string `bun:"album_id,notnull" json:"album_id"`
	Title       string `bun:",notnull" json:"title"`
	TrackNumber int    `bun:",notnull" json:"track_number"`
	DiscNumber  int    `bun:",notnull" json:"disc_number"`
	Duration    int64  `bun:",notnull" json:"duration"`
	ArtistName  string `bun:",notnull" json:"artist_name"`
	MediaKey    string `bun:",notnull" json:"media_key"`
	Thumb       string `bun:",notnull" json:"thumb,omitempty"`
	TitleKey    string `bun:",notnull" json:"-"`
	SyncStamp

	// Parent album details as reported by the remote alongside the track.
	// Only used to seed a placeholder album on a read-through miss.
	AlbumTitle      string `bun:"-" json:"album_title,omitempty"`
	AlbumArtistName string `bun:"-" json:"album_artist_name,omitempty"`
	AlbumThumb      string `bun:"-" json:"album_thumb,omitempty"`
	AlbumYear       *int   `bun:"-" json:"album_year,omitempty"`
}
