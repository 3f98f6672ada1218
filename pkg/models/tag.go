package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TagKindGenre = "genre"
	TagKindStyle = "style"
	TagKindMood  = "mood"
)

// TagKinds lists every kind in a fixed order.
var TagKinds = []string{TagKindGenre, TagKindStyle, TagKindMood}

// Tag is unique per (Kind, NormalizedValue). Value keeps the spelling it was
// first seen with.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID              int64     `bun:",pk,autoincrement" json:"id"`
	CreatedAt       time.Time `bun:",notnull" json:"created_at"`
	Kind            string    `bun:",notnull" json:"kind"`
	Value           string    `bun:",notnull" json:"value"`
	NormalizedValue string    `bun:",notnull" json:"normalized_value"`
	AlbumCount      int       `bun:",scanonly" json:"album_count"`
}

type AlbumTag struct {
	bun.BaseModel `bun:"table:album_tags,alias:at"`

	AlbumID   string  `bun:"album_id,pk"`
	TagID     int64   `bun:"tag_id,pk"`
	SyncRunID *string `bun:"sync_run_id"`
	Tag       *Tag    `bun:"rel:belongs-to,join:tag_id=id"`
}
