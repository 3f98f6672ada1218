package models

import (
	"github.com/uptrace/bun"
)

type Artist struct {
	bun.BaseModel `bun:"table:artists,alias:ar"`

	ID         string `bun:"id,pk" json:"id"`
	Name       string `bun:",notnull" json:"name"`
	SortName   string `bun:",notnull" json:"sort_name"`
	NameKey    string `bun:",notnull" json:"-"`
	SortKey    string `bun:",notnull" json:"-"`
	AlbumCount int    `bun:",notnull" json:"album_count"`
	Summary    string `bun:",notnull" json:"summary,omitempty"`
	Thumb      string `bun:",notnull" json:"thumb,omitempty"`
	SyncStamp
}
