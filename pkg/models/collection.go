package models

import (
	"github.com/uptrace/bun"
)

type Collection struct {
	bun.BaseModel `bun:"table:collections,alias:co"`

	ID         string `bun:"id,pk" json:"id"`
	Title      string `bun:",notnull" json:"title"`
	TitleKey   string `bun:",notnull" json:"-"`
	AlbumCount int    `bun:",notnull" json:"album_count"`
	Summary    string `bun:",notnull" json:"summary,omitempty"`
	Thumb      string `bun:",notnull" json:"thumb,omitempty"`
	SyncStamp
}
