package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ArtworkVariantThumbnail = "thumbnail"
	ArtworkVariantFull      = "full"
)

const (
	OwnerTypeAlbum      = "album"
	OwnerTypeArtist     = "artist"
	OwnerTypeCollection = "collection"
	OwnerTypePlaylist   = "playlist"
)

// ArtworkKey identifies one cached image.
type ArtworkKey struct {
	OwnerID   string
	OwnerType string
	Variant   string
}

type ArtworkCacheEntry struct {
	bun.BaseModel `bun:"table:artwork_cache,alias:aw"`

	OwnerID        string    `bun:"owner_id,pk" json:"owner_id"`
	OwnerType      string    `bun:"owner_type,pk" json:"owner_type"`
	Variant        string    `bun:"variant,pk" json:"variant"`
	Path           string    `bun:"path,notnull" json:"path"`
	SourcePath     string    `bun:"source_path,notnull" json:"source_path"`
	SizeBytes      int64     `bun:"size_bytes,notnull" json:"size_bytes"`
	UpdatedAt      time.Time `bun:"updated_at,notnull" json:"updated_at"`
	LastAccessedAt time.Time `bun:"last_accessed_at,notnull" json:"last_accessed_at"`
}

func (e *ArtworkCacheEntry) Key() ArtworkKey {
	return ArtworkKey{OwnerID: e.OwnerID, OwnerType: e.OwnerType, Variant: e.Variant}
}
