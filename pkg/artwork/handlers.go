package artwork

import (
	"context"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type ArtworkQuery struct {
	Variant string `query:"variant" json:"variant,omitempty" default:"thumbnail" validate:"oneof=thumbnail full"`
}

type handler struct {
	cache *Cache
}

func (h *handler) serve(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ArtworkQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	ownerType, ownerID := c.Param("type"), c.Param("id")
	rawPath, err := h.cache.sourcePath(ctx, ownerType, ownerID)
	if err != nil {
		return errors.WithStack(err)
	}

	path, err := h.cache.Get(ctx, models.ArtworkKey{
		OwnerID:   ownerID,
		OwnerType: ownerType,
		Variant:   params.Variant,
	}, rawPath)
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return errors.WithStack(c.File(path))
}

// sourcePath returns the remote artwork path stored on the owner row.
func (c *Cache) sourcePath(ctx context.Context, ownerType, ownerID string) (string, error) {
	switch ownerType {
	case models.OwnerTypeAlbum:
		album, err := c.store.FetchAlbum(ctx, ownerID)
		if err != nil {
			return "", err
		}
		if album != nil {
			return album.Thumb, nil
		}
	case models.OwnerTypeArtist:
		artist, err := c.store.FetchArtist(ctx, ownerID)
		if err != nil {
			return "", err
		}
		if artist != nil {
			return artist.Thumb, nil
		}
	case models.OwnerTypeCollection:
		collection, err := c.store.FetchCollection(ctx, ownerID)
		if err != nil {
			return "", err
		}
		if collection != nil {
			return collection.Thumb, nil
		}
	case models.OwnerTypePlaylist:
		playlists, err := c.store.FetchPlaylists(ctx)
		if err != nil {
			return "", err
		}
		for _, p := range playlists {
			if p.ID == ownerID {
				return p.Thumb, nil
			}
		}
	}
	return "", errcodes.NotFound("Artwork", ownerID)
}
