package library

import (
	"net/http"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/query"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	libraryService *Service
}

func (h *handler) listAlbums(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListAlbumsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	albums, err := h.libraryService.Albums(ctx, params.page())
	if err != nil {
		return errors.WithStack(err)
	}
	total, err := h.libraryService.CountAlbums(ctx, query.AlbumFilter{})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Albums []*models.Album `json:"albums"`
		Total  int             `json:"total"`
	}{albums, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieveAlbum(c echo.Context) error {
	ctx := c.Request().Context()

	album, err := h.libraryService.Album(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, album))
}

func (h *handler) listAlbumTracks(c echo.Context) error {
	ctx := c.Request().Context()

	tracks, err := h.libraryService.TracksForAlbum(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, tracks))
}

func (h *handler) queryAlbums(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := QueryAlbumsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	filter := params.filter()

	albums, err := h.libraryService.QueryAlbums(ctx, filter)
	if err != nil {
		return errors.WithStack(err)
	}
	total, err := h.libraryService.CountAlbums(ctx, filter)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Albums []*models.Album `json:"albums"`
		Total  int             `json:"total"`
	}{albums, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieveTrack(c echo.Context) error {
	ctx := c.Request().Context()

	track, err := h.libraryService.Track(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, track))
}

func (h *handler) streamTrack(c echo.Context) error {
	ctx := c.Request().Context()

	url, err := h.libraryService.StreamURL(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return errors.WithStack(c.Redirect(http.StatusFound, url))
}

func (h *handler) listArtists(c echo.Context) error {
	ctx := c.Request().Context()

	artists, err := h.libraryService.Artists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, artists))
}

func (h *handler) retrieveArtist(c echo.Context) error {
	ctx := c.Request().Context()

	artist, err := h.libraryService.Artist(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, artist))
}

func (h *handler) listArtistAlbums(c echo.Context) error {
	ctx := c.Request().Context()

	albums, err := h.libraryService.ArtistAlbums(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, albums))
}

func (h *handler) listCollections(c echo.Context) error {
	ctx := c.Request().Context()

	collections, err := h.libraryService.Collections(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, collections))
}

func (h *handler) retrieveCollection(c echo.Context) error {
	ctx := c.Request().Context()

	collection, err := h.libraryService.Collection(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, collection))
}

func (h *handler) listCollectionAlbums(c echo.Context) error {
	ctx := c.Request().Context()

	// 404 for an unknown collection rather than an empty list.
	if _, err := h.libraryService.Collection(ctx, c.Param("id")); err != nil {
		return errors.WithStack(err)
	}
	albums, err := h.libraryService.CollectionAlbums(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, albums))
}

func (h *handler) listPlaylists(c echo.Context) error {
	ctx := c.Request().Context()

	playlists, err := h.libraryService.Playlists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, playlists))
}

func (h *handler) listPlaylistItems(c echo.Context) error {
	ctx := c.Request().Context()

	items, err := h.libraryService.PlaylistItems(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, items))
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := SearchQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	resp, err := h.libraryService.Search(ctx, params.Q, params.Type)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) refresh(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := RefreshPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	outcome, err := h.libraryService.RefreshLibrary(ctx, params.Reason)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, outcome))
}

func (h *handler) lastRefresh(c echo.Context) error {
	ctx := c.Request().Context()

	last, err := h.libraryService.LastRefreshDate(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		LastRefreshDate *time.Time `json:"last_refresh_date"`
	}{last}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) listSyncRuns(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListSyncRunsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	runs, err := h.libraryService.SyncRuns(ctx, params.Limit)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, runs))
}
