package library

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the library endpoints. POST /refresh accepts an empty
// body, in which case the refresh is recorded as user initiated.
func RegisterRoutes(e *echo.Echo, libraryService *Service) {
	h := &handler{
		libraryService: libraryService,
	}

	allowEmptyBody := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("disallow_empty_body", false)
			return next(c)
		}
	}

	e.GET("/albums", h.listAlbums)
	e.POST("/albums/query", h.queryAlbums, allowEmptyBody)
	e.GET("/albums/:id", h.retrieveAlbum)
	e.GET("/albums/:id/tracks", h.listAlbumTracks)

	e.GET("/tracks/:id", h.retrieveTrack)
	e.GET("/tracks/:id/stream", h.streamTrack)

	e.GET("/artists", h.listArtists)
	e.GET("/artists/:id", h.retrieveArtist)
	e.GET("/artists/:id/albums", h.listArtistAlbums)

	e.GET("/collections", h.listCollections)
	e.GET("/collections/:id", h.retrieveCollection)
	e.GET("/collections/:id/albums", h.listCollectionAlbums)

	e.GET("/playlists", h.listPlaylists)
	e.GET("/playlists/:id/items", h.listPlaylistItems)

	e.GET("/search", h.search)

	e.POST("/refresh", h.refresh, allowEmptyBody)
	e.GET("/refresh/last", h.lastRefresh)
	e.GET("/refresh/runs", h.listSyncRuns)
}
