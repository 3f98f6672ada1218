package artwork

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes serves GET /artwork/:type/:id, where type is album, artist,
// collection or playlist.
func RegisterRoutes(e *echo.Echo, cache *Cache) {
	h := &handler{
		cache: cache,
	}

	e.GET("/artwork/:type/:id", h.serve)
}
