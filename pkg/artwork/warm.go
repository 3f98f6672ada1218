package artwork

import (
	"context"
	"sync/atomic"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/sync/errgroup"
)

const warmConcurrency = 4

// Warm makes sure every album with artwork has a cached thumbnail, fetching
// up to warmConcurrency images at once. A failed image is logged and
// skipped, except an expired token, which stops the whole pass. It returns
// the number of thumbnails that are now cached.
func (c *Cache) Warm(ctx context.Context, albums []*models.Album) (int, error) {
	log := logger.FromContext(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)

	var warmed atomic.Int32
	for _, album := range albums {
		if album.Thumb == "" {
			continue
		}
		key := models.ArtworkKey{
			OwnerID:   album.ID,
			OwnerType: models.OwnerTypeAlbum,
			Variant:   models.ArtworkVariantThumbnail,
		}
		thumb := album.Thumb
		g.Go(func() error {
			if _, err := c.Get(gctx, key, thumb); err != nil {
				if errcodes.HasCode(err, errcodes.CodeAuthenticationExpired) {
					return err
				}
				log.Err(err).Warn("artwork warmup skipped image", logger.Data{"album_id": key.OwnerID})
				return nil
			}
			warmed.Add(1)
			return nil
		})
	}

	err := g.Wait()
	return int(warmed.Load()), err
}
