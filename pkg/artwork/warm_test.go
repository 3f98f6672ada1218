package artwork

import (
	"context"
	"testing"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarm(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, 0)
	ctx := context.Background()

	albums := []*models.Album{
		{ID: "1", Thumb: "/thumb/wide"},
		{ID: "2", Thumb: "/thumb/small"},
		{ID: "3", Thumb: "/thumb/missing"},
		{ID: "4"},
	}

	n, err := c.Warm(ctx, albums)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.EqualValues(t, 3, c.hits.Load())

	for _, id := range []string{"1", "2"} {
		entry, err := c.store.ArtworkPath(ctx, albumKey(id, models.ArtworkVariantThumbnail))
		require.NoError(t, err)
		assert.NotNil(t, entry, id)
	}
	entry, err := c.store.ArtworkPath(ctx, albumKey("3", models.ArtworkVariantThumbnail))
	require.NoError(t, err)
	assert.Nil(t, entry)

	// Already cached thumbnails are not fetched again.
	n, err = c.Warm(ctx, albums[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.EqualValues(t, 3, c.hits.Load())
}

func TestWarm_StopsOnExpiredToken(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, 0)

	_, err := c.Warm(context.Background(), []*models.Album{
		{ID: "1", Thumb: "/thumb/denied"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errcodes.ErrAuthenticationExpired)
}
