package library

import (
	"context"
	"testing"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/remote/remotetest"
	"github.com/cadenzamusic/cadenza/pkg/testutils"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlbum_CachedRowNeverTouchesRemote(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, src, _ := newTestLibrary(t)

	_, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)
	src.ResetCalls()

	album, err := svc.Album(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Kind of Blue", album.Title)

	tracks, err := svc.TracksForAlbum(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, tracks, 2)

	track, err := svc.Track(ctx, "201")
	require.NoError(t, err)
	assert.Equal(t, "Blue Train", track.Title)

	assert.Zero(t, src.TotalCalls())
}

func TestAlbum_MissFetchesAndStoresOutsideRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, src, _ := newTestLibrary(t)

	album, err := svc.Album(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Blue Train", album.Title)
	assert.Equal(t, 1, src.Calls(remotetest.MethodFetchAlbum))
	assert.Nil(t, album.SyncRunID)

	_, err = svc.Album(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 1, src.Calls(remotetest.MethodFetchAlbum))
}

func TestAlbum_NotFound(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestLibrary(t)

	_, err := svc.Album(context.Background(), "404")
	assert.ErrorIs(t, err, errcodes.ErrNotFound)
}

func TestAlbum_RemoteErrorIsReturned(t *testing.T) {
	t.Parallel()
	svc, src, db := newTestLibrary(t)
	src.Errs[remotetest.MethodFetchAlbum] = errcodes.RemoteUnreachable("connection refused")

	_, err := svc.Album(context.Background(), "1")
	assert.ErrorIs(t, err, errcodes.ErrRemoteUnreachable)
	assert.Zero(t, testutils.Count(t, db, "albums"))
}

func TestTrack_MissWritesPlaceholderAlbum(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, src, _ := newTestLibrary(t)
	src.Update(func(s *remotetest.Source) {
		tr := s.Tracks["2"][0]
		tr.AlbumID = "2"
		tr.AlbumTitle = "Blue Train"
		tr.AlbumArtistName = "John Coltrane"
		tr.AlbumYear = pointerutil.Int(1957)
	})

	track, err := svc.Track(ctx, "201")
	require.NoError(t, err)
	assert.Equal(t, "2", track.AlbumID)
	assert.Zero(t, src.Calls(remotetest.MethodFetchAlbum))

	album, err := svc.Store().FetchAlbum(ctx, "2")
	require.NoError(t, err)
	require.NotNil(t, album)
	assert.Equal(t, "Blue Train", album.Title)
	assert.Equal(t, "John Coltrane", album.ArtistName)
	require.NotNil(t, album.Year)
	assert.Equal(t, 1957, *album.Year)

	// A later refresh adopts the placeholder.
	_, err = svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)
	album, err = svc.Store().FetchAlbum(ctx, "2")
	require.NoError(t, err)
	assert.NotNil(t, album.SyncRunID)
}

func TestTrack_WithoutAlbumIsMalformed(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestLibrary(t)

	_, err := svc.Track(context.Background(), "101")
	assert.ErrorIs(t, err, errcodes.ErrMalformedResponse)
}

func TestTracksForAlbum_MissFetchesAlbumAndTracks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, src, db := newTestLibrary(t)

	tracks, err := svc.TracksForAlbum(ctx, "1")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "101", tracks[0].ID)
	assert.Equal(t, "1", tracks[1].AlbumID)
	assert.Equal(t, 1, src.Calls(remotetest.MethodFetchAlbum))
	assert.Equal(t, 1, src.Calls(remotetest.MethodFetchTracks))
	assert.Equal(t, 1, testutils.Count(t, db, "albums"))
}

// splitKindOfBlue makes the remote report a second copy of album "1" under
// id "10", carrying one more track.
func splitKindOfBlue(src *remotetest.Source) {
	src.Update(func(s *remotetest.Source) {
		s.Albums = append(s.Albums, &models.Album{
			ID: "10", Title: "Kind of Blue", ArtistName: "Miles Davis", Year: pointerutil.Int(1959),
		})
		s.Tracks["10"] = []*models.Track{
			{ID: "103", AlbumID: "10", Title: "Blue in Green", TrackNumber: 3, DiscNumber: 1, Duration: 337000, MediaKey: "/library/parts/103/file.flac"},
		}
	})
}

func TestReadThrough_MergedAlbumIDResolvesToCanonical(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, src, db := newTestLibrary(t)
	splitKindOfBlue(src)

	_, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)
	require.Equal(t, 2, testutils.Count(t, db, "albums"))
	src.ResetCalls()

	tracks, err := svc.TracksForAlbum(ctx, "10")
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	for _, tr := range tracks {
		assert.Equal(t, "1", tr.AlbumID)
	}

	album, err := svc.Album(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, "1", album.ID)

	assert.Zero(t, src.TotalCalls())
	assert.Equal(t, 2, testutils.Count(t, db, "albums"))
	canonical, err := svc.Store().FetchTracks(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, canonical, 3)
}

func TestTrack_MissOnMergedAlbumUsesCanonical(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, src, db := newTestLibrary(t)
	splitKindOfBlue(src)

	_, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)
	src.Update(func(s *remotetest.Source) {
		s.Tracks["10"] = append(s.Tracks["10"], &models.Track{
			ID: "104", AlbumID: "10", Title: "All Blues", TrackNumber: 4, DiscNumber: 1, MediaKey: "/library/parts/104/file.flac",
		})
	})

	track, err := svc.Track(ctx, "104")
	require.NoError(t, err)
	assert.Equal(t, "1", track.AlbumID)
	assert.Equal(t, 2, testutils.Count(t, db, "albums"))

	album, err := svc.Store().FetchAlbum(ctx, "10")
	require.NoError(t, err)
	assert.Nil(t, album)
}

func TestTracksForAlbum_MissThroughAliasFetchesEveryMember(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, src, db := newTestLibrary(t)
	splitKindOfBlue(src)

	run, err := svc.Store().BeginIncrementalSync(ctx, time.Now(), models.RefreshReasonBackground)
	require.NoError(t, err)
	require.NoError(t, svc.Store().ReplaceAlbumAliases(ctx, map[string]string{"10": "1"}, run))

	tracks, err := svc.TracksForAlbum(ctx, "10")
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, []string{"101", "102", "103"}, []string{tracks[0].ID, tracks[1].ID, tracks[2].ID})
	for _, tr := range tracks {
		assert.Equal(t, "1", tr.AlbumID)
	}
	assert.Equal(t, 1, src.Calls(remotetest.MethodFetchAlbum))
	assert.Equal(t, 2, src.Calls(remotetest.MethodFetchTracks))
	assert.Equal(t, 1, testutils.Count(t, db, "albums"))
}

func TestStreamURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestLibrary(t)

	_, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)

	url, err := svc.StreamURL(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "http://remote.test/library/parts/101/file.flac", url)
}
