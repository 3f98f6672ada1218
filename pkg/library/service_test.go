package library

import (
	"context"
	"sync"
	"testing"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/remote/remotetest"
	"github.com/cadenzamusic/cadenza/pkg/store"
	"github.com/cadenzamusic/cadenza/pkg/testutils"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingInvalidator) InvalidateCache(_ context.Context, ownerID, ownerType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ownerType+":"+ownerID)
	return nil
}

func newTestLibrary(t *testing.T) (*Service, *remotetest.Source, *bun.DB) {
	t.Helper()
	db := testutils.NewTestDB(t)
	src := remotetest.New()
	seedRemote(src)
	return NewService(store.NewService(db), src, nil), src, db
}

func seedRemote(src *remotetest.Source) {
	src.Albums = []*models.Album{
		{
			ID: "1", Title: "Kind of Blue", ArtistName: "Miles Davis", Year: pointerutil.Int(1959),
			Thumb: "/library/metadata/1/thumb/100", Genres: []string{"Jazz"}, Styles: []string{"Modal"},
			ArtistIDs: []string{"50"}, CollectionIDs: []string{"70"},
		},
		{
			ID: "2", Title: "Blue Train", ArtistName: "John Coltrane", Year: pointerutil.Int(1957),
			Genres: []string{"Jazz"}, Moods: []string{"Swinging"}, ArtistIDs: []string{"51"},
		},
	}
	src.Tracks = map[string][]*models.Track{
		"1": {
			{ID: "101", Title: "So What", TrackNumber: 1, DiscNumber: 1, Duration: 562000, ArtistName: "Miles Davis", MediaKey: "/library/parts/101/file.flac"},
			{ID: "102", Title: "Freddie Freeloader", TrackNumber: 2, DiscNumber: 1, Duration: 586000, ArtistName: "Miles Davis", MediaKey: "/library/parts/102/file.flac"},
		},
		"2": {
			{ID: "201", Title: "Blue Train", TrackNumber: 1, DiscNumber: 1, Duration: 643000, ArtistName: "John Coltrane", MediaKey: "/library/parts/201/file.flac"},
		},
	}
	src.Artists = []*models.Artist{
		{ID: "50", Name: "Miles Davis"},
		{ID: "51", Name: "John Coltrane"},
	}
	src.Collections = []*models.Collection{
		{ID: "70", Title: "Essentials"},
	}
	src.Playlists = []*models.Playlist{
		{ID: "90", Title: "Late Night"},
	}
	src.PlaylistItems = map[string][]*models.PlaylistItem{
		"90": {{TrackID: "101"}, {TrackID: "201"}, {TrackID: "101"}},
	}
}

func TestRefreshLibrary_Bootstrap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, db := newTestLibrary(t)

	outcome, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)

	assert.True(t, outcome.Bootstrap)
	assert.Equal(t, models.RefreshReasonAppLaunch, outcome.Reason)
	assert.NotEmpty(t, outcome.RunID)
	assert.Equal(t, 2, outcome.Albums)
	assert.Equal(t, 3, outcome.Tracks)
	assert.Equal(t, ChangeCounts{New: 2}, outcome.Accounting.Albums)
	assert.Equal(t, ChangeCounts{New: 3}, outcome.Accounting.Tracks)

	assert.Equal(t, 2, testutils.Count(t, db, "albums"))
	assert.Equal(t, 3, testutils.Count(t, db, "tracks"))
	assert.Equal(t, 2, testutils.Count(t, db, "artists"))
	assert.Equal(t, 1, testutils.Count(t, db, "collections"))
	assert.Equal(t, 3, testutils.Count(t, db, "playlist_items"))

	album, err := svc.Album(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, album.TrackCount)
	assert.Equal(t, int64(562000+586000), album.Duration)
	assert.Equal(t, []string{"50"}, album.ArtistIDs)

	last, err := svc.LastRefreshDate(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)

	cp, err := svc.Store().SyncCheckpoint(ctx, CheckpointKey("albums", "new"))
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "2", cp.Value)
}

func TestRefreshLibrary_ReplayIsUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, db := newTestLibrary(t)

	_, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)

	outcome, err := svc.RefreshLibrary(ctx, models.RefreshReasonBackground)
	require.NoError(t, err)

	assert.False(t, outcome.Bootstrap)
	assert.Equal(t, ChangeCounts{Unchanged: 2}, outcome.Accounting.Albums)
	assert.Equal(t, ChangeCounts{Unchanged: 3}, outcome.Accounting.Tracks)
	assert.Equal(t, 2, testutils.Count(t, db, "albums"))
	assert.Equal(t, 3, testutils.Count(t, db, "tracks"))
	assert.Equal(t, 3, testutils.Count(t, db, "playlist_items"))
	assert.Equal(t, 4, testutils.Count(t, db, "album_tags"))
}

func TestRefreshLibrary_AppliesChangesAndPrunes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, src, db := newTestLibrary(t)

	_, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)

	src.Update(func(s *remotetest.Source) {
		s.Albums[0].Title = "Kind of Blue (Legacy Edition)"
		s.Albums[1] = &models.Album{ID: "3", Title: "Mingus Ah Um", ArtistName: "Charles Mingus", Year: pointerutil.Int(1959)}
		delete(s.Tracks, "2")
		s.Tracks["3"] = []*models.Track{
			{ID: "301", Title: "Better Git It in Your Soul", TrackNumber: 1, DiscNumber: 1, Duration: 440000, MediaKey: "/library/parts/301/file.flac"},
		}
		s.Artists = s.Artists[:1]
	})

	outcome, err := svc.RefreshLibrary(ctx, models.RefreshReasonUserInitiated)
	require.NoError(t, err)

	assert.Equal(t, ChangeCounts{New: 1, Changed: 1, Deleted: 1}, outcome.Accounting.Albums)
	assert.Equal(t, ChangeCounts{New: 1, Unchanged: 2, Deleted: 1}, outcome.Accounting.Tracks)

	albums, err := svc.Albums(ctx, store.Page{})
	require.NoError(t, err)
	ids := []string{}
	for _, a := range albums {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{"1", "3"}, ids)

	album, err := svc.Store().FetchAlbum(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Kind of Blue (Legacy Edition)", album.Title)

	track, err := svc.Store().FetchTrack(ctx, "201")
	require.NoError(t, err)
	assert.Nil(t, track)
	assert.Equal(t, 1, testutils.Count(t, db, "artists"))

	items, err := svc.PlaylistItems(ctx, "90")
	require.NoError(t, err)
	for _, it := range items {
		assert.NotEqual(t, "201", it.TrackID)
	}
	assert.Len(t, items, 2)
}

func TestRefreshLibrary_RemoteFailureChangesNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, src, db := newTestLibrary(t)

	_, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)
	runs := testutils.Count(t, db, "sync_runs")

	src.Update(func(s *remotetest.Source) {
		s.Albums = s.Albums[:1]
		s.Errs[remotetest.MethodFetchTracks] = errcodes.Timeout()
	})

	_, err = svc.RefreshLibrary(ctx, models.RefreshReasonBackground)
	assert.ErrorIs(t, err, errcodes.ErrTimeout)

	assert.Equal(t, runs, testutils.Count(t, db, "sync_runs"))
	assert.Equal(t, 2, testutils.Count(t, db, "albums"))
	assert.Equal(t, 3, testutils.Count(t, db, "tracks"))
}

func TestRefreshLibrary_ReturnsAuthenticationErrorsAsIs(t *testing.T) {
	t.Parallel()
	svc, src, _ := newTestLibrary(t)
	src.Err = errcodes.AuthenticationExpired()

	_, err := svc.RefreshLibrary(context.Background(), models.RefreshReasonAppLaunch)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeAuthenticationExpired))

	last, err := svc.LastRefreshDate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRefreshLibrary_RejectsConcurrentRefresh(t *testing.T) {
	t.Parallel()
	svc, src, _ := newTestLibrary(t)

	svc.refreshing.Lock()
	_, err := svc.RefreshLibrary(context.Background(), models.RefreshReasonUserInitiated)
	svc.refreshing.Unlock()

	assert.ErrorIs(t, err, errcodes.ErrOperationFailed)
	assert.Zero(t, src.TotalCalls())

	_, err = svc.RefreshLibrary(context.Background(), models.RefreshReasonUserInitiated)
	assert.NoError(t, err)
}

func TestRefreshLibrary_SurvivesCancelledContext(t *testing.T) {
	t.Parallel()
	svc, _, db := newTestLibrary(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)
	assert.Equal(t, 2, testutils.Count(t, db, "albums"))
}

func TestRefreshLibrary_MergesSplitAlbums(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, src, db := newTestLibrary(t)

	src.Update(func(s *remotetest.Source) {
		s.Albums = append(s.Albums, &models.Album{
			ID: "10", Title: "kind of blue", ArtistName: "MILES DAVIS", Year: pointerutil.Int(1959),
			Genres: []string{"Cool Jazz"},
		})
		s.Tracks["10"] = []*models.Track{
			{ID: "103", Title: "Blue in Green", TrackNumber: 3, DiscNumber: 1, Duration: 337000, MediaKey: "/library/parts/103/file.flac"},
		}
	})

	outcome, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"10": "1"}, outcome.Merged)
	assert.Equal(t, 2, testutils.Count(t, db, "albums"))

	tracks, err := svc.TracksForAlbum(ctx, "1")
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, "103", tracks[2].ID)

	album, err := svc.Album(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 3, album.TrackCount)
	assert.ElementsMatch(t, []string{"Jazz", "Cool Jazz"}, album.Genres)

	outcome, err = svc.RefreshLibrary(ctx, models.RefreshReasonBackground)
	require.NoError(t, err)
	assert.Equal(t, ChangeCounts{Unchanged: 2}, outcome.Accounting.Albums)
}

func TestRefreshLibrary_ResetReplacesCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, src, _ := newTestLibrary(t)

	_, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)

	src.Update(func(s *remotetest.Source) {
		s.Albums = s.Albums[:1]
		delete(s.Tracks, "2")
	})

	outcome, err := svc.RefreshLibrary(ctx, models.RefreshReasonReset)
	require.NoError(t, err)
	assert.True(t, outcome.Bootstrap)
	assert.Equal(t, ChangeCounts{Unchanged: 1, Deleted: 1}, outcome.Accounting.Albums)

	album, err := svc.Store().FetchAlbum(ctx, "2")
	require.NoError(t, err)
	assert.Nil(t, album)
}

func TestRefreshLibrary_InvalidatesArtwork(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewTestDB(t)
	src := remotetest.New()
	seedRemote(src)
	artwork := &recordingInvalidator{}
	svc := NewService(store.NewService(db), src, artwork)

	_, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)
	assert.Empty(t, artwork.calls)

	src.Update(func(s *remotetest.Source) {
		s.Albums[0].Thumb = "/library/metadata/1/thumb/200"
		s.Albums = s.Albums[:1]
		delete(s.Tracks, "2")
	})

	_, err = svc.RefreshLibrary(ctx, models.RefreshReasonBackground)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"album:1", "album:2"}, artwork.calls)
}

func TestRefreshLibrary_ResetInvalidatesEveryPrunedOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewTestDB(t)
	src := remotetest.New()
	seedRemote(src)
	artwork := &recordingInvalidator{}
	svc := NewService(store.NewService(db), src, artwork)

	_, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)

	src.Update(func(s *remotetest.Source) {
		s.Albums = s.Albums[:1]
		delete(s.Tracks, "2")
		s.Artists = s.Artists[:1]
		s.Collections = nil
		s.Playlists = nil
		s.PlaylistItems = map[string][]*models.PlaylistItem{}
	})

	outcome, err := svc.RefreshLibrary(ctx, models.RefreshReasonReset)
	require.NoError(t, err)
	assert.True(t, outcome.Bootstrap)
	assert.ElementsMatch(t, []string{"album:2", "artist:51", "collection:70", "playlist:90"}, artwork.calls)
}

func TestRefreshLibrary_DropsLinksToUnknownRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, src, _ := newTestLibrary(t)

	src.Update(func(s *remotetest.Source) {
		s.Albums[0].ArtistIDs = append(s.Albums[0].ArtistIDs, "999")
	})

	_, err := svc.RefreshLibrary(ctx, models.RefreshReasonAppLaunch)
	require.NoError(t, err)
	outcome, err := svc.RefreshLibrary(ctx, models.RefreshReasonBackground)
	require.NoError(t, err)
	assert.Equal(t, ChangeCounts{Unchanged: 2}, outcome.Accounting.Albums)
}
