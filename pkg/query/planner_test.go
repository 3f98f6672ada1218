package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/query"
	"github.com/cadenzamusic/cadenza/pkg/store"
	"github.com/cadenzamusic/cadenza/pkg/testutils"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func seed(t *testing.T) bun.IDB {
	t.Helper()
	ctx := context.Background()
	db := testutils.NewTestDB(t)
	svc := store.NewService(db)

	albums := []*models.Album{
		{
			ID: "1", Title: "Kind of Blue", ArtistName: "Miles Davis", Year: pointerutil.Int(1959),
			Genres: []string{"Jazz"}, Styles: []string{"Modal", "Cool Jazz"}, Moods: []string{"Relaxed"},
			ArtistIDs: []string{"miles", "coltrane"}, CollectionIDs: []string{"classics"},
		},
		{
			ID: "2", Title: "Bitches Brew", ArtistName: "Miles Davis", Year: pointerutil.Int(1970),
			Genres: []string{"Jazz", "Rock"}, Styles: []string{"Fusion"},
			ArtistIDs: []string{"miles"},
		},
		{
			ID: "3", Title: "A Love Supreme", ArtistName: "John Coltrane", Year: pointerutil.Int(1965),
			Genres: []string{"JAZZ"}, Styles: []string{"Modal"}, Moods: []string{"Spiritual"},
			ArtistIDs: []string{"coltrane"}, CollectionIDs: []string{"classics", "favorites"},
		},
		{
			ID: "4", Title: "Untitled", ArtistName: "Unknown", Year: nil,
			Genres: []string{"Jazz"},
		},
		{
			ID: "5", Title: "Café Música", ArtistName: "Orquesta", Year: pointerutil.Int(2001),
			Genres: []string{"Latin"},
		},
	}
	run, err := svc.BeginIncrementalSync(ctx, time.Now(), models.RefreshReasonUserInitiated)
	require.NoError(t, err)
	require.NoError(t, svc.UpsertAlbums(ctx, albums, run))
	return db
}

func albumIDs(albums []*models.Album) []string {
	ids := make([]string, 0, len(albums))
	for _, a := range albums {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestPlanner_Albums(t *testing.T) {
	t.Parallel()
	db := seed(t)
	planner := query.NewPlanner(db)

	tests := []struct {
		name   string
		filter query.AlbumFilter
		want   []string
	}{
		{"empty filter returns everything", query.AlbumFilter{}, []string{"3", "2", "1", "5", "4"}},
		{"genre match ignores case", query.AlbumFilter{GenreTags: []string{"jazz"}}, []string{"3", "2", "1", "4"}},
		{"every genre must be present", query.AlbumFilter{GenreTags: []string{"Jazz", "Rock"}}, []string{"2"}},
		{"duplicate tags count once", query.AlbumFilter{GenreTags: []string{"Jazz", "JAZZ", " jazz"}}, []string{"3", "2", "1", "4"}},
		{"unknown tag matches nothing", query.AlbumFilter{GenreTags: []string{"Polka"}}, []string{}},
		{"styles across kinds are ANDed", query.AlbumFilter{GenreTags: []string{"Jazz"}, StyleTags: []string{"Modal"}}, []string{"3", "1"}},
		{"mood", query.AlbumFilter{MoodTags: []string{"spiritual"}}, []string{"3"}},
		{"tag kinds are separate", query.AlbumFilter{StyleTags: []string{"Jazz"}}, []string{}},
		{"every artist must be linked", query.AlbumFilter{ArtistIDs: []string{"miles", "coltrane"}}, []string{"1"}},
		{"single artist", query.AlbumFilter{ArtistIDs: []string{"coltrane"}}, []string{"3", "1"}},
		{"every collection must be linked", query.AlbumFilter{CollectionIDs: []string{"classics", "favorites"}}, []string{"3"}},
		{"year range is inclusive", query.AlbumFilter{YearRange: &query.YearRange{Min: pointerutil.Int(1959), Max: pointerutil.Int(1965)}}, []string{"3", "1"}},
		{"open lower bound excludes missing years", query.AlbumFilter{YearRange: &query.YearRange{Max: pointerutil.Int(3000)}}, []string{"3", "2", "1", "5"}},
		{"empty year range is ignored", query.AlbumFilter{YearRange: &query.YearRange{}}, []string{"3", "2", "1", "5", "4"}},
		{"text matches title without accents", query.AlbumFilter{TextQuery: "cafe musica"}, []string{"5"}},
		{"text matches artist", query.AlbumFilter{TextQuery: "MILES"}, []string{"2", "1"}},
		{"everything combined", query.AlbumFilter{
			GenreTags:     []string{"jazz"},
			StyleTags:     []string{"modal"},
			ArtistIDs:     []string{"coltrane"},
			CollectionIDs: []string{"classics"},
			YearRange:     &query.YearRange{Min: pointerutil.Int(1960)},
			TextQuery:     "love",
		}, []string{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			albums, err := planner.Albums(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, albumIDs(albums))

			n, err := planner.Count(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), n)
		})
	}
}

func TestPlanner_Paging(t *testing.T) {
	t.Parallel()
	db := seed(t)
	planner := query.NewPlanner(db)
	ctx := context.Background()

	page, err := planner.Albums(ctx, query.AlbumFilter{GenreTags: []string{"jazz"}, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2"}, albumIDs(page))

	page, err = planner.Albums(ctx, query.AlbumFilter{GenreTags: []string{"jazz"}, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "4"}, albumIDs(page))

	page, err = planner.Albums(ctx, query.AlbumFilter{GenreTags: []string{"jazz"}, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, albumIDs(page))

	n, err := planner.Count(ctx, query.AlbumFilter{GenreTags: []string{"jazz"}, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestPlanner_TieBreakOnID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewTestDB(t)
	svc := store.NewService(db)
	require.NoError(t, svc.UpsertAlbums(ctx, []*models.Album{
		{ID: "b", Title: "Greatest Hits", ArtistName: "Queen"},
		{ID: "c", Title: "Greatest Hits", ArtistName: "Queen"},
		{ID: "a", Title: "Greatest Hits", ArtistName: "QUEEN"},
	}, nil))

	for i := 0; i < 3; i++ {
		albums, err := query.NewPlanner(db).Albums(ctx, query.AlbumFilter{TextQuery: "greatest"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, albumIDs(albums))
	}
}

func TestPlanner_TieBreakMatchesStoreOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewTestDB(t)
	svc := store.NewService(db)
	require.NoError(t, svc.UpsertAlbums(ctx, []*models.Album{
		{ID: "100", Title: "Live", ArtistName: "Queen"},
		{ID: "10", Title: "Live", ArtistName: "Queen"},
		{ID: "9", Title: "Live", ArtistName: "Queen"},
	}, nil))
	want := []string{"9", "10", "100"}

	planned, err := query.NewPlanner(db).Albums(ctx, query.AlbumFilter{TextQuery: "live"})
	require.NoError(t, err)
	assert.Equal(t, want, albumIDs(planned))

	listed, err := svc.FetchAlbums(ctx, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, want, albumIDs(listed))

	byID, err := svc.FetchAlbumsByID(ctx, []string{"100", "9", "10"})
	require.NoError(t, err)
	assert.Equal(t, want, albumIDs(byID))
}

func TestAlbumFilter_IsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, query.AlbumFilter{}.IsEmpty())
	assert.True(t, query.AlbumFilter{TextQuery: "   ", Limit: 10}.IsEmpty())
	assert.True(t, query.AlbumFilter{YearRange: &query.YearRange{}}.IsEmpty())
	assert.False(t, query.AlbumFilter{GenreTags: []string{"jazz"}}.IsEmpty())
	assert.False(t, query.AlbumFilter{YearRange: &query.YearRange{Min: pointerutil.Int(1990)}}.IsEmpty())
}
