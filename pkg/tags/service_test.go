package tags

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/cadenzamusic/cadenza/pkg/binder"
	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/store"
	"github.com/cadenzamusic/cadenza/pkg/testutils"
	"github.com/labstack/echo/v4"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestService(t *testing.T) (*Service, *bun.DB) {
	t.Helper()
	db := testutils.NewTestDB(t)
	st := store.NewService(db)
	err := st.UpsertAlbums(context.Background(), []*models.Album{
		{ID: "1", Title: "Kind of Blue", ArtistName: "Miles Davis", Genres: []string{"Jazz"}, Styles: []string{"Modal", "Cool Jazz"}},
		{ID: "2", Title: "Head Hunters", ArtistName: "Herbie Hancock", Genres: []string{"jazz", "Funk"}, Moods: []string{"Groovy"}},
	}, nil)
	require.NoError(t, err)
	return NewService(db), db
}

func tagID(t *testing.T, svc *Service, kind, value string) int64 {
	t.Helper()
	tags, err := svc.ListTags(context.Background(), ListTagsOptions{Kind: &kind, Search: &value})
	require.NoError(t, err)
	require.NotEmpty(t, tags)
	return tags[0].ID
}

func TestListTags(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	tags, total, err := svc.ListTagsWithTotal(ctx, ListTagsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	values := []string{}
	for _, tag := range tags {
		values = append(values, tag.Kind+":"+tag.Value)
	}
	assert.Equal(t, []string{"genre:Funk", "genre:Jazz", "mood:Groovy", "style:Cool Jazz", "style:Modal"}, values)
	assert.Equal(t, 2, tags[1].AlbumCount)

	kind := models.TagKindStyle
	search := "JAZZ"
	tags, err = svc.ListTags(ctx, ListTagsOptions{Kind: &kind, Search: &search})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Cool Jazz", tags[0].Value)

	tags, total, err = svc.ListTagsWithTotal(ctx, ListTagsOptions{Limit: pointerutil.Int(2), Offset: pointerutil.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, tags, 2)
	assert.Equal(t, "Groovy", tags[0].Value)
}

func TestRetrieveTagAndAlbums(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	id := tagID(t, svc, models.TagKindGenre, "jazz")
	tag, err := svc.RetrieveTag(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jazz", tag.Value)
	assert.Equal(t, 2, tag.AlbumCount)

	albums, err := svc.Albums(ctx, id)
	require.NoError(t, err)
	require.Len(t, albums, 2)
	assert.Equal(t, "2", albums[0].ID)

	_, err = svc.RetrieveTag(ctx, 9999)
	assert.ErrorIs(t, err, errcodes.ErrNotFound)
}

func TestCleanupOrphanedTags(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	ctx := context.Background()

	err := store.NewService(db).UpsertAlbums(ctx, []*models.Album{
		{ID: "2", Title: "Head Hunters", ArtistName: "Herbie Hancock", Genres: []string{"Jazz"}},
	}, nil)
	require.NoError(t, err)

	jazz := tagID(t, svc, models.TagKindGenre, "jazz")
	n, err := svc.CleanupOrphanedTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, testutils.Count(t, db, "tags"))
	assert.Equal(t, jazz, tagID(t, svc, models.TagKindGenre, "jazz"))
}

func newTestEcho(t *testing.T, db *bun.DB) *echo.Echo {
	t.Helper()
	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutesWithGroup(e.Group("/tags"), db)
	return e
}

func TestHandlers(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	e := newTestEcho(t, db)

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tags?kind=genre", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	resp := struct {
		Tags  []*models.Tag `json:"tags"`
		Total int           `json:"total"`
	}{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)

	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tags?kind=decade", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	id := tagID(t, svc, models.TagKindMood, "groovy")
	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tags/"+itoa(id)+"/albums", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	albums := []*models.Album{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &albums))
	require.Len(t, albums, 1)
	assert.Equal(t, "Head Hunters", albums[0].Title)

	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tags/abc", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
