package plex

import (
	"strconv"
	"strings"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/htmlutil"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/normalize"
)

func tagValues(tags []tag) []string {
	values := make([]string, 0, len(tags))
	for _, t := range tags {
		if v := strings.TrimSpace(t.Tag); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// toAlbum converts an album directory. collectionIDs maps normalized
// collection titles to collection ids, since albums only name their
// collections.
func toAlbum(d directory, collectionIDs map[string]string) *models.Album {
	album := &models.Album{
		ID:            d.RatingKey,
		GUID:          d.GUID,
		Title:         d.Title,
		ArtistName:    d.ParentTitle,
		TitleSort:     d.TitleSort,
		OriginalTitle: d.OriginalTitle,
		EditionTitle:  d.EditionTitle,
		Studio:        d.Studio,
		Summary:       htmlutil.StripTags(d.Summary),
		Thumb:         d.Thumb,
		Art:           d.Art,
		TrackCount:    d.LeafCount,
		Duration:      d.Duration,
		Genres:        tagValues(d.Genres),
		Styles:        tagValues(d.Styles),
		Moods:         tagValues(d.Moods),
		ArtistIDs:     []string{},
		CollectionIDs: []string{},
	}
	if d.Year > 0 {
		year := d.Year
		album.Year = &year
	}
	if len(album.Genres) > 0 {
		album.Genre = album.Genres[0]
	}
	if r, err := strconv.ParseFloat(d.Rating, 64); err == nil {
		album.Rating = &r
	}
	if d.AddedAt > 0 {
		added := time.Unix(d.AddedAt, 0).UTC()
		album.AddedAt = &added
	}
	if d.ParentRatingKey != "" {
		album.ArtistIDs = append(album.ArtistIDs, d.ParentRatingKey)
	}
	for _, c := range d.Collections {
		if id, ok := collectionIDs[normalize.Normalize(c.Tag)]; ok {
			album.CollectionIDs = append(album.CollectionIDs, id)
		}
	}
	return album
}

func toTrack(t track) *models.Track {
	tr := &models.Track{
		ID:              t.RatingKey,
		AlbumID:         t.ParentRatingKey,
		Title:           t.Title,
		TrackNumber:     t.Index,
		DiscNumber:      t.ParentIndex,
		Duration:        t.Duration,
		ArtistName:      t.OriginalTitle,
		Thumb:           t.Thumb,
		AlbumTitle:      t.ParentTitle,
		AlbumArtistName: t.GrandparentTitle,
		AlbumThumb:      t.ParentThumb,
	}
	if tr.ArtistName == "" {
		tr.ArtistName = t.GrandparentTitle
	}
	if tr.DiscNumber == 0 {
		tr.DiscNumber = 1
	}
	if t.ParentYear > 0 {
		year := t.ParentYear
		tr.AlbumYear = &year
	}
	for _, m := range t.Media {
		if len(m.Parts) > 0 && m.Parts[0].Key != "" {
			tr.MediaKey = m.Parts[0].Key
			break
		}
	}
	return tr
}

func toArtist(d directory) *models.Artist {
	return &models.Artist{
		ID:         d.RatingKey,
		Name:       d.Title,
		SortName:   d.TitleSort,
		AlbumCount: d.ChildCount,
		Summary:    htmlutil.StripTags(d.Summary),
		Thumb:      d.Thumb,
	}
}

func toCollection(d directory) *models.Collection {
	return &models.Collection{
		ID:         d.RatingKey,
		Title:      d.Title,
		AlbumCount: d.ChildCount,
		Summary:    htmlutil.StripTags(d.Summary),
		Thumb:      d.Thumb,
	}
}

func toPlaylist(p playlist) *models.Playlist {
	thumb := p.Thumb
	if thumb == "" {
		thumb = p.Composite
	}
	return &models.Playlist{
		ID:         p.RatingKey,
		Title:      p.Title,
		TrackCount: p.LeafCount,
		Duration:   p.Duration,
		Summary:    htmlutil.StripTags(p.Summary),
		Thumb:      thumb,
	}
}
