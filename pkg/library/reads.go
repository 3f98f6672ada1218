package library

import (
	"context"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/query"
	"github.com/cadenzamusic/cadenza/pkg/store"
)

// The reads below serve only from the store. Lists come back empty rather
// than nil, and single lookups report errcodes.NotFound.

func (svc *Service) Albums(ctx context.Context, page store.Page) ([]*models.Album, error) {
	return svc.store.FetchAlbums(ctx, page)
}

func (svc *Service) Artists(ctx context.Context) ([]*models.Artist, error) {
	return svc.store.FetchArtists(ctx)
}

func (svc *Service) Artist(ctx context.Context, id string) (*models.Artist, error) {
	artist, err := svc.store.FetchArtist(ctx, id)
	if err != nil {
		return nil, err
	}
	if artist == nil {
		return nil, errcodes.NotFound("Artist", id)
	}
	return artist, nil
}

// ArtistAlbums returns the albums of the artist with the given id, matched by
// name so albums credited on the album row itself are included.
func (svc *Service) ArtistAlbums(ctx context.Context, id string) ([]*models.Album, error) {
	artist, err := svc.Artist(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.store.FetchArtistAlbums(ctx, artist.Name)
}

func (svc *Service) Collections(ctx context.Context) ([]*models.Collection, error) {
	return svc.store.FetchCollections(ctx)
}

func (svc *Service) Collection(ctx context.Context, id string) (*models.Collection, error) {
	collection, err := svc.store.FetchCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		return nil, errcodes.NotFound("Collection", id)
	}
	return collection, nil
}

func (svc *Service) CollectionAlbums(ctx context.Context, id string) ([]*models.Album, error) {
	return svc.store.FetchCollectionAlbums(ctx, id)
}

func (svc *Service) Playlists(ctx context.Context) ([]*models.Playlist, error) {
	return svc.store.FetchPlaylists(ctx)
}

func (svc *Service) PlaylistItems(ctx context.Context, playlistID string) ([]*models.PlaylistItem, error) {
	return svc.store.FetchPlaylistItems(ctx, playlistID)
}

func (svc *Service) SearchAlbums(ctx context.Context, q string) ([]*models.Album, error) {
	return svc.store.SearchAlbums(ctx, q)
}

func (svc *Service) SearchArtists(ctx context.Context, q string) ([]*models.Artist, error) {
	return svc.store.SearchArtists(ctx, q)
}

func (svc *Service) SearchCollections(ctx context.Context, q string) ([]*models.Collection, error) {
	return svc.store.SearchCollections(ctx, q)
}

// SearchResults omits the groups a typed search did not ask for.
type SearchResults struct {
	Albums      []*models.Album      `json:"albums,omitempty"`
	Artists     []*models.Artist     `json:"artists,omitempty"`
	Collections []*models.Collection `json:"collections,omitempty"`
}

// Search runs the search for searchType, one of the SearchType constants.
func (svc *Service) Search(ctx context.Context, q, searchType string) (*SearchResults, error) {
	results := &SearchResults{}
	var err error
	if searchType == SearchTypeAll || searchType == SearchTypeAlbums {
		if results.Albums, err = svc.SearchAlbums(ctx, q); err != nil {
			return nil, err
		}
	}
	if searchType == SearchTypeAll || searchType == SearchTypeArtists {
		if results.Artists, err = svc.SearchArtists(ctx, q); err != nil {
			return nil, err
		}
	}
	if searchType == SearchTypeAll || searchType == SearchTypeCollections {
		if results.Collections, err = svc.SearchCollections(ctx, q); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (svc *Service) QueryAlbums(ctx context.Context, filter query.AlbumFilter) ([]*models.Album, error) {
	return svc.store.QueryAlbums(ctx, filter)
}

// CountAlbums reports how many albums match filter, ignoring its window.
func (svc *Service) CountAlbums(ctx context.Context, filter query.AlbumFilter) (int, error) {
	return query.NewPlanner(svc.store.DB()).Count(ctx, filter)
}

func (svc *Service) AvailableTags(ctx context.Context, kind string) ([]*models.Tag, error) {
	return svc.store.AvailableTags(ctx, kind)
}

func (svc *Service) AlbumsByTag(ctx context.Context, kind, value string) ([]*models.Album, error) {
	return svc.store.AlbumsByTag(ctx, kind, value)
}

// LastRefreshDate returns nil before the first completed refresh.
func (svc *Service) LastRefreshDate(ctx context.Context) (*time.Time, error) {
	return svc.store.LastRefreshDate(ctx)
}

// SyncRuns returns up to limit runs, newest first.
func (svc *Service) SyncRuns(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	return svc.store.ListSyncRuns(ctx, limit)
}

// StreamURL returns a playable URL for the track. The URL carries remote
// credentials, so it is computed on every call and never stored.
func (svc *Service) StreamURL(ctx context.Context, trackID string) (string, error) {
	track, err := svc.Track(ctx, trackID)
	if err != nil {
		return "", err
	}
	return svc.remote.StreamURL(track)
}
