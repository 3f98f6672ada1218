// Package remote defines what the library needs from the media server that
// owns the catalog.
package remote

import (
	"context"

	"github.com/cadenzamusic/cadenza/pkg/models"
)

// Source is the remote media server. Implementations report failures as
// errcodes errors: RemoteUnreachable, AuthenticationExpired, NotFound,
// MalformedResponse or Timeout.
//
// Albums come back with their tags, artist ids and collection ids filled in.
// Playlist items come back in playlist order with Position set.
type Source interface {
	FetchAlbums(ctx context.Context) ([]*models.Album, error)
	FetchAlbum(ctx context.Context, id string) (*models.Album, error)
	FetchTracks(ctx context.Context, albumID string) ([]*models.Track, error)
	FetchTrack(ctx context.Context, id string) (*models.Track, error)
	FetchArtists(ctx context.Context) ([]*models.Artist, error)
	FetchCollections(ctx context.Context) ([]*models.Collection, error)
	FetchPlaylists(ctx context.Context) ([]*models.Playlist, error)
	FetchPlaylistItems(ctx context.Context, playlistID string) ([]*models.PlaylistItem, error)

	// StreamURL returns a playable URL for track. It is computed locally and
	// never cached.
	StreamURL(track *models.Track) (string, error)
	// ResolveArtworkURL turns an artwork path as stored on an album, artist,
	// collection or playlist into a fetchable URL.
	ResolveArtworkURL(rawPath string) (string, error)
}
