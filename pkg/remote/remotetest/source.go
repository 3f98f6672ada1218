// Package remotetest provides an in-memory remote.Source for tests.
package remotetest

import (
	"context"
	"sync"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
)

const (
	MethodFetchAlbums        = "FetchAlbums"
	MethodFetchAlbum         = "FetchAlbum"
	MethodFetchTracks        = "FetchTracks"
	MethodFetchTrack         = "FetchTrack"
	MethodFetchArtists       = "FetchArtists"
	MethodFetchCollections   = "FetchCollections"
	MethodFetchPlaylists     = "FetchPlaylists"
	MethodFetchPlaylistItems = "FetchPlaylistItems"
)

// Source serves a fixed library. Every value it returns is a copy, so callers
// may mutate results freely. Set Err to fail every fetch, or Errs to fail a
// single method.
type Source struct {
	mu sync.Mutex

	Albums        []*models.Album
	Tracks        map[string][]*models.Track
	Artists       []*models.Artist
	Collections   []*models.Collection
	Playlists     []*models.Playlist
	PlaylistItems map[string][]*models.PlaylistItem

	// ArtworkBase prefixes artwork paths; it defaults to http://remote.test.
	ArtworkBase string

	Err  error
	Errs map[string]error

	calls map[string]int
}

func New() *Source {
	return &Source{
		Tracks:        map[string][]*models.Track{},
		PlaylistItems: map[string][]*models.PlaylistItem{},
		Errs:          map[string]error{},
		calls:         map[string]int{},
	}
}

// Calls returns how many times method was invoked.
func (s *Source) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// TotalCalls returns the number of fetches of any kind.
func (s *Source) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *Source) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = map[string]int{}
}

// Update runs fn with the fixture locked, for tests that change the remote
// library between refreshes.
func (s *Source) Update(fn func(s *Source)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *Source) begin(method string) error {
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[method]++
	if err := s.Errs[method]; err != nil {
		return err
	}
	return s.Err
}

func (s *Source) FetchAlbums(_ context.Context) ([]*models.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(MethodFetchAlbums); err != nil {
		return nil, err
	}
	out := make([]*models.Album, 0, len(s.Albums))
	for _, a := range s.Albums {
		out = append(out, copyAlbum(a))
	}
	return out, nil
}

func (s *Source) FetchAlbum(_ context.Context, id string) (*models.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(MethodFetchAlbum); err != nil {
		return nil, err
	}
	for _, a := range s.Albums {
		if a.ID == id {
			return copyAlbum(a), nil
		}
	}
	return nil, errcodes.NotFound("Album", id)
}

func (s *Source) FetchTracks(_ context.Context, albumID string) ([]*models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(MethodFetchTracks); err != nil {
		return nil, err
	}
	out := []*models.Track{}
	for _, t := range s.Tracks[albumID] {
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

func (s *Source) FetchTrack(_ context.Context, id string) (*models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(MethodFetchTrack); err != nil {
		return nil, err
	}
	for _, tracks := range s.Tracks {
		for _, t := range tracks {
			if t.ID == id {
				c := *t
				return &c, nil
			}
		}
	}
	return nil, errcodes.NotFound("Track", id)
}

func (s *Source) FetchArtists(_ context.Context) ([]*models.Artist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(MethodFetchArtists); err != nil {
		return nil, err
	}
	out := make([]*models.Artist, 0, len(s.Artists))
	for _, a := range s.Artists {
		c := *a
		out = append(out, &c)
	}
	return out, nil
}

func (s *Source) FetchCollections(_ context.Context) ([]*models.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(MethodFetchCollections); err != nil {
		return nil, err
	}
	out := make([]*models.Collection, 0, len(s.Collections))
	for _, co := range s.Collections {
		c := *co
		out = append(out, &c)
	}
	return out, nil
}

func (s *Source) FetchPlaylists(_ context.Context) ([]*models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(MethodFetchPlaylists); err != nil {
		return nil, err
	}
	out := make([]*models.Playlist, 0, len(s.Playlists))
	for _, p := range s.Playlists {
		c := *p
		out = append(out, &c)
	}
	return out, nil
}

func (s *Source) FetchPlaylistItems(_ context.Context, playlistID string) ([]*models.PlaylistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(MethodFetchPlaylistItems); err != nil {
		return nil, err
	}
	out := []*models.PlaylistItem{}
	for i, it := range s.PlaylistItems[playlistID] {
		out = append(out, &models.PlaylistItem{PlaylistID: playlistID, Position: i, TrackID: it.TrackID})
	}
	return out, nil
}

func (s *Source) StreamURL(track *models.Track) (string, error) {
	return "http://remote.test" + track.MediaKey, nil
}

func (s *Source) ResolveArtworkURL(rawPath string) (string, error) {
	if s.ArtworkBase != "" {
		return s.ArtworkBase + rawPath, nil
	}
	return "http://remote.test" + rawPath, nil
}

func copyAlbum(a *models.Album) *models.Album {
	c := *a
	c.Genres = append([]string(nil), a.Genres...)
	c.Styles = append([]string(nil), a.Styles...)
	c.Moods = append([]string(nil), a.Moods...)
	c.ArtistIDs = append([]string(nil), a.ArtistIDs...)
	c.CollectionIDs = append([]string(nil), a.CollectionIDs...)
	return &c
}
