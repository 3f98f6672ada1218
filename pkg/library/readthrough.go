package library

import (
	"context"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
)

// Album, Track and TracksForAlbum read through to the remote: a cached row is
// returned without contacting the remote, a miss is fetched, written to the
// store outside any sync run, and returned as stored. The next refresh adopts
// or prunes what was written.
//
// Album ids the last refresh merged away are resolved to the album they were
// merged into before either the store or the remote is asked, so a read never
// brings back a row the merge folded.

func (svc *Service) Album(ctx context.Context, id string) (*models.Album, error) {
	canonical, err := svc.store.ResolveAlbumID(ctx, id)
	if err != nil {
		return nil, err
	}
	album, err := svc.store.FetchAlbum(ctx, canonical)
	if err != nil || album != nil {
		return album, err
	}

	fetched, err := svc.remote.FetchAlbum(ctx, canonical)
	if err != nil {
		return nil, err
	}
	fetched.ID = canonical
	if err := svc.store.UpsertAlbums(ctx, []*models.Album{fetched}, nil); err != nil {
		return nil, err
	}
	stored, err := svc.store.FetchAlbum(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errcodes.NotFound("Album", id)
	}
	return stored, nil
}

func (svc *Service) Track(ctx context.Context, id string) (*models.Track, error) {
	track, err := svc.store.FetchTrack(ctx, id)
	if err != nil || track != nil {
		return track, err
	}

	fetched, err := svc.remote.FetchTrack(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := svc.ensureAlbum(ctx, fetched); err != nil {
		return nil, err
	}
	if err := svc.store.UpsertTracks(ctx, []*models.Track{fetched}, nil); err != nil {
		return nil, err
	}
	stored, err := svc.store.FetchTrack(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errcodes.NotFound("Track", id)
	}
	return stored, nil
}

// TracksForAlbum returns the album's tracks in disc and track order. An album
// with no cached tracks is fetched from the remote, together with the tracks
// of every id merged into it.
func (svc *Service) TracksForAlbum(ctx context.Context, albumID string) ([]*models.Track, error) {
	canonical, err := svc.store.ResolveAlbumID(ctx, albumID)
	if err != nil {
		return nil, err
	}
	tracks, err := svc.store.FetchTracks(ctx, canonical)
	if err != nil || len(tracks) > 0 {
		return tracks, err
	}

	if _, err := svc.Album(ctx, canonical); err != nil {
		return nil, err
	}
	aliases, err := svc.store.AlbumAliases(ctx, canonical)
	if err != nil {
		return nil, err
	}
	var fetched []*models.Track
	seen := map[string]struct{}{}
	for _, id := range append([]string{canonical}, aliases...) {
		part, err := svc.remote.FetchTracks(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, t := range part {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			t.AlbumID = canonical
			fetched = append(fetched, t)
		}
	}
	if err := svc.store.UpsertTracks(ctx, fetched, nil); err != nil {
		return nil, err
	}
	return svc.store.FetchTracks(ctx, canonical)
}

// ensureAlbum points the track at its canonical album and makes sure that
// album is stored, writing a placeholder from the album details the remote
// sent with the track when it isn't. The placeholder is replaced by the next
// refresh.
func (svc *Service) ensureAlbum(ctx context.Context, track *models.Track) error {
	if track.AlbumID == "" {
		return errcodes.MalformedResponse("track " + track.ID + " has no album")
	}
	canonical, err := svc.store.ResolveAlbumID(ctx, track.AlbumID)
	if err != nil {
		return err
	}
	track.AlbumID = canonical

	album, err := svc.store.FetchAlbum(ctx, canonical)
	if err != nil || album != nil {
		return err
	}
	placeholder := &models.Album{
		ID:         canonical,
		Title:      track.AlbumTitle,
		ArtistName: track.AlbumArtistName,
		Thumb:      track.AlbumThumb,
		Year:       track.AlbumYear,
	}
	if placeholder.ArtistName == "" {
		placeholder.ArtistName = track.ArtistName
	}
	return svc.store.UpsertAlbums(ctx, []*models.Album{placeholder}, nil)
}
