// Package plex reads a music library from a Plex Media Server.
package plex

import (
	"context"
	"encoding/xml"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/config"
	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/normalize"
	"github.com/cadenzamusic/cadenza/pkg/version"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

const (
	typeArtist = "8"
	typeAlbum  = "9"

	tokenHeader = "X-Plex-Token"
)

type Client struct {
	baseURL   *url.URL
	token     string
	sectionID string
	http      *http.Client
}

// NewClient builds a client for the server and library section named in
// cfg. Requests time out after cfg.RemoteTimeout.
func NewClient(cfg *config.Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.RemoteURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid remote url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid remote url %q: scheme must be http or https", cfg.RemoteURL)
	}
	return &Client{
		baseURL:   u,
		token:     cfg.RemoteToken,
		sectionID: cfg.RemoteSectionID,
		http:      &http.Client{Timeout: cfg.RemoteTimeout},
	}, nil
}

func (c *Client) FetchAlbums(ctx context.Context) ([]*models.Album, error) {
	collectionIDs, err := c.collectionIndex(ctx)
	if err != nil {
		return nil, err
	}
	mc, err := c.get(ctx, c.sectionPath("all"), url.Values{"type": {typeAlbum}}, "Library section", c.sectionID)
	if err != nil {
		return nil, err
	}
	albums := make([]*models.Album, 0, len(mc.Directories))
	for _, d := range mc.Directories {
		if d.RatingKey == "" {
			continue
		}
		albums = append(albums, toAlbum(d, collectionIDs))
	}
	return albums, nil
}

func (c *Client) FetchAlbum(ctx context.Context, id string) (*models.Album, error) {
	collectionIDs, err := c.collectionIndex(ctx)
	if err != nil {
		return nil, err
	}
	mc, err := c.get(ctx, "/library/metadata/"+url.PathEscape(id), nil, "Album", id)
	if err != nil {
		return nil, err
	}
	for _, d := range mc.Directories {
		if d.RatingKey == id {
			return toAlbum(d, collectionIDs), nil
		}
	}
	return nil, errcodes.NotFound("Album", id)
}

func (c *Client) FetchTracks(ctx context.Context, albumID string) ([]*models.Track, error) {
	mc, err := c.get(ctx, "/library/metadata/"+url.PathEscape(albumID)+"/children", nil, "Album", albumID)
	if err != nil {
		return nil, err
	}
	tracks := make([]*models.Track, 0, len(mc.Tracks))
	for _, t := range mc.Tracks {
		if t.RatingKey == "" {
			continue
		}
		tr := toTrack(t)
		if tr.AlbumID == "" {
			tr.AlbumID = albumID
		}
		tracks = append(tracks, tr)
	}
	return tracks, nil
}

func (c *Client) FetchTrack(ctx context.Context, id string) (*models.Track, error) {
	mc, err := c.get(ctx, "/library/metadata/"+url.PathEscape(id), nil, "Track", id)
	if err != nil {
		return nil, err
	}
	for _, t := range mc.Tracks {
		if t.RatingKey == id {
			return toTrack(t), nil
		}
	}
	return nil, errcodes.NotFound("Track", id)
}

func (c *Client) FetchArtists(ctx context.Context) ([]*models.Artist, error) {
	mc, err := c.get(ctx, c.sectionPath("all"), url.Values{"type": {typeArtist}}, "Library section", c.sectionID)
	if err != nil {
		return nil, err
	}
	artists := make([]*models.Artist, 0, len(mc.Directories))
	for _, d := range mc.Directories {
		if d.RatingKey == "" {
			continue
		}
		artists = append(artists, toArtist(d))
	}
	return artists, nil
}

func (c *Client) FetchCollections(ctx context.Context) ([]*models.Collection, error) {
	mc, err := c.get(ctx, c.sectionPath("collections"), nil, "Library section", c.sectionID)
	if err != nil {
		return nil, err
	}
	collections := make([]*models.Collection, 0, len(mc.Directories))
	for _, d := range mc.Directories {
		if d.RatingKey == "" {
			continue
		}
		collections = append(collections, toCollection(d))
	}
	return collections, nil
}

func (c *Client) FetchPlaylists(ctx context.Context) ([]*models.Playlist, error) {
	mc, err := c.get(ctx, "/playlists", url.Values{"playlistType": {"audio"}}, "Playlists", "")
	if err != nil {
		return nil, err
	}
	playlists := make([]*models.Playlist, 0, len(mc.Playlists))
	for _, p := range mc.Playlists {
		if p.RatingKey == "" || (p.PlaylistType != "" && p.PlaylistType != "audio") {
			continue
		}
		playlists = append(playlists, toPlaylist(p))
	}
	return playlists, nil
}

// FetchPlaylistItems numbers items from zero in server order.
func (c *Client) FetchPlaylistItems(ctx context.Context, playlistID string) ([]*models.PlaylistItem, error) {
	mc, err := c.get(ctx, "/playlists/"+url.PathEscape(playlistID)+"/items", nil, "Playlist", playlistID)
	if err != nil {
		return nil, err
	}
	items := make([]*models.PlaylistItem, 0, len(mc.Tracks))
	for _, t := range mc.Tracks {
		if t.RatingKey == "" {
			continue
		}
		items = append(items, &models.PlaylistItem{
			PlaylistID: playlistID,
			Position:   len(items),
			TrackID:    t.RatingKey,
		})
	}
	return items, nil
}

// StreamURL points at the track's media part with the token attached.
func (c *Client) StreamURL(track *models.Track) (string, error) {
	if track == nil || track.MediaKey == "" {
		return "", errcodes.OperationFailed("track has no playable media")
	}
	return c.resolve(track.MediaKey)
}

func (c *Client) ResolveArtworkURL(rawPath string) (string, error) {
	if rawPath == "" {
		return "", errcodes.OperationFailed("no artwork path")
	}
	return c.resolve(rawPath)
}

func (c *Client) resolve(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", errcodes.MalformedResponse(fmt.Sprintf("unparseable path %q", raw))
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	u := c.baseURL.ResolveReference(ref)
	if c.token != "" {
		q := u.Query()
		q.Set(tokenHeader, c.token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) sectionPath(suffix string) string {
	return "/library/sections/" + url.PathEscape(c.sectionID) + "/" + suffix
}

// collectionIndex maps normalized collection titles to ids.
func (c *Client) collectionIndex(ctx context.Context) (map[string]string, error) {
	collections, err := c.FetchCollections(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(collections))
	for _, co := range collections {
		key := normalize.Normalize(co.Title)
		if _, ok := index[key]; !ok {
			index[key] = co.ID
		}
	}
	return index, nil
}

// get fetches path and decodes the MediaContainer. resource and id name what
// was asked for, for NotFound errors.
func (c *Client) get(ctx context.Context, path string, query url.Values, resource, id string) (*mediaContainer, error) {
	log := logger.FromContext(ctx)

	u := c.baseURL.ResolveReference(&url.URL{Path: c.baseURL.Path + path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("X-Plex-Product", version.Product)
	req.Header.Set("X-Plex-Version", version.Version)
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Err(err).Warn("remote request failed", logger.Data{"path": path})
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	log.Debug("remote request", logger.Data{
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errcodes.AuthenticationExpired()
	case resp.StatusCode == http.StatusNotFound:
		return nil, errcodes.NotFound(resource, id)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, errcodes.Timeout()
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errcodes.RemoteUnreachable(resp.Status)
	}

	mc := &mediaContainer{}
	if err := xml.NewDecoder(resp.Body).Decode(mc); err != nil {
		if isTimeout(err) {
			return nil, errcodes.Timeout()
		}
		return nil, errcodes.MalformedResponse(err.Error())
	}
	return mc, nil
}

func transportError(err error) error {
	if isTimeout(err) {
		return errcodes.Timeout()
	}
	return errcodes.RemoteUnreachable(err.Error())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
