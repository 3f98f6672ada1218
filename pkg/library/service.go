package library

import (
	"context"
	"sync"
	"time"

	"github.com/cadenzamusic/cadenza/pkg/errcodes"
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/remote"
	"github.com/cadenzamusic/cadenza/pkg/store"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/sync/errgroup"
)

// fetchConcurrency bounds the per-album and per-playlist requests made during
// a refresh.
const fetchConcurrency = 8

// ArtworkInvalidator drops cached artwork for an owner whose image changed
// or who no longer exists.
type ArtworkInvalidator interface {
	InvalidateCache(ctx context.Context, ownerID, ownerType string) error
}

// RefreshOutcome summarizes a completed refresh.
type RefreshOutcome struct {
	RunID       string     `json:"run_id"`
	Reason      string     `json:"reason"`
	Bootstrap   bool       `json:"bootstrap"`
	RefreshedAt time.Time  `json:"refreshed_at"`
	Albums      int        `json:"albums"`
	Tracks      int        `json:"tracks"`
	Artists     int        `json:"artists"`
	Collections int        `json:"collections"`
	Playlists   int        `json:"playlists"`
	Accounting  Accounting `json:"accounting"`
	// Merged maps album ids folded into another album to the id they were
	// folded into.
	Merged map[string]string `json:"merged,omitempty"`
}

// Service is the library repository: reads come from the local store, and
// RefreshLibrary reconciles the store with the remote source.
type Service struct {
	store   *store.Service
	remote  remote.Source
	artwork ArtworkInvalidator

	// refreshing admits one refresh at a time.
	refreshing sync.Mutex
	now        func() time.Time
}

// NewService wires the repository. artwork may be nil.
func NewService(st *store.Service, src remote.Source, artwork ArtworkInvalidator) *Service {
	return &Service{
		store:   st,
		remote:  src,
		artwork: artwork,
		now:     time.Now,
	}
}

func (svc *Service) Store() *store.Service {
	return svc.store
}

func (svc *Service) Remote() remote.Source {
	return svc.remote
}

// RefreshLibrary pulls the whole remote library and reconciles the store with
// it. Nothing is written until every fetch has succeeded, so a remote failure
// leaves the cache as it was and is returned as is. Only one refresh runs at
// a time; a second caller gets errcodes.OperationFailed. Once started, a
// refresh runs to completion even if ctx is cancelled.
//
// The first refresh, and any refresh with models.RefreshReasonReset, replaces
// the cache wholesale. Later ones upsert what changed, mark everything the
// remote reported as seen, and prune the rest.
func (svc *Service) RefreshLibrary(ctx context.Context, reason string) (*RefreshOutcome, error) {
	if !svc.refreshing.TryLock() {
		return nil, errcodes.OperationFailed("refresh already in progress")
	}
	defer svc.refreshing.Unlock()

	ctx = context.WithoutCancel(ctx)
	log := logger.FromContext(ctx)
	startedAt := svc.now()

	snapshot, err := svc.fetchSnapshot(ctx)
	if err != nil {
		log.Err(err).Warn("library refresh aborted: remote fetch failed", logger.Data{"reason": reason})
		return nil, err
	}
	aliases := mergeSplitAlbums(snapshot, groupTracks(snapshot.Tracks))
	snapshot.AlbumAliases = aliases
	dropDanglingLinks(snapshot)

	cachedAlbums, err := svc.store.FetchAlbums(ctx, store.Page{})
	if err != nil {
		return nil, err
	}
	cachedTracks, err := svc.store.FetchAllTracks(ctx)
	if err != nil {
		return nil, err
	}
	albumChanges := classify(albumFingerprints(snapshot.Albums), albumFingerprints(cachedAlbums))
	trackChanges := classify(trackFingerprints(snapshot.Tracks), trackFingerprints(cachedTracks))

	last, err := svc.store.LastRefreshDate(ctx)
	if err != nil {
		return nil, err
	}
	bootstrap := last == nil || reason == models.RefreshReasonReset

	run, err := svc.store.BeginIncrementalSync(ctx, startedAt, reason)
	if err != nil {
		return nil, err
	}
	log = log.ID(run.ID).Root(logger.Data{"sync_run_id": run.ID, "reason": reason})
	log.Info("library refresh started", logger.Data{
		"albums":    len(snapshot.Albums),
		"tracks":    len(snapshot.Tracks),
		"bootstrap": bootstrap,
	})

	accounting := Accounting{Albums: albumChanges.counts, Tracks: trackChanges.counts}
	refreshedAt := svc.now()
	var pruned *store.PruneResult

	if bootstrap {
		pruned, err = svc.store.ReplaceLibrary(ctx, snapshot, run, refreshedAt)
		if err != nil {
			log.Err(err).Error("library replace failed")
			return nil, err
		}
		if err := svc.store.SetSyncCheckpoints(ctx, accounting.checkpoints(), run); err != nil {
			return nil, err
		}
	} else {
		pruned, err = svc.applyIncremental(ctx, snapshot, run, albumChanges, trackChanges)
		if err != nil {
			log.Err(err).Error("library refresh failed")
			return nil, err
		}
		accounting.Albums.Deleted = len(pruned.AlbumIDs)
		accounting.Tracks.Deleted = len(pruned.TrackIDs)
		if err := svc.store.SetSyncCheckpoints(ctx, accounting.checkpoints(), run); err != nil {
			return nil, err
		}
		if err := svc.store.CompleteIncrementalSync(ctx, run, refreshedAt); err != nil {
			return nil, err
		}
	}

	svc.invalidateArtwork(ctx, changedThumbs(snapshot.Albums, cachedAlbums), pruned)

	outcome := &RefreshOutcome{
		RunID:       run.ID,
		Reason:      reason,
		Bootstrap:   bootstrap,
		RefreshedAt: refreshedAt,
		Albums:      len(snapshot.Albums),
		Tracks:      len(snapshot.Tracks),
		Artists:     len(snapshot.Artists),
		Collections: len(snapshot.Collections),
		Playlists:   len(snapshot.Playlists),
		Accounting:  accounting,
		Merged:      aliases,
	}
	log.Info("library refresh completed", logger.Data{
		"albums_new":       accounting.Albums.New,
		"albums_changed":   accounting.Albums.Changed,
		"albums_deleted":   accounting.Albums.Deleted,
		"tracks_new":       accounting.Tracks.New,
		"tracks_changed":   accounting.Tracks.Changed,
		"tracks_deleted":   accounting.Tracks.Deleted,
		"albums_merged":    len(aliases),
		"duration_seconds": refreshedAt.Sub(startedAt).Seconds(),
	})
	return outcome, nil
}

// applyIncremental writes new and changed rows, marks every remote row seen
// and prunes the rest.
func (svc *Service) applyIncremental(ctx context.Context, snapshot *models.LibrarySnapshot, run *models.SyncRun, albums, tracks *changeSet) (*store.PruneResult, error) {
	var (
		upsertAlbums []*models.Album
		albumIDs     = make([]string, 0, len(snapshot.Albums))
	)
	for _, a := range snapshot.Albums {
		albumIDs = append(albumIDs, a.ID)
		if _, ok := albums.upsert[a.ID]; ok {
			upsertAlbums = append(upsertAlbums, a)
		}
	}
	var (
		upsertTracks []*models.Track
		trackIDs     = make([]string, 0, len(snapshot.Tracks))
	)
	for _, t := range snapshot.Tracks {
		trackIDs = append(trackIDs, t.ID)
		if _, ok := tracks.upsert[t.ID]; ok {
			upsertTracks = append(upsertTracks, t)
		}
	}

	if err := svc.store.UpsertAlbums(ctx, upsertAlbums, run); err != nil {
		return nil, err
	}
	if err := svc.store.UpsertTracks(ctx, upsertTracks, run); err != nil {
		return nil, err
	}
	if err := svc.store.ReplaceArtists(ctx, snapshot.Artists, run); err != nil {
		return nil, err
	}
	if err := svc.store.ReplaceCollections(ctx, snapshot.Collections, run); err != nil {
		return nil, err
	}
	if err := svc.store.UpsertPlaylists(ctx, snapshot.Playlists, run); err != nil {
		return nil, err
	}
	for _, p := range snapshot.Playlists {
		if err := svc.store.UpsertPlaylistItems(ctx, p.ID, snapshot.PlaylistItems[p.ID], run); err != nil {
			return nil, err
		}
	}

	if err := svc.store.MarkAlbumsSeen(ctx, albumIDs, run); err != nil {
		return nil, err
	}
	if err := svc.store.MarkTracksWithValidAlbumsSeen(ctx, trackIDs, run); err != nil {
		return nil, err
	}
	if err := svc.store.MarkArtistsSeen(ctx, ids(snapshot.Artists, func(a *models.Artist) string { return a.ID }), run); err != nil {
		return nil, err
	}
	if err := svc.store.MarkCollectionsSeen(ctx, ids(snapshot.Collections, func(c *models.Collection) string { return c.ID }), run); err != nil {
		return nil, err
	}
	if err := svc.store.MarkPlaylistsSeen(ctx, ids(snapshot.Playlists, func(p *models.Playlist) string { return p.ID }), run); err != nil {
		return nil, err
	}

	if err := svc.store.ReplaceAlbumAliases(ctx, snapshot.AlbumAliases, run); err != nil {
		return nil, err
	}

	return svc.store.PruneRowsNotSeen(ctx, run)
}

// fetchSnapshot reads the whole remote library. The top-level listings are
// fetched in parallel, then every album's tracks and every playlist's items.
// The first error cancels the rest.
func (svc *Service) fetchSnapshot(ctx context.Context) (*models.LibrarySnapshot, error) {
	snapshot := &models.LibrarySnapshot{PlaylistItems: map[string][]*models.PlaylistItem{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshot.Albums, err = svc.remote.FetchAlbums(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot.Artists, err = svc.remote.FetchArtists(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot.Collections, err = svc.remote.FetchCollections(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot.Playlists, err = svc.remote.FetchPlaylists(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	albumTracks := make([][]*models.Track, len(snapshot.Albums))
	playlistItems := make([][]*models.PlaylistItem, len(snapshot.Playlists))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, a := range snapshot.Albums {
		i, a := i, a
		g.Go(func() error {
			tracks, err := svc.remote.FetchTracks(gctx, a.ID)
			if err != nil {
				return err
			}
			for _, t := range tracks {
				t.AlbumID = a.ID
			}
			albumTracks[i] = tracks
			return nil
		})
	}
	for i, p := range snapshot.Playlists {
		i, p := i, p
		g.Go(func() error {
			items, err := svc.remote.FetchPlaylistItems(gctx, p.ID)
			if err != nil {
				return err
			}
			playlistItems[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, a := range snapshot.Albums {
		tracks := albumTracks[i]
		if a.TrackCount == 0 {
			a.TrackCount = len(tracks)
		}
		if a.Duration == 0 {
			for _, t := range tracks {
				a.Duration += t.Duration
			}
		}
		snapshot.Tracks = append(snapshot.Tracks, tracks...)
	}
	for i, p := range snapshot.Playlists {
		items := playlistItems[i]
		for pos, it := range items {
			it.PlaylistID = p.ID
			it.Position = pos
		}
		snapshot.PlaylistItems[p.ID] = items
	}
	return snapshot, nil
}

// dropDanglingLinks removes artist and collection ids the remote didn't
// list, since links to rows that don't exist are pruned anyway.
func dropDanglingLinks(snapshot *models.LibrarySnapshot) {
	artists := make(map[string]struct{}, len(snapshot.Artists))
	for _, a := range snapshot.Artists {
		artists[a.ID] = struct{}{}
	}
	collections := make(map[string]struct{}, len(snapshot.Collections))
	for _, c := range snapshot.Collections {
		collections[c.ID] = struct{}{}
	}
	for _, a := range snapshot.Albums {
		a.ArtistIDs = keep(a.ArtistIDs, artists)
		a.CollectionIDs = keep(a.CollectionIDs, collections)
	}
}

func keep(values []string, allowed map[string]struct{}) []string {
	out := []string{}
	for _, v := range values {
		if _, ok := allowed[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

func groupTracks(tracks []*models.Track) map[string][]*models.Track {
	out := map[string][]*models.Track{}
	for _, t := range tracks {
		out[t.AlbumID] = append(out[t.AlbumID], t)
	}
	return out
}

func albumFingerprints(albums []*models.Album) map[string]string {
	out := make(map[string]string, len(albums))
	for _, a := range albums {
		out[a.ID] = albumFingerprint(a)
	}
	return out
}

func trackFingerprints(tracks []*models.Track) map[string]string {
	out := make(map[string]string, len(tracks))
	for _, t := range tracks {
		out[t.ID] = trackFingerprint(t)
	}
	return out
}

// changedThumbs returns ids of cached albums whose artwork path changed.
func changedThumbs(remote, cached []*models.Album) []string {
	prev := make(map[string]string, len(cached))
	for _, a := range cached {
		prev[a.ID] = a.Thumb
	}
	var out []string
	for _, a := range remote {
		if thumb, ok := prev[a.ID]; ok && thumb != a.Thumb {
			out = append(out, a.ID)
		}
	}
	return out
}

// invalidateArtwork is best effort: artwork is a cache and is refetched on
// the next request.
func (svc *Service) invalidateArtwork(ctx context.Context, changedAlbums []string, pruned *store.PruneResult) {
	if svc.artwork == nil {
		return
	}
	log := logger.FromContext(ctx)
	owners := []struct {
		ids       []string
		ownerType string
	}{
		{changedAlbums, models.OwnerTypeAlbum},
		{pruned.AlbumIDs, models.OwnerTypeAlbum},
		{pruned.ArtistIDs, models.OwnerTypeArtist},
		{pruned.CollectionIDs, models.OwnerTypeCollection},
		{pruned.PlaylistIDs, models.OwnerTypePlaylist},
	}
	for _, o := range owners {
		for _, id := range o.ids {
			if err := svc.artwork.InvalidateCache(ctx, id, o.ownerType); err != nil {
				log.Err(errors.WithStack(err)).Warn("failed to invalidate artwork", logger.Data{
					"owner_id":   id,
					"owner_type": o.ownerType,
				})
			}
		}
	}
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, id(it))
	}
	return out
}
