package library

import (
	"sort"
	"strconv"

	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/normalize"
)

// mergeKey groups albums the remote reports more than once. Albums sharing a
// guid are one album; without a guid, the normalized title, artist and year
// must all match.
func mergeKey(a *models.Album) string {
	if a.GUID != "" {
		return "guid:" + a.GUID
	}
	year := ""
	if a.Year != nil {
		year = strconv.Itoa(*a.Year)
	}
	return "meta:" + normalize.Normalize(a.Title) + "|" + normalize.Normalize(a.ArtistName) + "|" + year
}

// mergeSplitAlbums folds albums split across several remote ids into one.
// The member with the lowest id (models.LessID) is canonical and keeps its metadata; track
// counts and durations are summed, tags and artist/collection ids are
// unioned, and every member's tracks move to the canonical id with duplicate
// track ids dropped. The result doesn't depend on input order: albums come
// back sorted by id and tracks keyed by their (canonical) album id.
//
// It returns the canonical id for every merged-away id.
func mergeSplitAlbums(snapshot *models.LibrarySnapshot, tracksByAlbum map[string][]*models.Track) map[string]string {
	groups := map[string][]*models.Album{}
	for _, a := range snapshot.Albums {
		key := mergeKey(a)
		groups[key] = append(groups[key], a)
	}

	aliases := map[string]string{}
	merged := make([]*models.Album, 0, len(groups))
	mergedTracks := make(map[string][]*models.Track, len(groups))
	for _, members := range groups {
		sort.SliceStable(members, func(i, j int) bool { return models.LessID(members[i].ID, members[j].ID) })
		canonical := members[0]

		seenTracks := map[string]struct{}{}
		var tracks []*models.Track
		for _, m := range members {
			for _, t := range tracksByAlbum[m.ID] {
				if _, ok := seenTracks[t.ID]; ok {
					continue
				}
				seenTracks[t.ID] = struct{}{}
				t.AlbumID = canonical.ID
				tracks = append(tracks, t)
			}
		}

		if len(members) > 1 {
			combined := *canonical
			combined.TrackCount = 0
			combined.Duration = 0
			for _, m := range members {
				combined.TrackCount += m.TrackCount
				combined.Duration += m.Duration
				if m.ID != canonical.ID {
					aliases[m.ID] = canonical.ID
				}
			}
			for _, kind := range models.TagKinds {
				var values [][]string
				for _, m := range members {
					values = append(values, m.TagValues(kind))
				}
				combined.SetTagValues(kind, unionTags(values...))
			}
			var artistIDs, collectionIDs [][]string
			for _, m := range members {
				artistIDs = append(artistIDs, m.ArtistIDs)
				collectionIDs = append(collectionIDs, m.CollectionIDs)
			}
			combined.ArtistIDs = unionExact(artistIDs...)
			combined.CollectionIDs = unionExact(collectionIDs...)
			canonical = &combined
		}

		sortTracks(tracks)
		merged = append(merged, canonical)
		mergedTracks[canonical.ID] = tracks
	}

	sort.Slice(merged, func(i, j int) bool { return models.LessID(merged[i].ID, merged[j].ID) })
	snapshot.Albums = merged

	snapshot.Tracks = make([]*models.Track, 0, len(snapshot.Tracks))
	seen := map[string]struct{}{}
	for _, a := range merged {
		for _, t := range mergedTracks[a.ID] {
			// A track listed under two unrelated albums stays with the first.
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			snapshot.Tracks = append(snapshot.Tracks, t)
		}
	}
	return aliases
}

// unionTags keeps the first spelling of every normalized value.
func unionTags(lists ...[]string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, v := range list {
			key := normalize.Normalize(v)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func unionExact(lists ...[]string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func sortTracks(tracks []*models.Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		if a.DiscNumber != b.DiscNumber {
			return a.DiscNumber < b.DiscNumber
		}
		if a.TrackNumber != b.TrackNumber {
			return a.TrackNumber < b.TrackNumber
		}
		return models.LessID(a.ID, b.ID)
	})
}
