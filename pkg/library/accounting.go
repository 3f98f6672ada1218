package library

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/cadenzamusic/cadenza/pkg/normalize"
	"github.com/cadenzamusic/cadenza/pkg/sortname"
)

const (
	changeNew       = "new"
	changeChanged   = "changed"
	changeUnchanged = "unchanged"
	changeDeleted   = "deleted"
)

// ChangeCounts tallies how one refresh changed a kind of row.
type ChangeCounts struct {
	New       int `json:"new"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Deleted   int `json:"deleted"`
}

type Accounting struct {
	Albums ChangeCounts `json:"albums"`
	Tracks ChangeCounts `json:"tracks"`
}

// checkpoints renders the accounting as reconciliation.<kind>.<class>
// checkpoints.
func (a Accounting) checkpoints() []*models.SyncCheckpoint {
	var out []*models.SyncCheckpoint
	for _, kind := range []struct {
		name   string
		counts ChangeCounts
	}{
		{"albums", a.Albums},
		{"tracks", a.Tracks},
	} {
		for _, class := range []struct {
			name string
			n    int
		}{
			{changeNew, kind.counts.New},
			{changeChanged, kind.counts.Changed},
			{changeUnchanged, kind.counts.Unchanged},
			{changeDeleted, kind.counts.Deleted},
		} {
			out = append(out, &models.SyncCheckpoint{
				Key:   CheckpointKey(kind.name, class.name),
				Value: strconv.Itoa(class.n),
			})
		}
	}
	return out
}

// CheckpointKey names the checkpoint holding the last refresh's count for
// kind ("albums" or "tracks") and class ("new", "changed", "unchanged" or
// "deleted").
func CheckpointKey(kind, class string) string {
	return "reconciliation." + kind + "." + class
}

// changeSet is the result of comparing a remote listing with the cache.
type changeSet struct {
	// upsert holds new and changed ids.
	upsert  map[string]struct{}
	deleted []string
	counts  ChangeCounts
}

// classify compares remote fingerprints with cached ones, both keyed by id.
func classify(remote, cached map[string]string) *changeSet {
	cs := &changeSet{upsert: map[string]struct{}{}}
	for id, fp := range remote {
		prev, ok := cached[id]
		switch {
		case !ok:
			cs.counts.New++
			cs.upsert[id] = struct{}{}
		case prev != fp:
			cs.counts.Changed++
			cs.upsert[id] = struct{}{}
		default:
			cs.counts.Unchanged++
		}
	}
	for id := range cached {
		if _, ok := remote[id]; !ok {
			cs.deleted = append(cs.deleted, id)
		}
	}
	sort.Slice(cs.deleted, func(i, j int) bool { return models.LessID(cs.deleted[i], cs.deleted[j]) })
	cs.counts.Deleted = len(cs.deleted)
	return cs
}

func hashParts(parts []string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])[:16]
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// albumFingerprint hashes everything about an album that is stored, in the
// form it is stored in, so a remote album and its cached copy hash the same
// exactly when an upsert would change nothing.
func albumFingerprint(a *models.Album) string {
	title := strings.TrimSpace(a.Title)
	titleSort := a.TitleSort
	if titleSort == "" {
		titleSort = sortname.ForTitle(title)
	}
	rating := ""
	if a.Rating != nil {
		rating = strconv.FormatFloat(*a.Rating, 'g', -1, 64)
	}
	added := ""
	if a.AddedAt != nil {
		added = strconv.FormatInt(a.AddedAt.Unix(), 10)
	}
	parts := []string{
		a.ID,
		title,
		strings.TrimSpace(a.ArtistName),
		optionalInt(a.Year),
		a.Thumb,
		a.Art,
		a.Genre,
		rating,
		added,
		strconv.Itoa(a.TrackCount),
		strconv.FormatInt(a.Duration, 10),
		a.Studio,
		a.Summary,
		titleSort,
		a.OriginalTitle,
		a.EditionTitle,
		a.GUID,
	}
	for _, kind := range models.TagKinds {
		parts = append(parts, kind+"="+strings.Join(normalizedSet(a.TagValues(kind)), ","))
	}
	parts = append(parts,
		"artists="+strings.Join(sortedSet(a.ArtistIDs), ","),
		"collections="+strings.Join(sortedSet(a.CollectionIDs), ","),
	)
	return hashParts(parts)
}

func trackFingerprint(t *models.Track) string {
	return hashParts([]string{
		t.ID,
		t.AlbumID,
		strings.TrimSpace(t.Title),
		fmt.Sprintf("%d/%d", t.DiscNumber, t.TrackNumber),
		strconv.FormatInt(t.Duration, 10),
		t.ArtistName,
		t.MediaKey,
		t.Thumb,
	})
}

func normalizedSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if key := normalize.Normalize(v); key != "" {
			out = append(out, key)
		}
	}
	return sortedSet(out)
}

func sortedSet(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
