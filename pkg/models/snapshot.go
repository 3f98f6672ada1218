package models

// LibrarySnapshot is a complete copy of the remote catalog, used to bootstrap
// or reset the local store in one go.
type LibrarySnapshot struct {
	Albums        []*Album
	Tracks        []*Track
	Artists       []*Artist
	Collections   []*Collection
	Playlists     []*Playlist
	PlaylistItems map[string][]*PlaylistItem
	// AlbumAliases maps album ids merged away to the id they were merged
	// into.
	AlbumAliases map[string]string
}
