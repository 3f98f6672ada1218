package plex

import "encoding/xml"

// Library endpoints answer with a MediaContainer holding Directory (albums,
// artists, collections), Track or Playlist elements.
type mediaContainer struct {
	XMLName     xml.Name    `xml:"MediaContainer"`
	Size        int         `xml:"size,attr"`
	Directories []directory `xml:"Directory"`
	Tracks      []track     `xml:"Track"`
	Playlists   []playlist  `xml:"Playlist"`
}

type tag struct {
	ID  string `xml:"id,attr"`
	Tag string `xml:"tag,attr"`
}

type directory struct {
	RatingKey       string `xml:"ratingKey,attr"`
	Type            string `xml:"type,attr"`
	GUID            string `xml:"guid,attr"`
	Title           string `xml:"title,attr"`
	TitleSort       string `xml:"titleSort,attr"`
	OriginalTitle   string `xml:"originalTitle,attr"`
	EditionTitle    string `xml:"editionTitle,attr"`
	ParentRatingKey string `xml:"parentRatingKey,attr"`
	ParentTitle     string `xml:"parentTitle,attr"`
	Studio          string `xml:"studio,attr"`
	Summary         string `xml:"summary,attr"`
	Thumb           string `xml:"thumb,attr"`
	Art             string `xml:"art,attr"`
	Year            int    `xml:"year,attr"`
	Rating          string `xml:"rating,attr"`
	AddedAt         int64  `xml:"addedAt,attr"`
	LeafCount       int    `xml:"leafCount,attr"`
	ChildCount      int    `xml:"childCount,attr"`
	Duration        int64  `xml:"duration,attr"`

	Genres      []tag `xml:"Genre"`
	Styles      []tag `xml:"Style"`
	Moods       []tag `xml:"Mood"`
	Collections []tag `xml:"Collection"`
}

type track struct {
	RatingKey        string  `xml:"ratingKey,attr"`
	ParentRatingKey  string  `xml:"parentRatingKey,attr"`
	Title            string  `xml:"title,attr"`
	OriginalTitle    string  `xml:"originalTitle,attr"`
	GrandparentTitle string  `xml:"grandparentTitle,attr"`
	ParentTitle      string  `xml:"parentTitle,attr"`
	ParentThumb      string  `xml:"parentThumb,attr"`
	ParentYear       int     `xml:"parentYear,attr"`
	Thumb            string  `xml:"thumb,attr"`
	Index            int     `xml:"index,attr"`
	ParentIndex      int     `xml:"parentIndex,attr"`
	Duration         int64   `xml:"duration,attr"`
	Media            []media `xml:"Media"`
}

type media struct {
	Parts []part `xml:"Part"`
}

type part struct {
	Key string `xml:"key,attr"`
}

type playlist struct {
	RatingKey    string `xml:"ratingKey,attr"`
	Title        string `xml:"title,attr"`
	Summary      string `xml:"summary,attr"`
	Composite    string `xml:"composite,attr"`
	Thumb        string `xml:"thumb,attr"`
	PlaylistType string `xml:"playlistType,attr"`
	LeafCount    int    `xml:"leafCount,attr"`
	Duration     int64  `xml:"duration,attr"`
}
