// Package sortname derives sort names for artists and album titles when the
// remote source doesn't supply one.
package sortname

import (
	"strings"
)

// Articles are moved to the end of the name ("The Beatles" -> "Beatles, The").
// Matching is case-insensitive and needs a following word.
var Articles = []string{
	"The",
	"A",
	"An",
	"Les",
	"Le",
	"La",
	"Los",
	"Las",
	"El",
	"Die",
	"Der",
	"Das",
	"Il",
}

// ForTitle returns the sort form of an album or collection title.
func ForTitle(title string) string {
	return moveArticle(title)
}

// ForArtist returns the sort form of an artist name. Names starting with a
// digit or symbol sort as written.
func ForArtist(name string) string {
	return moveArticle(name)
}

// Resolve returns sortName when it's set and the derived form of name
// otherwise.
func Resolve(sortName, name string) string {
	if s := strings.TrimSpace(sortName); s != "" {
		return s
	}
	return ForArtist(name)
}

func moveArticle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	head, rest, ok := strings.Cut(s, " ")
	if !ok || rest == "" {
		return s
	}
	for _, article := range Articles {
		if strings.EqualFold(head, article) {
			return rest + ", " + head
		}
	}
	return s
}
